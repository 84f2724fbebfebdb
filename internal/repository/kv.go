package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/disaster-watch/internal/kvstore"
)

var _ kvstore.Store = (*KVStore)(nil)

// KVStore is a namespaced key-value table sharing the archive's database.
type KVStore struct {
	db        *sql.DB
	namespace string
}

func (s *SQLiteDB) KVStore(namespace string) *KVStore {
	return &KVStore{db: s.db, namespace: namespace}
}

func (k *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := k.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, k.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error reading key %q: %w", key, err)
	}
	return value, true, nil
}

func (k *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, `
		INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		k.namespace, key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("error writing key %q: %w", key, err)
	}
	return nil
}

func (k *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`, k.namespace, key,
	); err != nil {
		return fmt.Errorf("error deleting key %q: %w", key, err)
	}
	return nil
}

func (k *KVStore) Clear(ctx context.Context) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ?`, k.namespace); err != nil {
		return fmt.Errorf("error clearing namespace %q: %w", k.namespace, err)
	}
	return nil
}
