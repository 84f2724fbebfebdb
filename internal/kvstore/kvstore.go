// Package kvstore is small namespaced key-value persistence for dashboard preferences.
// The aggregation pipeline never depends on it.
package kvstore

import (
	"context"
	"fmt"
	"strings"
)

// Store reads and writes string values inside a single namespace.
// Clear removes every key in that namespace and nothing else.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ValidateNamespace rejects namespaces that could overlap another store's keys:
// the key separator and glob metacharacters are not allowed.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("kv namespace must not be empty")
	}
	if strings.ContainsAny(namespace, `:*?[]\`) {
		return fmt.Errorf("kv namespace %q must not contain ':', '*', '?', '[', ']' or '\\'", namespace)
	}
	return nil
}
