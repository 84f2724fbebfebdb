package kvstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/disaster-watch/internal/kvstore"
)

func newTestStore(t *testing.T, namespace string) (*kvstore.RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return kvstore.NewRedisStore(client, namespace), mr, client
}

func TestRedisStore_SetGet(t *testing.T) {
	s, mr, _ := newTestStore(t, "prefs")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "theme", "dark"))

	got, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", got)

	raw, err := mr.Get("prefs:theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", raw)
}

func TestRedisStore_GetMiss(t *testing.T) {
	s, _, _ := newTestStore(t, "prefs")

	got, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestRedisStore_Delete(t *testing.T) {
	s, _, _ := newTestStore(t, "prefs")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "theme", "dark"))
	require.NoError(t, s.Delete(ctx, "theme"))
	require.NoError(t, s.Delete(ctx, "ghost"))

	_, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ClearIsNamespaced(t *testing.T) {
	s, mr, client := newTestStore(t, "prefs")
	other := kvstore.NewRedisStore(client, "other")
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, k, "1"))
	}
	require.NoError(t, other.Set(ctx, "a", "keep"))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, s.Clear(ctx))

	for _, k := range []string{"a", "b", "c"} {
		_, ok, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, "key %s should be cleared", k)
	}

	got, ok, err := other.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "keep", got)
	assert.True(t, mr.Exists("unrelated"))
}

func TestValidateNamespace(t *testing.T) {
	assert.NoError(t, kvstore.ValidateNamespace("preferences"))
	assert.NoError(t, kvstore.ValidateNamespace("user-42.prefs"))

	for _, ns := range []string{"", "prefs:admin", "p*", "p?", "p[ab]", `p\x`} {
		assert.Error(t, kvstore.ValidateNamespace(ns), "namespace %q", ns)
	}
}

func TestRedisStore_ClearSkipsNestedNamespace(t *testing.T) {
	s, mr, _ := newTestStore(t, "prefs")
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "theme", "dark"))
	require.NoError(t, mr.Set("prefsx:theme", "keep"))

	require.NoError(t, s.Clear(ctx))

	_, ok, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("prefsx:theme"))
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := kvstore.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = kvstore.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}
