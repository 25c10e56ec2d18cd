package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "users/alice")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "users/alice", []byte(`{"a":1}`)))
	got, err := store.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, store.Set(ctx, "users/alice", []byte(`{"a":2}`)))
	got, err = store.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))

	require.NoError(t, store.Delete(ctx, "users/alice"))
	_, err = store.Get(ctx, "users/alice")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, store.Set(ctx, " ", []byte("x")), ErrEmptyKey)
	require.NoError(t, store.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	value := []byte("hola")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'Y'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hola", string(again))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "diary.db")
	store, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "diary.db")

	first, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "language", []byte("en")))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.Get(ctx, "language")
	require.NoError(t, err)
	assert.Equal(t, "en", string(got))
}

type mockRedisKV struct {
	data    map[string]string
	lastSet string
	err     error
}

func newMockRedisKV() *mockRedisKV {
	return &mockRedisKV{data: map[string]string{}}
}

func (m *mockRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	val, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (m *mockRedisKV) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.lastSet = key
	m.data[key] = string(value.([]byte))
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	for _, k := range keys {
		delete(m.data, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func (m *mockRedisKV) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (m *mockRedisKV) Close() error { return nil }

func TestRedisStore(t *testing.T) {
	mock := newMockRedisKV()
	store := &RedisStore{client: mock, prefix: "diary:"}

	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), "currentUser", []byte("tok")))
	assert.Equal(t, "diary:currentUser", mock.lastSet)
}

func TestRedisStore_WrapsErrors(t *testing.T) {
	mock := newMockRedisKV()
	mock.err = errors.New("redis down")
	store := &RedisStore{client: mock, prefix: "diary:"}

	_, err := store.Get(context.Background(), "users/bob")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
