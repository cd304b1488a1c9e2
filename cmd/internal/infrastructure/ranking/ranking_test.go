package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, srv
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}
}

func TestStore_IncrByAccumulates(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			score, err := store.IncrBy(ctx, "k", "a", 1)
			require.NoError(t, err)
			assert.Equal(t, 1.0, score)

			score, err = store.IncrBy(ctx, "k", "a", 1)
			require.NoError(t, err)
			assert.Equal(t, 2.0, score)

			score, err = store.IncrBy(ctx, "k", "a", -1)
			require.NoError(t, err)
			assert.Equal(t, 1.0, score)
		})
	}
}

func TestStore_TopOrdersByScoreThenMemberDesc(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for member, score := range map[string]float64{"a": 1, "b": 5, "c": 5, "d": 3} {
				_, err := store.IncrBy(ctx, "k", member, score)
				require.NoError(t, err)
			}

			top, err := store.Top(ctx, "k", 3)
			require.NoError(t, err)
			assert.Equal(t, []Entry{{"c", 5}, {"b", 5}, {"d", 3}}, top)

			top, err = store.Top(ctx, "missing", 3)
			require.NoError(t, err)
			assert.Empty(t, top)

			top, err = store.Top(ctx, "k", 0)
			require.NoError(t, err)
			assert.Empty(t, top)
		})
	}
}

func TestStore_UnionStoreAppliesWeights(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, _ = store.IncrBy(ctx, "day1", "a", 2)
			_, _ = store.IncrBy(ctx, "day1", "b", 1)
			_, _ = store.IncrBy(ctx, "day2", "a", 1)
			_, _ = store.IncrBy(ctx, "old", "z", 100)

			// Previous content of dest is replaced.
			_, _ = store.IncrBy(ctx, "dest", "z", 1)

			err := store.UnionStore(ctx, "dest", []WeightedKey{
				{Key: "day1", Weight: 0.5},
				{Key: "day2", Weight: 2},
				{Key: "absent", Weight: 10},
			})
			require.NoError(t, err)

			top, err := store.Top(ctx, "dest", 10)
			require.NoError(t, err)
			assert.Equal(t, []Entry{{"a", 3}, {"b", 0.5}}, top)
		})
	}
}

func TestStore_DeleteRemovesSets(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, _ = store.IncrBy(ctx, "k", "a", 1)

			require.NoError(t, store.Delete(ctx, "k", "other"))
			require.NoError(t, store.Delete(ctx))

			top, err := store.Top(ctx, "k", 10)
			require.NoError(t, err)
			assert.Empty(t, top)
		})
	}
}

func TestRedisStore_ExpireSetsTTL(t *testing.T) {
	store, srv := newRedisStore(t)
	ctx := context.Background()

	_, err := store.IncrBy(ctx, "k", "a", 1)
	require.NoError(t, err)
	require.NoError(t, store.Expire(ctx, "k", time.Hour))
	assert.Equal(t, time.Hour, srv.TTL("k"))

	srv.FastForward(2 * time.Hour)
	assert.False(t, srv.Exists("k"))
}

func TestMemoryStore_ExpireDropsSet(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = store.IncrBy(ctx, "k", "a", 1)
	require.NoError(t, store.Expire(ctx, "k", time.Hour))
	assert.Equal(t, time.Hour, store.TTL("k"))

	now = now.Add(2 * time.Hour)
	top, err := store.Top(ctx, "k", 10)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.Zero(t, store.TTL("k"))
}

func TestNewRedisStore_FailsWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestRedisStore_ErrorsAreWrapped(t *testing.T) {
	srv := miniredis.RunT(t)
	store := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	srv.SetError("boom")

	_, err := store.IncrBy(context.Background(), "k", "a", 1)

	var rankErr *Error
	require.ErrorAs(t, err, &rankErr)
	assert.Equal(t, "incr", rankErr.Op)
}
