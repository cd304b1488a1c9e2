package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
	}

	log.Infof("connected to redis at %s", cfg.Addr)
	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) IncrBy(ctx context.Context, key, member string, delta float64) (float64, error) {
	score, err := r.client.ZIncrBy(ctx, key, delta, member).Result()
	if err != nil {
		return 0, &Error{Op: "incr", Key: key, Err: err}
	}
	return score, nil
}

func (r *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return &Error{Op: "expire", Key: key, Err: err}
	}
	return nil
}

func (r *RedisStore) UnionStore(ctx context.Context, dest string, keys []WeightedKey) error {
	if len(keys) == 0 {
		return r.Delete(ctx, dest)
	}

	store := &redis.ZStore{
		Keys:      make([]string, len(keys)),
		Weights:   make([]float64, len(keys)),
		Aggregate: "SUM",
	}
	for i, k := range keys {
		store.Keys[i] = k.Key
		store.Weights[i] = k.Weight
	}

	if err := r.client.ZUnionStore(ctx, dest, store).Err(); err != nil {
		return &Error{Op: "union", Key: dest, Err: err}
	}
	return nil
}

func (r *RedisStore) Top(ctx context.Context, key string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}

	zs, err := r.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, &Error{Op: "top", Key: key, Err: err}
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			member = fmt.Sprint(z.Member)
		}
		entries = append(entries, Entry{Member: member, Score: z.Score})
	}
	return entries, nil
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return &Error{Op: "delete", Key: keys[0], Err: err}
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
