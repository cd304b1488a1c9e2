package ranking

import (
	"context"
	"fmt"
	"time"
)

// WeightedKey is one input of a weighted union.
type WeightedKey struct {
	Key    string
	Weight float64
}

type Entry struct {
	Member string
	Score  float64
}

// Store keeps ranked sets of members by score.
type Store interface {
	// IncrBy adds delta to member's score, creating the set and member when absent.
	IncrBy(ctx context.Context, key, member string, delta float64) (float64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// UnionStore replaces dest with the weighted sum of the inputs. Missing
	// inputs count as empty sets.
	UnionStore(ctx context.Context, dest string, keys []WeightedKey) error
	// Top returns up to limit entries by descending score, ties by member
	// descending.
	Top(ctx context.Context, key string, limit int) ([]Entry, error)
	Delete(ctx context.Context, keys ...string) error
}

type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ranking %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
