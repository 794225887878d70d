package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state.
// Implementations: Redis (production) or in-memory (local dev / tests).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Incr atomically increments the counter at key, returning the new
	// value. The TTL is applied when the counter is created, giving a
	// sliding window that resets after ttl of inactivity from creation.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
