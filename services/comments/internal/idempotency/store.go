// Package idempotency deduplicates create requests by their
// Idempotency-Key header.
//
// Primary backend: Redis SETNX with TTL (REDIS_URL).
// Fallback: Postgres INSERT ... ON CONFLICT (DATABASE_URL).
// If neither is available, an in-memory store is used (development only).
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Store checks whether a request key has been seen and marks it.
type Store interface {
	// Check returns true if key was already processed.
	// If not seen, it atomically marks it as processed.
	Check(ctx context.Context, key string) (duplicate bool, err error)
}

// NewStore picks the best available store: Redis > Postgres > in-memory.
// When isProd is true, the in-memory fallback is not allowed.
func NewStore(rdb *redis.Client, pool *pgxpool.Pool, ttl time.Duration, isProd bool) (Store, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if rdb != nil {
		return newRedisStore(rdb, ttl), nil
	}
	if pool != nil {
		return newPostgresStore(pool, ttl), nil
	}
	if isProd {
		return nil, errors.New("production requires REDIS_URL or DATABASE_URL for idempotency; in-memory store is not allowed")
	}
	return newMemoryStore(ttl), nil
}
