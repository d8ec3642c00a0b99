package idempotency

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func newPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *postgresStore {
	return &postgresStore{pool: pool, ttl: ttl}
}

// Check inserts the key, or refreshes it when the previous use has
// expired. No affected row means a live duplicate.
func (s *postgresStore) Check(ctx context.Context, key string) (bool, error) {
	const q = `INSERT INTO processed_requests (request_key, created_at)
	           VALUES ($1, now())
	           ON CONFLICT (request_key) DO UPDATE SET created_at = now()
	           WHERE processed_requests.created_at < now() - make_interval(secs => $2)`

	tag, err := s.pool.Exec(ctx, q, key, s.ttl.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 0, nil
}
