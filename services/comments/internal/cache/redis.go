package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps one hash per entity with a field per page, so
// invalidation is a single DEL shared by every instance. The generation
// lives in a separate counter without a TTL.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{Client: redis.NewClient(opt), TTL: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, entityID int64, key string) ([]byte, bool, error) {
	val, err := c.Client.HGet(ctx, entityKey(entityID), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Generation(ctx context.Context, entityID int64) (int64, error) {
	return readGeneration(ctx, c.Client, entityID)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd stringGetter, entityID int64) (int64, error) {
	raw, err := cmd.Get(ctx, generationKey(entityID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// Set writes under WATCH on the generation counter, so an Invalidate that
// lands between the check and the write aborts it.
func (c *RedisCache) Set(ctx context.Context, entityID, gen int64, key string, value []byte) error {
	k := entityKey(entityID)
	err := c.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, entityID)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, key, value)
			p.Expire(ctx, k, c.TTL)
			return nil
		})
		return err
	}, generationKey(entityID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context, entityID int64) error {
	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, entityKey(entityID))
		p.Incr(ctx, generationKey(entityID))
		return nil
	})
	return err
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}
