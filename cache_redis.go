package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on top of a go-redis client. A missing
// key is a cache miss, every other Redis failure surfaces as an error
// so callers can decide whether to fail open.
type RedisCache struct {
	client redis.UniversalClient
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "redis GET failed").
			WithMetadata(map[string]any{"key": key})
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "redis SET failed").
			WithMetadata(map[string]any{"key": key})
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "redis DEL failed").
			WithMetadata(map[string]any{"key": key})
	}
	return removed > 0, nil
}
