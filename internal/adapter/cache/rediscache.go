// Package cache implements the response cache port on Redis.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// RedisCache implements domain.ResponseCache on a Redis client.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedis parses the URL and returns a connected cache.
func NewRedis(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("op=cache.NewRedis: %w", err)
	}
	return &RedisCache{rdb: redis.NewClient(opts)}, nil
}

// NewRedisFromClient wraps an existing client; used by tests.
func NewRedisFromClient(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get returns the cached value and whether it was present.
func (c *RedisCache) Get(ctx domain.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("op=cache.Get: %w", err)
	}
	return v, true, nil
}

// Set stores the value with the given TTL.
func (c *RedisCache) Set(ctx domain.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("op=cache.Set: %w", err)
	}
	return nil
}

// Ping reports connectivity; used by readiness checks.
func (c *RedisCache) Ping(ctx domain.Context) error {
	return c.rdb.Ping(ctx).Err()
}
