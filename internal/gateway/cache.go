package gateway

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenCache shares the gateway access token between replicas so each
// instance does not fetch its own.
type RedisTokenCache struct {
	client *redis.Client
	key    string
}

// NewRedisTokenCache creates a redis-backed token cache
func NewRedisTokenCache(addr, serviceName string) *RedisTokenCache {
	return &RedisTokenCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    serviceName + ":gateway:access-token",
	}
}

// Get returns the shared token, or "" when none is cached
func (c *RedisTokenCache) Get(ctx context.Context) (string, error) {
	value, err := c.client.Get(ctx, c.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores the token with the remaining lifetime as TTL
func (c *RedisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key, token, ttl).Err()
}

// Close releases the redis connection
func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}
