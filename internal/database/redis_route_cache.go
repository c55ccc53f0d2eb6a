package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

// RedisConfig holds connection settings for the shared route cache
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// RedisRouteCache stores routes as JSON strings in Redis
type RedisRouteCache struct {
	client *redis.Client
	prefix string
}

// NewRedisClient creates a Redis client with conservative timeouts
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
	})
}

// NewRedisRouteCache wraps client. Keys are namespaced under "concierge:".
func NewRedisRouteCache(client *redis.Client) *RedisRouteCache {
	return &RedisRouteCache{client: client, prefix: "concierge:"}
}

// Ping tests the Redis connection
func (c *RedisRouteCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisRouteCache) Get(ctx context.Context, key string) (*models.Route, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached route: %w", err)
	}

	var route models.Route
	if err := json.Unmarshal(raw, &route); err != nil {
		return nil, fmt.Errorf("failed to decode cached route: %w", err)
	}
	return &route, nil
}

func (c *RedisRouteCache) Set(ctx context.Context, key string, route *models.Route, ttl time.Duration) error {
	raw, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache route: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisRouteCache) Close() error {
	return c.client.Close()
}
