package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// InsightsCache stores serialized aggregation results keyed by query shape.
// Entries carry a TTL and the whole cache can be invalidated after an import
// changes the underlying records.
type InsightsCache interface {
	// Get returns the cached payload for key, or found=false on a miss.
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Set stores payload under key with the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Invalidate removes every entry from the cache.
	Invalidate(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// RedisInsightsCache implements InsightsCache using Redis
// This is suitable for distributed deployments where multiple instances
// need to share cached aggregations
type RedisInsightsCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisInsightsCache creates a new Redis-based insights cache
func NewRedisInsightsCache(cfg RedisConfig) (*RedisInsightsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisInsightsCache{
		client:    client,
		keyPrefix: "insights:",
	}, nil
}

// NewRedisInsightsCacheWithClient creates a cache with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisInsightsCacheWithClient(client *redis.Client, keyPrefix string) *RedisInsightsCache {
	if keyPrefix == "" {
		keyPrefix = "insights:"
	}
	return &RedisInsightsCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached payload for key, or found=false on a miss
func (c *RedisInsightsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached insights: %w", err)
	}
	return payload, true, nil
}

// Set stores payload under key with the given TTL
func (c *RedisInsightsCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache insights: %w", err)
	}
	return nil
}

// Invalidate removes every entry under the cache prefix.
// Uses SCAN rather than KEYS so a large keyspace does not block Redis.
func (c *RedisInsightsCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to invalidate insights cache: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan insights cache keys: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate insights cache: %w", err)
		}
	}
	return nil
}

// Close closes the Redis client
func (c *RedisInsightsCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisInsightsCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisInsightsCache implements InsightsCache
var _ InsightsCache = (*RedisInsightsCache)(nil)
