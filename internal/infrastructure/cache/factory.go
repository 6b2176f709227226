package cache

import (
	"fmt"

	"github.com/libinsight/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// InsightsCacheFactory creates insights caches based on configuration
type InsightsCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// InsightsCacheFactoryOption is a functional option for configuring the factory
type InsightsCacheFactoryOption func(*InsightsCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) InsightsCacheFactoryOption {
	return func(f *InsightsCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) InsightsCacheFactoryOption {
	return func(f *InsightsCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewInsightsCacheFactory creates a new factory
func NewInsightsCacheFactory(cfg config.RedisConfig, opts ...InsightsCacheFactoryOption) *InsightsCacheFactory {
	f := &InsightsCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true, // Default to allowing fallback
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based insights cache
func (f *InsightsCacheFactory) CreateRedisCache() (InsightsCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	cache, err := NewRedisInsightsCache(redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis insights cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory insights cache
// This is suitable for single-instance deployments and testing
// WARNING: In-memory caches do not share state across process instances,
// so invalidation after an import only reaches the local instance
func (f *InsightsCacheFactory) CreateInMemoryCache() InsightsCache {
	return NewInMemoryInsightsCache()
}

// CreateCache creates an insights cache based on whether Redis is available
// It tries to create a Redis cache first, and falls back to in-memory if Redis is not available
// and AllowInMemoryFallback is true
func (f *InsightsCacheFactory) CreateCache() (InsightsCache, error) {
	// Try Redis first
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis insights cache")
		return cache, nil
	}

	// Check if fallback is allowed
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for insights cache but unavailable: %w", err)
	}

	// Fall back to in-memory with warning
	f.logger.Warn("Redis unavailable, falling back to in-memory insights cache. "+
		"Stale aggregations may be served after imports on other instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
