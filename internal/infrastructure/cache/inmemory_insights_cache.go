package cache

import (
	"context"
	"sync"
	"time"
)

// entry represents a cached payload with expiration
type entry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryInsightsCache implements InsightsCache using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryInsightsCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryInsightsCache creates a new in-memory insights cache
// It starts a background goroutine to clean up expired entries
func NewInMemoryInsightsCache() *InMemoryInsightsCache {
	cache := &InMemoryInsightsCache{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	// Start cleanup goroutine
	cache.wg.Add(1)
	go cache.cleanupLoop()

	return cache
}

// Get returns the cached payload for key, or found=false on a miss
func (c *InMemoryInsightsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, false, nil
	}

	// Check if entry has expired
	if time.Now().After(e.expiresAt) {
		return nil, false, nil // Expired, treat as a miss
	}

	return e.payload, true, nil
}

// Set stores payload under key with the given TTL
func (c *InMemoryInsightsCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Invalidate removes every entry from the cache
func (c *InMemoryInsightsCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (c *InMemoryInsightsCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryInsightsCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemoryInsightsCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryInsightsCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryInsightsCache implements InsightsCache
var _ InsightsCache = (*InMemoryInsightsCache)(nil)
