package cache

import (
	"context"
	"strings"
	"time"

	goCache "github.com/patrickmn/go-cache"
	"github.com/wellcare/billing/internal/logger"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = 30 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 1 * time.Hour

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache
type InMemoryCache struct {
	cache   *goCache.Cache
	enabled bool
}

// Global cache instance
var globalCache *InMemoryCache

// Initialize initializes the global cache instance
func Initialize(log *logger.Logger) *InMemoryCache {
	if globalCache == nil {
		globalCache = &InMemoryCache{
			cache:   goCache.New(DefaultExpiration, DefaultCleanupInterval),
			enabled: true,
		}
		log.Debugw("cache initialized",
			"default_expiration", DefaultExpiration,
			"cleanup_interval", DefaultCleanupInterval,
		)
	}
	return globalCache
}

// NewInMemoryCache returns the global cache, initializing it if needed
func NewInMemoryCache() Cache {
	if globalCache == nil {
		globalCache = &InMemoryCache{
			cache:   goCache.New(DefaultExpiration, DefaultCleanupInterval),
			enabled: true,
		}
	}
	return globalCache
}

// SetEnabled toggles the cache at runtime; disabled caches miss on every read
func (c *InMemoryCache) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.cache.Get(key)
}

// Set adds a value to the cache with the specified expiration
func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.enabled {
		return
	}
	c.cache.Set(key, value, expiration)
}

// Delete removes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

// DeleteByPrefix removes all keys with the given prefix
func (c *InMemoryCache) DeleteByPrefix(_ context.Context, prefix string) {
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			c.cache.Delete(k)
		}
	}
}

// Flush removes all items from the cache
func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}
