package resultcache

import (
	"context"
	"sync"
)

// MemoryCache is an in-process Cache used by tests and pkg/config's
// local-dev mode when no Redis URL is configured.
type MemoryCache struct {
	mu    sync.Mutex
	store map[string]*CachedResult
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: make(map[string]*CachedResult)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*CachedResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cr, ok := c.store[key]
	return cr, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, result *CachedResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = result
	return nil
}
