package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// MemoryCache is an in-process LRU cache
// Suitable for single-instance deployments; entries live until evicted.
type MemoryCache struct {
	entries *lru.Cache
}

// NewMemoryCache creates an LRU cache holding at most size entries
func NewMemoryCache(size int) (*MemoryCache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("invalid cache size %d: %w", size, err)
	}
	return &MemoryCache{entries: entries}, nil
}

// Get returns the cached value or ErrMiss
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := c.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return value.([]byte), nil
}

// Set stores value under key, evicting the least recently used entry when full
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.entries.Add(key, value)
	return nil
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

// Name identifies the implementation
func (c *MemoryCache) Name() string {
	return "memory"
}

// Close drops all entries
func (c *MemoryCache) Close() error {
	c.entries.Purge()
	return nil
}
