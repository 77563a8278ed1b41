package cache

import (
	"fmt"
	"strings"
	"time"
)

// CacheConfig holds configuration for creating a record cache
type CacheConfig struct {
	Type string        // "none", "memory" or "redis"
	Size int           // memory: maximum number of entries
	TTL  time.Duration // redis: entry lifetime, 0 keeps entries until evicted

	// Redis-specific config
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewCache creates a cache based on the configuration (factory pattern)
// A nil Cache with a nil error means caching is disabled.
func NewCache(cfg CacheConfig) (Cache, error) {
	cacheType := strings.ToLower(strings.TrimSpace(cfg.Type))

	switch cacheType {
	case "none", "":
		return nil, nil

	case "memory":
		c, err := NewMemoryCache(cfg.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		return c, nil

	case "redis":
		c, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis cache: %w", err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown cache type: %s (supported: 'none', 'memory', 'redis')", cfg.Type)
	}
}
