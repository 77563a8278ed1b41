package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned by Get when the key is not cached
var ErrMiss = errors.New("cache miss")

// Cache stores serialized lookup results keyed by string
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value or ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key
	Set(ctx context.Context, key string, value []byte) error

	// Name identifies the implementation in logs and metrics
	Name() string

	// Close cleans up any resources (Redis connections, etc.)
	Close() error
}
