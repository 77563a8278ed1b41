package store

import (
	"context"
	"errors"
	"net"

	"github.com/evyataryagoni/geolookup/internal/models"
)

// ErrNotFound is returned when no record exists for the IP address
var ErrNotFound = errors.New("IP address not found")

// ErrNotReady is returned when no database snapshot has been loaded yet
var ErrNotReady = errors.New("database snapshot not loaded")

// Store defines the interface for IP lookup operations
// Allows layering (snapshot, cache) and easy testing with mocks
type Store interface {
	// FindByIP looks up the geolocation record for an IP address
	FindByIP(ctx context.Context, ip net.IP) (models.Record, error)

	// Close cleans up resources (snapshot handles, cache connections, etc.)
	Close() error
}

// Versioned is implemented by stores whose data changes as a whole on refresh
// The version is part of every cache key, so a refresh invalidates the cache.
type Versioned interface {
	Version() (string, bool)
}
