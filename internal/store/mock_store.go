package store

import (
	"context"
	"net"
	"sync"

	"github.com/evyataryagoni/geolookup/internal/models"
)

// MockStore is a test double for the Store interface
// It allows tests to control behavior and verify interactions
type MockStore struct {
	mu sync.Mutex

	// Data holds the mock data (canonical IP string -> record)
	Data map[string]models.Record

	// Track method calls for verification in tests
	FindByIPCalls []string
	CloseCalled   bool

	// Control behavior for error scenarios
	FindByIPError error
	CloseError    error

	// Version returned through the Versioned interface; empty means not loaded
	DataVersion string
}

// NewMockStore creates a mock store with sample test data
func NewMockStore() *MockStore {
	return &MockStore{
		Data: map[string]models.Record{
			"81.2.69.142": {
				"city":    map[string]any{"names": map[string]any{"en": "London"}},
				"country": map[string]any{"iso_code": "GB", "names": map[string]any{"en": "United Kingdom"}},
			},
			"216.160.83.56": {
				"city":    map[string]any{"names": map[string]any{"en": "Milton"}},
				"country": map[string]any{"iso_code": "US", "names": map[string]any{"en": "United States"}},
			},
		},
		FindByIPCalls: []string{},
		DataVersion:   "1",
	}
}

// NewEmptyMockStore creates a mock store with no data
// Useful for testing "not found" scenarios
func NewEmptyMockStore() *MockStore {
	return &MockStore{
		Data:          map[string]models.Record{},
		FindByIPCalls: []string{},
		DataVersion:   "1",
	}
}

// FindByIP implements the Store interface
// Tracks calls and returns configured data or errors
func (m *MockStore) FindByIP(_ context.Context, ip net.IP) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindByIPCalls = append(m.FindByIPCalls, ip.String())

	if m.FindByIPError != nil {
		return nil, m.FindByIPError
	}

	record, exists := m.Data[ip.String()]
	if !exists {
		return nil, ErrNotFound
	}

	return record, nil
}

// Calls returns how many lookups have been made
func (m *MockStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.FindByIPCalls)
}

// Version implements the Versioned interface
func (m *MockStore) Version() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DataVersion, m.DataVersion != ""
}

// Close implements the Store interface
// Tracks that close was called and returns configured error if any
func (m *MockStore) Close() error {
	m.CloseCalled = true
	return m.CloseError
}
