package cache

import (
	"context"
	"sync"
)

// MockCache is a test double for the Cache interface
// It records calls and can be told to fail
type MockCache struct {
	mu      sync.Mutex
	Entries map[string][]byte

	GetCalls []string
	SetCalls []string

	GetError error
	SetError error
}

// NewMockCache creates an empty mock cache
func NewMockCache() *MockCache {
	return &MockCache{Entries: map[string][]byte{}}
}

// Get implements the Cache interface
func (m *MockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)
	if m.GetError != nil {
		return nil, m.GetError
	}
	value, ok := m.Entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return value, nil
}

// Set implements the Cache interface
func (m *MockCache) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, key)
	if m.SetError != nil {
		return m.SetError
	}
	m.Entries[key] = value
	return nil
}

// Name implements the Cache interface
func (m *MockCache) Name() string {
	return "mock"
}

// Close implements the Cache interface
func (m *MockCache) Close() error {
	return nil
}
