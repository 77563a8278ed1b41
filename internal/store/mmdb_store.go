package store

import (
	"context"
	"net"

	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/evyataryagoni/geolookup/internal/snapshot"
)

// MMDBStore implements Store over the currently published database snapshot
type MMDBStore struct {
	holder *snapshot.Holder
}

// NewMMDBStore creates a store reading from holder
func NewMMDBStore(holder *snapshot.Holder) *MMDBStore {
	return &MMDBStore{holder: holder}
}

// FindByIP looks up ip in the current snapshot
// The snapshot is pinned for the duration of the lookup, so a concurrent
// refresh cannot close it underneath us.
func (s *MMDBStore) FindByIP(_ context.Context, ip net.IP) (models.Record, error) {
	snap := s.holder.Acquire()
	if snap == nil {
		return nil, ErrNotReady
	}
	defer snap.Release()

	record, ok, err := snap.Lookup(ip)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	return record, nil
}

// Version is the build epoch of the current snapshot
func (s *MMDBStore) Version() (string, bool) {
	snap := s.holder.Current()
	if snap == nil {
		return "", false
	}
	return snap.Version(), true
}

// Close releases the current snapshot
func (s *MMDBStore) Close() error {
	return s.holder.Close()
}
