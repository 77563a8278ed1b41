package snapshot

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/oschwald/maxminddb-golang"
	"go.uber.org/atomic"
)

// Snapshot is an opened, read-only view of one database file
//
// A snapshot is never modified after Open. It carries a reference count:
// the holder owns one reference and every in-flight lookup pins another.
// The underlying memory map is released when the count drops to zero.
type Snapshot struct {
	reader   *maxminddb.Reader
	path     string
	info     os.FileInfo
	modTime  time.Time
	size     int64
	loadedAt time.Time

	refs   atomic.Int64
	closed atomic.Bool
}

// Open opens the database file at path
// The returned snapshot holds a single (owner) reference
func Open(path string) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat database file: %w", err)
	}

	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database file: %w", err)
	}

	s := &Snapshot{
		reader:   reader,
		path:     path,
		info:     info,
		modTime:  info.ModTime(),
		size:     info.Size(),
		loadedAt: time.Now(),
	}
	s.refs.Store(1)

	return s, nil
}

// Lookup finds the record for ip
// ok is false when no network in the database contains ip
func (s *Snapshot) Lookup(ip net.IP) (record models.Record, ok bool, err error) {
	if ip == nil {
		return nil, false, fmt.Errorf("nil IP address")
	}

	_, ok, err = s.reader.LookupNetwork(ip, &record)
	if err != nil {
		return nil, false, fmt.Errorf("database lookup failed: %w", err)
	}
	if !ok || record.Empty() {
		return nil, false, nil
	}

	return record, true, nil
}

// Path is the file the snapshot was opened from
func (s *Snapshot) Path() string {
	return s.path
}

// ModTime is the modification time of the file when it was opened
func (s *Snapshot) ModTime() time.Time {
	return s.modTime
}

// Size is the size in bytes of the file when it was opened
func (s *Snapshot) Size() int64 {
	return s.size
}

// LoadedAt is when the snapshot was opened
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// DatabaseType is the database type from the file metadata (e.g. GeoLite2-City)
func (s *Snapshot) DatabaseType() string {
	return s.reader.Metadata.DatabaseType
}

// BuildEpoch is the database build time from the file metadata
func (s *Snapshot) BuildEpoch() uint {
	return s.reader.Metadata.BuildEpoch
}

// BuildTime is BuildEpoch as a time.Time
func (s *Snapshot) BuildTime() time.Time {
	return time.Unix(int64(s.reader.Metadata.BuildEpoch), 0)
}

// Version identifies the data in the snapshot
// Two snapshots built from the same database release share a version
func (s *Snapshot) Version() string {
	return strconv.FormatUint(uint64(s.reader.Metadata.BuildEpoch), 10)
}

// Closed reports whether the underlying reader has been released
func (s *Snapshot) Closed() bool {
	return s.closed.Load()
}

// sameFile reports whether info describes the file this snapshot was opened from
func (s *Snapshot) sameFile(info os.FileInfo) bool {
	return os.SameFile(s.info, info) && s.modTime.Equal(info.ModTime()) && s.size == info.Size()
}

// retain pins the snapshot; it fails once the count has reached zero
func (s *Snapshot) retain() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops one reference and closes the reader with the last one
func (s *Snapshot) Release() {
	if s.refs.Dec() == 0 {
		s.closed.Store(true)
		s.reader.Close()
	}
}
