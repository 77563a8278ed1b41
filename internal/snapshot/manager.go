package snapshot

import (
	"fmt"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
)

// Manager opens the database file and republishes it when it changes
type Manager struct {
	path    string
	holder  *Holder
	metrics *metrics.Metrics
	logger  *logger.Logger

	mu sync.Mutex // serializes Load and Reload
}

// NewManager creates a manager for the database file at path
// m may be nil
func NewManager(path string, holder *Holder, m *metrics.Metrics, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Manager{
		path:    path,
		holder:  holder,
		metrics: m,
		logger:  log.WithComponent("Snapshot"),
	}
}

// Path is the database file the manager watches over
func (m *Manager) Path() string {
	return m.path
}

// Holder is where snapshots are published
func (m *Manager) Holder() *Holder {
	return m.holder
}

// Load opens the database file and publishes it unconditionally
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := Open(m.path)
	if err != nil {
		m.observe("startup", "error")
		return err
	}

	m.publish(next, "startup")
	return nil
}

// Reload republishes the database file if it changed since the current
// snapshot was opened. It reports whether a new snapshot was published.
// On error the current snapshot stays in place.
func (m *Manager) Reload(trigger string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := os.Stat(m.path)
	if err != nil {
		m.observe(trigger, "error")
		return false, fmt.Errorf("failed to stat database file: %w", err)
	}

	if current := m.holder.Current(); current != nil && current.sameFile(info) {
		m.logger.Debug().
			Str("trigger", trigger).
			Str("path", m.path).
			Msg("Database file unchanged, keeping current snapshot")
		m.observe(trigger, "unchanged")
		return false, nil
	}

	next, err := Open(m.path)
	if err != nil {
		m.observe(trigger, "error")
		return false, err
	}

	m.publish(next, trigger)
	return true, nil
}

func (m *Manager) publish(next *Snapshot, trigger string) {
	m.holder.Swap(next)
	m.observe(trigger, "reloaded")

	if m.metrics != nil {
		m.metrics.SnapshotBuildEpoch.Set(float64(next.BuildEpoch()))
		m.metrics.SnapshotLoadedAtSec.Set(float64(next.LoadedAt().Unix()))
	}

	m.logger.Info().
		Str("trigger", trigger).
		Str("path", next.Path()).
		Str("database_type", next.DatabaseType()).
		Str("size", humanize.Bytes(uint64(next.Size()))).
		Time("modified", next.ModTime()).
		Str("built", humanize.Time(next.BuildTime())).
		Uint("build_epoch", next.BuildEpoch()).
		Msg("Snapshot published")
}

func (m *Manager) observe(trigger, result string) {
	if m.metrics != nil {
		m.metrics.SnapshotReloads.WithLabelValues(trigger, result).Inc()
	}
}

// BuildEpoch is the build epoch of the published snapshot, 0 when none
func (m *Manager) BuildEpoch() uint {
	if current := m.holder.Current(); current != nil {
		return current.BuildEpoch()
	}
	return 0
}
