package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the snapshot when the database file is replaced on disk
// by something other than the refresh loop (a sidecar updater, an operator).
//
// The containing directory is watched rather than the file itself, because
// updaters write a temporary file and rename it over the old one.
type Watcher struct {
	manager  *Manager
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *logger.Logger
}

// NewWatcher starts watching the directory of the manager's database file
func NewWatcher(manager *Manager, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.NewDefault()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(manager.Path())
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		manager:  manager,
		debounce: debounce,
		watcher:  fsw,
		logger:   log.WithComponent("SnapshotWatcher"),
	}, nil
}

// Run processes file events until ctx is done or the watcher is closed
// Bursts of events are coalesced into one reload after the debounce delay.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug().Str("event", event.String()).Msg("Database file event")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")

		case <-fire:
			fire = nil
			if _, err := w.manager.Reload("watch"); err != nil {
				w.logger.Error().Err(err).Str("path", w.manager.Path()).Msg("Failed to reload snapshot after file change")
			}
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(w.manager.Path()) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Chmod)
}
