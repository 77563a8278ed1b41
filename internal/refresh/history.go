package refresh

import (
	"context"
	"errors"

	"github.com/evyataryagoni/geolookup/internal/models"
)

// ErrNoRuns is returned by History.Last before any run was recorded
var ErrNoRuns = errors.New("no refresh runs recorded")

// History keeps a record of refresh runs
type History interface {
	// Record stores one finished run
	Record(ctx context.Context, run models.RefreshRun) error

	// Last returns the most recent run
	Last(ctx context.Context) (*models.RefreshRun, error)

	Close() error
}

// NopHistory discards runs; used when no history database is configured
type NopHistory struct{}

func (NopHistory) Record(context.Context, models.RefreshRun) error { return nil }

func (NopHistory) Last(context.Context) (*models.RefreshRun, error) { return nil, ErrNoRuns }

func (NopHistory) Close() error { return nil }
