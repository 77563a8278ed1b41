package models

import "time"

// Record is a geolocation record as stored in the database snapshot
// Fields are opaque to the service: whatever the database holds for the
// network containing the IP is forwarded as-is (city, country, location, ...)
type Record map[string]any

// Empty reports whether the record carries no data
// An empty record is serialized as {} and is what clients receive on a miss
func (r Record) Empty() bool {
	return len(r) == 0
}

// RefreshOutcome is the result class of a single refresh run
type RefreshOutcome string

const (
	RefreshSuccess RefreshOutcome = "success"
	RefreshFailure RefreshOutcome = "failure"
)

// RefreshRun describes one firing of the refresh loop
type RefreshRun struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    RefreshOutcome
	ExitCode   int    // -1 when the updater could not be started or was killed
	Error      string // empty on success
	Reloaded   bool   // a new snapshot was published after the update
	BuildEpoch uint   // build epoch of the snapshot in use after the run
}

// Duration returns how long the run took
func (r RefreshRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
