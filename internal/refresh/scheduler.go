package refresh

import (
	"context"
	"time"

	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/rs/zerolog"
)

// Reloader republishes the database snapshot after an update
type Reloader interface {
	Reload(trigger string) (bool, error)
}

type epochReporter interface {
	BuildEpoch() uint
}

// Action is what the scheduler does with the outcome of a run
type Action struct {
	Level  zerolog.Level
	Reload bool
}

// DefaultPolicy maps each outcome to its action
// Both outcomes fire again one period later; there is no backoff.
var DefaultPolicy = map[models.RefreshOutcome]Action{
	models.RefreshSuccess: {Level: zerolog.InfoLevel, Reload: true},
	models.RefreshFailure: {Level: zerolog.ErrorLevel, Reload: false},
}

// Scheduler runs the updater on a fixed period for the life of the process
type Scheduler struct {
	runner   Runner
	reloader Reloader
	history  History
	metrics  *metrics.Metrics
	logger   *logger.Logger
	period   time.Duration
	policy   map[models.RefreshOutcome]Action

	after func(time.Duration) <-chan time.Time
	now   func() time.Time
}

// NewScheduler creates a scheduler firing every period
// reloader, history and m may be nil.
func NewScheduler(runner Runner, reloader Reloader, history History, period time.Duration, m *metrics.Metrics, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault()
	}
	if history == nil {
		history = NopHistory{}
	}
	return &Scheduler{
		runner:   runner,
		reloader: reloader,
		history:  history,
		metrics:  m,
		logger:   log.WithComponent("Refresh"),
		period:   period,
		policy:   DefaultPolicy,
		after:    time.After,
		now:      time.Now,
	}
}

// Run fires the updater every period until ctx is done
// The next firing is armed only after the current one has finished,
// so runs never overlap.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Dur("period", s.period).Msg("Refresh loop started")

	for {
		next := s.after(s.period)
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Refresh loop stopped")
			return ctx.Err()
		case <-next:
			s.Fire(ctx)
		}
	}
}

// Fire runs the updater once and applies the policy for its outcome
func (s *Scheduler) Fire(ctx context.Context) models.RefreshRun {
	run := models.RefreshRun{StartedAt: s.now()}

	code, err := s.runner.Run(ctx)
	run.FinishedAt = s.now()
	run.ExitCode = code
	run.Outcome = models.RefreshSuccess
	if err != nil {
		run.Outcome = models.RefreshFailure
		run.Error = err.Error()
	}

	action := s.policy[run.Outcome]
	if action.Reload && s.reloader != nil {
		reloaded, reloadErr := s.reloader.Reload("refresh")
		if reloadErr != nil {
			s.logger.Error().Err(reloadErr).Msg("Database updated but snapshot reload failed, keeping current snapshot")
		}
		run.Reloaded = reloaded
	}

	if e, ok := s.reloader.(epochReporter); ok {
		run.BuildEpoch = e.BuildEpoch()
	}

	event := s.logger.WithLevel(action.Level).
		Str("outcome", string(run.Outcome)).
		Int("exit_code", run.ExitCode).
		Dur("duration", run.Duration()).
		Bool("reloaded", run.Reloaded).
		Uint("build_epoch", run.BuildEpoch)
	if run.Error != "" {
		event = event.Str("error", run.Error)
	}
	event.Msg("Refresh run finished")

	if s.metrics != nil {
		s.metrics.RefreshRunsTotal.WithLabelValues(string(run.Outcome)).Inc()
		s.metrics.RefreshDuration.Observe(run.Duration().Seconds())
	}

	if err := s.history.Record(ctx, run); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record refresh run")
	}

	return run
}
