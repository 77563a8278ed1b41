package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeClock hands every armed timer to the test
type fakeClock struct {
	arms chan chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{arms: make(chan chan time.Time, 16)}
}

func (c *fakeClock) after(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.arms <- ch
	return ch
}

func (c *fakeClock) nextArm(t *testing.T) chan time.Time {
	t.Helper()
	select {
	case ch := <-c.arms:
		return ch
	case <-time.After(5 * time.Second):
		t.Fatal("timer was not re-armed")
		return nil
	}
}

type mockReloader struct {
	mu      sync.Mutex
	calls   int
	changed bool
	err     error
	epoch   uint
}

func (r *mockReloader) Reload(string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.changed, r.err
}

func (r *mockReloader) BuildEpoch() uint {
	return r.epoch
}

func (r *mockReloader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type mockHistory struct {
	mu   sync.Mutex
	runs []models.RefreshRun
	err  error
}

func (h *mockHistory) Record(_ context.Context, run models.RefreshRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	return h.err
}

func (h *mockHistory) Last(context.Context) (*models.RefreshRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.runs) == 0 {
		return nil, ErrNoRuns
	}
	run := h.runs[len(h.runs)-1]
	return &run, nil
}

func (h *mockHistory) Close() error { return nil }

func (h *mockHistory) Runs() []models.RefreshRun {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.RefreshRun(nil), h.runs...)
}

func newTestScheduler(runner Runner, reloader Reloader, history History) (*Scheduler, *fakeClock) {
	clock := newFakeClock()
	s := NewScheduler(runner, reloader, history, 24*time.Hour, nil, logger.NewNop())
	s.after = clock.after
	return s, clock
}

// TestScheduler_RearmsOncePerFiring drives the loop with a real child
// process for each exit code and checks that every firing arms exactly
// one more timer.
func TestScheduler_RearmsOncePerFiring(t *testing.T) {
	tests := []struct {
		name        string
		script      string
		wantOutcome models.RefreshOutcome
		wantCode    int
		wantReloads int
	}{
		{"exit 0", "exit 0", models.RefreshSuccess, 0, 3},
		{"exit 1", "exit 1", models.RefreshFailure, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updater := NewUpdater("sh", []string{"-c", tt.script}, t.TempDir(), 0, logger.NewNop())
			reloader := &mockReloader{}
			history := &mockHistory{}
			s, clock := newTestScheduler(updater, reloader, history)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- s.Run(ctx) }()

			const firings = 3
			timer := clock.nextArm(t)
			for i := 0; i < firings; i++ {
				timer <- time.Now()
				timer = clock.nextArm(t)

				if got := len(history.Runs()); got != i+1 {
					t.Fatalf("after firing %d: expected %d recorded runs, got %d", i+1, i+1, got)
				}
			}

			cancel()
			select {
			case err := <-done:
				if !errors.Is(err, context.Canceled) {
					t.Errorf("expected context.Canceled, got %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("loop did not stop after cancel")
			}

			if extra := len(clock.arms); extra != 0 {
				t.Errorf("expected no extra timers, got %d", extra)
			}

			for _, run := range history.Runs() {
				if run.Outcome != tt.wantOutcome {
					t.Errorf("expected outcome %q, got %q", tt.wantOutcome, run.Outcome)
				}
				if run.ExitCode != tt.wantCode {
					t.Errorf("expected exit code %d, got %d", tt.wantCode, run.ExitCode)
				}
			}
			if reloader.Calls() != tt.wantReloads {
				t.Errorf("expected %d reloads, got %d", tt.wantReloads, reloader.Calls())
			}
		})
	}
}

func TestScheduler_StopsBeforeFirstFiring(t *testing.T) {
	runner := &mockRunner{}
	s, clock := newTestScheduler(runner, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	clock.nextArm(t)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	if runner.Calls() != 0 {
		t.Errorf("expected no updater runs, got %d", runner.Calls())
	}
}

func TestScheduler_Fire_Policy(t *testing.T) {
	tests := []struct {
		name         string
		runErr       error
		code         int
		reloadErr    error
		changed      bool
		wantOutcome  models.RefreshOutcome
		wantReloads  int
		wantReloaded bool
	}{
		{"success reloads", nil, 0, nil, true, models.RefreshSuccess, 1, true},
		{"success with unchanged file", nil, 0, nil, false, models.RefreshSuccess, 1, false},
		{"success with reload failure", nil, 0, errors.New("corrupt"), false, models.RefreshSuccess, 1, false},
		{"failure skips reload", errors.New("updater exited with code 1"), 1, nil, true, models.RefreshFailure, 0, false},
		{"start failure skips reload", errors.New("failed to run updater"), -1, nil, true, models.RefreshFailure, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{code: tt.code, err: tt.runErr}
			reloader := &mockReloader{changed: tt.changed, err: tt.reloadErr, epoch: 1700000000}
			history := &mockHistory{}
			m := metrics.NewWithRegistry(prometheus.NewRegistry())

			s := NewScheduler(runner, reloader, history, time.Hour, m, logger.NewNop())
			run := s.Fire(context.Background())

			if run.Outcome != tt.wantOutcome {
				t.Errorf("expected outcome %q, got %q", tt.wantOutcome, run.Outcome)
			}
			if run.ExitCode != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, run.ExitCode)
			}
			if reloader.Calls() != tt.wantReloads {
				t.Errorf("expected %d reloads, got %d", tt.wantReloads, reloader.Calls())
			}
			if run.Reloaded != tt.wantReloaded {
				t.Errorf("expected reloaded=%v, got %v", tt.wantReloaded, run.Reloaded)
			}
			if run.BuildEpoch != 1700000000 {
				t.Errorf("expected build epoch to be reported, got %d", run.BuildEpoch)
			}
			if (run.Error != "") != (tt.runErr != nil) {
				t.Errorf("unexpected error text %q", run.Error)
			}
			if len(history.Runs()) != 1 {
				t.Errorf("expected 1 recorded run, got %d", len(history.Runs()))
			}
			if got := testutil.ToFloat64(m.RefreshRunsTotal.WithLabelValues(string(tt.wantOutcome))); got != 1 {
				t.Errorf("expected refresh_runs_total{outcome=%q} = 1, got %v", tt.wantOutcome, got)
			}
		})
	}
}

func TestScheduler_Fire_HistoryFailureIsNotFatal(t *testing.T) {
	history := &mockHistory{err: errors.New("connection refused")}
	s := NewScheduler(&mockRunner{}, nil, history, time.Hour, nil, logger.NewNop())

	run := s.Fire(context.Background())
	if run.Outcome != models.RefreshSuccess {
		t.Errorf("expected success, got %q", run.Outcome)
	}
}

func TestDefaultPolicy(t *testing.T) {
	if !DefaultPolicy[models.RefreshSuccess].Reload {
		t.Error("success must reload the snapshot")
	}
	if DefaultPolicy[models.RefreshFailure].Reload {
		t.Error("failure must not reload the snapshot")
	}
}

type mockRunner struct {
	mu    sync.Mutex
	calls int
	code  int
	err   error
}

func (r *mockRunner) Run(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.code, r.err
}

func (r *mockRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
