package sync

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rendezlib/go-rendez/internal/errors"
	"github.com/rendezlib/go-rendez/internal/log"
)

// timeoutFired is the raw rendezvous value handed to a timeout clause.
type timeoutFired struct{}

// timeoutTarget gives every timeout clause its own identity, so multiple
// timeouts can participate in a single select.
type timeoutTarget struct {
	fired atomic.Bool
}

// TimerService schedules callbacks on a clock. It backs timeout clauses and
// Sleep; tests drive it with a mock clock.
type TimerService struct {
	clock  clock.Clock
	logger *slog.Logger
}

func NewTimerService(c clock.Clock) *TimerService {
	return &TimerService{
		clock:  c,
		logger: log.Discard(),
	}
}

func (ts *TimerService) WithLogger(logger *slog.Logger) *TimerService {
	ts.logger = logger
	return ts
}

// ScheduleCallback runs fn once delay has elapsed. The returned cancel
// function reports whether it prevented the callback. Firing claims the
// shared cell while cancelling poisons it, so exactly one side wins the
// race. Cancelling twice is a usage error.
func (ts *TimerService) ScheduleCallback(delay time.Duration, fn func()) (cancel func() bool) {
	var cell Cell

	ts.logger.Debug("scheduling timer", slog.Int64(log.DelayKey, delay.Milliseconds()))

	t := ts.clock.AfterFunc(delay, func() {
		if cell.TryPut(timeoutFired{}) {
			fn()
		}
	})

	var cancelled atomic.Bool
	return func() bool {
		if cancelled.Swap(true) {
			panic(errors.NewUsageError("timer cancel used twice"))
		}

		if !cell.Poison() {
			// the callback claimed the cell first
			return false
		}

		t.Stop()
		return true
	}
}

// Sleep blocks for the given delay or until ctx is cancelled.
func (ts *TimerService) Sleep(ctx context.Context, delay time.Duration) error {
	return Select(ctx, OnTimeout(ts, delay, func(context.Context) error { return nil }))
}

// regTimeout is the registration function of timeout clauses. Re-registration
// after a recorded rendezvous attempt resolves immediately instead of arming
// a second timer.
func (ts *TimerService) regTimeout(s *SelectInstance, t *timeoutTarget, delay time.Duration) {
	if delay <= 0 || t.fired.Load() {
		s.SelectInRegistrationPhase(timeoutFired{})
		return
	}

	cancel := ts.ScheduleCallback(delay, func() {
		t.fired.Store(true)
		s.TrySelect(t, timeoutFired{})
	})

	s.InvokeOnCompletion(func() { cancel() })
}
