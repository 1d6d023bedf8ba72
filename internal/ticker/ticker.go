// Package ticker drives the once-per-second display refresh.
package ticker

import (
	"time"

	"github.com/goodtune/daygauge/internal/metrics"
	"github.com/jonboulle/clockwork"
)

// Period is the refresh cadence of an active display.
const Period = time.Second

// Scheduler owns at most one running ticker. It is not safe for concurrent
// use; the display loop that owns it is the only caller.
type Scheduler struct {
	clock  clockwork.Clock
	period time.Duration
	ticker clockwork.Ticker
}

// New creates a stopped scheduler
func New(clock clockwork.Clock, period time.Duration) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if period <= 0 {
		period = Period
	}
	return &Scheduler{clock: clock, period: period}
}

// Start begins ticking, replacing any ticker already running so that there
// is never more than one.
func (s *Scheduler) Start() {
	s.Stop()
	s.ticker = s.clock.NewTicker(s.period)
	metrics.TickersActive.Inc()
}

// Stop halts the ticker. Safe to call when stopped.
func (s *Scheduler) Stop() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	metrics.TickersActive.Dec()
}

// C returns the tick channel, or nil when stopped. A nil channel blocks
// forever in a select, so callers can always include it.
func (s *Scheduler) C() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.Chan()
}

// Running reports whether a ticker is active.
func (s *Scheduler) Running() bool {
	return s.ticker != nil
}
