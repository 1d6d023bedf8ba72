// Package display keeps a gauge surface in step with the owner's latest start
// time and the passage of time.
//
// A Synchronizer runs a single event loop. Owner changes, remote snapshots,
// retries and ticks all arrive on channels and are handled one at a time, so
// display state is only ever touched by that loop. A new start time causes a
// structural Render; every tick afterwards only pushes numbers through the
// gauge handle and Readout.
package display

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goodtune/daygauge/internal/metrics"
	"github.com/goodtune/daygauge/internal/storage"
	"github.com/goodtune/daygauge/internal/ticker"
	"github.com/goodtune/daygauge/internal/window"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// RetryDelay is how long to wait before resubscribing after Subscribe fails.
const RetryDelay = 5 * time.Second

// Config holds the optional collaborators of a Synchronizer.
type Config struct {
	Clock        clockwork.Clock
	Location     *time.Location
	TickInterval float64
	// Surface labels the session metric ("web", "tui").
	Surface string
}

// Synchronizer drives one Surface for one owner at a time.
type Synchronizer struct {
	starts       storage.StartStore
	surface      Surface
	clock        clockwork.Clock
	ticker       *ticker.Scheduler
	loc          *time.Location
	tickInterval float64
	surfaceName  string
	logger       zerolog.Logger

	ownerMu sync.Mutex
	owners  chan string

	// mu guards status and the gauge handle slot.
	mu         sync.Mutex
	status     Status
	gauge      Gauge
	generation uint64

	renders atomic.Int64
	ticks   atomic.Int64

	// Owned by Run.
	owner       string
	sub         storage.Subscription
	updates     <-chan storage.Snapshot
	retry       <-chan time.Time
	activeStart time.Time
	hasStart    bool
}

// New creates a synchronizer. Nothing happens until Run is called.
func New(starts storage.StartStore, surface Surface, cfg Config, logger zerolog.Logger) *Synchronizer {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = WideTickInterval
	}
	if cfg.Surface == "" {
		cfg.Surface = "unknown"
	}

	return &Synchronizer{
		starts:       starts,
		surface:      surface,
		clock:        cfg.Clock,
		ticker:       ticker.New(cfg.Clock, ticker.Period),
		loc:          cfg.Location,
		tickInterval: cfg.TickInterval,
		surfaceName:  cfg.Surface,
		logger:       logger.With().Str("component", "display").Str("surface", cfg.Surface).Logger(),
		owners:       make(chan string, 1),
	}
}

// SetOwner switches the display to another identity. An empty owner signs
// out. Only the most recent unprocessed owner is kept.
func (s *Synchronizer) SetOwner(owner string) {
	s.ownerMu.Lock()
	defer s.ownerMu.Unlock()

	select {
	case <-s.owners:
	default:
	}
	s.owners <- owner
}

// Status returns a copy of the current state.
func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stats returns render and tick counters.
func (s *Synchronizer) Stats() Stats {
	return Stats{Renders: s.renders.Load(), Ticks: s.ticks.Load()}
}

// Run processes events until ctx is done. The subscription and ticker are
// released on return.
func (s *Synchronizer) Run(ctx context.Context) error {
	metrics.ActiveSessions.WithLabelValues(s.surfaceName).Inc()
	defer metrics.ActiveSessions.WithLabelValues(s.surfaceName).Dec()
	defer s.teardown()

	s.setStatus(StateUnauthenticated, "")
	s.surface.Blank(StateUnauthenticated)

	for {
		select {
		case <-ctx.Done():
			return nil

		case owner := <-s.owners:
			s.switchOwner(ctx, owner)

		case snap, ok := <-s.updates:
			if !ok {
				s.logger.Warn().Str("owner", s.owner).Msg("Subscription ended unexpectedly")
				s.closeSubscription()
				s.enter(StateUnavailable)
				s.scheduleRetry()
				continue
			}
			s.apply(snap)

		case <-s.retry:
			s.retry = nil
			if s.owner != "" && s.sub == nil {
				s.subscribe(ctx)
			}

		case <-s.ticker.C():
			if s.hasStart {
				s.refresh()
			}
		}
	}
}

func (s *Synchronizer) switchOwner(ctx context.Context, owner string) {
	if owner == s.owner && (s.sub != nil || s.retry != nil) {
		return
	}

	s.closeSubscription()
	s.retry = nil
	s.owner = owner

	if owner == "" {
		s.enter(StateUnauthenticated)
		return
	}

	s.subscribe(ctx)
}

func (s *Synchronizer) subscribe(ctx context.Context) {
	s.enter(StateLoading)

	sub, err := s.starts.Subscribe(ctx, s.owner)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.SubscriptionErrors.Inc()
		s.logger.Error().Err(err).Str("owner", s.owner).Msg("Failed to subscribe to start time")
		s.enter(StateUnavailable)
		s.scheduleRetry()
		return
	}

	s.sub = sub
	s.updates = sub.Updates()
	s.logger.Debug().Str("owner", s.owner).Msg("Subscribed to start time")
}

func (s *Synchronizer) scheduleRetry() {
	s.retry = s.clock.After(RetryDelay)
}

func (s *Synchronizer) closeSubscription() {
	if s.sub == nil {
		return
	}
	if err := s.sub.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Error closing subscription")
	}
	s.sub = nil
	s.updates = nil
}

func (s *Synchronizer) apply(snap storage.Snapshot) {
	switch {
	case snap.Err != nil:
		metrics.SubscriptionErrors.Inc()
		s.logger.Error().Err(snap.Err).Str("owner", s.owner).Msg("Start time unavailable")
		s.closeSubscription()
		s.enter(StateUnavailable)
		s.scheduleRetry()

	case snap.Record == nil:
		s.enter(StateNoRecord)

	default:
		start := snap.Record.Start.In(s.loc)
		if s.hasStart && start.Equal(s.activeStart) {
			return
		}
		s.activate(start)
	}
}

// activate renders a gauge for a new start time and starts ticking.
func (s *Synchronizer) activate(start time.Time) {
	s.ticker.Stop()
	gen := s.dropGauge()

	s.activeStart = start
	s.hasStart = true

	initial := window.Compute(start, s.clock.Now(), window.Length)
	scene := Scene{
		Start:   start,
		End:     initial.End,
		Gauge:   s.gaugeConfig(start, initial.PercentSpent, gen),
		Initial: initial,
	}

	prev := s.Status().State
	s.setStatus(StateActive, s.owner)
	if prev != StateActive {
		metrics.StateTransitions.WithLabelValues(StateActive.String()).Inc()
	}

	s.logger.Info().
		Str("owner", s.owner).
		Time("start", start).
		Time("end", initial.End).
		Msg("Rendering gauge")

	s.surface.Render(scene)
	s.renders.Add(1)
	metrics.RendersTotal.Inc()

	s.refresh()
	s.ticker.Start()
}

func (s *Synchronizer) gaugeConfig(start time.Time, percent float64, gen uint64) GaugeConfig {
	return GaugeConfig{
		Min:          0,
		Max:          1,
		Percent:      percent,
		TickInterval: s.tickInterval,
		AxisLabel: func(v float64) string {
			return window.AxisLabel(start, window.Length, v)
		},
		Statistic: window.Statistic,
		OnReady: func(g Gauge) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.generation == gen {
				s.gauge = g
			}
		},
	}
}

// refresh pushes the current metrics without rebuilding anything.
func (s *Synchronizer) refresh() {
	m := window.Compute(s.activeStart, s.clock.Now(), window.Length)

	s.mu.Lock()
	g := s.gauge
	s.mu.Unlock()

	if g != nil {
		g.SetValue(m.PercentSpent)
	}
	s.surface.Readout(m)

	s.ticks.Add(1)
	metrics.TicksTotal.Inc()
}

// enter moves to a state without an active gauge.
func (s *Synchronizer) enter(state State) {
	s.ticker.Stop()
	s.dropGauge()
	s.activeStart = time.Time{}
	s.hasStart = false

	if cur := s.Status(); cur.State == state && cur.Owner == s.owner {
		return
	}

	s.setStatus(state, s.owner)
	metrics.StateTransitions.WithLabelValues(state.String()).Inc()
	s.surface.Blank(state)
}

// dropGauge forgets the current handle and returns the new generation.
func (s *Synchronizer) dropGauge() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gauge = nil
	s.generation++
	return s.generation
}

func (s *Synchronizer) setStatus(state State, owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{State: state, Owner: owner, Start: s.activeStart}
}

func (s *Synchronizer) teardown() {
	s.closeSubscription()
	s.ticker.Stop()
	s.dropGauge()
	s.retry = nil
}
