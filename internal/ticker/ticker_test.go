package ticker

import (
	"context"
	"testing"
	"time"

	"github.com/goodtune/daygauge/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestScheduler_StoppedByDefault(t *testing.T) {
	s := New(clockwork.NewFakeClock(), time.Second)

	if s.Running() {
		t.Error("new scheduler should not be running")
	}
	if s.C() != nil {
		t.Error("C() should be nil when stopped")
	}
	// Stop on a stopped scheduler is a no-op
	s.Stop()
}

func TestScheduler_Ticks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock, time.Second)
	s.Start()
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker never registered: %v", err)
	}

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		select {
		case <-s.C():
		case <-time.After(time.Second):
			t.Fatalf("tick %d not delivered", i+1)
		}
	}
}

func TestScheduler_RestartKeepsOneTicker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock, time.Second)

	base := testutil.ToFloat64(metrics.TickersActive)

	s.Start()
	first := s.C()
	s.Start()
	second := s.C()
	s.Start()

	if got := testutil.ToFloat64(metrics.TickersActive); got != base+1 {
		t.Errorf("active tickers = %v, want %v", got, base+1)
	}
	if first == second {
		t.Error("restart should replace the ticker channel")
	}

	s.Stop()
	if got := testutil.ToFloat64(metrics.TickersActive); got != base {
		t.Errorf("active tickers after stop = %v, want %v", got, base)
	}
	if s.Running() {
		t.Error("scheduler still running after Stop")
	}
}

func TestScheduler_MissedTicksNotBackfilled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock, time.Second)
	s.Start()
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker never registered: %v", err)
	}

	// Five periods pass without the consumer reading.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
	}

	select {
	case <-s.C():
	case <-time.After(time.Second):
		t.Fatal("expected a pending tick")
	}

	select {
	case <-s.C():
		t.Error("missed ticks were queued")
	case <-time.After(50 * time.Millisecond):
	}
}
