package display

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goodtune/daygauge/internal/storage"
	"github.com/goodtune/daygauge/internal/window"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type fakeSubscription struct {
	owner   string
	updates chan storage.Snapshot
	closed  atomic.Bool
}

func (f *fakeSubscription) Updates() <-chan storage.Snapshot { return f.updates }

func (f *fakeSubscription) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeSubscription) push(snap storage.Snapshot) {
	storage.Offer(f.updates, snap)
}

type fakeStore struct {
	mu         sync.Mutex
	failures   int
	subscribed chan *fakeSubscription
}

func newFakeStore() *fakeStore {
	return &fakeStore{subscribed: make(chan *fakeSubscription, 16)}
}

func (f *fakeStore) Append(ctx context.Context, record storage.StartRecord) error {
	return nil
}

func (f *fakeStore) Latest(ctx context.Context, owner string) (*storage.StartRecord, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeStore) Subscribe(ctx context.Context, owner string) (storage.Subscription, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	f.mu.Unlock()

	sub := &fakeSubscription{owner: owner, updates: make(chan storage.Snapshot, 1)}
	f.subscribed <- sub
	return sub, nil
}

type recordingGauge struct {
	mu     sync.Mutex
	values []float64
}

func (g *recordingGauge) SetValue(percent float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values = append(g.values, percent)
}

func (g *recordingGauge) Values() []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]float64(nil), g.values...)
}

type recordingSurface struct {
	mu         sync.Mutex
	deferReady bool
	scenes     []Scene
	gauges     []*recordingGauge
	readouts   []window.Metrics
	blanks     []State
}

func (r *recordingSurface) Render(scene Scene) {
	g := &recordingGauge{}

	r.mu.Lock()
	r.scenes = append(r.scenes, scene)
	r.gauges = append(r.gauges, g)
	deferReady := r.deferReady
	r.mu.Unlock()

	if !deferReady {
		scene.Gauge.OnReady(g)
	}
}

func (r *recordingSurface) Readout(m window.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readouts = append(r.readouts, m)
}

func (r *recordingSurface) Blank(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blanks = append(r.blanks, state)
}

func (r *recordingSurface) counts() (scenes, readouts, blanks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scenes), len(r.readouts), len(r.blanks)
}

func (r *recordingSurface) lastBlank() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.blanks) == 0 {
		return -1
	}
	return r.blanks[len(r.blanks)-1]
}

func (r *recordingSurface) scene(i int) Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scenes[i]
}

func (r *recordingSurface) gauge(i int) *recordingGauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gauges[i]
}

func (r *recordingSurface) lastReadout() window.Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readouts[len(r.readouts)-1]
}

type harness struct {
	sync    *Synchronizer
	store   *fakeStore
	surface *recordingSurface
	clock   *clockwork.FakeClock
	cancel  context.CancelFunc
	done    chan error
	once    sync.Once
}

func startHarness(t *testing.T, surface *recordingSurface) *harness {
	t.Helper()

	store := newFakeStore()
	clock := clockwork.NewFakeClockAt(testNow)
	s := New(store, surface, Config{Clock: clock, Location: time.UTC, Surface: "test"}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	h := &harness{sync: s, store: store, surface: surface, clock: clock, cancel: cancel, done: done}
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}

func (h *harness) nextSub(t *testing.T) *fakeSubscription {
	t.Helper()
	select {
	case sub := <-h.store.subscribed:
		return sub
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Subscribe")
	}
	return nil
}

// tick advances the fake clock one period and waits for the readout.
func (h *harness) tick(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker not running: %v", err)
	}

	_, before, _ := h.surface.counts()
	h.clock.Advance(time.Second)
	waitFor(t, "tick readout", func() bool {
		_, n, _ := h.surface.counts()
		return n == before+1
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func record(id string, start time.Time) storage.Snapshot {
	return storage.Snapshot{Record: &storage.StartRecord{ID: id, Owner: "alice", Start: start, Created: testNow}}
}

func TestSynchronizer_StartsUnauthenticated(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	waitFor(t, "initial blank", func() bool { return h.surface.lastBlank() == StateUnauthenticated })
	if st := h.sync.Status(); st.State != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", st.State)
	}
}

func TestSynchronizer_LoadingUntilFirstSnapshot(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	h.sync.SetOwner("alice")
	sub := h.nextSub(t)
	if sub.owner != "alice" {
		t.Errorf("subscribed owner = %q", sub.owner)
	}

	waitFor(t, "loading", func() bool { return h.sync.Status().State == StateLoading })
	if got := h.surface.lastBlank(); got != StateLoading {
		t.Errorf("last blank = %v, want loading", got)
	}
}

func TestSynchronizer_NoRecord(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	h.sync.SetOwner("alice")
	sub := h.nextSub(t)
	sub.push(storage.Snapshot{})

	waitFor(t, "no record", func() bool { return h.sync.Status().State == StateNoRecord })
	scenes, readouts, _ := h.surface.counts()
	if scenes != 0 || readouts != 0 {
		t.Errorf("scenes=%d readouts=%d, want none", scenes, readouts)
	}
}

func TestSynchronizer_RenderOnNewStart(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	start := testNow.Add(-8 * time.Hour)
	h.sync.SetOwner("alice")
	h.nextSub(t).push(record("rec-1", start))

	waitFor(t, "render", func() bool { s, _, _ := h.surface.counts(); return s == 1 })

	scene := h.surface.scene(0)
	if !scene.Start.Equal(start) {
		t.Errorf("scene start = %v, want %v", scene.Start, start)
	}
	if !scene.End.Equal(start.Add(window.Length)) {
		t.Errorf("scene end = %v", scene.End)
	}
	if scene.Gauge.Min != 0 || scene.Gauge.Max != 1 {
		t.Errorf("gauge range = %v..%v", scene.Gauge.Min, scene.Gauge.Max)
	}
	if scene.Gauge.Percent != 0.5 {
		t.Errorf("gauge percent = %v, want 0.5", scene.Gauge.Percent)
	}
	if scene.Gauge.TickInterval != WideTickInterval {
		t.Errorf("tick interval = %v", scene.Gauge.TickInterval)
	}
	if got, want := scene.Gauge.AxisLabel(0.25), window.AxisLabel(start, window.Length, 0.25); got != want {
		t.Errorf("axis label = %q, want %q", got, want)
	}
	if got := scene.Gauge.Statistic(0.5); got != "Day Spent: 50.000%" {
		t.Errorf("statistic = %q", got)
	}

	// Immediate refresh follows the render.
	waitFor(t, "initial readout", func() bool { _, r, _ := h.surface.counts(); return r == 1 })
	if got := h.surface.gauge(0).Values(); len(got) != 1 || got[0] != 0.5 {
		t.Errorf("gauge values = %v, want [0.5]", got)
	}

	st := h.sync.Status()
	if st.State != StateActive || st.Owner != "alice" || !st.Start.Equal(start) {
		t.Errorf("status = %+v", st)
	}
}

// Three ticks over three seconds push three updates without a
// structural render.
func TestSynchronizer_TicksUpdateWithoutRender(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	start := testNow.Add(-8 * time.Hour)
	h.sync.SetOwner("alice")
	h.nextSub(t).push(record("rec-1", start))
	waitFor(t, "render", func() bool { s, _, _ := h.surface.counts(); return s == 1 })

	for i := 0; i < 3; i++ {
		h.tick(t)
	}

	scenes, readouts, _ := h.surface.counts()
	if scenes != 1 {
		t.Errorf("scenes = %d, want 1", scenes)
	}
	if readouts != 4 {
		t.Errorf("readouts = %d, want 4", readouts)
	}

	values := h.surface.gauge(0).Values()
	if len(values) != 4 {
		t.Fatalf("gauge values = %v, want 4 entries", values)
	}
	for i, v := range values {
		want := window.Compute(start, testNow.Add(time.Duration(i)*time.Second), window.Length).PercentSpent
		if v != want {
			t.Errorf("value[%d] = %v, want %v", i, v, want)
		}
	}

	if stats := h.sync.Stats(); stats.Renders != 1 || stats.Ticks != 4 {
		t.Errorf("stats = %+v, want 1 render and 4 ticks", stats)
	}

	last := h.surface.lastReadout()
	if got := window.FormatClock(last.Elapsed); got != "8 hrs, 0 min, 3 secs" {
		t.Errorf("elapsed = %q", got)
	}
}

func TestSynchronizer_SameStartIgnored(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	start := testNow.Add(-2 * time.Hour)
	h.sync.SetOwner("alice")
	sub := h.nextSub(t)
	sub.push(record("rec-1", start))
	waitFor(t, "render", func() bool { s, _, _ := h.surface.counts(); return s == 1 })

	sub.push(record("rec-2", start))
	waitFor(t, "snapshot consumed", func() bool { return len(sub.updates) == 0 })
	h.tick(t)

	if scenes, _, _ := h.surface.counts(); scenes != 1 {
		t.Errorf("scenes = %d, want 1", scenes)
	}
}

// A newer record with an earlier start re-renders against it.
func TestSynchronizer_NewerRecordEarlierStart(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	h.sync.SetOwner("alice")
	sub := h.nextSub(t)
	sub.push(record("rec-1", testNow.Add(-1*time.Hour)))
	waitFor(t, "first render", func() bool { s, _, _ := h.surface.counts(); return s == 1 })
	before := h.surface.lastReadout().PercentSpent

	earlier := testNow.Add(-3 * time.Hour)
	sub.push(record("rec-2", earlier))
	waitFor(t, "second render", func() bool { s, _, _ := h.surface.counts(); return s == 2 })
	waitFor(t, "refresh", func() bool { _, r, _ := h.surface.counts(); return r == 2 })

	if got := h.surface.scene(1).Start; !got.Equal(earlier) {
		t.Errorf("scene start = %v, want %v", got, earlier)
	}
	if after := h.surface.lastReadout().PercentSpent; after <= before {
		t.Errorf("percent spent %v did not increase from %v", after, before)
	}
	if st := h.sync.Status(); !st.Start.Equal(earlier) {
		t.Errorf("status start = %v, want %v", st.Start, earlier)
	}
}

func TestSynchronizer_UnavailableThenRecover(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	start := testNow.Add(-time.Hour)
	h.sync.SetOwner("alice")
	sub := h.nextSub(t)
	sub.push(record("rec-1", start))
	waitFor(t, "render", func() bool { s, _, _ := h.surface.counts(); return s == 1 })

	sub.push(storage.Snapshot{Err: errors.New("connection reset")})
	waitFor(t, "unavailable", func() bool { return h.sync.Status().State == StateUnavailable })
	if got := h.surface.lastBlank(); got != StateUnavailable {
		t.Errorf("last blank = %v, want unavailable", got)
	}
	if st := h.sync.Status(); !st.Start.IsZero() {
		t.Errorf("start not cleared: %v", st.Start)
	}

	waitFor(t, "subscription closed", func() bool { return sub.closed.Load() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("retry timer not armed: %v", err)
	}
	h.clock.Advance(RetryDelay)

	// Same start after recovery renders again since nothing is shown.
	next := h.nextSub(t)
	next.push(record("rec-1", start))
	waitFor(t, "re-render", func() bool { s, _, _ := h.surface.counts(); return s == 2 })
	if st := h.sync.Status(); st.State != StateActive {
		t.Errorf("state = %v, want active", st.State)
	}
}

func TestSynchronizer_SignOutClosesSubscription(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	h.sync.SetOwner("alice")
	sub := h.nextSub(t)
	sub.push(record("rec-1", testNow.Add(-time.Hour)))
	waitFor(t, "render", func() bool { s, _, _ := h.surface.counts(); return s == 1 })

	h.sync.SetOwner("")
	waitFor(t, "unauthenticated", func() bool { return h.sync.Status().State == StateUnauthenticated })

	if !sub.closed.Load() {
		t.Error("subscription not closed on sign out")
	}
	if got := h.surface.lastBlank(); got != StateUnauthenticated {
		t.Errorf("last blank = %v", got)
	}
}

func TestSynchronizer_OwnerSwitch(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	h.sync.SetOwner("alice")
	first := h.nextSub(t)

	h.sync.SetOwner("bob")
	second := h.nextSub(t)

	if second.owner != "bob" {
		t.Errorf("second subscription owner = %q", second.owner)
	}
	if !first.closed.Load() {
		t.Error("previous subscription not closed")
	}
	waitFor(t, "bob loading", func() bool {
		st := h.sync.Status()
		return st.Owner == "bob" && st.State == StateLoading
	})
}

func TestSynchronizer_CancelReleasesSubscription(t *testing.T) {
	h := startHarness(t, &recordingSurface{})

	h.sync.SetOwner("alice")
	sub := h.nextSub(t)
	sub.push(record("rec-1", testNow.Add(-time.Hour)))
	waitFor(t, "render", func() bool { s, _, _ := h.surface.counts(); return s == 1 })

	h.stop()

	if !sub.closed.Load() {
		t.Error("subscription not closed on cancel")
	}
}

func TestSynchronizer_SubscribeRetry(t *testing.T) {
	h := startHarness(t, &recordingSurface{})
	h.store.mu.Lock()
	h.store.failures = 1
	h.store.mu.Unlock()

	h.sync.SetOwner("alice")
	waitFor(t, "unavailable", func() bool { return h.sync.Status().State == StateUnavailable })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("retry timer not armed: %v", err)
	}
	h.clock.Advance(RetryDelay)

	sub := h.nextSub(t)
	sub.push(storage.Snapshot{})
	waitFor(t, "no record", func() bool { return h.sync.Status().State == StateNoRecord })
}

func TestSynchronizer_StaleHandleIgnored(t *testing.T) {
	h := startHarness(t, &recordingSurface{deferReady: true})

	h.sync.SetOwner("alice")
	sub := h.nextSub(t)
	sub.push(record("rec-1", testNow.Add(-time.Hour)))
	waitFor(t, "first render", func() bool { s, _, _ := h.surface.counts(); return s == 1 })

	sub.push(record("rec-2", testNow.Add(-2*time.Hour)))
	waitFor(t, "second render", func() bool { s, _, _ := h.surface.counts(); return s == 2 })

	stale := &recordingGauge{}
	current := &recordingGauge{}
	h.surface.scene(0).Gauge.OnReady(stale)
	h.surface.scene(1).Gauge.OnReady(current)

	h.tick(t)

	if got := stale.Values(); len(got) != 0 {
		t.Errorf("stale gauge received %v", got)
	}
	if got := current.Values(); len(got) != 1 {
		t.Errorf("current gauge values = %v, want one", got)
	}
}
