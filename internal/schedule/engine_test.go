package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockGateway records Fire calls and can be told to fail or panic.
type mockGateway struct {
	mu       sync.Mutex
	calls    []fireCall
	failWith error
	panics   bool
}

type fireCall struct {
	durationSeconds int
	volumeM3        float64
	origin          string
}

func (g *mockGateway) Fire(_ context.Context, durationSeconds int, volumeM3 float64, origin string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.panics {
		panic("gateway exploded")
	}
	g.calls = append(g.calls, fireCall{durationSeconds, volumeM3, origin})
	return g.failWith
}

func (g *mockGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *mockGateway) lastCall() fireCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[len(g.calls)-1]
}

// mockRecorder records RecordFire calls and can be told to fail.
type mockRecorder struct {
	mu       sync.Mutex
	fires    []Day
	failWith error
}

func (r *mockRecorder) RecordFire(_ context.Context, day Day, _ Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fires = append(r.fires, day)
	return r.failWith
}

func (r *mockRecorder) fireCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fires)
}

// newTestEngine builds an engine with a controllable clock.
func newTestEngine(store *Store, gateway Gateway, recorder Recorder, at time.Time) *Engine {
	e := NewEngine(store, gateway, recorder, nil, EngineConfig{
		TickInterval:     time.Second,
		ActuationTimeout: time.Second,
	})
	e.now = func() time.Time { return at }
	return e
}

// mondayAt returns a Monday timestamp at the given wall-clock time.
func mondayAt(hour, minute, second int) time.Time {
	// 2026-03-02 is a Monday
	return time.Date(2026, 3, 2, hour, minute, second, 0, time.UTC)
}

func mondayPlan(slot Slot) *Store {
	store := NewStore()
	store.ReplaceAll(map[Day]Slot{Monday: slot})
	return store
}

func TestEngineFiresMatchingSlot(t *testing.T) {
	store := mondayPlan(Slot{
		Enabled:         true,
		StartTime:       "08:00",
		DurationMinutes: 22.5,
		VolumeM3:        0.9,
		Optimized:       true,
	})
	gateway := &mockGateway{}
	recorder := &mockRecorder{}
	engine := newTestEngine(store, gateway, recorder, mondayAt(8, 0, 0))

	engine.evaluate(context.Background())

	if gateway.callCount() != 1 {
		t.Fatalf("Fire calls = %d, want 1", gateway.callCount())
	}
	call := gateway.lastCall()
	if call.durationSeconds != 1350 {
		t.Errorf("durationSeconds = %d, want 1350", call.durationSeconds)
	}
	if call.volumeM3 != 0.9 {
		t.Errorf("volumeM3 = %v, want 0.9", call.volumeM3)
	}
	if call.origin != OriginSchedule {
		t.Errorf("origin = %q, want %q", call.origin, OriginSchedule)
	}
	if recorder.fireCount() != 1 {
		t.Errorf("recorded fires = %d, want 1", recorder.fireCount())
	}
}

func TestEngineFiresOncePerMinute(t *testing.T) {
	store := mondayPlan(Slot{Enabled: true, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8})
	gateway := &mockGateway{}
	engine := newTestEngine(store, gateway, nil, mondayAt(8, 0, 0))

	// Multiple ticks within the same minute
	for _, sec := range []int{0, 15, 30, 59} {
		at := mondayAt(8, 0, sec)
		engine.now = func() time.Time { return at }
		engine.evaluate(context.Background())
	}

	if gateway.callCount() != 1 {
		t.Errorf("Fire calls = %d, want exactly 1 for repeated ticks in one minute", gateway.callCount())
	}
}

func TestEngineSkipsNonMatchingMinute(t *testing.T) {
	store := mondayPlan(Slot{Enabled: true, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8})
	gateway := &mockGateway{}

	for _, at := range []time.Time{
		mondayAt(7, 59, 59),
		mondayAt(8, 1, 0),
		mondayAt(20, 0, 0),
	} {
		engine := newTestEngine(store, gateway, nil, at)
		engine.evaluate(context.Background())
	}

	if gateway.callCount() != 0 {
		t.Errorf("Fire calls = %d, want 0 outside the start minute", gateway.callCount())
	}
}

func TestEngineSkipsDisabledSlot(t *testing.T) {
	store := mondayPlan(Slot{Enabled: false, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8})
	gateway := &mockGateway{}
	engine := newTestEngine(store, gateway, nil, mondayAt(8, 0, 0))

	engine.evaluate(context.Background())

	if gateway.callCount() != 0 {
		t.Errorf("Fire calls = %d, want 0 for disabled slot", gateway.callCount())
	}
}

func TestEngineSkipsAbsentDay(t *testing.T) {
	store := NewStore()
	store.ReplaceAll(map[Day]Slot{
		Tuesday: {Enabled: true, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8},
	})
	gateway := &mockGateway{}
	engine := newTestEngine(store, gateway, nil, mondayAt(8, 0, 0))

	engine.evaluate(context.Background())

	if gateway.callCount() != 0 {
		t.Errorf("Fire calls = %d, want 0 when today has no slot", gateway.callCount())
	}
}

func TestEngineSurvivesGatewayFailure(t *testing.T) {
	store := mondayPlan(Slot{Enabled: true, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8})
	gateway := &mockGateway{failWith: errors.New("broker unreachable")}
	recorder := &mockRecorder{}
	engine := newTestEngine(store, gateway, recorder, mondayAt(8, 0, 0))

	engine.evaluate(context.Background())

	if gateway.callCount() != 1 {
		t.Fatalf("Fire calls = %d, want 1", gateway.callCount())
	}
	if recorder.fireCount() != 0 {
		t.Error("failed fires must not be recorded as executed")
	}

	// The loop continues: next day's plan minute still fires
	gateway.failWith = nil
	store.ReplaceAll(map[Day]Slot{
		Tuesday: {Enabled: true, StartTime: "09:30", DurationMinutes: 15, VolumeM3: 0.6},
	})
	tuesday := time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC)
	engine.now = func() time.Time { return tuesday }
	engine.evaluate(context.Background())

	if gateway.callCount() != 2 {
		t.Errorf("Fire calls = %d, want 2 after recovery", gateway.callCount())
	}
	if recorder.fireCount() != 1 {
		t.Errorf("recorded fires = %d, want 1", recorder.fireCount())
	}
}

func TestEngineSurvivesRecorderFailure(t *testing.T) {
	store := mondayPlan(Slot{Enabled: true, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8})
	gateway := &mockGateway{}
	recorder := &mockRecorder{failWith: errors.New("database locked")}
	engine := newTestEngine(store, gateway, recorder, mondayAt(8, 0, 0))

	engine.evaluate(context.Background())

	if gateway.callCount() != 1 {
		t.Errorf("Fire calls = %d, want 1 despite recorder failure", gateway.callCount())
	}
}

func TestEngineRecoversFromPanic(t *testing.T) {
	store := mondayPlan(Slot{Enabled: true, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8})
	gateway := &mockGateway{panics: true}
	engine := newTestEngine(store, gateway, nil, mondayAt(8, 0, 0))

	// Must not propagate the panic
	engine.safeEvaluate(context.Background())

	// Loop still functional afterwards
	gateway.panics = false
	at := mondayAt(8, 1, 0)
	engine.now = func() time.Time { return at }
	store.ReplaceAll(map[Day]Slot{
		Monday: {Enabled: true, StartTime: "08:01", DurationMinutes: 10, VolumeM3: 0.4},
	})
	engine.safeEvaluate(context.Background())

	if gateway.callCount() != 1 {
		t.Errorf("Fire calls = %d, want 1 after panic recovery", gateway.callCount())
	}
}

func TestEngineDedupSurvivesPlanReplacement(t *testing.T) {
	store := mondayPlan(Slot{Enabled: true, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8})
	gateway := &mockGateway{}
	engine := newTestEngine(store, gateway, nil, mondayAt(8, 0, 0))

	engine.evaluate(context.Background())

	// Installing a new plan with the same start minute must not re-fire
	// within that minute.
	store.ReplaceAll(map[Day]Slot{
		Monday: {Enabled: true, StartTime: "08:00", DurationMinutes: 25, VolumeM3: 1.0},
	})
	at := mondayAt(8, 0, 45)
	engine.now = func() time.Time { return at }
	engine.evaluate(context.Background())

	if gateway.callCount() != 1 {
		t.Errorf("Fire calls = %d, want 1 across plan replacement in same minute", gateway.callCount())
	}
}

func TestEngineClaimsMinuteBeforeActuation(t *testing.T) {
	store := mondayPlan(Slot{Enabled: true, StartTime: "08:00", DurationMinutes: 20, VolumeM3: 0.8})
	gateway := &mockGateway{}
	engine := newTestEngine(store, gateway, nil, mondayAt(8, 0, 0))

	claimed := make(chan struct{})
	release := make(chan struct{})
	slowGateway := &blockingGateway{inner: gateway, entered: claimed, release: release}
	engine.gateway = slowGateway

	go engine.evaluate(context.Background())
	<-claimed

	// A second tick while the first Fire is still in flight must skip.
	done := make(chan struct{})
	go func() {
		engine.evaluate(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second evaluate blocked; dedup claim must happen before actuation")
	}

	close(release)
	if gateway.callCount() > 1 {
		t.Errorf("Fire calls = %d, want at most 1", gateway.callCount())
	}
}

// blockingGateway signals when Fire is entered and blocks until released.
type blockingGateway struct {
	inner   *mockGateway
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *blockingGateway) Fire(ctx context.Context, durationSeconds int, volumeM3 float64, origin string) error {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.inner.Fire(ctx, durationSeconds, volumeM3, origin)
}

func TestEngineStartStop(t *testing.T) {
	store := NewStore()
	gateway := &mockGateway{}
	engine := NewEngine(store, gateway, nil, nil, EngineConfig{
		TickInterval:     10 * time.Millisecond,
		ActuationTimeout: time.Second,
	})

	if engine.Running() {
		t.Fatal("engine should not be running before Start")
	}

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !engine.Running() {
		t.Error("engine should be running after Start")
	}
	if err := engine.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	if err := engine.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if engine.Running() {
		t.Error("engine should not be running after Stop")
	}
	if err := engine.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop = %v, want ErrNotRunning", err)
	}
}

func TestEngineStopsOnContextCancel(t *testing.T) {
	store := NewStore()
	engine := NewEngine(store, &mockGateway{}, nil, nil, EngineConfig{
		TickInterval:     10 * time.Millisecond,
		ActuationTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	select {
	case <-engine.done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on context cancellation")
	}
}
