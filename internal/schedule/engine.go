package schedule

import (
	"context"
	"sync"
	"time"
)

// OriginSchedule tags valve commands issued by the scheduled evaluation
// loop, as opposed to manual operator commands.
const OriginSchedule = "SCHEDULE_AI"

// Gateway is the interface the engine needs to actuate the valve.
type Gateway interface {
	// Fire opens the valve for the given duration and target volume.
	// The origin tag identifies what triggered the command.
	Fire(ctx context.Context, durationSeconds int, volumeM3 float64, origin string) error
}

// Recorder persists fire events to the activity log.
type Recorder interface {
	// RecordFire appends a schedule_executed entry for the given slot.
	RecordFire(ctx context.Context, day Day, slot Slot) error
}

// Telemetry receives fire events for time-series storage. Writes are
// expected to be non-blocking.
type Telemetry interface {
	WriteFireEvent(day string, durationMinutes float64, volumeM3 float64, origin string)
}

// Logger is the minimal logging interface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// EngineConfig holds the engine's timing parameters.
type EngineConfig struct {
	// TickInterval is how often the plan is evaluated. Must be one
	// minute or less; the engine matches start times at minute
	// resolution.
	TickInterval time.Duration

	// ActuationTimeout bounds a single gateway Fire call so a hung
	// transport cannot stall the evaluation loop.
	ActuationTimeout time.Duration
}

// Engine drives the recurring irrigation schedule.
//
// It evaluates the active plan on a fixed tick: when the current
// wall-clock minute matches today's enabled slot and that minute has not
// already fired, the engine actuates the valve and records the event.
//
// The loop is resilient: gateway failures, recorder failures, and
// handler panics are logged and the next tick proceeds normally. A tick
// that misses its minute (process paused, clock jump) is permanently
// missed; the engine never back-fills.
//
// Thread Safety: Start, Stop, and Running are safe for concurrent use.
type Engine struct {
	store     *Store
	gateway   Gateway
	recorder  Recorder
	telemetry Telemetry
	logger    Logger
	cfg       EngineConfig

	// now is the clock source, replaceable in tests.
	now func() time.Time

	// fired maps each day to the last minute that actuated. Written
	// before the gateway call so a slow actuation can never double-fire
	// the same minute.
	fired   map[Day]time.Time
	firedMu sync.Mutex

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewEngine creates a schedule engine.
//
// Parameters:
//   - store: Active plan storage
//   - gateway: Valve actuation transport
//   - recorder: Activity log sink (may be nil; fires are then unlogged)
//   - logger: Logger instance (may be nil)
//   - cfg: Timing parameters
func NewEngine(store *Store, gateway Gateway, recorder Recorder, logger Logger, cfg EngineConfig) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.ActuationTimeout <= 0 {
		cfg.ActuationTimeout = 30 * time.Second
	}
	return &Engine{
		store:    store,
		gateway:  gateway,
		recorder: recorder,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		fired:    make(map[Day]time.Time),
	}
}

// SetTelemetry attaches an optional time-series sink for fire events.
// Must be called before Start.
func (e *Engine) SetTelemetry(t Telemetry) {
	e.telemetry = t
}

// Start launches the evaluation loop in a background goroutine.
//
// The loop runs until Stop is called or ctx is cancelled.
//
// Returns:
//   - error: ErrAlreadyRunning if the engine is already started
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	go e.run(runCtx)

	e.logger.Info("schedule engine started",
		"tick_interval", e.cfg.TickInterval.String(),
	)
	return nil
}

// Stop halts the evaluation loop and waits for it to exit.
//
// Returns:
//   - error: ErrNotRunning if the engine was not started
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrNotRunning
	}
	cancel := e.cancel
	done := e.done
	e.running = false
	e.mu.Unlock()

	cancel()
	<-done

	e.logger.Info("schedule engine stopped")
	return nil
}

// Running reports whether the evaluation loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// run is the evaluation loop. It evaluates once immediately, then on
// every tick until the context is cancelled.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.safeEvaluate(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.safeEvaluate(ctx)
		}
	}
}

// safeEvaluate runs one evaluation pass with panic recovery so a single
// bad tick cannot kill the loop.
func (e *Engine) safeEvaluate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("schedule evaluation panic recovered", "panic", r)
		}
	}()
	e.evaluate(ctx)
}

// evaluate performs a single pass: match today's slot against the
// current minute and fire it if due.
func (e *Engine) evaluate(ctx context.Context) {
	now := e.now()
	day := DayFor(now)

	slot, ok := e.store.Get(day)
	if !ok {
		return
	}
	if !slot.Enabled {
		return
	}
	if !slot.matchesMinute(now) {
		return
	}

	minute := now.Truncate(time.Minute)

	// Claim the minute before actuating. If the gateway call outlives
	// the tick interval, the next tick sees the claim and skips.
	e.firedMu.Lock()
	if e.fired[day].Equal(minute) {
		e.firedMu.Unlock()
		return
	}
	e.fired[day] = minute
	e.firedMu.Unlock()

	e.fire(ctx, day, slot)
}

// fire actuates the valve for a due slot and records the outcome.
func (e *Engine) fire(ctx context.Context, day Day, slot Slot) {
	fireCtx, cancel := context.WithTimeout(ctx, e.cfg.ActuationTimeout)
	defer cancel()

	err := e.gateway.Fire(fireCtx, slot.DurationSeconds(), slot.VolumeM3, OriginSchedule)
	if err != nil {
		e.logger.Error("scheduled fire failed",
			"day", string(day),
			"start_time", slot.StartTime,
			"error", err,
		)
		return
	}

	e.logger.Info("scheduled fire dispatched",
		"day", string(day),
		"start_time", slot.StartTime,
		"duration_minutes", slot.DurationMinutes,
		"volume_m3", slot.VolumeM3,
	)

	if e.recorder != nil {
		if recErr := e.recorder.RecordFire(ctx, day, slot); recErr != nil {
			// Activity logging must never interrupt the loop
			e.logger.Warn("failed to record fire event", "error", recErr)
		}
	}

	if e.telemetry != nil {
		e.telemetry.WriteFireEvent(string(day), slot.DurationMinutes, slot.VolumeM3, OriginSchedule)
	}
}
