// Package schedule implements the recurring irrigation scheduler.
//
// It has three parts:
//
//   - Store: the active weekly plan, one slot per day, replaced
//     atomically on each ingestion.
//   - Ingestor: converts incoming weekly plans into slots, asking the
//     recommendation model for per-day duration and volume and falling
//     back to fixed defaults when the model is unavailable.
//   - Engine: a ticker-driven loop that fires today's slot when the
//     wall-clock minute matches its start time, exactly once per minute
//     per day.
//
// # Correctness
//
// The engine claims a (day, minute) pair in its fired map before calling
// the actuation gateway. A gateway call that outlives the tick interval
// therefore cannot cause a duplicate fire for the same minute. Minutes
// that pass without a tick (process suspension, clock jumps) are
// permanently missed; the engine never fires retroactively.
//
// # Failure Handling
//
// Every error class is contained: prediction failures degrade to
// fallback parameters, actuation and activity-log failures are logged
// and the loop continues, and evaluation panics are recovered per tick.
package schedule
