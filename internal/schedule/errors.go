package schedule

import "errors"

// Domain-specific errors for schedule operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidDay is returned when a day name is not recognized.
	ErrInvalidDay = errors.New("schedule: invalid day")

	// ErrInvalidStartTime is returned when a start time is not valid HH:MM.
	ErrInvalidStartTime = errors.New("schedule: invalid start time")

	// ErrInvalidSlot is returned when a slot fails structural validation.
	ErrInvalidSlot = errors.New("schedule: invalid slot")

	// ErrEmptyPlan is returned when an incoming plan contains no days.
	ErrEmptyPlan = errors.New("schedule: plan contains no days")

	// ErrAlreadyRunning is returned when Start is called on a running engine.
	ErrAlreadyRunning = errors.New("schedule: engine already running")

	// ErrNotRunning is returned when Stop is called on a stopped engine.
	ErrNotRunning = errors.New("schedule: engine not running")
)
