package actuation

import "errors"

// Domain-specific errors for valve actuation.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrPublishFailed is returned when a command could not be published.
	ErrPublishFailed = errors.New("actuation: command publish failed")

	// ErrAckTimeout is returned when no acknowledgement arrived within
	// the configured wait.
	ErrAckTimeout = errors.New("actuation: acknowledgement timeout")

	// ErrCommandRejected is returned when the valve controller
	// acknowledged a command with a failure status.
	ErrCommandRejected = errors.New("actuation: command rejected by controller")
)
