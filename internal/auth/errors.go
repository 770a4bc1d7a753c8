package auth

import "errors"

// Domain-specific errors for authentication.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTokenInvalid is returned for malformed, expired, or
	// incorrectly signed tokens.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrBadCredentials is returned when the operator key does not match.
	ErrBadCredentials = errors.New("auth: bad credentials")
)
