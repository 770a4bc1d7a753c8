package recommend

import "errors"

// Domain-specific errors for recommendation requests.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrPrediction is returned when a prediction request fails for any
	// transport or service reason. Callers fall back to fixed defaults.
	ErrPrediction = errors.New("recommend: prediction failed")

	// ErrInvalidFeatures is returned when the feature vector has the
	// wrong length.
	ErrInvalidFeatures = errors.New("recommend: invalid feature vector")
)
