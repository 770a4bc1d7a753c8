package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fieldsense/irrigation-core/internal/schedule"
)

// featureCount is the exact vector length the model was trained on.
const featureCount = 15

// maxResponseSize caps prediction response bodies (64KB is generous for
// a two-field JSON object).
const maxResponseSize = 64 << 10

// Client calls the external irrigation recommendation service.
//
// The service exposes POST /predict taking a fixed-length feature
// vector and returning recommended duration and volume. Requests are
// bounded by the configured timeout; callers degrade to fallback
// parameters on any error.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a recommendation service client.
//
// Parameters:
//   - baseURL: Service base URL without trailing slash (e.g., "http://localhost:5010")
//   - timeout: Per-request timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// predictRequest is the wire format sent to the service.
type predictRequest struct {
	Features []float64 `json:"features"`
}

// predictResponse is the wire format returned by the service.
type predictResponse struct {
	DurationMinutes float64 `json:"duration_minutes"`
	VolumeM3        float64 `json:"volume_m3"`
}

// Predict returns irrigation parameters for the given feature vector.
//
// Parameters:
//   - ctx: Context for cancellation (combined with the client timeout)
//   - features: Exactly 15 model features
//
// Returns:
//   - schedule.Recommendation: Recommended duration and volume
//   - error: nil on success, or:
//   - ErrInvalidFeatures if the vector length is wrong
//   - ErrPrediction for transport or service failures
func (c *Client) Predict(ctx context.Context, features []float64) (schedule.Recommendation, error) {
	if len(features) != featureCount {
		return schedule.Recommendation{}, fmt.Errorf("%w: got %d features, want %d", ErrInvalidFeatures, len(features), featureCount)
	}

	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return schedule.Recommendation{}, fmt.Errorf("%w: encoding request: %w", ErrPrediction, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return schedule.Recommendation{}, fmt.Errorf("%w: building request: %w", ErrPrediction, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return schedule.Recommendation{}, fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return schedule.Recommendation{}, fmt.Errorf("%w: service returned %d", ErrPrediction, resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return schedule.Recommendation{}, fmt.Errorf("%w: decoding response: %w", ErrPrediction, err)
	}

	if out.DurationMinutes <= 0 || out.VolumeM3 <= 0 {
		return schedule.Recommendation{}, fmt.Errorf("%w: non-positive recommendation (%v min, %v m3)", ErrPrediction, out.DurationMinutes, out.VolumeM3)
	}

	return schedule.Recommendation{
		DurationMinutes: out.DurationMinutes,
		VolumeM3:        out.VolumeM3,
	}, nil
}

// HealthCheck probes the service's health endpoint.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if the service responds with 200, error otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("recommendation health check: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recommendation health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recommendation health check: service returned %d", resp.StatusCode)
	}
	return nil
}
