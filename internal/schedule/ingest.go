package schedule

import (
	"context"
	"fmt"
)

// DefaultFeatures returns the feature vector used for recommendation
// requests when no live sensor data accompanies the plan.
//
// Order: temperature_c, rain_mm, humidity_pct, wind_kmh, crop_stage,
// field_area_m2, soil_temp_c, soil_moisture_pct, ec_ms_cm, ph,
// nitrogen_ppm, phosphorus_ppm, potassium_ppm, week_of_month,
// day_of_week.
func DefaultFeatures() []float64 {
	return []float64{25.0, 0, 65, 12.0, 1, 10000, 26.0, 42, 1.2, 6.8, 45, 38, 152, 3, 2}
}

// Recommendation is the per-day output of the prediction model.
type Recommendation struct {
	DurationMinutes float64
	VolumeM3        float64
}

// Recommender is the interface the ingestor needs from the prediction
// service client.
type Recommender interface {
	// Predict returns irrigation parameters for the given feature vector.
	Predict(ctx context.Context, features []float64) (Recommendation, error)
}

// IngestRecorder persists ingestion events to the activity log.
type IngestRecorder interface {
	// RecordPrediction appends an ml_prediction entry for one day's slot.
	RecordPrediction(ctx context.Context, day Day, slot Slot, fallback bool) error

	// RecordPlanReceived appends a schedule_received entry once per plan.
	RecordPlanReceived(ctx context.Context, days int) error
}

// RecommendationTelemetry receives prediction outcomes for time-series
// storage. Writes are expected to be non-blocking.
type RecommendationTelemetry interface {
	WriteRecommendation(day string, durationMinutes float64, volumeM3 float64, fallback bool)
}

// DayInput is one day of an incoming weekly plan.
type DayInput struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"start_time"`
}

// Fallback holds the fixed irrigation parameters used when a
// recommendation request fails.
type Fallback struct {
	DurationMinutes float64
	VolumeM3        float64
}

// IngestResult summarizes one plan ingestion.
type IngestResult struct {
	// Days is how many days the installed plan covers.
	Days int

	// Optimized counts enabled days whose parameters came from the model.
	Optimized int

	// Fallback counts enabled days that received fallback parameters
	// because their prediction request failed.
	Fallback int
}

// Ingestor converts incoming weekly plans into active schedules.
//
// For each enabled day it requests irrigation parameters from the
// recommendation model; a failed request falls back to fixed defaults
// rather than rejecting the plan. The store is updated exactly once,
// after every day has been resolved.
type Ingestor struct {
	store       *Store
	recommender Recommender
	recorder    IngestRecorder
	telemetry   RecommendationTelemetry
	logger      Logger
	fallback    Fallback
}

// NewIngestor creates a plan ingestor.
//
// Parameters:
//   - store: Active plan storage, updated atomically per ingestion
//   - recommender: Prediction service client
//   - recorder: Activity log sink (may be nil)
//   - logger: Logger instance (may be nil)
//   - fallback: Parameters used when a prediction request fails
func NewIngestor(store *Store, recommender Recommender, recorder IngestRecorder, logger Logger, fallback Fallback) *Ingestor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Ingestor{
		store:       store,
		recommender: recommender,
		recorder:    recorder,
		logger:      logger,
		fallback:    fallback,
	}
}

// SetTelemetry attaches an optional time-series sink for prediction
// outcomes.
func (i *Ingestor) SetTelemetry(t RecommendationTelemetry) {
	i.telemetry = t
}

// Ingest validates an incoming weekly plan, resolves irrigation
// parameters for every enabled day, and atomically replaces the active
// schedule.
//
// Day names are accepted in English or French. Disabled days are kept
// in the plan (so the dashboard can show them) but never fire.
//
// Parameters:
//   - ctx: Context for cancellation and prediction timeouts
//   - plan: Day name to day input mapping
//
// Returns:
//   - IngestResult: Counts of installed, optimized, and fallback days
//   - error: nil on success, or:
//   - ErrEmptyPlan if the plan has no days
//   - ErrInvalidDay if a day name is not recognized
//   - ErrInvalidStartTime if an enabled day's start time is malformed
func (i *Ingestor) Ingest(ctx context.Context, plan map[string]DayInput) (IngestResult, error) {
	if len(plan) == 0 {
		return IngestResult{}, ErrEmptyPlan
	}

	// Validate the whole plan before touching the recommender, so a
	// malformed plan is rejected without side effects.
	parsed := make(map[Day]DayInput, len(plan))
	for name, input := range plan {
		day, err := ParseDay(name)
		if err != nil {
			return IngestResult{}, err
		}
		if _, exists := parsed[day]; exists {
			return IngestResult{}, fmt.Errorf("%w: duplicate day %q", ErrInvalidDay, name)
		}
		if input.Enabled {
			if _, _, err := ParseStartTime(input.StartTime); err != nil {
				return IngestResult{}, err
			}
		}
		parsed[day] = input
	}

	result := IngestResult{Days: len(parsed)}
	next := make(map[Day]Slot, len(parsed))

	for day, input := range parsed {
		slot := Slot{
			Enabled:   input.Enabled,
			StartTime: input.StartTime,
		}

		if input.Enabled {
			resolved := i.resolve(ctx, day)
			slot.DurationMinutes = resolved.DurationMinutes
			slot.VolumeM3 = resolved.VolumeM3
			slot.Optimized = resolved.Optimized

			if resolved.Optimized {
				result.Optimized++
			} else {
				result.Fallback++
			}

			if i.recorder != nil {
				if err := i.recorder.RecordPrediction(ctx, day, slot, !resolved.Optimized); err != nil {
					i.logger.Warn("failed to record prediction event", "day", string(day), "error", err)
				}
			}
			if i.telemetry != nil {
				i.telemetry.WriteRecommendation(string(day), slot.DurationMinutes, slot.VolumeM3, !resolved.Optimized)
			}
		}

		next[day] = slot
	}

	i.store.ReplaceAll(next)

	i.logger.Info("schedule installed",
		"days", result.Days,
		"optimized", result.Optimized,
		"fallback", result.Fallback,
	)

	if i.recorder != nil {
		if err := i.recorder.RecordPlanReceived(ctx, result.Days); err != nil {
			i.logger.Warn("failed to record plan receipt", "error", err)
		}
	}

	return result, nil
}

// resolvedSlot is the outcome of resolving one enabled day.
type resolvedSlot struct {
	DurationMinutes float64
	VolumeM3        float64
	Optimized       bool
}

// resolve obtains irrigation parameters for one enabled day, falling
// back to fixed defaults when the prediction request fails.
func (i *Ingestor) resolve(ctx context.Context, day Day) resolvedSlot {
	rec, err := i.recommender.Predict(ctx, DefaultFeatures())
	if err != nil {
		i.logger.Warn("prediction failed, using fallback parameters",
			"day", string(day),
			"error", err,
		)
		return resolvedSlot{
			DurationMinutes: i.fallback.DurationMinutes,
			VolumeM3:        i.fallback.VolumeM3,
			Optimized:       false,
		}
	}

	return resolvedSlot{
		DurationMinutes: rec.DurationMinutes,
		VolumeM3:        rec.VolumeM3,
		Optimized:       true,
	}
}
