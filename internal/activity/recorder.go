package activity

import (
	"context"
	"fmt"

	"github.com/fieldsense/irrigation-core/internal/schedule"
)

// Source tags stored with each record.
const (
	// SourceSchedule marks entries produced by the evaluation loop.
	SourceSchedule = "SCHEDULE_AI"

	// SourceModel marks entries produced by the recommendation model.
	SourceModel = "ML"

	// SourceManual marks operator-triggered entries.
	SourceManual = "MANUAL_DIRECT"

	// SourceAPI marks entries produced by plan ingestion.
	SourceAPI = "API"
)

// Recorder adapts the repository to the scheduler's recording
// interfaces. It satisfies both schedule.Recorder (fires) and
// schedule.IngestRecorder (ingestion events).
type Recorder struct {
	repo Repository
}

// NewRecorder creates a scheduler-facing recorder over the repository.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// RecordFire appends a schedule_executed entry for a fired slot.
func (r *Recorder) RecordFire(ctx context.Context, _ schedule.Day, slot schedule.Slot) error {
	duration := slot.DurationMinutes
	volume := slot.VolumeM3
	return r.repo.Create(ctx, &Record{
		Action:          ActionScheduleExecuted,
		DurationMinutes: &duration,
		VolumeM3:        &volume,
		Status:          "started",
		Source:          SourceSchedule,
	})
}

// RecordPrediction appends an ml_prediction entry for one day's slot.
func (r *Recorder) RecordPrediction(ctx context.Context, day schedule.Day, slot schedule.Slot, fallback bool) error {
	duration := slot.DurationMinutes
	volume := slot.VolumeM3
	status := fmt.Sprintf("ok:%s", day)
	if fallback {
		status = fmt.Sprintf("fallback:%s", day)
	}
	return r.repo.Create(ctx, &Record{
		Action:          ActionPrediction,
		DurationMinutes: &duration,
		VolumeM3:        &volume,
		Status:          status,
		Source:          SourceModel,
	})
}

// RecordPlanReceived appends a schedule_received entry once per ingested plan.
func (r *Recorder) RecordPlanReceived(ctx context.Context, days int) error {
	return r.repo.Create(ctx, &Record{
		Action: ActionScheduleReceived,
		Status: fmt.Sprintf("ok:%d_days", days),
		Source: SourceAPI,
	})
}

// RecordAdHocPrediction appends an ml_prediction entry for an on-demand
// prediction requested through the API rather than during ingestion.
func (r *Recorder) RecordAdHocPrediction(ctx context.Context, durationMinutes, volumeM3 float64) error {
	return r.repo.Create(ctx, &Record{
		Action:          ActionPrediction,
		DurationMinutes: &durationMinutes,
		VolumeM3:        &volumeM3,
		Status:          "prediction_ok",
		Source:          SourceModel,
	})
}

// RecordManual appends a manual_mqtt entry for an operator command.
//
// durationMinutes and volumeM3 may be nil for commands without
// parameters (e.g., stop).
func (r *Recorder) RecordManual(ctx context.Context, status string, durationMinutes, volumeM3 *float64) error {
	return r.repo.Create(ctx, &Record{
		Action:          ActionManual,
		DurationMinutes: durationMinutes,
		VolumeM3:        volumeM3,
		Status:          status,
		Source:          SourceManual,
	})
}
