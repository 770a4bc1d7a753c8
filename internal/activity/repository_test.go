package activity

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fieldsense/irrigation-core/internal/schedule"
)

const testSchema = `
CREATE TABLE irrigation_logs (
    id               TEXT PRIMARY KEY,
    action           TEXT NOT NULL,
    duration_minutes REAL,
    volume_m3        REAL,
    status           TEXT NOT NULL,
    source           TEXT NOT NULL,
    created_at       TEXT NOT NULL
);
CREATE INDEX idx_irrigation_logs_action ON irrigation_logs(action);
CREATE INDEX idx_irrigation_logs_created_at ON irrigation_logs(created_at);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}
	return db
}

func floatPtr(f float64) *float64 { return &f }

func TestCreateAndList(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	ctx := context.Background()

	rec := &Record{
		Action:          ActionScheduleExecuted,
		DurationMinutes: floatPtr(22.5),
		VolumeM3:        floatPtr(0.9),
		Status:          "started",
		Source:          SourceSchedule,
	}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if rec.ID == "" {
		t.Error("Create should generate an ID")
	}
	if len(rec.ID) < 4 || rec.ID[:4] != "irr-" {
		t.Errorf("ID = %q, want irr- prefix", rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Create should set CreatedAt")
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || len(result.Records) != 1 {
		t.Fatalf("got %d records (total %d), want 1", len(result.Records), result.Total)
	}

	got := result.Records[0]
	if got.Action != ActionScheduleExecuted || got.Source != SourceSchedule {
		t.Errorf("record = %+v", got)
	}
	if got.DurationMinutes == nil || *got.DurationMinutes != 22.5 {
		t.Errorf("DurationMinutes = %v, want 22.5", got.DurationMinutes)
	}
	if got.VolumeM3 == nil || *got.VolumeM3 != 0.9 {
		t.Errorf("VolumeM3 = %v, want 0.9", got.VolumeM3)
	}
}

func TestCreateNullableColumns(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &Record{
		Action: ActionScheduleReceived,
		Status: "ok:7_days",
		Source: SourceAPI,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	got := result.Records[0]
	if got.DurationMinutes != nil || got.VolumeM3 != nil {
		t.Errorf("expected nil duration/volume, got %+v", got)
	}
}

func TestListFilters(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	ctx := context.Background()

	entries := []Record{
		{Action: ActionPrediction, Status: "ok:monday", Source: SourceModel},
		{Action: ActionScheduleExecuted, Status: "started", Source: SourceSchedule, DurationMinutes: floatPtr(20), VolumeM3: floatPtr(0.8)},
		{Action: ActionManual, Status: "stop", Source: SourceManual},
		{Action: ActionScheduleExecuted, Status: "started", Source: SourceSchedule, DurationMinutes: floatPtr(30), VolumeM3: floatPtr(0.6)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	byAction, err := repo.List(ctx, Filter{Action: ActionScheduleExecuted})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if byAction.Total != 2 {
		t.Errorf("action filter total = %d, want 2", byAction.Total)
	}

	bySource, err := repo.List(ctx, Filter{Source: SourceManual})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if bySource.Total != 1 {
		t.Errorf("source filter total = %d, want 1", bySource.Total)
	}

	paged, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if paged.Total != 4 || len(paged.Records) != 2 {
		t.Errorf("paged: total=%d records=%d, want 4/2", paged.Total, len(paged.Records))
	}
}

func TestListClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))

	result, err := repo.List(context.Background(), Filter{Limit: 10000, Offset: -5})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Limit != 200 {
		t.Errorf("Limit = %d, want clamped to 200", result.Limit)
	}
	if result.Offset != 0 {
		t.Errorf("Offset = %d, want clamped to 0", result.Offset)
	}
	if result.Records == nil {
		t.Error("Records must be an empty slice, not nil")
	}
}

func TestTrendsAggregation(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	ctx := context.Background()

	today := time.Now().UTC()
	yesterday := today.AddDate(0, 0, -1)

	entries := []Record{
		{Action: ActionScheduleExecuted, Status: "started", Source: SourceSchedule,
			DurationMinutes: floatPtr(20), VolumeM3: floatPtr(0.8), CreatedAt: today},
		{Action: ActionScheduleExecuted, Status: "started", Source: SourceSchedule,
			DurationMinutes: floatPtr(30), VolumeM3: floatPtr(0.6), CreatedAt: today},
		{Action: ActionManual, Status: "start", Source: SourceManual,
			DurationMinutes: floatPtr(10), VolumeM3: floatPtr(0.4), CreatedAt: yesterday},
		// Predictions must not count towards trends
		{Action: ActionPrediction, Status: "ok:monday", Source: SourceModel,
			DurationMinutes: floatPtr(99), VolumeM3: floatPtr(9), CreatedAt: today},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	trends, err := repo.Trends(ctx, 7)
	if err != nil {
		t.Fatalf("Trends failed: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("got %d trend buckets, want 2", len(trends))
	}

	// Ordered oldest first
	if trends[0].Fires != 1 || trends[0].TotalMinutes != 10 {
		t.Errorf("yesterday bucket = %+v", trends[0])
	}
	if trends[1].Fires != 2 || trends[1].TotalMinutes != 50 {
		t.Errorf("today bucket = %+v", trends[1])
	}
	if trends[1].TotalVolumeM3 < 1.39 || trends[1].TotalVolumeM3 > 1.41 {
		t.Errorf("today volume = %v, want 1.4", trends[1].TotalVolumeM3)
	}
}

func TestRecorderMapsScheduleEvents(t *testing.T) {
	repo := NewSQLiteRepository(newTestDB(t))
	recorder := NewRecorder(repo)
	ctx := context.Background()

	slot := schedule.Slot{
		Enabled:         true,
		StartTime:       "08:00",
		DurationMinutes: 22.5,
		VolumeM3:        0.9,
		Optimized:       true,
	}

	if err := recorder.RecordFire(ctx, schedule.Monday, slot); err != nil {
		t.Fatalf("RecordFire failed: %v", err)
	}
	if err := recorder.RecordPrediction(ctx, schedule.Monday, slot, false); err != nil {
		t.Fatalf("RecordPrediction failed: %v", err)
	}
	if err := recorder.RecordPrediction(ctx, schedule.Tuesday, slot, true); err != nil {
		t.Fatalf("RecordPrediction (fallback) failed: %v", err)
	}
	if err := recorder.RecordPlanReceived(ctx, 7); err != nil {
		t.Fatalf("RecordPlanReceived failed: %v", err)
	}
	if err := recorder.RecordManual(ctx, "stop", nil, nil); err != nil {
		t.Fatalf("RecordManual failed: %v", err)
	}
	if err := recorder.RecordAdHocPrediction(ctx, 18.0, 0.7); err != nil {
		t.Fatalf("RecordAdHocPrediction failed: %v", err)
	}

	fires, err := repo.List(ctx, Filter{Action: ActionScheduleExecuted})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if fires.Total != 1 {
		t.Fatalf("fire records = %d, want 1", fires.Total)
	}
	fire := fires.Records[0]
	if fire.Source != SourceSchedule {
		t.Errorf("fire source = %q, want %q", fire.Source, SourceSchedule)
	}
	if fire.DurationMinutes == nil || *fire.DurationMinutes != 22.5 {
		t.Errorf("fire duration = %v, want 22.5", fire.DurationMinutes)
	}

	predictions, err := repo.List(ctx, Filter{Action: ActionPrediction})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if predictions.Total != 3 {
		t.Errorf("prediction records = %d, want 3", predictions.Total)
	}
	adHoc, err := repo.List(ctx, Filter{Action: ActionPrediction, Source: SourceModel})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if adHoc.Total != 3 {
		t.Errorf("model-sourced predictions = %d, want 3", adHoc.Total)
	}

	manual, err := repo.List(ctx, Filter{Action: ActionManual})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if manual.Total != 1 || manual.Records[0].DurationMinutes != nil {
		t.Errorf("manual records = %+v", manual.Records)
	}
}
