// Package activity provides access to the irrigation_logs table for
// recording and querying irrigation history.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the irrigation log.
const (
	// ActionPrediction is one day's recommendation outcome during ingestion.
	ActionPrediction = "ml_prediction"

	// ActionScheduleReceived marks the arrival of a new weekly plan.
	ActionScheduleReceived = "schedule_received"

	// ActionScheduleExecuted marks a scheduled valve fire.
	ActionScheduleExecuted = "schedule_executed"

	// ActionManual marks a manually triggered valve command.
	ActionManual = "manual_mqtt"
)

// Record represents a single irrigation log entry.
type Record struct {
	ID              string    `json:"id"`
	Action          string    `json:"action"`
	DurationMinutes *float64  `json:"duration_minutes,omitempty"`
	VolumeM3        *float64  `json:"volume_m3,omitempty"`
	Status          string    `json:"status"`
	Source          string    `json:"source"`
	CreatedAt       time.Time `json:"created_at"`
}

// Filter controls which records to return.
type Filter struct {
	Action string // optional: filter by action
	Source string // optional: filter by source tag
	Since  string // optional: RFC3339 lower bound on created_at
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains the paginated log results.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Trend is one bucket of the aggregated history used by the analytics
// endpoint.
type Trend struct {
	Date          string  `json:"date"`
	Fires         int     `json:"fires"`
	TotalMinutes  float64 `json:"total_minutes"`
	TotalVolumeM3 float64 `json:"total_volume_m3"`
	AvgVolumeM3   float64 `json:"avg_volume_m3"`
}

// Repository defines the interface for irrigation log operations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Trends(ctx context.Context, days int) ([]Trend, error)
}

// SQLiteRepository stores irrigation logs in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new irrigation log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new log entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = "irr-" + uuid.NewString()[:8]
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO irrigation_logs (id, action, duration_minutes, volume_m3, status, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Action,
		nullableFloat(rec.DurationMinutes), nullableFloat(rec.VolumeM3),
		rec.Status, rec.Source,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting irrigation log: %w", err)
	}

	return nil
}

// nullableFloat returns nil for nil pointers, or the dereferenced value.
// Used for nullable REAL columns in SQLite.
func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// List returns log entries matching the filter, ordered by most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Since != "" {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Get total count.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM irrigation_logs %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting irrigation logs: %w", err)
	}

	// Get paginated results.
	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, action, duration_minutes, volume_m3, status, source, created_at FROM irrigation_logs %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying irrigation logs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var duration, volume sql.NullFloat64
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Action, &duration, &volume,
			&rec.Status, &rec.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning irrigation log: %w", err)
		}

		if duration.Valid {
			rec.DurationMinutes = &duration.Float64
		}
		if volume.Valid {
			rec.VolumeM3 = &volume.Float64
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing irrigation log timestamp %q: %w", createdAt, err)
		}
		rec.CreatedAt = t

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating irrigation logs: %w", err)
	}

	if records == nil {
		records = []Record{}
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Trends aggregates executed fires per calendar day over the last N days.
//
// Only schedule_executed and manual_mqtt entries with a duration count
// towards the totals.
func (r *SQLiteRepository) Trends(ctx context.Context, days int) ([]Trend, error) {
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(created_at, 1, 10) AS day,
		        COUNT(*) AS fires,
		        COALESCE(SUM(duration_minutes), 0) AS total_minutes,
		        COALESCE(SUM(volume_m3), 0) AS total_volume,
		        COALESCE(AVG(volume_m3), 0) AS avg_volume
		 FROM irrigation_logs
		 WHERE action IN (?, ?) AND created_at >= ?
		 GROUP BY day
		 ORDER BY day ASC`,
		ActionScheduleExecuted, ActionManual, since,
	)
	if err != nil {
		return nil, fmt.Errorf("querying irrigation trends: %w", err)
	}
	defer rows.Close()

	var trends []Trend
	for rows.Next() {
		var tr Trend
		if err := rows.Scan(&tr.Date, &tr.Fires, &tr.TotalMinutes, &tr.TotalVolumeM3, &tr.AvgVolumeM3); err != nil {
			return nil, fmt.Errorf("scanning irrigation trend: %w", err)
		}
		trends = append(trends, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating irrigation trends: %w", err)
	}

	if trends == nil {
		trends = []Trend{}
	}

	return trends, nil
}
