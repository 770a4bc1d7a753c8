package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldsense/irrigation-core/internal/activity"
	"github.com/fieldsense/irrigation-core/internal/schedule"
)

// handleIngestSchedule installs a new weekly plan.
//
// POST /api/v1/irrigation/schedule
//
// Body: {"monday": {"enabled": true, "start_time": "08:00"}, ...}
// Day names are accepted in English or French.
func (s *Server) handleIngestSchedule(w http.ResponseWriter, r *http.Request) {
	var plan map[string]schedule.DayInput
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	result, err := s.ingestor.Ingest(r.Context(), plan)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrEmptyPlan),
			errors.Is(err, schedule.ErrInvalidDay),
			errors.Is(err, schedule.ErrInvalidStartTime):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("schedule ingestion failed", "error", err)
			writeInternalError(w, "could not install schedule")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "installed",
		"days":      result.Days,
		"optimized": result.Optimized,
		"fallback":  result.Fallback,
	})
}

// handleGetSchedule returns the active weekly plan.
//
// GET /api/v1/irrigation/schedule
func (s *Server) handleGetSchedule(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.store.Snapshot()

	// Present days in plan order rather than map order
	days := make([]map[string]any, 0, len(snapshot))
	for _, day := range schedule.AllDays {
		slot, ok := snapshot[day]
		if !ok {
			continue
		}
		days = append(days, map[string]any{
			"day":              string(day),
			"enabled":          slot.Enabled,
			"start_time":       slot.StartTime,
			"duration_minutes": slot.DurationMinutes,
			"volume_m3":        slot.VolumeM3,
			"optimized":        slot.Optimized,
		})
	}

	response := map[string]any{
		"days": days,
	}
	if updated := s.store.UpdatedAt(); !updated.IsZero() {
		response["updated_at"] = updated
	}

	writeJSON(w, http.StatusOK, response)
}

// handleIrrigationStatus returns scheduler state for the dashboard.
//
// GET /api/v1/irrigation/status
func (s *Server) handleIrrigationStatus(w http.ResponseWriter, _ *http.Request) {
	running := false
	if s.engine != nil {
		running = s.engine.Running()
	}

	response := map[string]any{
		"engine_running":  running,
		"days_configured": s.store.Len(),
		"server_time":     time.Now().UTC().Format(time.RFC3339),
	}
	if updated := s.store.UpdatedAt(); !updated.IsZero() {
		response["schedule_updated_at"] = updated
	}

	writeJSON(w, http.StatusOK, response)
}

// recommendRequest is the on-demand recommendation request body.
// Features are optional; the default vector is used when omitted.
type recommendRequest struct {
	Features []float64 `json:"features"`
}

// handleRecommend runs a one-off prediction without touching the schedule.
//
// POST /api/v1/irrigation/recommend
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if s.recommender == nil {
		writeUnavailable(w, "recommendation service not configured")
		return
	}

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	features := req.Features
	if len(features) == 0 {
		features = schedule.DefaultFeatures()
	} else if len(features) != len(schedule.DefaultFeatures()) {
		writeBadRequest(w, fmt.Sprintf("features must contain exactly %d values", len(schedule.DefaultFeatures())))
		return
	}

	rec, err := s.recommender.Predict(r.Context(), features)
	if err != nil {
		s.logger.Warn("on-demand prediction failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUnavailable, "prediction failed")
		return
	}

	if s.recorder != nil {
		if recErr := s.recorder.RecordAdHocPrediction(r.Context(), rec.DurationMinutes, rec.VolumeM3); recErr != nil {
			s.logger.Warn("failed to record prediction", "error", recErr)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"duration_minutes": rec.DurationMinutes,
		"volume_m3":        rec.VolumeM3,
	})
}

// logManualRequest is the manual activity logging request body.
type logManualRequest struct {
	Status          string   `json:"status"`
	DurationMinutes *float64 `json:"duration_minutes"`
	VolumeM3        *float64 `json:"volume_m3"`
}

// handleLogManual records a manual valve action performed outside Core
// (e.g., directly over MQTT from the dashboard).
//
// POST /api/v1/irrigation/log-manual
func (s *Server) handleLogManual(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		writeUnavailable(w, "activity log not configured")
		return
	}

	var req logManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Status == "" {
		writeBadRequest(w, "status is required")
		return
	}

	if err := s.recorder.RecordManual(r.Context(), req.Status, req.DurationMinutes, req.VolumeM3); err != nil {
		s.logger.Error("failed to record manual action", "error", err)
		writeInternalError(w, "could not record action")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"status": "logged"})
}

// handleStop closes the valve immediately, cancelling any running cycle.
//
// POST /api/v1/irrigation/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.gateway.Stop(r.Context(), activity.SourceManual); err != nil {
		s.logger.Error("manual stop failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUnavailable, "valve did not confirm stop")
		return
	}

	if s.recorder != nil {
		if err := s.recorder.RecordManual(r.Context(), "stop", nil, nil); err != nil {
			s.logger.Warn("failed to record manual stop", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "stopped"})
}
