package api

import (
	"net/http"
	"strconv"

	"github.com/fieldsense/irrigation-core/internal/activity"
)

// handleListActivity returns paginated irrigation history.
//
// GET /api/v1/activity?action=&source=&since=&limit=&offset=
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeUnavailable(w, "activity log not configured")
		return
	}

	q := r.URL.Query()
	filter := activity.Filter{
		Action: q.Get("action"),
		Source: q.Get("source"),
		Since:  q.Get("since"),
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil {
			filter.Offset = offset
		}
	}

	result, err := s.activity.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list activity", "error", err)
		writeInternalError(w, "could not query activity log")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleTrends returns per-day irrigation aggregates.
//
// GET /api/v1/analytics/trends?days=7
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeUnavailable(w, "activity log not configured")
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "days must be an integer")
			return
		}
		days = parsed
	}
	// Mirror the repository clamp so the response echoes the effective range
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	trends, err := s.activity.Trends(r.Context(), days)
	if err != nil {
		s.logger.Error("failed to aggregate trends", "error", err)
		writeInternalError(w, "could not aggregate trends")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"trends": trends,
	})
}
