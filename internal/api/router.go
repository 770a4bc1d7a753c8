package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Irrigation endpoints
			r.Route("/irrigation", func(r chi.Router) {
				r.Post("/schedule", s.handleIngestSchedule)
				r.Get("/schedule", s.handleGetSchedule)
				r.Get("/status", s.handleIrrigationStatus)
				r.Post("/recommend", s.handleRecommend)
				r.Post("/log-manual", s.handleLogManual)
				r.Post("/stop", s.handleStop)
			})

			// Activity history
			r.Get("/activity", s.handleListActivity)

			// Analytics
			r.Get("/analytics/trends", s.handleTrends)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
