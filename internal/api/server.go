// Package api provides the HTTP REST API for Irrigation Core.
//
// It exposes schedule management, manual valve control, activity
// history, and analytics endpoints to the farm dashboard.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldsense/irrigation-core/internal/activity"
	"github.com/fieldsense/irrigation-core/internal/infrastructure/config"
	"github.com/fieldsense/irrigation-core/internal/infrastructure/logging"
	"github.com/fieldsense/irrigation-core/internal/schedule"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ValveGateway is the interface the API needs for manual valve control.
type ValveGateway interface {
	Fire(ctx context.Context, durationSeconds int, volumeM3 float64, origin string) error
	Stop(ctx context.Context, origin string) error
}

// PlanIngestor installs incoming weekly plans.
type PlanIngestor interface {
	Ingest(ctx context.Context, plan map[string]schedule.DayInput) (schedule.IngestResult, error)
}

// EngineStatus reports whether the evaluation loop is active.
type EngineStatus interface {
	Running() bool
}

// ManualRecorder appends operator-initiated entries to the activity log.
type ManualRecorder interface {
	RecordManual(ctx context.Context, status string, durationMinutes, volumeM3 *float64) error
	RecordAdHocPrediction(ctx context.Context, durationMinutes, volumeM3 float64) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Store       *schedule.Store
	Engine      EngineStatus
	Ingestor    PlanIngestor
	Recommender schedule.Recommender
	Gateway     ValveGateway
	Activity    activity.Repository
	Recorder    ManualRecorder
	Version     string
}

// Server is the HTTP API server for Irrigation Core.
//
// It manages the HTTP listener, routes, and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	store       *schedule.Store
	engine      EngineStatus
	ingestor    PlanIngestor
	recommender schedule.Recommender
	gateway     ValveGateway
	activity    activity.Repository
	recorder    ManualRecorder
	version     string
	server      *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, store, ingestor, gateway)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("schedule store is required")
	}
	if deps.Ingestor == nil {
		return nil, fmt.Errorf("plan ingestor is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("valve gateway is required")
	}
	// Activity and recommender are optional; their endpoints return 503 when absent

	return &Server{
		cfg:         deps.Config,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		store:       deps.Store,
		engine:      deps.Engine,
		ingestor:    deps.Ingestor,
		recommender: deps.Recommender,
		gateway:     deps.Gateway,
		activity:    deps.Activity,
		recorder:    deps.Recorder,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
