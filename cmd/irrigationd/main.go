// Irrigation Core - Field Irrigation Controller
//
// This is the main entry point for the Irrigation Core application.
// Irrigation Core drives a recurring weekly irrigation schedule for a
// single field site:
//   - Weekly plans arrive over HTTP and are enriched with per-day
//     duration/volume recommendations from an external ML service
//   - A minute-resolution engine fires the valve over MQTT
//   - Every action lands in a SQLite activity log, optionally mirrored
//     to InfluxDB for time-series analysis
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/fieldsense/irrigation-core/migrations"

	"github.com/fieldsense/irrigation-core/internal/activity"
	"github.com/fieldsense/irrigation-core/internal/actuation"
	"github.com/fieldsense/irrigation-core/internal/api"
	"github.com/fieldsense/irrigation-core/internal/infrastructure/config"
	"github.com/fieldsense/irrigation-core/internal/infrastructure/database"
	"github.com/fieldsense/irrigation-core/internal/infrastructure/influxdb"
	"github.com/fieldsense/irrigation-core/internal/infrastructure/logging"
	"github.com/fieldsense/irrigation-core/internal/infrastructure/mqtt"
	"github.com/fieldsense/irrigation-core/internal/recommend"
	"github.com/fieldsense/irrigation-core/internal/schedule"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup sequence: wires every component in dependency order
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Irrigation Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Valve gateway over MQTT
	gateway := actuation.NewGateway(mqttClient, log.With("component", "gateway"), actuation.GatewayConfig{
		ValveID:    cfg.Site.ID,
		QoS:        byte(cfg.MQTT.QoS), //nolint:gosec // QoS validated to 0-2 in config
		AckTimeout: cfg.GetAckTimeout(),
	})
	if err := gateway.Start(); err != nil {
		return fmt.Errorf("starting valve gateway: %w", err)
	}
	defer func() {
		log.Info("closing valve gateway")
		if closeErr := gateway.Close(); closeErr != nil {
			log.Error("error closing valve gateway", "error", closeErr)
		}
	}()
	log.Info("valve gateway started", "valve_id", cfg.Site.ID)

	// Activity log and scheduler-facing recorder
	activityRepo := activity.NewSQLiteRepository(db.DB)
	recorder := activity.NewRecorder(activityRepo)

	// Recommendation service client
	recommender := recommend.NewClient(cfg.Recommender.URL, cfg.GetRecommenderTimeout())

	// Schedule store, ingestor, and engine
	store := schedule.NewStore()
	ingestor := schedule.NewIngestor(store, recommender, recorder,
		log.With("component", "ingestor"),
		schedule.Fallback{
			DurationMinutes: cfg.Scheduler.Fallback.DurationMinutes,
			VolumeM3:        cfg.Scheduler.Fallback.VolumeM3,
		})

	engine := schedule.NewEngine(store, gateway, recorder,
		log.With("component", "engine"),
		schedule.EngineConfig{
			TickInterval:     cfg.GetTickInterval(),
			ActuationTimeout: cfg.GetActuationTimeout(),
		})

	if influxClient != nil {
		engine.SetTelemetry(influxClient)
		ingestor.SetTelemetry(influxClient)
	}

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("starting schedule engine: %w", err)
	}
	defer func() {
		log.Info("stopping schedule engine")
		if stopErr := engine.Stop(); stopErr != nil {
			log.Error("error stopping schedule engine", "error", stopErr)
		}
	}()

	// HTTP API
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		Security:    cfg.Security,
		Logger:      log.With("component", "api"),
		Store:       store,
		Engine:      engine,
		Ingestor:    ingestor,
		Recommender: recommender,
		Gateway:     gateway,
		Activity:    activityRepo,
		Recorder:    recorder,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Schedule engine
	// 3. Valve gateway
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("Irrigation Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IRRIGATION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IRRIGATION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// The recommendation service is probed lazily; prediction failures
	// degrade to fallback parameters rather than blocking startup.

	return nil
}
