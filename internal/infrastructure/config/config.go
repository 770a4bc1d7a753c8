package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Irrigation Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	API         APIConfig         `yaml:"api"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Recommender RecommenderConfig `yaml:"recommender"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Security    SecurityConfig    `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// RecommenderConfig contains settings for the external recommendation service.
type RecommenderConfig struct {
	// URL is the base URL of the prediction service (e.g. "http://localhost:5010").
	URL string `yaml:"url"`

	// TimeoutSeconds bounds a single prediction request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// SchedulerConfig contains settings for the schedule evaluation loop.
type SchedulerConfig struct {
	// TickIntervalSeconds is how often the engine evaluates the schedule.
	// Must not exceed 60: the engine matches at minute resolution and a
	// coarser tick would skip fire minutes entirely.
	TickIntervalSeconds int `yaml:"tick_interval_seconds"`

	// ActuationTimeoutSeconds bounds a single valve fire call so a hung
	// broker cannot stall the loop past its tick interval.
	ActuationTimeoutSeconds int `yaml:"actuation_timeout_seconds"`

	// AckTimeoutSeconds is how long the gateway waits for a valve
	// acknowledgement after publishing. 0 disables the ack wait.
	AckTimeoutSeconds int `yaml:"ack_timeout_seconds"`

	// Fallback is the duration/volume pair used when a recommendation
	// call fails during schedule ingestion.
	Fallback FallbackConfig `yaml:"fallback"`
}

// FallbackConfig contains the fixed irrigation parameters used when the
// recommendation service is unavailable.
type FallbackConfig struct {
	DurationMinutes float64 `yaml:"duration_minutes"`
	VolumeM3        float64 `yaml:"volume_m3"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT         JWTConfig `yaml:"jwt"`
	OperatorKey string    `yaml:"operator_key"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
// For example: IRRIGATION_DATABASE_PATH, IRRIGATION_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "field-001",
			Name:     "Irrigation Core",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/irrigation.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "irrigation-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Recommender: RecommenderConfig{
			URL:            "http://localhost:5010",
			TimeoutSeconds: 10,
		},
		Scheduler: SchedulerConfig{
			TickIntervalSeconds:     60,
			ActuationTimeoutSeconds: 30,
			AckTimeoutSeconds:       10,
			Fallback: FallbackConfig{
				DurationMinutes: 30,
				VolumeM3:        0.6,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IRRIGATION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("IRRIGATION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("IRRIGATION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("IRRIGATION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IRRIGATION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("IRRIGATION_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Recommender
	if v := os.Getenv("IRRIGATION_RECOMMENDER_URL"); v != "" {
		cfg.Recommender.URL = v
	}

	// InfluxDB
	if v := os.Getenv("IRRIGATION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret and operator key (always override in production)
	if v := os.Getenv("IRRIGATION_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("IRRIGATION_OPERATOR_KEY"); v != "" {
		cfg.Security.OperatorKey = v
	}
}

// minJWTSecretLength is the minimum accepted JWT signing secret length.
// The API gates physical actuation, so weak secrets are rejected outright.
const minJWTSecretLength = 32

// maxTickIntervalSeconds caps the evaluation interval. The engine matches
// slot start times at minute resolution; a tick coarser than one minute
// would silently skip fire opportunities.
const maxTickIntervalSeconds = 60

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Recommender.URL == "" {
		errs = append(errs, "recommender.url is required")
	}

	if c.Scheduler.TickIntervalSeconds < 1 || c.Scheduler.TickIntervalSeconds > maxTickIntervalSeconds {
		errs = append(errs, "scheduler.tick_interval_seconds must be between 1 and 60")
	}
	if c.Scheduler.Fallback.DurationMinutes <= 0 {
		errs = append(errs, "scheduler.fallback.duration_minutes must be positive")
	}
	if c.Scheduler.Fallback.VolumeM3 <= 0 {
		errs = append(errs, "scheduler.fallback.volume_m3 must be positive")
	}

	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set IRRIGATION_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if c.Security.OperatorKey == "" {
		errs = append(errs, "security.operator_key is required (set IRRIGATION_OPERATOR_KEY environment variable)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTickInterval returns the scheduler evaluation interval as a Duration.
func (c *Config) GetTickInterval() time.Duration {
	return time.Duration(c.Scheduler.TickIntervalSeconds) * time.Second
}

// GetActuationTimeout returns the valve fire call timeout as a Duration.
func (c *Config) GetActuationTimeout() time.Duration {
	return time.Duration(c.Scheduler.ActuationTimeoutSeconds) * time.Second
}

// GetAckTimeout returns the valve acknowledgement wait as a Duration.
// Zero means the gateway does not wait for acknowledgements.
func (c *Config) GetAckTimeout() time.Duration {
	return time.Duration(c.Scheduler.AckTimeoutSeconds) * time.Second
}

// GetRecommenderTimeout returns the prediction request timeout as a Duration.
func (c *Config) GetRecommenderTimeout() time.Duration {
	return time.Duration(c.Recommender.TimeoutSeconds) * time.Second
}
