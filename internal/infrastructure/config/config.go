package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the PowerSync worker.
// All configuration is loaded from YAML and can be overridden by environment
// variables. The worker is usually deployed alongside the HomeTracker Node.js
// process, which passes DB_PATH, POLL_INTERVAL and DEMO_MODE through the
// environment, so every YAML key has a sensible default and the file itself
// is optional.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Worker   WorkerConfig   `yaml:"worker"`
	Emporia  EmporiaConfig  `yaml:"emporia"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// WorkerConfig contains poll loop timing and failure policy settings.
// All durations are in seconds. The cooldowns are deliberately fixed values
// rather than an exponential backoff schedule: the loop is single-threaded
// and the upstream API tolerates the retry rates below.
type WorkerConfig struct {
	// PollInterval is the delay between successful poll cycles.
	PollInterval int `yaml:"poll_interval"`

	// DemoMode forces the synthetic reading generator even when an
	// upstream client is available.
	DemoMode bool `yaml:"demo_mode"`

	// ConfigWait is the sleep applied while Emporia credentials are absent.
	ConfigWait int `yaml:"config_wait"`

	// DiscoveryCooldown is the sleep applied after the account reports an
	// empty device list.
	DiscoveryCooldown int `yaml:"discovery_cooldown"`

	// FailureCooldown is the sleep applied after a forced reconnect.
	FailureCooldown int `yaml:"failure_cooldown"`

	// ErrorCooldown is the sleep applied after an unclassified loop error.
	ErrorCooldown int `yaml:"error_cooldown"`

	// MaxConsecutiveFailures is the number of failed polls that forces the
	// session to be torn down and rebuilt.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
}

// EmporiaConfig contains Emporia Vue cloud API settings.
type EmporiaConfig struct {
	// BaseURL is the API root. Overridable for testing against a stub.
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request HTTP timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// MQTTConfig contains settings for the optional MQTT mirror of the
// reading stream.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// InfluxDBConfig contains settings for the optional InfluxDB mirror of
// stored readings.
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

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// A missing configuration file is not an error: the worker is commonly
// driven entirely by environment variables (DB_PATH, POLL_INTERVAL,
// DEMO_MODE). Any other read failure is reported.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be parsed or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file (optional)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Environment-only deployment
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The worker timing defaults match the original HomeTracker deployment:
// 2s polls, 30s config wait, 60s discovery/error cooldowns, 10s reconnect
// cooldown, 5 consecutive failures before a forced reconnect.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/hometracker.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Worker: WorkerConfig{
			PollInterval:           2,
			DemoMode:               false,
			ConfigWait:             30,
			DiscoveryCooldown:      60,
			FailureCooldown:        10,
			ErrorCooldown:          60,
			MaxConsecutiveFailures: 5,
		},
		Emporia: EmporiaConfig{
			BaseURL: "https://api.emporiaenergy.com",
			Timeout: 15,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hometracker-powersync",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. The bare DB_PATH / POLL_INTERVAL / DEMO_MODE names are the
// contract with the HomeTracker supervisor; everything else uses the
// HOMETRACKER_SECTION_KEY pattern.
func applyEnvOverrides(cfg *Config) {
	// Worker contract variables
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		// Invalid values keep the configured interval; the supervisor
		// passes this through untyped.
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Worker.PollInterval = n
		}
	}
	if v := os.Getenv("DEMO_MODE"); v != "" {
		cfg.Worker.DemoMode = strings.EqualFold(v, "true")
	}

	// Emporia
	if v := os.Getenv("HOMETRACKER_EMPORIA_URL"); v != "" {
		cfg.Emporia.BaseURL = v
	}

	// MQTT
	if v := os.Getenv("HOMETRACKER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMETRACKER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMETRACKER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HOMETRACKER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("HOMETRACKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required (set DB_PATH)")
	}

	// Worker validation
	if c.Worker.PollInterval < 1 {
		errs = append(errs, "worker.poll_interval must be at least 1 second")
	}
	if c.Worker.MaxConsecutiveFailures < 1 {
		errs = append(errs, "worker.max_consecutive_failures must be at least 1")
	}

	// Emporia validation
	if c.Emporia.BaseURL == "" {
		errs = append(errs, "emporia.base_url is required")
	}

	// MQTT validation (only when the mirror is enabled)
	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
	}

	// InfluxDB validation (only when the mirror is enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set HOMETRACKER_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PollInterval returns the poll cadence as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Worker.PollInterval) * time.Second
}

// ConfigWait returns the credentials-missing sleep as a Duration.
func (c *Config) ConfigWait() time.Duration {
	return time.Duration(c.Worker.ConfigWait) * time.Second
}

// DiscoveryCooldown returns the empty-device-list cooldown as a Duration.
func (c *Config) DiscoveryCooldown() time.Duration {
	return time.Duration(c.Worker.DiscoveryCooldown) * time.Second
}

// FailureCooldown returns the forced-reconnect cooldown as a Duration.
func (c *Config) FailureCooldown() time.Duration {
	return time.Duration(c.Worker.FailureCooldown) * time.Second
}

// ErrorCooldown returns the unclassified-error cooldown as a Duration.
func (c *Config) ErrorCooldown() time.Duration {
	return time.Duration(c.Worker.ErrorCooldown) * time.Second
}

// EmporiaTimeout returns the Emporia HTTP timeout as a Duration.
func (c *Config) EmporiaTimeout() time.Duration {
	return time.Duration(c.Emporia.Timeout) * time.Second
}
