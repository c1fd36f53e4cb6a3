// PowerSync - HomeTracker energy telemetry worker
//
// This is the main entry point for the PowerSync worker. It polls an
// Emporia Vue energy monitor (or a synthetic generator in demo mode),
// persists normalized readings to the shared HomeTracker SQLite database,
// and streams them as JSON lines on stdout for the Node.js supervisor.
// Optional MQTT and InfluxDB mirrors fan the same readings out to
// dashboards.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tomstetson/HomeTracker/migrations"

	"github.com/tomstetson/HomeTracker/internal/emporia"
	"github.com/tomstetson/HomeTracker/internal/infrastructure/config"
	"github.com/tomstetson/HomeTracker/internal/infrastructure/database"
	"github.com/tomstetson/HomeTracker/internal/infrastructure/influxdb"
	"github.com/tomstetson/HomeTracker/internal/infrastructure/logging"
	"github.com/tomstetson/HomeTracker/internal/infrastructure/mqtt"
	"github.com/tomstetson/HomeTracker/internal/power"
	"github.com/tomstetson/HomeTracker/internal/worker"
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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting PowerSync",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"demo_mode", cfg.Worker.DemoMode,
		"poll_interval", cfg.Worker.PollInterval,
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

	repo := power.NewSQLiteRepository(db.DB)

	// The stdout stream is the primary output channel; mirrors are appended
	// behind it so a mirror failure can never starve the supervisor.
	emitters := worker.MultiEmitter{worker.NewJSONEmitter(os.Stdout, log)}

	// Connect to MQTT broker (optional mirror)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		emitters = append(emitters, worker.NewMQTTEmitter(
			mqttClient,
			mqtt.Topics{}.PowerReading(),
			mqtt.Topics{}.PowerStatus(),
			byte(cfg.MQTT.QoS),
			log,
		))
	} else {
		log.Info("MQTT mirror disabled")
	}

	// Connect to InfluxDB (optional mirror)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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

		emitters = append(emitters, worker.NewInfluxEmitter(influxClient))
	} else {
		log.Info("InfluxDB mirror disabled")
	}

	factory := func() worker.VueClient {
		return emporia.NewClient(cfg.Emporia.BaseURL, emporia.WithTimeout(cfg.EmporiaTimeout()))
	}

	controller := worker.NewController(
		worker.Config{
			PollInterval:           cfg.PollInterval(),
			ConfigWait:             cfg.ConfigWait(),
			DiscoveryCooldown:      cfg.DiscoveryCooldown(),
			FailureCooldown:        cfg.FailureCooldown(),
			ErrorCooldown:          cfg.ErrorCooldown(),
			MaxConsecutiveFailures: cfg.Worker.MaxConsecutiveFailures,
			DemoMode:               cfg.Worker.DemoMode,
		},
		repo,
		factory,
		emitters,
		power.NewGenerator(),
		log.With("component", "worker"),
	)

	log.Info("initialisation complete, starting poll loop")

	// Blocks until the context is cancelled; loop failures are emitted on
	// the output stream, never returned.
	if err := controller.Run(ctx); err != nil {
		return fmt.Errorf("poll loop: %w", err)
	}

	log.Info("PowerSync stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMETRACKER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMETRACKER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
