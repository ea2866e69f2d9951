// Pool Core - circulation and heating controller
//
// This is the main entry point for the Pool Core application. It wires
// the shared control-point store to MQTT, SQLite and InfluxDB, and runs
// the evaluation loop that arbitrates the pump and heater between the
// frost, solar, PV-surplus, heating, time-window and maintenance
// controllers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/aqualogic/pool-core/migrations"

	"github.com/aqualogic/pool-core/internal/bridge"
	"github.com/aqualogic/pool-core/internal/control"
	"github.com/aqualogic/pool-core/internal/infrastructure/config"
	"github.com/aqualogic/pool-core/internal/infrastructure/database"
	"github.com/aqualogic/pool-core/internal/infrastructure/influxdb"
	"github.com/aqualogic/pool-core/internal/infrastructure/logging"
	"github.com/aqualogic/pool-core/internal/infrastructure/mqtt"
	"github.com/aqualogic/pool-core/internal/point"
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
	log.Info("starting Pool Core",
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
	db, err := database.Open(ctx, database.Config{
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

	// Initialise the point store and restore the durable points (mode
	// and last commanded actuator values). Ownership and timers are
	// deliberately not restored: a restart fails safe to off.
	store := point.NewStore(
		point.WithRepository(point.NewSQLiteRepository(db.DB)),
		point.WithLogger(log),
	)
	if loadErr := store.Load(ctx); loadErr != nil {
		return fmt.Errorf("restoring points: %w", loadErr)
	}
	seedDefaults(ctx, store, cfg)
	log.Info("point store initialised")

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
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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

	// Telemetry recorder: point changes become measurements.
	var sink bridge.TelemetrySink
	if influxClient != nil {
		sink = influxClient
	}
	bridge.NewRecorder(store, sink).Start()

	// MQTT bridge: sensors and user writes in, state and commands out.
	mqttBridge := bridge.New(store, mqttClient, log.With("component", "bridge"), byte(cfg.MQTT.QoS))
	if bridgeErr := mqttBridge.Start(ctx); bridgeErr != nil {
		return fmt.Errorf("starting MQTT bridge: %w", bridgeErr)
	}
	log.Info("MQTT bridge started")

	// The evaluation loop.
	runner := control.NewRunner(
		store,
		log.With("component", "control"),
		cfg.Pool,
		cfg.Location(),
		point.NewSQLiteRuntimeLog(db.DB),
		func(msg string) {
			log.Warn("alert", "message", msg)
		},
	)
	runner.Start(ctx)
	log.Info("control runner started")

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	<-runner.Done()

	log.Info("Pool Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses POOLCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("POOLCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// seedDefaults writes the configured control settings into the store
// without clobbering values that were persisted or already written.
func seedDefaults(ctx context.Context, store *point.Store, cfg *config.Config) {
	pool := cfg.Pool

	store.SeedIfAbsent(ctx, point.Mode, point.String(string(control.ModeAuto)))
	store.SeedIfAbsent(ctx, point.Pump, point.Bool(false))
	store.SeedIfAbsent(ctx, point.Heater, point.Bool(false))
	store.SeedIfAbsent(ctx, point.SeasonActive, point.Bool(true))
	store.SeedIfAbsent(ctx, point.MaintenanceActive, point.Bool(false))

	store.SeedIfAbsent(ctx, point.FrostEnabled, point.Bool(pool.Frost.Enabled))
	store.SeedIfAbsent(ctx, point.FrostThreshold, point.Float(pool.Frost.ThresholdC))

	store.SeedIfAbsent(ctx, point.SolarEnabled, point.Bool(pool.Solar.Enabled))
	store.SeedIfAbsent(ctx, point.SolarTempOn, point.Float(pool.Solar.TempOnC))
	store.SeedIfAbsent(ctx, point.SolarTempOff, point.Float(pool.Solar.TempOffC))
	store.SeedIfAbsent(ctx, point.SolarWarnEnabled, point.Bool(pool.Solar.Warning.Enabled))
	store.SeedIfAbsent(ctx, point.SolarWarnThreshold, point.Float(pool.Solar.Warning.ThresholdC))

	store.SeedIfAbsent(ctx, point.PVThreshold, point.Float(pool.PV.ThresholdW))
	store.SeedIfAbsent(ctx, point.PVPumpRatedWatt, point.Float(pool.PV.PumpRatedW))
	store.SeedIfAbsent(ctx, point.PVAfterrunMin, point.Float(float64(pool.PV.AfterrunMin)))
	store.SeedIfAbsent(ctx, point.PVIgnoreOnCirculation, point.Bool(pool.PV.IgnoreOnCirculation))

	store.SeedIfAbsent(ctx, point.HeatEnabled, point.Bool(pool.Heat.Enabled))
	store.SeedIfAbsent(ctx, point.HeatTarget, point.Float(pool.Heat.TargetC))
	store.SeedIfAbsent(ctx, point.HeatMax, point.Float(pool.Heat.MaxC))
	store.SeedIfAbsent(ctx, point.HeatPrerunMin, point.Float(float64(pool.Heat.PrerunMin)))
	store.SeedIfAbsent(ctx, point.HeatAfterrunMin, point.Float(float64(pool.Heat.AfterrunMin)))
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

	return nil
}
