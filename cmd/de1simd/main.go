// DE1 Simulator Daemon
//
// This is the main entry point for the DE1 espresso machine simulator.
// It models a Decent DE1 behind a BLE peripheral daemon so that real
// client apps can pair with and drive a machine that does not exist:
//   - Full GATT characteristic surface (state, samples, MMR, profiles)
//   - Deterministic shot simulation with profile frame playback
//   - Operator visibility and control over MQTT
//   - Shot history in SQLite, telemetry in InfluxDB
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/decenza/de1-sim-core/migrations"

	"github.com/decenza/de1-sim-core/internal/bridge"
	"github.com/decenza/de1-sim-core/internal/history"
	"github.com/decenza/de1-sim-core/internal/infrastructure/config"
	"github.com/decenza/de1-sim-core/internal/infrastructure/database"
	"github.com/decenza/de1-sim-core/internal/infrastructure/influxdb"
	"github.com/decenza/de1-sim-core/internal/infrastructure/logging"
	"github.com/decenza/de1-sim-core/internal/infrastructure/mqtt"
	"github.com/decenza/de1-sim-core/internal/mmr"
	"github.com/decenza/de1-sim-core/internal/profile"
	"github.com/decenza/de1-sim-core/internal/sim"
	"github.com/decenza/de1-sim-core/internal/telemetry"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting DE1 simulator",
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

	// Shot history repository
	shotRepo := history.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

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

	// Build the machine model
	bank := mmr.NewBank(mmr.Defaults{
		MachineModel:  cfg.Machine.Model,
		SerialNumber:  cfg.Machine.SerialNumber,
		HeaterVoltage: cfg.Machine.HeaterVoltage,
		GHCLevel:      cfg.Machine.GHCLevel,
	}, log)
	profiles := profile.NewStore(log)
	machine := sim.NewMachine(bank, cfg.Machine.WaterLevel, log)
	engine := sim.NewEngine(machine, sim.EngineConfig{
		SamplePeriod:     cfg.GetSamplePeriod(),
		WaterLevelPeriod: cfg.GetWaterLevelPeriod(),
	}, log)
	log.Info("machine model created",
		"name", cfg.Machine.Name,
		"ghc_level", cfg.Machine.GHCLevel,
		"water_level", cfg.Machine.WaterLevel,
	)

	// Connect to the BLE peripheral daemon
	daemon, err := bridge.Connect(ctx, bridge.Config{
		Address:           cfg.Daemon.Address,
		ConnectTimeout:    cfg.GetConnectTimeout(),
		ReadTimeout:       cfg.GetReadTimeout(),
		ReconnectInterval: cfg.GetReconnectInterval(),
	})
	if err != nil {
		return fmt.Errorf("connecting to peripheral daemon: %w", err)
	}
	defer func() {
		log.Info("closing daemon connection")
		if closeErr := daemon.Close(); closeErr != nil {
			log.Error("error closing daemon connection", "error", closeErr)
		}
	}()
	daemon.SetLogger(log)
	log.Info("peripheral daemon connected", "address", cfg.Daemon.Address)

	// Wire GATT traffic to the model
	handler := bridge.NewHandler(daemon, engine, bank, profiles, bridge.HandlerConfig{
		APIVersion: cfg.Machine.APIVersion,
		Release:    cfg.Machine.Release,
	}, log)
	handler.Bind()

	// Fan engine events out to BLE notifications plus the telemetry
	// sinks. Typed-nil interfaces would defeat the service's nil
	// checks, so only assign the optional sinks when enabled.
	var broker telemetry.Broker
	if mqttClient != nil {
		broker = mqttClient
	}
	var metrics telemetry.Metrics
	if influxClient != nil {
		metrics = influxClient
	}

	tap := &engineTap{engine: engine, handler: handler}
	svc := telemetry.New(tap, broker, metrics, shotRepo, bank, byte(cfg.MQTT.QoS), log)
	if err := svc.Bind(); err != nil {
		return fmt.Errorf("binding telemetry: %w", err)
	}
	log.Info("telemetry bound", "mqtt", mqttClient != nil, "influxdb", influxClient != nil)

	// Start the simulation loop
	engine.Start(ctx)
	defer engine.Stop()
	log.Info("simulation engine started",
		"sample_period", cfg.GetSamplePeriod(),
		"water_level_period", cfg.GetWaterLevelPeriod(),
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, daemon, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Engine
	// 2. Daemon connection
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("DE1 simulator stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DE1SIM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DE1SIM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - daemon: Peripheral daemon client to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, daemon *bridge.Client, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := daemon.HealthCheck(ctx); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// engineTap adapts the simulation engine for the telemetry service
// while keeping the BLE handler on the same event stream. The engine
// exposes one callback slot per event, so the tap composes the BLE
// notification with the telemetry handler before registering.
type engineTap struct {
	engine  *sim.Engine
	handler *bridge.Handler
}

// SetOnStateChange implements telemetry.Engine.
func (t *engineTap) SetOnStateChange(fn func(sim.State, sim.SubState)) {
	t.engine.SetOnStateChange(func(state sim.State, sub sim.SubState) {
		t.handler.PublishState(state, sub)
		fn(state, sub)
	})
}

// SetOnSample implements telemetry.Engine.
func (t *engineTap) SetOnSample(fn func(sim.Sample)) {
	t.engine.SetOnSample(func(s sim.Sample) {
		t.handler.PublishSample(s)
		fn(s)
	})
}

// SetOnWaterLevel implements telemetry.Engine.
func (t *engineTap) SetOnWaterLevel(fn func(percent float64)) {
	t.engine.SetOnWaterLevel(func(percent float64) {
		t.handler.PublishWaterLevel(percent)
		fn(percent)
	})
}

// SetOnShotEnd implements telemetry.Engine.
// Shot ends have no BLE notification; clients infer them from the
// state characteristic.
func (t *engineTap) SetOnShotEnd(fn func(sim.ShotRecord)) {
	t.engine.SetOnShotEnd(fn)
}

// RequestState implements telemetry.Engine.
func (t *engineTap) RequestState(target sim.State) error {
	return t.engine.RequestState(target)
}

// SetWaterLevel implements telemetry.Engine.
func (t *engineTap) SetWaterLevel(percent float64) error {
	return t.engine.SetWaterLevel(percent)
}
