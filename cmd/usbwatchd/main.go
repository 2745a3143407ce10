// usbwatchd - USB hotplug monitoring daemon
//
// usbwatchd watches a host's USB topology and fans out arrival and
// departure events to every configured consumer:
//   - a SQLite event journal for durable history
//   - MQTT topics for other services on the network
//   - InfluxDB measurements for dashboards and retention queries
//   - WebSocket clients connected to the REST API
//
// Detection runs through a pluggable backend (gousb, hid, or sim); the
// hotplug engine in internal/hotplug handles matching, queueing, and
// dispatch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/usbwatch/usbwatch-core/migrations"

	"github.com/usbwatch/usbwatch-core/internal/api"
	"github.com/usbwatch/usbwatch-core/internal/backend"
	"github.com/usbwatch/usbwatch-core/internal/backend/gousbpoll"
	"github.com/usbwatch/usbwatch-core/internal/backend/hidpoll"
	"github.com/usbwatch/usbwatch-core/internal/backend/sim"
	"github.com/usbwatch/usbwatch-core/internal/bridge"
	"github.com/usbwatch/usbwatch-core/internal/hotplug"
	"github.com/usbwatch/usbwatch-core/internal/infrastructure/config"
	"github.com/usbwatch/usbwatch-core/internal/infrastructure/database"
	"github.com/usbwatch/usbwatch-core/internal/infrastructure/influxdb"
	"github.com/usbwatch/usbwatch-core/internal/infrastructure/logging"
	"github.com/usbwatch/usbwatch-core/internal/infrastructure/mqtt"
	"github.com/usbwatch/usbwatch-core/internal/journal"
	"github.com/usbwatch/usbwatch-core/internal/telemetry"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting usbwatchd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	// Open the journal database
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	journalStore := journal.NewStore(db.DB)

	// Select the detection backend
	be, err := newBackend(cfg, log)
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}
	log.Info("backend selected", "backend", be.Name(), "hotplug", be.HasHotplug())

	// Create the hotplug engine
	hp := hotplug.New(hotplug.Config{
		HasHotplug:    be.HasHotplug(),
		QueueCapacity: cfg.Hotplug.QueueCapacity,
	})
	hp.SetLogger(log.With("component", "hotplug"))
	defer hp.Close()

	// Journal recorder: every transition becomes a durable journal row
	recorder := journal.NewRecorder(journalStore, log.With("component", "journal"))
	if err := registerCallback(hp, recorder.Callback()); err != nil {
		return fmt.Errorf("registering journal recorder: %w", err)
	}

	// Connect to MQTT and fan events onto the bus (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Service.ID)
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

		eventBridge := bridge.New(mqttClient, cfg.Service.ID, byte(cfg.MQTT.QoS), log.With("component", "bridge"))
		if err := registerCallback(hp, eventBridge.Callback()); err != nil {
			return fmt.Errorf("registering MQTT bridge: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB and track session telemetry (optional)
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

		tracker := telemetry.NewTracker(influxClient)
		if err := registerCallback(hp, tracker.Callback()); err != nil {
			return fmt.Errorf("registering telemetry tracker: %w", err)
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// API server with WebSocket broadcast of device events
	srv, err := api.New(api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Logger:   log.With("component", "api"),
		Hotplug:  hp,
		Journal:  journalStore,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := registerCallback(hp, srv.Hub().DeviceCallback()); err != nil {
		return fmt.Errorf("registering WebSocket broadcast: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Dispatch loop: drains notification queues as transitions arrive
	go func() {
		//nolint:errcheck // returns ctx.Err() on shutdown
		hp.HandleEvents(ctx)
	}()

	// Start detection last so initial enumeration reaches every consumer
	if err := be.Start(ctx, hp); err != nil {
		return fmt.Errorf("starting backend: %w", err)
	}
	defer func() {
		log.Info("stopping backend")
		be.Stop()
	}()
	log.Info("backend started", "backend", be.Name())

	if err := healthCheck(ctx, db, mqttClient, influxClient, srv); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Backend
	// 2. API server
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Hotplug context
	// 6. Database

	log.Info("usbwatchd stopped")
	return nil
}

// newBackend constructs the configured detection backend.
func newBackend(cfg *config.Config, log *logging.Logger) (backend.Backend, error) {
	backendLog := log.With("component", "backend")
	switch cfg.Backend.Type {
	case "gousb":
		return gousbpoll.New(cfg.PollInterval(), backendLog), nil
	case "hid":
		return hidpoll.New(cfg.PollInterval(), backendLog)
	case "sim":
		return sim.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
	}
}

// registerCallback registers cb for both event kinds with wildcard filters.
func registerCallback(hp *hotplug.Context, cb hotplug.Callback) error {
	_, err := hp.Register(hotplug.DeviceArrived|hotplug.DeviceLeft, 0,
		hotplug.MatchAny, hotplug.MatchAny, hotplug.MatchAny, cb, nil)
	return err
}

// getConfigPath returns the configuration file path.
// Uses USBWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("USBWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, srv *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
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

	if err := srv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
