// Gray Logic Energy - device registry and energy monitor.
//
// This is the daemon entry point. It loads configuration, opens the SQLite
// store, wires alert notifiers and reading sinks, then runs the periodic
// overload watcher and the REST API until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/nerrad567/gray-logic-energy/migrations"

	"github.com/nerrad567/gray-logic-energy/internal/api"
	"github.com/nerrad567/gray-logic-energy/internal/audit"
	"github.com/nerrad567/gray-logic-energy/internal/device"
	"github.com/nerrad567/gray-logic-energy/internal/energy"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
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

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Energy",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"site_id", cfg.Site.ID,
		"level", cfg.Logging.Level,
	)

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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Stores
	deviceRepo := device.NewSQLiteRepository(db.DB)
	planRepo := energy.NewSQLitePlanRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	plan, err := planRepo.EnsurePlan(ctx, cfg.Energy.DefaultDailyLimitKWh)
	if err != nil {
		return fmt.Errorf("initialising energy plan: %w", err)
	}
	log.Info("energy plan loaded", "daily_limit_kwh", plan.DailyLimitKWh)

	registry := device.NewRegistry(deviceRepo)
	registry.SetLogger(log)

	checks := map[string]api.HealthChecker{"database": db}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(ctx, cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT connected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Energy monitor
	notifier := buildNotifier(cfg, log, mqttClient)
	monitor := energy.NewMonitor(deviceRepo, planRepo, notifier)
	monitor.SetLogger(log)
	if sepErr := monitor.SetDecimalSeparator(cfg.Energy.DecimalSeparator); sepErr != nil {
		return fmt.Errorf("configuring energy monitor: %w", sepErr)
	}

	metricsRegistry := prometheus.NewRegistry()
	metricsCollector := energy.NewMetricsCollector()
	metricsRegistry.MustRegister(
		metricsCollector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	watcher := energy.NewWatcher(monitor, cfg.GetCheckInterval())
	watcher.SetLogger(log)
	for _, sink := range buildSinks(cfg, metricsCollector, influxClient, mqttClient) {
		watcher.AddSink(sink)
	}
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		watcher.Run(ctx)
	}()
	defer func() { <-watcherDone }()

	// REST API
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Registry: registry,
			Monitor:  monitor,
			Audit:    auditRepo,
			Gatherer: metricsRegistry,
			Checks:   checks,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("Gray Logic Energy started",
		"check_interval", cfg.GetCheckInterval().String(),
		"decimal_separator", monitor.DecimalSeparator(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, stopping services")

	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
