// fleetlock is the control plane for a LAN fleet of lockable client machines.
//
// Devices announce themselves over UDP broadcast. fleetlock keeps a registry of
// every device it has heard from, re-asserts each device's lock state on a
// fixed cadence, and releases the lock of any device that stops announcing.
// Operators drive it through the HTTP API, WebSocket events and MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/fleetlock/internal/api"
	"github.com/nerrad567/fleetlock/internal/audit"
	"github.com/nerrad567/fleetlock/internal/command"
	"github.com/nerrad567/fleetlock/internal/control"
	"github.com/nerrad567/fleetlock/internal/device"
	"github.com/nerrad567/fleetlock/internal/discovery"
	"github.com/nerrad567/fleetlock/internal/infrastructure/config"
	"github.com/nerrad567/fleetlock/internal/infrastructure/database"
	"github.com/nerrad567/fleetlock/internal/infrastructure/influxdb"
	"github.com/nerrad567/fleetlock/internal/infrastructure/logging"
	"github.com/nerrad567/fleetlock/internal/infrastructure/mqtt"
	"github.com/nerrad567/fleetlock/internal/metrics"
	"github.com/nerrad567/fleetlock/migrations"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// auditBufferSize is the number of command log entries held before dropping.
	auditBufferSize = 1024

	// eventBufferSize is the number of MQTT events held before dropping.
	eventBufferSize = 256
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, wires every component and blocks until ctx is
// cancelled. Deferred shutdown runs in reverse start order.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting fleetlock",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Registry
	registry := device.NewRegistry(cfg.Control.StaleThreshold)
	registry.SetLogger(log.Component("registry"))
	if cfg.Devices.StaticFile != "" {
		n, loadErr := registry.LoadStaticFile(cfg.Devices.StaticFile)
		if loadErr != nil {
			return fmt.Errorf("loading static device list: %w", loadErr)
		}
		log.Info("static device list loaded", "path", cfg.Devices.StaticFile, "devices", n)
	}

	// Command path
	channel := command.NewTCPChannel(command.ChannelConfig{
		Port:           cfg.Commands.Port,
		ConnectTimeout: cfg.Commands.ConnectTimeout,
		ReplyTimeout:   cfg.Commands.ReplyTimeout,
		BufferSize:     cfg.Commands.BufferSize,
	})
	dispatcher := command.NewDispatcher(channel)
	dispatcher.SetLogger(log.Component("dispatcher"))

	m := metrics.New()
	m.RegisterGauge("devices", "Registered devices", func() float64 { return float64(registry.Count()) })
	m.RegisterGauge("devices_locked", "Devices with lock intent set", func() float64 { return float64(registry.Stats().Locked) })
	m.RegisterGauge("devices_stale", "Devices past the stale threshold", func() float64 { return float64(registry.Stats().Stale) })
	m.RegisterGauge("dispatch_queue_depth", "Commands waiting for the dispatcher", func() float64 { return float64(dispatcher.QueueDepth()) })

	components := make(map[string]api.HealthChecker)

	// Command log (optional)
	var auditRepo audit.Repository
	if cfg.Database.Enabled {
		db, openErr := database.Open(ctx, database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		applied, migrateErr := db.Migrate(ctx, migrations.FS)
		if migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", cfg.Database.Path, "migrations_applied", applied)

		repo := audit.NewSQLiteRepository(db.DB)
		writer := audit.NewWriter(repo, auditBufferSize)
		writer.SetLogger(log.Component("audit"))
		writer.Start(ctx)
		defer func() {
			log.Info("flushing command log")
			writer.Stop()
		}()

		dispatcher.OnResult(writer.Handle)
		auditRepo = repo
		components["database"] = db
	} else {
		log.Info("command log disabled")
	}

	// InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		log.Warn("InfluxDB unavailable, continuing without history", "error", err)
		influxClient = nil
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		dispatcher.OnResult(influxClient.HandleResult)
		components["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Event fanout: WebSocket hub always, MQTT when connected.
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)
	broadcasters := control.Fanout{hub}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, continuing without it", "error", err)
			mqttClient = nil
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			mqttClient.SetLogger(log.Component("mqtt"))
			mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
			mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
			events := mqtt.NewEventPublisher(mqttClient, mqttClient.QoS(), eventBufferSize, log.Component("mqtt"))
			events.Start(ctx)
			defer func() {
				log.Info("flushing MQTT events")
				events.Stop()
			}()
			m.RegisterGauge("mqtt_events_dropped", "MQTT events dropped because the publish buffer was full", func() float64 { return float64(events.Dropped()) })
			broadcasters = append(broadcasters, events)
			components["mqtt"] = mqttClient
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Controller
	controller := control.NewController(registry, dispatcher, broadcasters)
	controller.SetLogger(log.Component("control"))
	dispatcher.OnResult(controller.HandleResult)
	dispatcher.OnResult(m.ObserveCommand)
	controller.OnRegistryChange(func(v control.DeviceView) {
		broadcasters.Broadcast(control.EventDeviceRegistered, v)
	})

	if mqttClient != nil {
		if subErr := mqttClient.Subscribe(mqtt.Topics{}.AllCommands(), mqttClient.QoS(), mqtt.RemoteCommandHandler(controller)); subErr != nil {
			log.Warn("MQTT command subscription failed", "error", subErr)
		}
	}

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Discovery
	listener, err := discovery.Listen(discovery.Config{
		ListenAddress: cfg.Discovery.ListenAddress,
		Port:          cfg.Discovery.Port,
		PollWait:      cfg.Discovery.PollWait,
		BufferSize:    cfg.Discovery.BufferSize,
		MaxPerPoll:    cfg.Discovery.MaxPerPoll,
	}, registry)
	if err != nil {
		return fmt.Errorf("starting discovery: %w", err)
	}
	defer listener.Close() //nolint:errcheck // Shutdown
	listener.SetLogger(log.Component("discovery"))
	listener.SetRecorder(m)
	log.Info("discovery listening", "port", cfg.Discovery.Port)

	// Timer tier
	reconciler := control.NewReconciler(registry, dispatcher)
	reconciler.SetLogger(log.Component("reconcile"))
	reconciler.OnPass(m.ObserveReconcile)
	if influxClient != nil {
		reconciler.OnPass(func() { influxClient.WriteFleetStats(registry.Stats()) })
	}

	sweeper := control.NewSweeper(registry, broadcasters)
	sweeper.SetLogger(log.Component("sweep"))
	sweeper.OnRelease(m.ObserveLockReleases)

	scheduler := control.NewScheduler(listener, reconciler, sweeper, control.Intervals{
		Poll:      cfg.Discovery.PollInterval,
		Reconcile: cfg.Control.ReconcileInterval,
		Sweep:     cfg.Control.SweepInterval,
	})
	scheduler.SetLogger(log.Component("scheduler"))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Operator API
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log.Component("api"),
		Controller: controller,
		Audit:      auditRepo,
		Metrics:    m,
		Queue:      dispatcher,
		Components: components,
		Hub:        hub,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	if cfg.Security.JWT.Secret == "" {
		log.Warn("no JWT secret configured, API is open to every caller on the network")
	}

	log.Info("initialisation complete",
		"devices", registry.Count(),
		"api", server.Addr(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns flagPath, then FLEETLOCK_CONFIG, then the default.
func getConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("FLEETLOCK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
