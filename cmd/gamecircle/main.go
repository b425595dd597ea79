// Game Circle Core - backend for a shared game catalogue.
//
// This is the main entry point. It wires the user directory, the game
// registry with its ownership toggle, the audit trail, the optional MQTT
// and InfluxDB integrations, and the HTTP/WebSocket API, then runs until
// SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/nerrad567/gamecircle-core/migrations"

	"github.com/nerrad567/gamecircle-core/internal/api"
	"github.com/nerrad567/gamecircle-core/internal/audit"
	"github.com/nerrad567/gamecircle-core/internal/auth"
	"github.com/nerrad567/gamecircle-core/internal/events"
	"github.com/nerrad567/gamecircle-core/internal/game"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/config"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/database"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/logging"
	"github.com/nerrad567/gamecircle-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when GAMECIRCLE_CONFIG is unset.
	defaultConfigPath = "configs/config.yaml"

	// dotEnvPath is loaded before the config so its values act as env overrides.
	dotEnvPath = ".env"

	// eventBufferSize bounds the event bus queue.
	eventBufferSize = 256
)

func main() {
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
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup wiring: one branch per optional integration
	log := logging.Default()
	log.Info("starting Game Circle Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := loadDotEnv(dotEnvPath); err != nil {
		return err
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
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

	// Accounts and games
	tokens, err := auth.NewTokenService(cfg.Security.JWT.Secret, cfg.TokenLifetime())
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	hasher := auth.NewHasher(cfg.Security.Password.Cost)
	directory := auth.NewDirectory(auth.NewUserRepository(db.DB), hasher, tokens)

	games := game.NewRegistry(game.NewSQLiteRepository(db.DB))
	games.SetLogger(log.With("component", "games"))
	log.Info("services initialised",
		"token_lifetime", cfg.TokenLifetime().String(),
		"bcrypt_cost", hasher.Cost(),
	)

	var auditRepo audit.Repository
	if cfg.Audit.Enabled {
		auditRepo = audit.NewSQLiteRepository(db.DB)
	} else {
		log.Info("audit trail disabled")
	}

	// MQTT (optional)
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
		mqttClient.SetLogger(log.With("component", "mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled, events are pushed to local WebSocket clients only")
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Event fan-out. With MQTT the broker feeds the WebSocket hub through
	// the API's relay subscription, so the hub sink is only used without it.
	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))
	bus := events.NewBus(log.With("component", "events").Logger, eventBufferSize, buildSinks(hub, mqttClient, influxClient)...)
	defer func() {
		log.Info("draining event bus")
		bus.Close()
	}()

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Directory:   directory,
		Tokens:      tokens,
		Games:       games,
		AuditRepo:   auditRepo,
		AuditBuffer: cfg.Audit.BufferSize,
		Events:      bus,
		MQTT:        mqttClient,
		DB:          db,
		Hub:         hub,
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

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal", "address", server.Addr())

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server (flushes audit), event bus, InfluxDB, MQTT, database.

	log.Info("Game Circle Core stopped")
	return nil
}

// buildSinks selects the event sinks for the enabled integrations.
func buildSinks(hub *api.Hub, mqttClient *mqtt.Client, influxClient *influxdb.Client) []events.Sink {
	var sinks []events.Sink
	if mqttClient != nil {
		sinks = append(sinks, events.NewMQTTSink(mqttClient, mqttClient.QoS()))
	} else {
		sinks = append(sinks, events.NewHubSink(hub))
	}
	if influxClient != nil {
		sinks = append(sinks, events.NewActivitySink(influxClient))
	}
	return sinks
}

// loadDotEnv loads path into the environment. A missing file is not an error;
// variables already set are not overwritten.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GAMECIRCLE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GAMECIRCLE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
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

	return nil
}
