/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the HR Copilot leave assistant server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, config.yaml, HRC_* environment)
  2. Build the zap logger
  3. Initialize the SQLite store and seed demo data
  4. Choose the session backend (Redis if configured, memory otherwise)
  5. Wire validator, committer, dialogue manager, metrics
  6. Start the HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with defaults (sqlite file, in-memory sessions)
  ./server

  # Redis-backed sessions
  HRC_REDIS_ADDR=localhost:6379 ./server

  # In-memory database, debug logging
  HRC_SQLITE_PATH=":memory:" HRC_LOG_LEVEL=debug HRC_LOG_FORMAT=console ./server

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - dialog/manager.go: The conversational engine
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pixie/hr-copilot/api"
	"github.com/pixie/hr-copilot/config"
	"github.com/pixie/hr-copilot/dialog"
	"github.com/pixie/hr-copilot/leave"
	"github.com/pixie/hr-copilot/obs"
	"github.com/pixie/hr-copilot/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Storage
	store, err := sqlite.New(cfg.SQLitePath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	if err := store.Seed(context.Background()); err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}

	// Sessions: Redis when configured, process memory otherwise.
	var sessions dialog.SessionStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		sessions = dialog.NewRedisStore(client, cfg.SessionTTL)
		logger.Info("sessions backed by redis", zap.String("addr", cfg.RedisAddr))
	} else {
		sessions = dialog.NewMemoryStore()
		logger.Info("sessions kept in memory")
	}

	// Engine wiring
	validator := &leave.Validator{Calendar: store}
	committer := leave.NewCommitter(store, store, store, validator)
	committer.MaxAttempts = cfg.CommitMaxAttempts

	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)

	manager := dialog.NewManager(sessions, store, committer, store, store, store)
	manager.Threshold = cfg.IntentThreshold
	manager.IdleWindow = cfg.SessionTTL
	manager.Metrics = metrics
	manager.Logger = logger.Named("dialog")

	handler := api.NewHandler(manager, committer, store, store, store, store, store)
	handler.Metrics = metrics
	handler.Logger = logger.Named("api")

	router := api.NewRouter(handler, registry)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
