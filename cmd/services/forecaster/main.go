package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/tabcast/internal/compression"
	"github.com/soltixdb/tabcast/internal/config"
	"github.com/soltixdb/tabcast/internal/features"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/models"
	"github.com/soltixdb/tabcast/internal/queue"
	"github.com/soltixdb/tabcast/internal/regressor"
	"github.com/soltixdb/tabcast/internal/router"
	"github.com/soltixdb/tabcast/internal/services"
	"github.com/soltixdb/tabcast/internal/storage"
	"github.com/soltixdb/tabcast/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Forecaster service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if cfg.IsDevelopment() {
		logger.Debug("Effective configuration",
			"features", cfg.Features, "model", cfg.Model, "storage", cfg.Storage, "queue_type", cfg.Queue.Type)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("Failed to create data directories", "error", err)
	}

	// Session snapshots
	var store storage.SnapshotStore
	if cfg.Storage.Persist {
		algo, err := compression.ParseAlgorithm(cfg.Storage.Compression)
		if err != nil {
			logger.Fatal("Invalid storage compression", "error", err)
		}
		fileStore, err := storage.NewFileStore(cfg.GetSessionsDir(), algo)
		if err != nil {
			logger.Fatal("Failed to open snapshot store", "error", err)
		}
		store = fileStore
		logger.Info("Session snapshots enabled", "dir", fileStore.Dir(), "compression", algo.String())
	} else {
		store = storage.NewMemoryStore()
		logger.Warn("Session persistence DISABLED - sessions are lost on restart")
	}

	// Event queue (configurable backend)
	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	publisher, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	events := queue.NewEventPublisher(publisher, cfg.Queue.SubjectPrefix, logger)
	defer func() { _ = events.Close() }()
	logger.Info("Queue connection established",
		"trained_subject", events.SubjectFor(models.EventModelTrained),
		"predicted_subject", events.SubjectFor(models.EventForecastPredicted))

	// Model capability is resolved lazily on first training run
	provider := regressor.NewRegistryProvider(cfg.Model.Booster)

	forecastService := services.NewForecastService(logger, services.ForecastServiceConfig{
		Provider: provider,
		Options: features.Options{
			MaxLag:        cfg.Features.MaxLag,
			RollingWindow: cfg.Features.RollingWindow,
		},
		Store:        store,
		Events:       events,
		TrainTimeout: cfg.Model.TrainTimeout,
	})

	restored, err := forecastService.Restore(context.Background())
	if err != nil {
		logger.Error("Failed to restore sessions", "error", err)
	} else if restored > 0 {
		logger.Info("Restored sessions from snapshots", "count", restored)
	}

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	app := router.New(logger, forecastService, *cfg)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr, "booster", cfg.Model.Booster)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
