package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JonMunkholm/monisenforest/internal/config"
	"github.com/JonMunkholm/monisenforest/internal/core"
	_ "github.com/JonMunkholm/monisenforest/internal/core/kinds" // Register all data kinds
	"github.com/JonMunkholm/monisenforest/internal/ingest"
	"github.com/JonMunkholm/monisenforest/internal/logging"
	"github.com/JonMunkholm/monisenforest/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"check_max_concurrent", cfg.Batch.MaxConcurrent,
		"thorough", cfg.Check.Thorough,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := core.ServiceOptions{
		Config:  cfg.Check.Engine(),
		Limiter: core.NewCheckLimiter(cfg.Batch.MaxConcurrent, cfg.Batch.MaxWaitTime),
		Timeout: cfg.Batch.Timeout,
		Ingest: ingest.Options{
			Encoding: cfg.Upload.Encoding,
			MaxBytes: cfg.Upload.MaxFileSize,
		},
		Metrics: core.NewMetrics(registry),
	}

	// The reloader owns the suppression list when it runs.
	refs := core.ReferenceFiles{
		TreeSpecies: cfg.Reference.TreeSpecies,
		SeedSpecies: cfg.Reference.SeedSpecies,
		MeshXY:      cfg.Reference.MeshXY,
		TrapList:    cfg.Reference.TrapList,
	}
	if cfg.Reference.ReloadInterval == 0 {
		refs.Suppress = cfg.Reference.Suppress
	}
	if err := refs.Load(&opts); err != nil {
		slog.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}

	service, err := core.NewService(opts)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	// Log registered kinds
	for _, k := range service.ListKinds() {
		slog.Debug("data kind registered", "kind", k.Kind, "group", k.Group, "rules", len(k.Rules))
	}
	slog.Info("data kinds registered", "count", len(core.Kinds()))

	// Create server with config
	server := web.NewServer(service, cfg, registry)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	if cfg.Reference.Suppress != "" && cfg.Reference.ReloadInterval > 0 {
		go service.StartSuppressionReloader(jobCtx, core.ReloadConfig{
			Path:     cfg.Reference.Suppress,
			Interval: cfg.Reference.ReloadInterval,
		})
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running checks to complete (with timeout)
		status := service.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for checks to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("checks did not complete in time", "error", err)
			} else {
				slog.Info("all checks completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
