package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/badgemerge/internal/config"
	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/JonMunkholm/badgemerge/internal/logging"
	_ "github.com/JonMunkholm/badgemerge/internal/preprocess/events" // Register built-in rule sets
	"github.com/JonMunkholm/badgemerge/internal/store"
	"github.com/JonMunkholm/badgemerge/internal/web"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"source_dir", cfg.Merge.SourceDir,
		"output_dir", cfg.Merge.OutputDir,
		"max_concurrent", cfg.Merge.MaxConcurrent,
		"database", cfg.Database.Enabled(),
		"schedule", cfg.Schedule.Enabled,
		"watch", cfg.Schedule.WatchSources,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The database is optional. Without it templates and run history are
	// unavailable but merges still run.
	var db store.DBTX
	if cfg.Database.Enabled() {
		pool, err := store.Connect(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		db = pool
	}

	service, err := core.NewService(db, cfg, logger)
	if err != nil {
		logger.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, cfg, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			logger.Info("waiting for runs to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				logger.Warn("runs did not complete in time", "error", err)
			} else {
				logger.Info("all runs completed")
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	scheduled := core.RunRequest{
		MainEvent: cfg.Schedule.MainEvent,
		SubEvent:  cfg.Schedule.SubEvent,
	}
	if cfg.Schedule.Enabled {
		g.Go(func() error {
			service.StartMergeScheduler(gctx, core.ScheduleConfig{
				Interval: cfg.Schedule.Interval,
				Request:  scheduled,
			})
			return nil
		})
	}
	if cfg.Schedule.WatchSources {
		g.Go(func() error {
			return service.Watch(gctx, cfg.Schedule.Debounce, scheduled)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
