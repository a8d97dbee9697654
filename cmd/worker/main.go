package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"confidentpicks/automation/internal/app"
	"confidentpicks/automation/internal/config"
	"confidentpicks/automation/internal/metrics"
	"confidentpicks/automation/internal/monitoring"
	"confidentpicks/automation/internal/passwordreset"
	"confidentpicks/automation/internal/scheduler"
	"confidentpicks/automation/internal/server"

	"github.com/rs/zerolog/log"
)

func main() {
	app.SetupLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	log.Info().Msg("Starting Confident Picks automation worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("game_source", cfg.GameSource).
		Msg("Configuration loaded")

	flush, err := monitoring.Init(cfg.SentryDSN, cfg.AppEnv, cfg.Release)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize error monitoring")
	}
	defer flush()

	// Create context that listens for cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	worker, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		monitoring.CaptureError(err, map[string]string{"component": "startup"})
		flush()
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	defer worker.Close()

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				if worker.DB != nil {
					worker.DB.PoolStats()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      server.NewRouter(routerOptions(cfg, worker)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	sched := scheduler.NewScheduler(worker.Runner, scheduler.Options{
		SyncCron:      cfg.SyncCron,
		ExportCron:    cfg.ExportCron,
		ImportCron:    cfg.ImportCron,
		LiveSheetCron: cfg.LiveSheetCron,
		InitialSync:   cfg.InitialSyncEnabled,
	})
	if cfg.EnableScheduler {
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()
	log.Info().Msg("Received shutdown signal, gracefully shutting down...")

	if cfg.EnableScheduler {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Worker shutdown complete")
}

func routerOptions(cfg *config.Config, worker *app.App) server.Options {
	opts := server.Options{
		CORSOrigins: cfg.CORSOrigins,
		Checks:      map[string]server.HealthFunc{},
		Metrics:     cfg.EnableMetrics,
	}

	if worker.DB != nil {
		opts.Checks["ledger"] = worker.DB.Health
	}

	if worker.Redis != nil {
		rdb := worker.Redis
		opts.Checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
		resets := passwordreset.NewService(rdb, passwordreset.LogNotifier{}, cfg.ResetTokenTTL, cfg.ResetLinkBase)
		opts.Reset = passwordreset.NewHandler(resets)
	} else {
		log.Warn().Msg("Redis unavailable, password reset endpoints disabled")
	}

	return opts
}
