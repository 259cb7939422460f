// Package main is the entry point for the holistic planner service.
// It wires the job store, planner, scheduler and HTTP API, then runs until
// it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/holistic-planner/internal/config"
	"github.com/aristath/holistic-planner/internal/di"
	"github.com/aristath/holistic-planner/internal/server"
	"github.com/aristath/holistic-planner/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", cfg.Version).Msg("Starting holistic planner")

	// Databases, repositories, services and jobs
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:     log,
		DB:      container.PlannerDB,
		Config:  cfg,
		Bus:     container.EventBus,
		Modules: []server.RouteRegistrar{container.PlanningHandler, container.SequencesHandler},
		Jobs:    jobs.All(),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()
	log.Info().
		Str("planner_schedule", cfg.PlannerSchedule).
		Str("maintenance_schedule", cfg.MaintenanceSchedule).
		Bool("backups", jobs.Backup != nil).
		Msg("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Waits for a running planner batch to persist its progress
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
