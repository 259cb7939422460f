// Package main runs the standalone evaluation service that planners can
// offload batch simulation and scoring to.
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aristath/holistic-planner/internal/config"
	"github.com/aristath/holistic-planner/internal/evaluation/workers"
	"github.com/aristath/holistic-planner/internal/modules/evaluation/handlers"
	"github.com/aristath/holistic-planner/pkg/logger"
)

func main() {
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

	pool := workers.NewDefaultWorkerPool()
	if cfg.EvaluationWorkers > 0 {
		pool = workers.NewWorkerPool(cfg.EvaluationWorkers)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	handlers.NewHandler(pool, cfg.Version, log).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.EvaluatorPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().
			Int("port", cfg.EvaluatorPort).
			Int("workers", pool.Workers()).
			Msg("Starting evaluation service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start evaluation service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Evaluation service forced to shutdown")
	}
	log.Info().Msg("Evaluation service stopped")
}
