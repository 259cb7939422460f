package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/config"
	"github.com/aristath/holistic-planner/internal/evaluation/workers"
	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/modules/metrics"
	"github.com/aristath/holistic-planner/internal/modules/opportunities"
	planningevaluation "github.com/aristath/holistic-planner/internal/modules/planning/evaluation"
	planninghandlers "github.com/aristath/holistic-planner/internal/modules/planning/handlers"
	planningplanner "github.com/aristath/holistic-planner/internal/modules/planning/planner"
	"github.com/aristath/holistic-planner/internal/modules/sequences"
	sequenceshandlers "github.com/aristath/holistic-planner/internal/modules/sequences/handlers"
	"github.com/aristath/holistic-planner/internal/reliability"
	"github.com/aristath/holistic-planner/internal/scheduler"
)

// InitializeServices creates all services and stores them in the container
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.PlannerRepo == nil {
		return fmt.Errorf("repositories must be initialized first")
	}

	container.EventBus = events.NewBus(log)

	if cfg.Redis.Enabled {
		container.RedisMetrics = metrics.NewRedisProvider(metrics.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		container.MetricsProvider = container.RedisMetrics
	}

	if cfg.EvaluationWorkers > 0 {
		container.WorkerPool = workers.NewWorkerPool(cfg.EvaluationWorkers)
	} else {
		container.WorkerPool = workers.NewDefaultWorkerPool()
	}

	if cfg.EvaluatorURL != "" {
		container.EvaluationClient = planningevaluation.NewClient(cfg.EvaluatorURL, cfg.EvaluatorTimeout, log)
		log.Info().Str("url", cfg.EvaluatorURL).Msg("Remote evaluator configured")
	}
	container.EvaluationService = planningevaluation.NewService(container.WorkerPool, container.EvaluationClient, log)

	container.OpportunitiesService = opportunities.NewService(log)
	container.SequencesService = sequences.NewService(log)
	container.Planner = planningplanner.NewPlanner(
		container.OpportunitiesService,
		container.SequencesService,
		container.EvaluationService,
		container.EventBus,
		log,
	)
	container.IncrementalPlanner = planningplanner.NewIncrementalPlanner(
		container.Planner,
		container.PlannerRepo,
		container.EventBus,
		log,
	)

	container.ContextProvider = scheduler.NewFileContextProvider(cfg.SnapshotPath, log)
	container.Scheduler = scheduler.New(log)

	if cfg.Backup.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := reliability.NewS3Store(ctx, reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			Prefix:          cfg.Backup.Prefix,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(container.PlannerDB, store, cfg.DataDir, log)
	}

	container.PlanningHandler = planninghandlers.NewHandler(
		container.IncrementalPlanner,
		container.ContextProvider,
		container.ConfigRepo,
		container.EventBus,
		log,
	)
	container.SequencesHandler = sequenceshandlers.NewHandler(container.SequencesService, log)

	log.Info().
		Int("workers", container.EvaluationService.Workers()).
		Bool("remote_evaluator", container.EvaluationClient != nil).
		Bool("redis_metrics", container.RedisMetrics != nil).
		Bool("backups", container.BackupService != nil).
		Msg("Services initialized")
	return nil
}
