package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/config"
	"github.com/aristath/holistic-planner/internal/reliability"
	"github.com/aristath/holistic-planner/internal/scheduler"
)

// RegisterJobs creates the background jobs and registers them with the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("services must be initialized first")
	}

	instances := &JobInstances{}

	instances.PlannerBatch = scheduler.NewPlannerBatchJob(scheduler.PlannerBatchConfig{
		Planner:          container.IncrementalPlanner,
		Contexts:         container.ContextProvider,
		Configs:          container.ConfigRepo,
		Metrics:          container.MetricsProvider,
		Bus:              container.EventBus,
		MaxBatchesPerRun: cfg.PlannerMaxBatchesPerRun,
		RunTimeout:       cfg.PlannerRunTimeout,
		Log:              log,
	})
	if err := container.Scheduler.AddJob(cfg.PlannerSchedule, instances.PlannerBatch); err != nil {
		return nil, fmt.Errorf("failed to register planner batch job: %w", err)
	}

	instances.Maintenance = reliability.NewMaintenanceJob(container.PlannerDB, cfg.DataDir, log)
	if err := container.Scheduler.AddJob(cfg.MaintenanceSchedule, instances.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, 10*time.Minute, log)
		if err := container.Scheduler.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	log.Info().Int("jobs", len(instances.All())).Msg("Jobs registered")
	return instances, nil
}
