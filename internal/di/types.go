// Package di wires the planner's databases, repositories, services and jobs.
package di

import (
	"github.com/aristath/holistic-planner/internal/database"
	"github.com/aristath/holistic-planner/internal/evaluation/workers"
	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/modules/metrics"
	"github.com/aristath/holistic-planner/internal/modules/opportunities"
	planningevaluation "github.com/aristath/holistic-planner/internal/modules/planning/evaluation"
	planninghandlers "github.com/aristath/holistic-planner/internal/modules/planning/handlers"
	planningplanner "github.com/aristath/holistic-planner/internal/modules/planning/planner"
	planningrepo "github.com/aristath/holistic-planner/internal/modules/planning/repository"
	"github.com/aristath/holistic-planner/internal/modules/sequences"
	sequenceshandlers "github.com/aristath/holistic-planner/internal/modules/sequences/handlers"
	"github.com/aristath/holistic-planner/internal/reliability"
	"github.com/aristath/holistic-planner/internal/scheduler"
)

// Container holds all dependencies for the planner process.
// It is created by Wire() and is the single source of truth for service instances.
type Container struct {
	// Databases
	PlannerDB *database.DB // Job store: sequences, evaluations, best results, settings

	// Repositories
	PlannerRepo *planningrepo.PlannerRepository
	ConfigRepo  *planningrepo.ConfigRepository

	// Services
	EventBus             *events.Bus
	MetricsProvider      metrics.Provider       // nil when no metrics source is configured
	RedisMetrics         *metrics.RedisProvider // Set when metrics come from Redis, closed on shutdown
	WorkerPool           *workers.WorkerPool
	EvaluationClient     *planningevaluation.Client // nil when evaluating locally only
	EvaluationService    *planningevaluation.Service
	OpportunitiesService *opportunities.Service
	SequencesService     *sequences.Service
	Planner              *planningplanner.Planner
	IncrementalPlanner   *planningplanner.IncrementalPlanner
	ContextProvider      *scheduler.FileContextProvider
	BackupService        *reliability.BackupService // Optional
	Scheduler            *scheduler.Scheduler

	// Handlers
	PlanningHandler  *planninghandlers.Handler
	SequencesHandler *sequenceshandlers.Handler
}

// JobInstances holds the scheduled jobs so they can also be triggered by hand.
type JobInstances struct {
	PlannerBatch *scheduler.PlannerBatchJob
	Maintenance  *reliability.MaintenanceJob
	Backup       *reliability.BackupJob // Optional
}

// All returns the registered jobs, skipping disabled ones.
func (j *JobInstances) All() []scheduler.Job {
	jobs := []scheduler.Job{j.PlannerBatch, j.Maintenance}
	if j.Backup != nil {
		jobs = append(jobs, j.Backup)
	}
	return jobs
}

// Close releases the container's connections.
func (c *Container) Close() {
	if c.RedisMetrics != nil {
		_ = c.RedisMetrics.Close()
	}
	if c.PlannerDB != nil {
		_ = c.PlannerDB.Close()
	}
}
