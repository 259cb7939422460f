package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/modules/metrics"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/planner"
)

// DefaultMaxBatchesPerRun caps the batches one scheduled run may chain.
const DefaultMaxBatchesPerRun = 10

// ConfigSource supplies the planner configuration for a run.
type ConfigSource interface {
	GetDefaultConfig() (*domain.PlannerConfiguration, error)
}

// PlannerBatchJob advances the incremental planner. Each run loads the
// current portfolio and keeps running batches while the planner reports more
// work, up to MaxBatchesPerRun. The next cron tick picks up where it stopped.
type PlannerBatchJob struct {
	planner          *planner.IncrementalPlanner
	contexts         ContextProvider
	configs          ConfigSource
	metrics          metrics.Provider
	bus              *events.Bus
	maxBatchesPerRun int
	runTimeout       time.Duration
	log              zerolog.Logger
}

// PlannerBatchConfig holds configuration for planner batch job
type PlannerBatchConfig struct {
	Planner          *planner.IncrementalPlanner
	Contexts         ContextProvider
	Configs          ConfigSource
	Metrics          metrics.Provider // Optional
	Bus              *events.Bus      // Optional
	MaxBatchesPerRun int
	RunTimeout       time.Duration // Zero means no timeout
	Log              zerolog.Logger
}

// NewPlannerBatchJob creates a new planner batch job
func NewPlannerBatchJob(cfg PlannerBatchConfig) *PlannerBatchJob {
	maxBatches := cfg.MaxBatchesPerRun
	if maxBatches <= 0 {
		maxBatches = DefaultMaxBatchesPerRun
	}
	return &PlannerBatchJob{
		planner:          cfg.Planner,
		contexts:         cfg.Contexts,
		configs:          cfg.Configs,
		metrics:          cfg.Metrics,
		bus:              cfg.Bus,
		maxBatchesPerRun: maxBatches,
		runTimeout:       cfg.RunTimeout,
		log:              cfg.Log.With().Str("job", "planner_batch").Logger(),
	}
}

// Name returns the job name
func (j *PlannerBatchJob) Name() string {
	return "planner_batch"
}

// Run executes one scheduled run
func (j *PlannerBatchJob) Run() error {
	ctx := context.Background()
	if j.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.runTimeout)
		defer cancel()
	}
	_, err := j.RunContext(ctx)
	return err
}

// RunContext runs batches until the planner has no more work, the batch cap
// is reached or ctx is done. It returns the last batch result.
func (j *PlannerBatchJob) RunContext(ctx context.Context) (*planner.BatchResult, error) {
	runID := uuid.NewString()
	log := j.log.With().Str("run_id", runID).Logger()
	startTime := time.Now()

	j.emit(&events.JobStatusData{
		JobID:       runID,
		JobType:     j.Name(),
		Status:      "started",
		Description: "Advancing holistic planner",
		Timestamp:   startTime,
	})

	last, batches, err := j.run(ctx, runID, log)
	if err != nil {
		log.Error().Err(err).Int("batches", batches).Msg("Planner run failed")
		j.emit(&events.JobStatusData{
			JobID:     runID,
			JobType:   j.Name(),
			Status:    "failed",
			Error:     err.Error(),
			Duration:  time.Since(startTime).Seconds(),
			Timestamp: time.Now(),
		})
		return last, err
	}

	metadata := map[string]interface{}{"batches": batches}
	if last != nil {
		metadata["portfolio_hash"] = last.PortfolioHash
		metadata["progress"] = last.Progress
		metadata["has_more_work"] = last.HasMoreWork
	}
	j.emit(&events.JobStatusData{
		JobID:     runID,
		JobType:   j.Name(),
		Status:    "completed",
		Duration:  time.Since(startTime).Seconds(),
		Metadata:  metadata,
		Timestamp: time.Now(),
	})

	log.Info().
		Int("batches", batches).
		Dur("duration", time.Since(startTime)).
		Msg("Planner run complete")
	return last, nil
}

func (j *PlannerBatchJob) run(ctx context.Context, runID string, log zerolog.Logger) (*planner.BatchResult, int, error) {
	config, err := j.configs.GetDefaultConfig()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load planner configuration: %w", err)
	}

	opportunityCtx, err := j.contexts.Load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load opportunity context: %w", err)
	}

	if j.metrics != nil {
		symbols := make([]string, 0, len(opportunityCtx.Securities)+len(opportunityCtx.Positions))
		for _, sec := range opportunityCtx.Securities {
			symbols = append(symbols, sec.Symbol)
		}
		for _, pos := range opportunityCtx.Positions {
			symbols = append(symbols, pos.Symbol)
		}
		opportunityCtx.Metrics = metrics.LoadMetricsCache(ctx, j.metrics, symbols, log)
	}

	var last *planner.BatchResult
	batches := 0
	for batches < j.maxBatchesPerRun {
		if err := ctx.Err(); err != nil {
			return last, batches, err
		}

		result, err := j.planner.RunBatch(ctx, opportunityCtx, config)
		if err != nil {
			return last, batches, fmt.Errorf("failed to run planner batch: %w", err)
		}
		batches++
		last = result

		j.emit(&events.JobStatusData{
			JobID:   runID,
			JobType: j.Name(),
			Status:  "progress",
			Progress: &events.JobProgressInfo{
				Current:  completedOf(result),
				Total:    result.Total,
				Phase:    "sequence_evaluation",
				SubPhase: fmt.Sprintf("batch_%d", batches),
			},
			Timestamp: time.Now(),
		})

		if !result.HasMoreWork {
			break
		}
	}

	if last != nil && last.HasMoreWork {
		log.Info().
			Int("batches", batches).
			Float64("progress", last.Progress).
			Msg("Batch cap reached, continuing on next run")
	}
	return last, batches, nil
}

// completedOf derives the completed sequence count from the progress fraction.
func completedOf(result *planner.BatchResult) int {
	return int(result.Progress*float64(result.Total) + 0.5)
}

func (j *PlannerBatchJob) emit(data events.EventData) {
	if j.bus != nil {
		j.bus.EmitTyped("scheduler", data)
	}
}
