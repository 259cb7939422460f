package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/hash"
	"github.com/aristath/holistic-planner/internal/modules/planning/repository"
)

// BatchResult reports one incremental planning step.
type BatchResult struct {
	PortfolioHash string               `json:"portfolio_hash"`
	Processed     int                  `json:"processed"` // Sequences completed in this batch
	Total         int                  `json:"total"`     // Sequences stored for the fingerprint
	Evaluated     int                  `json:"evaluated"` // Evaluations stored for the fingerprint
	Progress      float64              `json:"progress"`  // Completed fraction, 0-1
	HasMoreWork   bool                 `json:"has_more_work"`
	EarlyStop     bool                 `json:"early_stop"`
	BestScore     float64              `json:"best_score,omitempty"`
	BestSequence  string               `json:"best_sequence,omitempty"`
	BestPlan      *domain.HolisticPlan `json:"best_plan,omitempty"`
}

// IncrementalPlanner spreads the search over many short batches, keeping
// progress in the job store so no evaluation is repeated.
type IncrementalPlanner struct {
	planner *Planner
	repo    repository.PlannerRepositoryInterface
	bus     *events.Bus
	seeding singleflight.Group
	now     func() time.Time
	log     zerolog.Logger
}

// NewIncrementalPlanner creates an incremental planner. bus may be nil.
func NewIncrementalPlanner(
	planner *Planner,
	repo repository.PlannerRepositoryInterface,
	bus *events.Bus,
	log zerolog.Logger,
) *IncrementalPlanner {
	return &IncrementalPlanner{
		planner: planner,
		repo:    repo,
		bus:     bus,
		now:     time.Now,
		log:     log.With().Str("component", "incremental_planner").Logger(),
	}
}

// RunBatch runs one resumable planning step:
//
//  1. Purge the job store of other portfolio fingerprints
//  2. Seed the store when the fingerprint has no sequences
//  3. Search the next batch of pending sequences
//  4. Record each evaluation with its completion flag
//  5. Keep the best score monotonic
//
// Sequences left unevaluated by an early stop stay pending for the next batch.
func (ip *IncrementalPlanner) RunBatch(
	ctx context.Context,
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
) (*BatchResult, error) {
	if opportunityCtx == nil {
		return nil, ErrNoOpportunityContext
	}
	if config == nil {
		config = domain.NewDefaultConfiguration()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	opportunityCtx.ApplyConfig(config)

	portfolioHash := hash.PortfolioHashForContext(opportunityCtx)
	log := ip.log.With().Str("portfolio_hash", portfolioHash).Logger()

	purged, err := ip.repo.PurgeStaleFingerprints(portfolioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to purge stale fingerprints: %w", err)
	}
	if len(purged) > 0 {
		log.Info().Strs("purged", purged).Msg("Portfolio changed, purged stale planning state")
	}

	if err := ip.ensureSeeded(opportunityCtx, config, portfolioHash); err != nil {
		return nil, err
	}

	records, err := ip.repo.NextBatch(portfolioHash, config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get next batch: %w", err)
	}

	result := &BatchResult{PortfolioHash: portfolioHash}

	if len(records) > 0 {
		batch := make([]domain.ActionSequence, len(records))
		for i, r := range records {
			batch[i] = r.Sequence
		}

		search, searchErr := ip.planner.search.Search(ctx, batch, portfolioHash, config, opportunityCtx)
		if search != nil {
			processed, err := ip.persist(portfolioHash, search, log)
			if err != nil {
				return nil, err
			}
			result.Processed = processed
			result.EarlyStop = search.EarlyStop

			if search.Best != nil {
				updated, err := ip.repo.UpdateBestIfBetter(portfolioHash, search.Best.Sequence.SequenceHash, search.Best.Result.EndScore)
				if err != nil {
					return nil, fmt.Errorf("failed to update best result: %w", err)
				}
				if updated {
					log.Info().
						Str("sequence_hash", search.Best.Sequence.SequenceHash).
						Float64("score", search.Best.Result.EndScore).
						Msg("New best sequence found")
				}
			}
		}
		if searchErr != nil {
			return nil, fmt.Errorf("failed to search batch: %w", searchErr)
		}
	}

	if err := ip.fillProgress(result); err != nil {
		return nil, err
	}

	best, err := ip.repo.BestResult(portfolioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get best result: %w", err)
	}
	plan, err := ip.bestPlan(best, opportunityCtx, config, portfolioHash)
	if err != nil {
		return nil, err
	}
	if best != nil {
		result.BestScore = best.Score
		result.BestSequence = best.SequenceHash
	}
	if plan == nil && result.Total == 0 {
		plan = ip.planner.EmptyPlan(opportunityCtx, config, portfolioHash)
	}
	result.BestPlan = plan

	status := &events.PlanningStatusData{
		PortfolioHash: portfolioHash,
		Processed:     result.Processed,
		Evaluated:     result.Evaluated,
		Total:         result.Total,
		Progress:      result.Progress,
		HasMoreWork:   result.HasMoreWork,
		EarlyStop:     result.EarlyStop,
		BestScore:     result.BestScore,
		BestSequence:  result.BestSequence,
	}
	ip.emit(status)
	if !result.HasMoreWork && plan != nil {
		ip.planner.emitPlan(plan)
	}

	log.Info().
		Int("processed", result.Processed).
		Int("total", result.Total).
		Float64("progress", result.Progress).
		Bool("has_more_work", result.HasMoreWork).
		Msg("Planner batch complete")

	return result, nil
}

// ensureSeeded generates and stores sequences for a fingerprint that has
// none. Concurrent calls for the same fingerprint share one generation.
func (ip *IncrementalPlanner) ensureSeeded(
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
	portfolioHash string,
) error {
	_, err, shared := ip.seeding.Do(portfolioHash, func() (interface{}, error) {
		has, err := ip.repo.HasSequences(portfolioHash)
		if err != nil {
			return 0, fmt.Errorf("failed to check sequences: %w", err)
		}
		if has {
			return 0, nil
		}

		gen, err := ip.planner.GenerateCandidates(opportunityCtx, config, nil)
		if err != nil {
			return 0, err
		}

		seeded, err := ip.repo.Seed(portfolioHash, gen.Sequences)
		if err != nil {
			return 0, fmt.Errorf("failed to seed sequences: %w", err)
		}

		ip.emit(&events.SequencesGeneratedData{
			PortfolioHash: portfolioHash,
			Opportunities: gen.Opportunities,
			Generated:     gen.Generated,
			Feasible:      len(gen.Sequences),
			Seeded:        seeded,
		})
		return seeded, nil
	})
	if shared {
		ip.log.Debug().Str("portfolio_hash", portfolioHash).Msg("Joined in-flight sequence seeding")
	}
	return err
}

// persist records every usable evaluation together with its completion flag
// and marks failed sequences completed without a record.
func (ip *IncrementalPlanner) persist(portfolioHash string, search *SearchResult, log zerolog.Logger) (int, error) {
	processed := 0
	now := ip.now()

	for _, c := range search.Evaluated {
		if err := ip.repo.RecordEvaluation(repository.NewEvaluationRecord(portfolioHash, c.Result, now)); err != nil {
			return processed, fmt.Errorf("failed to record evaluation: %w", err)
		}
		processed++
	}

	for _, c := range search.Failed {
		log.Warn().
			Str("sequence_hash", c.Sequence.SequenceHash).
			Str("error", c.Result.Error).
			Bool("feasible", c.Result.Feasible).
			Float64("score", c.Result.EndScore).
			Msg("Failed to evaluate sequence, marking as examined")
		if err := ip.repo.MarkSequenceCompleted(c.Sequence.SequenceHash, portfolioHash); err != nil {
			return processed, fmt.Errorf("failed to mark sequence completed: %w", err)
		}
		processed++
	}

	return processed, nil
}

func (ip *IncrementalPlanner) fillProgress(result *BatchResult) error {
	total, err := ip.repo.CountSequences(result.PortfolioHash)
	if err != nil {
		return fmt.Errorf("failed to count sequences: %w", err)
	}
	pending, err := ip.repo.CountPendingSequences(result.PortfolioHash)
	if err != nil {
		return fmt.Errorf("failed to count pending sequences: %w", err)
	}
	evaluated, err := ip.repo.CountEvaluations(result.PortfolioHash)
	if err != nil {
		return fmt.Errorf("failed to count evaluations: %w", err)
	}

	result.Total = total
	result.Evaluated = evaluated
	result.HasMoreWork = pending > 0
	if total > 0 {
		result.Progress = float64(total-pending) / float64(total)
	} else {
		result.Progress = 1.0
	}
	return nil
}

// bestPlan renders the stored best sequence, nil when nothing has been evaluated.
func (ip *IncrementalPlanner) bestPlan(
	best *repository.BestResultRecord,
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
	portfolioHash string,
) (*domain.HolisticPlan, error) {
	if best == nil {
		return nil, nil
	}

	seq, err := ip.repo.GetSequence(best.SequenceHash, portfolioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get best sequence: %w", err)
	}
	if seq == nil {
		return nil, nil
	}

	record, err := ip.repo.GetEvaluation(best.SequenceHash, portfolioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get best evaluation: %w", err)
	}

	var result *domain.EvaluationResult
	if record != nil {
		r := record.Result()
		result = &r
	}
	return ip.planner.render(*seq, result, opportunityCtx, config, portfolioHash), nil
}

// BestPlan renders the current best plan for an opportunity context without
// running a batch. It returns nil when nothing has been evaluated yet.
func (ip *IncrementalPlanner) BestPlan(
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
) (*domain.HolisticPlan, error) {
	if opportunityCtx == nil {
		return nil, ErrNoOpportunityContext
	}
	if config == nil {
		config = domain.NewDefaultConfiguration()
	}
	opportunityCtx.ApplyConfig(config)

	portfolioHash := hash.PortfolioHashForContext(opportunityCtx)
	best, err := ip.repo.BestResult(portfolioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get best result: %w", err)
	}
	return ip.bestPlan(best, opportunityCtx, config, portfolioHash)
}

// Status reports the stored progress of a fingerprint without running a batch.
func (ip *IncrementalPlanner) Status(portfolioHash string) (*BatchResult, error) {
	result := &BatchResult{PortfolioHash: portfolioHash}
	if err := ip.fillProgress(result); err != nil {
		return nil, err
	}
	best, err := ip.repo.BestResult(portfolioHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get best result: %w", err)
	}
	if best != nil {
		result.BestScore = best.Score
		result.BestSequence = best.SequenceHash
	}
	return result, nil
}

func (ip *IncrementalPlanner) emit(data events.EventData) {
	if ip.bus != nil {
		ip.bus.EmitTyped("planner", data)
	}
}
