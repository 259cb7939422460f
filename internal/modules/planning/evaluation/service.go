// Package evaluation provides plan evaluation functionality: the local worker
// pool, the remote evaluator client and the fallback between them.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/aristath/holistic-planner/internal/evaluation/workers"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/progress"
)

// healthCheckTimeout bounds the remote health check made before each batch.
const healthCheckTimeout = 5 * time.Second

// Service evaluates sequences on the remote evaluator when one is configured
// and healthy, and on the local worker pool otherwise.
type Service struct {
	workerPool *workers.WorkerPool
	remote     *Client
	log        zerolog.Logger
}

// NewService creates a new evaluation service. remote may be nil.
func NewService(workerPool *workers.WorkerPool, remote *Client, log zerolog.Logger) *Service {
	if workerPool == nil {
		workerPool = workers.NewDefaultWorkerPool()
	}
	return &Service{
		workerPool: workerPool,
		remote:     remote,
		log:        log.With().Str("component", "evaluation_service").Logger(),
	}
}

// Workers returns the local worker pool size.
func (s *Service) Workers() int {
	return s.workerPool.Workers()
}

// BatchEvaluate evaluates sequences against the opportunity context.
// Results are returned in input order. A sequence that could not be evaluated
// has its Error set; the batch itself only fails on a nil context or a
// cancelled ctx.
func (s *Service) BatchEvaluate(
	ctx context.Context,
	sequences []domain.ActionSequence,
	portfolioHash string,
	config *domain.PlannerConfiguration,
	opportunityCtx *domain.OpportunityContext,
) ([]domain.EvaluationResult, error) {
	return s.BatchEvaluateDetailed(ctx, sequences, portfolioHash, config, opportunityCtx, nil)
}

// BatchEvaluateDetailed is BatchEvaluate with per-sequence progress reports
// in the sequence_evaluation phase.
func (s *Service) BatchEvaluateDetailed(
	ctx context.Context,
	sequences []domain.ActionSequence,
	portfolioHash string,
	config *domain.PlannerConfiguration,
	opportunityCtx *domain.OpportunityContext,
	progressCallback progress.DetailedCallback,
) ([]domain.EvaluationResult, error) {
	if opportunityCtx == nil {
		return nil, fmt.Errorf("opportunity context is nil")
	}
	if len(sequences) == 0 {
		return []domain.EvaluationResult{}, nil
	}

	evalContext := opportunityCtx.EvaluationContext(config)

	// Exploratory sequences are scored on the relaxed budget the
	// feasibility filter admitted them with.
	relaxedContext := evalContext
	relaxedContext.AvailableCashEUR *= config.RelaxedCashFactor()

	var plain, relaxed []int
	for i, seq := range sequences {
		if seq.Exploratory && relaxedContext.AvailableCashEUR != evalContext.AvailableCashEUR {
			relaxed = append(relaxed, i)
		} else {
			plain = append(plain, i)
		}
	}

	results := make([]domain.EvaluationResult, len(sequences))
	done := 0
	for _, group := range []struct {
		indices []int
		context models.EvaluationContext
	}{
		{plain, evalContext},
		{relaxed, relaxedContext},
	} {
		if len(group.indices) == 0 {
			continue
		}
		subset := make([]domain.ActionSequence, len(group.indices))
		for j, i := range group.indices {
			subset[j] = sequences[i]
		}

		groupResults, err := s.evaluateGroup(ctx, subset, group.context, portfolioHash,
			offsetProgress(progressCallback, done, len(sequences)))
		if err != nil {
			return nil, err
		}
		for j, i := range group.indices {
			results[i] = groupResults[j]
		}
		done += len(subset)
	}
	return results, nil
}

// evaluateGroup evaluates sequences sharing one evaluation context, remotely
// when possible.
func (s *Service) evaluateGroup(
	ctx context.Context,
	sequences []domain.ActionSequence,
	evalContext models.EvaluationContext,
	portfolioHash string,
	progressCallback progress.DetailedCallback,
) ([]domain.EvaluationResult, error) {
	evalSequences := make([][]models.ActionCandidate, len(sequences))
	for i, seq := range sequences {
		evalSequences[i] = seq.Actions
	}

	if s.remote != nil {
		results, err := s.evaluateRemote(ctx, sequences, evalSequences, evalContext, portfolioHash)
		if err == nil {
			reportDone(progressCallback, len(sequences), "remote")
			return results, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warn().
			Err(err).
			Str("evaluator", s.remote.BaseURL()).
			Int("sequence_count", len(sequences)).
			Msg("Remote evaluation failed, falling back to local worker pool")
	}

	return s.evaluateLocal(ctx, sequences, evalSequences, evalContext, portfolioHash, progressCallback)
}

// offsetProgress shifts a group's progress reports into the whole batch's count.
func offsetProgress(cb progress.DetailedCallback, offset, total int) progress.DetailedCallback {
	if cb == nil {
		return nil
	}
	return func(u progress.Update) {
		u.Current += offset
		u.Total = total
		cb(u)
	}
}

func (s *Service) evaluateRemote(
	ctx context.Context,
	sequences []domain.ActionSequence,
	evalSequences [][]models.ActionCandidate,
	evalContext models.EvaluationContext,
	portfolioHash string,
) ([]domain.EvaluationResult, error) {
	healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	health, err := s.remote.HealthCheck(healthCtx)
	if err != nil {
		return nil, err
	}
	if health.Status != "healthy" && health.Status != "ok" {
		return nil, fmt.Errorf("evaluation service reports status %q", health.Status)
	}

	response, err := s.remote.BatchEvaluate(ctx, models.BatchEvaluationRequest{
		Sequences:         evalSequences,
		EvaluationContext: evalContext,
	})
	if err != nil {
		return nil, err
	}

	results := make([]domain.EvaluationResult, len(sequences))
	for i, seq := range sequences {
		var evalErr error
		if len(response.Errors) == len(response.Results) && response.Errors[i] != "" {
			evalErr = errors.New(response.Errors[i])
		}
		results[i] = toDomainResult(seq, portfolioHash, response.Results[i], evalErr)
	}
	return results, nil
}

func (s *Service) evaluateLocal(
	ctx context.Context,
	sequences []domain.ActionSequence,
	evalSequences [][]models.ActionCandidate,
	evalContext models.EvaluationContext,
	portfolioHash string,
	progressCallback progress.DetailedCallback,
) ([]domain.EvaluationResult, error) {
	startTime := time.Now()
	outcomes := s.workerPool.EvaluateOutcomes(ctx, evalSequences, evalContext,
		workers.ProgressCallback(progress.ForPhase(progressCallback, progress.PhaseSequenceEvaluation)))
	elapsed := time.Since(startTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]domain.EvaluationResult, len(sequences))
	failed := 0
	for i, seq := range sequences {
		results[i] = toDomainResult(seq, portfolioHash, outcomes[i].Result, outcomes[i].Err)
		if results[i].Error != "" {
			failed++
		}
	}

	s.log.Info().
		Int("sequence_count", len(sequences)).
		Int("failed", failed).
		Float64("elapsed_seconds", elapsed.Seconds()).
		Float64("ms_per_sequence", float64(elapsed.Milliseconds())/float64(len(sequences))).
		Msg("Batch evaluation complete")

	return results, nil
}

// toDomainResult converts one evaluator result, or its failure, into the
// planner's result type.
func toDomainResult(
	seq domain.ActionSequence,
	portfolioHash string,
	result models.SequenceEvaluationResult,
	evalErr error,
) domain.EvaluationResult {
	out := domain.EvaluationResult{
		SequenceHash:  seq.SequenceHash,
		PortfolioHash: portfolioHash,
		Exploratory:   seq.Exploratory,
	}
	if evalErr != nil {
		out.Error = evalErr.Error()
		return out
	}

	// Copy positions to avoid sharing the evaluator's map
	endPositions := make(map[string]float64, len(result.EndPortfolio.Positions))
	for symbol, value := range result.EndPortfolio.Positions {
		endPositions[symbol] = value
	}

	out.EndScore = result.Score
	out.DiversificationScore = result.DiversificationScore
	out.RiskScore = result.RiskScore
	out.TransactionCost = result.TransactionCosts
	out.EndCash = result.EndCashEUR
	out.EndPositions = endPositions
	out.Breakdown = result.Breakdown
	out.TotalValue = result.EndPortfolio.TotalValue
	out.Feasible = result.Feasible

	if math.IsNaN(result.Score) || math.IsInf(result.Score, 0) {
		out.Error = fmt.Sprintf("non-finite score %v", result.Score)
	}
	return out
}

func reportDone(cb progress.DetailedCallback, total int, source string) {
	progress.CallDetailed(cb, progress.Update{
		Phase:   progress.PhaseSequenceEvaluation,
		Current: total,
		Total:   total,
		Message: fmt.Sprintf("Evaluated %d sequences", total),
		Details: map[string]any{"source": source},
	})
}

// EvaluateSingleSequence evaluates a single sequence.
func (s *Service) EvaluateSingleSequence(
	ctx context.Context,
	sequence domain.ActionSequence,
	portfolioHash string,
	config *domain.PlannerConfiguration,
	opportunityCtx *domain.OpportunityContext,
) (*domain.EvaluationResult, error) {
	results, err := s.BatchEvaluate(ctx, []domain.ActionSequence{sequence}, portfolioHash, config, opportunityCtx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no evaluation result returned")
	}
	return &results[0], nil
}

// HealthCheck reports whether the remote evaluator is reachable. Without a
// remote evaluator the service is in-process and always healthy.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	_, err := s.remote.HealthCheck(ctx)
	return err
}
