// Package planner turns an opportunity context into a holistic plan: it
// generates candidate sequences, searches them and renders the best one.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/evaluation"
	"github.com/aristath/holistic-planner/internal/events"
	"github.com/aristath/holistic-planner/internal/modules/opportunities"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/feasibility"
	"github.com/aristath/holistic-planner/internal/modules/planning/hash"
	"github.com/aristath/holistic-planner/internal/modules/planning/progress"
	"github.com/aristath/holistic-planner/internal/modules/sequences"
)

// ErrNoOpportunityContext is returned when planning is asked for without an
// opportunity context.
var ErrNoOpportunityContext = errors.New("opportunity context is required")

// scoreScale converts evaluator scores (0-1) to plan scores (0-100).
const scoreScale = 100.0

// Planner runs the one-shot planning pipeline and renders plans.
type Planner struct {
	opportunitiesService *opportunities.Service
	sequencesService     *sequences.Service
	search               *SearchController
	bus                  *events.Bus
	log                  zerolog.Logger
}

// NewPlanner creates a planner. bus may be nil.
func NewPlanner(
	opportunitiesService *opportunities.Service,
	sequencesService *sequences.Service,
	evaluator Evaluator,
	bus *events.Bus,
	log zerolog.Logger,
) *Planner {
	return &Planner{
		opportunitiesService: opportunitiesService,
		sequencesService:     sequencesService,
		search:               NewSearchController(evaluator, log),
		bus:                  bus,
		log:                  log.With().Str("component", "planner").Logger(),
	}
}

// Generation is the output of the candidate pipeline.
type Generation struct {
	PortfolioHash string
	Opportunities int
	Generated     int
	Sequences     []domain.ActionSequence // Feasible sequences
	Stats         feasibility.Stats
}

// GenerateCandidates identifies opportunities, generates sequences and keeps
// the feasible ones.
func (p *Planner) GenerateCandidates(
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
	progressCallback progress.DetailedCallback,
) (*Generation, error) {
	if opportunityCtx == nil {
		return nil, ErrNoOpportunityContext
	}

	opps, err := p.opportunitiesService.IdentifyOpportunitiesWithProgress(opportunityCtx, config, progressCallback)
	if err != nil {
		return nil, fmt.Errorf("failed to identify opportunities: %w", err)
	}

	generated, err := p.sequencesService.GenerateSequencesWithDetailedProgress(opps, opportunityCtx, config, progressCallback)
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequences: %w", err)
	}

	feasible, stats := feasibility.NewFilter(opportunityCtx, config, p.log).Apply(generated)

	gen := &Generation{
		PortfolioHash: hash.PortfolioHashForContext(opportunityCtx),
		Opportunities: opps.Count(),
		Generated:     len(generated),
		Sequences:     feasible,
		Stats:         stats,
	}

	p.log.Info().
		Str("portfolio_hash", gen.PortfolioHash).
		Int("opportunities", gen.Opportunities).
		Int("generated", gen.Generated).
		Int("feasible", len(feasible)).
		Msg("Generated candidate sequences")

	return gen, nil
}

// CreatePlan runs identification, generation, feasibility filtering and
// search over every sequence, then renders the best non-exploratory one.
func (p *Planner) CreatePlan(
	ctx context.Context,
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
) (*domain.HolisticPlan, error) {
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

	p.log.Info().Msg("Creating holistic plan")

	gen, err := p.GenerateCandidates(opportunityCtx, config, nil)
	if err != nil {
		return nil, err
	}
	if len(gen.Sequences) == 0 {
		p.log.Info().Msg("No feasible sequences, returning empty plan")
		plan := p.EmptyPlan(opportunityCtx, config, gen.PortfolioHash)
		p.emitPlan(plan)
		return plan, nil
	}

	result, err := p.search.Search(ctx, gen.Sequences, gen.PortfolioHash, config, opportunityCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to search sequences: %w", err)
	}
	if result.Best == nil {
		p.log.Info().
			Int("failed", len(result.Failed)).
			Msg("No usable evaluation, returning empty plan")
		plan := p.EmptyPlan(opportunityCtx, config, gen.PortfolioHash)
		p.emitPlan(plan)
		return plan, nil
	}

	plan := p.RenderPlan(result.Best.Sequence, &result.Best.Result, opportunityCtx, config, gen.PortfolioHash)

	p.log.Info().
		Int("steps", len(plan.Steps)).
		Int("evaluated", result.EvaluatedCount).
		Bool("early_stop", result.EarlyStop).
		Float64("end_score", plan.EndStateScore).
		Msg("Plan created")

	return plan, nil
}

// EmptyPlan is the plan returned when there is nothing worth doing.
func (p *Planner) EmptyPlan(
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
	portfolioHash string,
) *domain.HolisticPlan {
	current := evaluation.EvaluateSequence(nil, opportunityCtx.EvaluationContext(config)).Score * scoreScale
	return &domain.HolisticPlan{
		Steps:            []domain.HolisticStep{},
		CurrentScore:     current,
		EndStateScore:    current,
		NarrativeSummary: EmptyPlanNarrative,
		Feasible:         true,
		PortfolioHash:    portfolioHash,
	}
}

// RenderPlan converts a sequence into a plan. Each step carries the portfolio
// score and available cash before and after it, from simulating the prefix
// up to and including the step. result may be nil, in which case the end
// score comes from the full-sequence simulation.
func (p *Planner) RenderPlan(
	sequence domain.ActionSequence,
	result *domain.EvaluationResult,
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
	portfolioHash string,
) *domain.HolisticPlan {
	plan := p.render(sequence, result, opportunityCtx, config, portfolioHash)
	p.emitPlan(plan)
	return plan
}

func (p *Planner) render(
	sequence domain.ActionSequence,
	result *domain.EvaluationResult,
	opportunityCtx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
	portfolioHash string,
) *domain.HolisticPlan {
	evalCtx := opportunityCtx.EvaluationContext(config)
	start := evaluation.EvaluateSequence(nil, evalCtx)

	scoreBefore := start.Score * scoreScale
	cashBefore := evalCtx.AvailableCashEUR
	portfolio := evalCtx.PortfolioContext

	steps := make([]domain.HolisticStep, 0, len(sequence.Actions))
	cashRequired, cashGenerated := 0.0, 0.0

	for i, action := range sequence.Actions {
		after := evaluation.EvaluateSequence(sequence.Actions[:i+1], evalCtx)
		scoreAfter := after.Score * scoreScale

		steps = append(steps, domain.HolisticStep{
			StepNumber:           i + 1,
			Side:                 action.Side,
			Symbol:               action.Symbol,
			Name:                 action.Name,
			Quantity:             action.Quantity,
			EstimatedPrice:       action.Price,
			EstimatedValue:       action.ValueEUR,
			Currency:             action.Currency,
			Reason:               action.Reason,
			Narrative:            StepNarrative(action, portfolio),
			IsWindfall:           action.HasTag(domain.TagWindfall),
			IsAveragingDown:      action.HasTag(domain.TagAveragingDown),
			ContributesTo:        ContributesTo(action),
			PortfolioScoreBefore: scoreBefore,
			PortfolioScoreAfter:  scoreAfter,
			AvailableCashBefore:  cashBefore,
			AvailableCashAfter:   after.EndCashEUR,
		})

		if action.Side.IsSell() {
			cashGenerated += action.ValueEUR
		} else {
			cashRequired += action.ValueEUR
		}

		scoreBefore = scoreAfter
		cashBefore = after.EndCashEUR
		portfolio = after.EndPortfolio
	}

	currentScore := start.Score * scoreScale
	endScore := scoreBefore
	plan := &domain.HolisticPlan{
		Steps:         steps,
		CurrentScore:  currentScore,
		CashRequired:  cashRequired,
		CashGenerated: cashGenerated,
		Feasible:      cashRequired <= evalCtx.AvailableCashEUR+cashGenerated,
		PortfolioHash: portfolioHash,
		SequenceHash:  sequence.SequenceHash,
		PatternType:   sequence.PatternType,
	}
	if result != nil {
		endScore = result.EndScore * scoreScale
		breakdown := result.Breakdown
		plan.ScoreBreakdown = &breakdown
	}
	plan.EndStateScore = endScore
	plan.Improvement = endScore - currentScore
	plan.NarrativeSummary = PlanNarrative(steps, currentScore, endScore)

	return plan
}

func (p *Planner) emitPlan(plan *domain.HolisticPlan) {
	if p.bus == nil {
		return
	}
	p.bus.EmitTyped("planner", &events.PlanGeneratedData{
		PortfolioHash: plan.PortfolioHash,
		Steps:         len(plan.Steps),
		EndScore:      plan.EndStateScore,
		Improvement:   plan.Improvement,
		Feasible:      plan.Feasible,
	})
}
