// Package opportunities provides trading opportunity identification functionality.
package opportunities

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/opportunities/calculators"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/progress"
)

// ErrNilContext is returned when no opportunity context is supplied
var ErrNilContext = errors.New("opportunity context is nil")

// Service provides the main API for the opportunities module.
type Service struct {
	registry    *calculators.CalculatorRegistry
	weightBased *calculators.WeightBasedCalculator
	eligibility *EligibilityChecker
	log         zerolog.Logger
}

// NewService creates a new opportunities service with the heuristic and
// weight-based calculators.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		registry:    calculators.NewPopulatedRegistry(log),
		weightBased: calculators.NewWeightBasedCalculator(log),
		eligibility: NewEligibilityChecker(log),
		log:         log.With().Str("module", "opportunities").Logger(),
	}
}

// IdentifyOpportunities identifies all trading opportunities based on the configuration.
//
// Weight-gap mode runs when optimizer target weights and current prices are
// present; the heuristic calculators run otherwise. Eligibility marks are
// applied to the context first, in both modes. Every category comes back
// sorted by priority, descending.
func (s *Service) IdentifyOpportunities(
	ctx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
) (domain.OpportunitiesByCategory, error) {
	return s.IdentifyOpportunitiesWithProgress(ctx, config, nil)
}

// IdentifyOpportunitiesWithProgress is IdentifyOpportunities with phase progress reports.
func (s *Service) IdentifyOpportunitiesWithProgress(
	ctx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
	cb progress.DetailedCallback,
) (domain.OpportunitiesByCategory, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if config == nil {
		return nil, fmt.Errorf("planner configuration is nil")
	}

	s.eligibility.Apply(ctx, config)

	mode := "heuristic"
	if config.EnableWeightBasedCalc && len(ctx.TargetWeights) > 0 && len(ctx.CurrentPrices) > 0 {
		mode = "weight_based"
	}

	progress.CallDetailed(cb, progress.Update{
		Phase:    progress.PhaseOpportunityIdentification,
		SubPhase: mode,
		Current:  0,
		Total:    1,
		Message:  "Identifying opportunities",
	})

	var (
		opportunities domain.OpportunitiesByCategory
		err           error
	)
	if mode == "weight_based" {
		opportunities, err = s.weightBased.Calculate(ctx)
	} else {
		opportunities, err = s.registry.IdentifyOpportunities(ctx, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to identify opportunities: %w", err)
	}

	for category, candidates := range opportunities {
		calculators.SortByPriority(candidates)
		opportunities[category] = candidates
	}

	details := make(map[string]any, len(opportunities))
	for category, candidates := range opportunities {
		details[string(category)] = len(candidates)
	}
	progress.CallDetailed(cb, progress.Update{
		Phase:    progress.PhaseOpportunityIdentification,
		SubPhase: mode,
		Current:  1,
		Total:    1,
		Message:  fmt.Sprintf("Found %d opportunities", opportunities.Count()),
		Details:  details,
	})

	s.log.Info().
		Str("mode", mode).
		Int("candidates", opportunities.Count()).
		Int("ineligible", len(ctx.IneligibleSymbols)).
		Msg("Opportunities identified")

	return opportunities, nil
}

// GetRegistry returns the calculator registry for advanced usage.
func (s *Service) GetRegistry() *calculators.CalculatorRegistry {
	return s.registry
}
