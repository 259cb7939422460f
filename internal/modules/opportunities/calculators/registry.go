package calculators

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// CalculatorRegistry manages all registered opportunity calculators.
type CalculatorRegistry struct {
	calculators map[string]OpportunityCalculator
	mu          sync.RWMutex
	log         zerolog.Logger
}

// NewCalculatorRegistry creates a new calculator registry.
func NewCalculatorRegistry(log zerolog.Logger) *CalculatorRegistry {
	return &CalculatorRegistry{
		calculators: make(map[string]OpportunityCalculator),
		log:         log.With().Str("component", "calculator_registry").Logger(),
	}
}

// NewPopulatedRegistry creates a registry holding the five heuristic calculators
func NewPopulatedRegistry(log zerolog.Logger) *CalculatorRegistry {
	registry := NewCalculatorRegistry(log)
	registry.Register(NewProfitTakingCalculator(log))
	registry.Register(NewAveragingDownCalculator(log))
	registry.Register(NewOpportunityBuysCalculator(log))
	registry.Register(NewRebalanceSellsCalculator(log))
	registry.Register(NewRebalanceBuysCalculator(log))
	return registry
}

// Register registers a calculator.
func (r *CalculatorRegistry) Register(calculator OpportunityCalculator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := calculator.Name()
	r.calculators[name] = calculator
	r.log.Debug().
		Str("name", name).
		Str("category", string(calculator.Category())).
		Msg("Registered calculator")
}

// Get retrieves a calculator by name.
func (r *CalculatorRegistry) Get(name string) (OpportunityCalculator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	calculator, ok := r.calculators[name]
	if !ok {
		return nil, fmt.Errorf("calculator not found: %s", name)
	}
	return calculator, nil
}

// GetEnabled retrieves all enabled calculators from the configuration.
func (r *CalculatorRegistry) GetEnabled(config *domain.PlannerConfiguration) []OpportunityCalculator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var enabled []OpportunityCalculator
	for _, name := range config.GetEnabledCalculators() {
		if calculator, ok := r.calculators[name]; ok {
			enabled = append(enabled, calculator)
		} else {
			r.log.Warn().
				Str("name", name).
				Msg("Enabled calculator not found in registry")
		}
	}
	return enabled
}

// List returns all registered calculators, sorted by name.
func (r *CalculatorRegistry) List() []OpportunityCalculator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	calculators := make([]OpportunityCalculator, 0, len(r.calculators))
	for _, calc := range r.calculators {
		calculators = append(calculators, calc)
	}
	sort.Slice(calculators, func(i, j int) bool { return calculators[i].Name() < calculators[j].Name() })
	return calculators
}

// IdentifyOpportunities runs all enabled calculators and aggregates results by category.
// A failing calculator is logged and skipped.
func (r *CalculatorRegistry) IdentifyOpportunities(
	ctx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
) (domain.OpportunitiesByCategory, error) {
	enabled := r.GetEnabled(config)
	results := make(domain.OpportunitiesByCategory)

	r.log.Info().
		Int("enabled_calculators", len(enabled)).
		Msg("Identifying opportunities")

	for _, calculator := range enabled {
		name := calculator.Name()
		category := calculator.Category()

		candidates, err := calculator.Calculate(ctx, config.GetCalculatorParams(name))
		if err != nil {
			r.log.Error().
				Err(err).
				Str("calculator", name).
				Msg("Calculator failed")
			continue
		}

		r.log.Debug().
			Str("calculator", name).
			Int("candidates", len(candidates)).
			Msg("Calculator completed")

		results[category] = append(results[category], candidates...)
	}

	for category, candidates := range results {
		SortByPriority(candidates)
		results[category] = candidates
	}

	r.log.Info().
		Int("total_candidates", results.Count()).
		Int("categories", len(results)).
		Msg("Opportunity identification complete")

	return results, nil
}
