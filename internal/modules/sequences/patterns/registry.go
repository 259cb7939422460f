package patterns

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// PatternRegistry manages the available pattern generators.
type PatternRegistry struct {
	patterns map[string]PatternGenerator
	mu       sync.RWMutex
	log      zerolog.Logger
}

// NewPatternRegistry creates an empty pattern registry.
func NewPatternRegistry(log zerolog.Logger) *PatternRegistry {
	return &PatternRegistry{
		patterns: make(map[string]PatternGenerator),
		log:      log.With().Str("component", "pattern_registry").Logger(),
	}
}

// Register adds a pattern, replacing any pattern with the same name.
func (r *PatternRegistry) Register(pattern PatternGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns[pattern.Name()] = pattern
	r.log.Debug().Str("name", pattern.Name()).Msg("Registered pattern")
}

// Get retrieves a pattern by name.
func (r *PatternRegistry) Get(name string) (PatternGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pattern, ok := r.patterns[name]
	if !ok {
		return nil, fmt.Errorf("pattern not found: %s", name)
	}
	return pattern, nil
}

// GetEnabled returns the enabled patterns in configuration order.
func (r *PatternRegistry) GetEnabled(config *domain.PlannerConfiguration) []PatternGenerator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var enabled []PatternGenerator
	for _, name := range config.GetEnabledPatterns() {
		if pattern, ok := r.patterns[name]; ok {
			enabled = append(enabled, pattern)
		}
	}
	return enabled
}

// List returns every registered pattern sorted by name.
func (r *PatternRegistry) List() []PatternGenerator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]PatternGenerator, 0, len(r.patterns))
	for _, pattern := range r.patterns {
		result = append(result, pattern)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// GenerateAll runs every enabled pattern. params are merged over each
// pattern's defaults. A failing pattern is logged and skipped.
func (r *PatternRegistry) GenerateAll(
	opportunities domain.OpportunitiesByCategory,
	config *domain.PlannerConfiguration,
	params map[string]interface{},
) []domain.ActionSequence {
	var sequences []domain.ActionSequence
	for _, pattern := range r.GetEnabled(config) {
		merged := pattern.DefaultParams()
		for k, v := range params {
			merged[k] = v
		}

		generated, err := pattern.Generate(opportunities, merged)
		if err != nil {
			r.log.Error().
				Err(err).
				Str("pattern", pattern.Name()).
				Msg("Pattern failed")
			continue
		}
		sequences = append(sequences, generated...)
	}
	return sequences
}

// NewPopulatedPatternRegistry creates a registry with every pattern registered.
func NewPopulatedPatternRegistry(log zerolog.Logger) *PatternRegistry {
	registry := NewPatternRegistry(log)

	registry.Register(NewDirectBuyPattern(log))
	registry.Register(NewProfitTakingPattern(log))
	registry.Register(NewRebalancePattern(log))
	registry.Register(NewAveragingDownPattern(log))
	registry.Register(NewSingleBestPattern(log))
	registry.Register(NewMultiSellPattern(log))
	registry.Register(NewMixedStrategyPattern(log))
	registry.Register(NewOpportunityFirstPattern(log))
	registry.Register(NewDeepRebalancePattern(log))
	registry.Register(NewCashGenerationPattern(log))
	registry.Register(NewCostOptimizedPattern(log))
	registry.Register(NewAdaptivePattern(log))
	registry.Register(NewMarketRegimePattern(log))

	log.Info().
		Int("patterns", len(registry.patterns)).
		Msg("Pattern registry initialized")

	return registry
}
