// Package sequences turns categorized opportunities into candidate action
// sequences: fixed and adaptive patterns, combinatorial generators,
// filters, and exploratory variants.
package sequences

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/progress"
	"github.com/aristath/holistic-planner/internal/modules/sequences/filters"
	"github.com/aristath/holistic-planner/internal/modules/sequences/generators"
	"github.com/aristath/holistic-planner/internal/modules/sequences/patterns"
)

// ErrNilContext is returned when generation is asked for without an opportunity context
var ErrNilContext = errors.New("opportunity context is nil")

// Service generates and filters trading sequences.
type Service struct {
	patterns   *patterns.PatternRegistry
	generators *generators.GeneratorRegistry
	filters    *filters.FilterRegistry
	dedupe     *filters.DedupeFilter
	log        zerolog.Logger
}

// NewService creates a new sequences service with every pattern, generator
// and filter registered.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		patterns:   patterns.NewPopulatedPatternRegistry(log),
		generators: generators.NewPopulatedGeneratorRegistry(log),
		filters:    filters.NewPopulatedFilterRegistry(log),
		dedupe:     filters.NewDedupeFilter(log),
		log:        log.With().Str("module", "sequences").Logger(),
	}
}

// GenerateSequences creates candidate action sequences from opportunities.
func (s *Service) GenerateSequences(
	opportunities domain.OpportunitiesByCategory,
	ctx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
) ([]domain.ActionSequence, error) {
	return s.GenerateSequencesWithDetailedProgress(opportunities, ctx, config, nil)
}

// GenerateSequencesWithDetailedProgress creates sequences, reporting one
// update per depth plus one for filtering and one for the variants.
//
// Steps:
//  1. Per-category candidate selection (diverse or top N)
//  2. For each depth 1..MaxDepth: patterns, then combinatorial generators
//  3. Normalization: sells first, priority, depth, hash
//  4. Filters (dedupe, correlation)
//  5. Exploratory variants of the filtered set, deduplicated against it
func (s *Service) GenerateSequencesWithDetailedProgress(
	opportunities domain.OpportunitiesByCategory,
	ctx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
	detailedCallback progress.DetailedCallback,
) ([]domain.ActionSequence, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if config == nil {
		config = domain.NewDefaultConfiguration()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to generate sequences: %w", err)
	}
	if opportunities.IsEmpty() {
		s.log.Debug().Msg("No opportunities, no sequences")
		return nil, nil
	}

	selected := selectCandidates(opportunities, ctx, config)
	maxDepth := config.MaxDepth
	totalSteps := maxDepth + 2

	var generated []domain.ActionSequence
	for depth := 1; depth <= maxDepth; depth++ {
		params := map[string]interface{}{
			patterns.ParamAvailableCash: ctx.AvailableCashEUR,
			patterns.ParamMaxDepth:      depth,
			patterns.ParamContext:       ctx,
		}
		fromPatterns := s.patterns.GenerateAll(selected, config, params)

		input := generators.Input{Opportunities: selected, Context: ctx, Depth: depth}
		fromGenerators := s.generators.ApplyGenerators(input, config, generators.StageCombinatorial)

		generated = append(generated, fromPatterns...)
		generated = append(generated, fromGenerators...)

		progress.CallDetailed(detailedCallback, progress.Update{
			Phase:    progress.PhaseSequenceGeneration,
			SubPhase: fmt.Sprintf("depth_%d", depth),
			Current:  depth,
			Total:    totalSteps,
			Message:  fmt.Sprintf("Generated sequences up to depth %d", depth),
			Details: map[string]any{
				"patterns":      len(fromPatterns),
				"combinatorial": len(fromGenerators),
				"total":         len(generated),
			},
		})
	}

	for i := range generated {
		generated[i] = patterns.Normalize(generated[i])
	}
	filtered := s.filters.ApplyFilters(generated, ctx, config)
	progress.CallDetailed(detailedCallback, progress.Update{
		Phase:    progress.PhaseSequenceGeneration,
		SubPhase: "filters",
		Current:  maxDepth + 1,
		Total:    totalSteps,
		Message:  "Filtered sequences",
		Details:  map[string]any{"before": len(generated), "after": len(filtered)},
	})

	variants := s.generators.ApplyGenerators(
		generators.Input{Opportunities: selected, Sequences: filtered, Context: ctx, Depth: maxDepth},
		config,
		generators.StageVariant,
	)
	progress.CallDetailed(detailedCallback, progress.Update{
		Phase:    progress.PhaseSequenceGeneration,
		SubPhase: "variants",
		Current:  totalSteps,
		Total:    totalSteps,
		Message:  "Generated exploratory variants",
		Details:  map[string]any{"variants": len(variants)},
	})

	result := s.withVariants(filtered, variants)

	s.log.Info().
		Int("generated", len(generated)).
		Int("filtered", len(filtered)).
		Int("variants", len(variants)).
		Int("final_sequences", len(result)).
		Msg("Sequence generation complete")

	return result, nil
}

// withVariants appends the normalized variants to base and drops any
// variant repeating an earlier sequence. base comes first so its pattern
// types win.
func (s *Service) withVariants(base, variants []domain.ActionSequence) []domain.ActionSequence {
	combined := make([]domain.ActionSequence, 0, len(base)+len(variants))
	combined = append(combined, base...)
	for _, seq := range variants {
		combined = append(combined, patterns.Normalize(seq))
	}
	if len(variants) == 0 {
		return combined
	}

	deduped, err := s.dedupe.Filter(combined, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("Variant deduplication failed")
		return combined
	}
	return deduped
}

// Patterns returns the pattern registry.
func (s *Service) Patterns() *patterns.PatternRegistry {
	return s.patterns
}

// Generators returns the generator registry.
func (s *Service) Generators() *generators.GeneratorRegistry {
	return s.generators
}

// Filters returns the filter registry.
func (s *Service) Filters() *filters.FilterRegistry {
	return s.filters
}
