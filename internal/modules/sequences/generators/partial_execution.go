package generators

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/sequences/patterns"
)

// PartialExecutionGenerator models interrupted execution: for every sequence
// longer than one action it emits the prefixes of length 1..len-1.
type PartialExecutionGenerator struct {
	*BaseGenerator
}

// NewPartialExecutionGenerator creates a new partial execution generator.
func NewPartialExecutionGenerator(log zerolog.Logger) *PartialExecutionGenerator {
	return &PartialExecutionGenerator{BaseGenerator: NewBaseGenerator(log, "partial_execution")}
}

// Name returns the generator name.
func (g *PartialExecutionGenerator) Name() string {
	return "partial_execution"
}

// Stage returns StageVariant.
func (g *PartialExecutionGenerator) Stage() Stage {
	return StageVariant
}

// Generate returns the prefixes of each multi-action sequence. Exploratory
// sequences have no partial variants.
func (g *PartialExecutionGenerator) Generate(input Input, params map[string]interface{}) ([]domain.ActionSequence, error) {
	maxDepth := GetIntParam(params, "max_depth", 5)

	var result []domain.ActionSequence
	for _, seq := range input.Sequences {
		if len(seq.Actions) <= 1 || seq.Exploratory {
			continue
		}
		for length := 1; length < len(seq.Actions) && length < maxDepth; length++ {
			prefix := make([]domain.ActionCandidate, length)
			copy(prefix, seq.Actions[:length])
			for i := range prefix {
				prefix[i].Tags = withTag(prefix[i].Tags, domain.TagPartialExecution)
			}
			result = append(result, patterns.CreateSequence(prefix, g.Name()))
		}
	}

	if len(result) > 0 {
		g.log.Info().
			Int("partials", len(result)).
			Int("sources", len(input.Sequences)).
			Msg("Generated partial execution scenarios")
	}

	return result, nil
}

// withTag returns tags plus tag. The input slice is never appended to.
func withTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	result := make([]string, len(tags), len(tags)+1)
	copy(result, tags)
	return append(result, tag)
}
