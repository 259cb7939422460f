package generators

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// GeneratorRegistry manages the available sequence generators.
type GeneratorRegistry struct {
	generators map[string]SequenceGenerator
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewGeneratorRegistry creates an empty generator registry.
func NewGeneratorRegistry(log zerolog.Logger) *GeneratorRegistry {
	return &GeneratorRegistry{
		generators: make(map[string]SequenceGenerator),
		log:        log.With().Str("component", "generator_registry").Logger(),
	}
}

// Register adds a generator, replacing any generator with the same name.
func (r *GeneratorRegistry) Register(gen SequenceGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[gen.Name()] = gen
	r.log.Debug().Str("name", gen.Name()).Msg("Registered generator")
}

// Get retrieves a generator by name.
func (r *GeneratorRegistry) Get(name string) (SequenceGenerator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.generators[name]
	if !ok {
		return nil, fmt.Errorf("generator not found: %s", name)
	}
	return gen, nil
}

// GetEnabled returns the enabled generators of one stage in configuration order.
func (r *GeneratorRegistry) GetEnabled(config *domain.PlannerConfiguration, stage Stage) []SequenceGenerator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var enabled []SequenceGenerator
	for _, name := range config.GetEnabledGenerators() {
		if gen, ok := r.generators[name]; ok && gen.Stage() == stage {
			enabled = append(enabled, gen)
		}
	}
	return enabled
}

// List returns every registered generator sorted by name.
func (r *GeneratorRegistry) List() []SequenceGenerator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]SequenceGenerator, 0, len(r.generators))
	for _, gen := range r.generators {
		result = append(result, gen)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// ApplyGenerators runs the enabled generators of one stage and returns what
// they produced. Variant generators see the input sequences plus the output
// of the variant generators before them. A failing generator is logged and skipped.
func (r *GeneratorRegistry) ApplyGenerators(
	input Input,
	config *domain.PlannerConfiguration,
	stage Stage,
) []domain.ActionSequence {
	var produced []domain.ActionSequence
	for _, gen := range r.GetEnabled(config, stage) {
		params := config.GetGeneratorParams(gen.Name())

		in := input
		if stage == StageVariant {
			in.Sequences = append(append([]domain.ActionSequence(nil), input.Sequences...), produced...)
		}

		generated, err := gen.Generate(in, params)
		if err != nil {
			r.log.Error().Err(err).Str("generator", gen.Name()).Msg("Generator failed")
			continue
		}
		produced = append(produced, generated...)
	}
	return produced
}

// NewPopulatedGeneratorRegistry creates a new generator registry with all generators registered.
func NewPopulatedGeneratorRegistry(log zerolog.Logger) *GeneratorRegistry {
	registry := NewGeneratorRegistry(log)

	registry.Register(NewCombinatorialGenerator(log))
	registry.Register(NewEnhancedCombinatorialGenerator(log))
	registry.Register(NewPartialExecutionGenerator(log))
	registry.Register(NewConstraintRelaxationGenerator(log))

	log.Info().
		Int("generators", len(registry.generators)).
		Msg("Generator registry initialized")

	return registry
}
