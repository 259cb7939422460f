package filters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// FilterRegistry manages the available sequence filters.
type FilterRegistry struct {
	filters map[string]SequenceFilter
	mu      sync.RWMutex
	log     zerolog.Logger
}

// NewFilterRegistry creates an empty filter registry.
func NewFilterRegistry(log zerolog.Logger) *FilterRegistry {
	return &FilterRegistry{
		filters: make(map[string]SequenceFilter),
		log:     log.With().Str("component", "filter_registry").Logger(),
	}
}

// Register adds a filter, replacing any filter with the same name.
func (r *FilterRegistry) Register(filter SequenceFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[filter.Name()] = filter
	r.log.Debug().Str("name", filter.Name()).Msg("Registered filter")
}

// Get retrieves a filter by name.
func (r *FilterRegistry) Get(name string) (SequenceFilter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	filter, ok := r.filters[name]
	if !ok {
		return nil, fmt.Errorf("filter not found: %s", name)
	}
	return filter, nil
}

// GetEnabled returns the enabled filters in configuration order.
func (r *FilterRegistry) GetEnabled(config *domain.PlannerConfiguration) []SequenceFilter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var enabled []SequenceFilter
	for _, name := range config.GetEnabledFilters() {
		if filter, ok := r.filters[name]; ok {
			enabled = append(enabled, filter)
		}
	}
	return enabled
}

// List returns every registered filter sorted by name.
func (r *FilterRegistry) List() []SequenceFilter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]SequenceFilter, 0, len(r.filters))
	for _, filter := range r.filters {
		result = append(result, filter)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// ApplyFilters runs the enabled filters in order. A failing filter is logged
// and skipped, leaving its input unchanged.
func (r *FilterRegistry) ApplyFilters(
	sequences []domain.ActionSequence,
	ctx *domain.OpportunityContext,
	config *domain.PlannerConfiguration,
) []domain.ActionSequence {
	result := sequences
	for _, filter := range r.GetEnabled(config) {
		params := config.GetFilterParams(filter.Name())
		params[ParamContext] = ctx

		filtered, err := filter.Filter(result, params)
		if err != nil {
			r.log.Error().Err(err).Str("filter", filter.Name()).Msg("Filter failed")
			continue
		}
		r.log.Debug().
			Str("filter", filter.Name()).
			Int("before", len(result)).
			Int("after", len(filtered)).
			Msg("Applied filter")
		result = filtered
	}
	return result
}

// NewPopulatedFilterRegistry creates a new filter registry with all filters registered.
func NewPopulatedFilterRegistry(log zerolog.Logger) *FilterRegistry {
	registry := NewFilterRegistry(log)

	registry.Register(NewDedupeFilter(log))
	registry.Register(NewCorrelationAwareFilter(log))

	log.Info().
		Int("filters", len(registry.filters)).
		Msg("Filter registry initialized")

	return registry
}
