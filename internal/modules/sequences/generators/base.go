// Package generators provides combinatorial sequence generators and the
// exploratory variants derived from generated sequences.
package generators

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// Stage says when a generator runs.
type Stage int

const (
	// StageCombinatorial generators run once per depth on the selected opportunities
	StageCombinatorial Stage = iota
	// StageVariant generators run once on all sequences generated so far
	StageVariant
)

// Input is what a generator works from.
type Input struct {
	Opportunities domain.OpportunitiesByCategory // Selected candidates for this depth
	Sequences     []domain.ActionSequence        // Sequences generated so far
	Context       *domain.OpportunityContext
	Depth         int
}

// Sells returns the sell candidates: profit taking, then rebalance sells
func (in Input) Sells() []domain.ActionCandidate {
	var result []domain.ActionCandidate
	result = append(result, in.Opportunities[domain.OpportunityCategoryProfitTaking]...)
	result = append(result, in.Opportunities[domain.OpportunityCategoryRebalanceSells]...)
	return result
}

// Buys returns the buy candidates: averaging down, rebalance buys, then opportunity buys
func (in Input) Buys() []domain.ActionCandidate {
	var result []domain.ActionCandidate
	result = append(result, in.Opportunities[domain.OpportunityCategoryAveragingDown]...)
	result = append(result, in.Opportunities[domain.OpportunityCategoryRebalanceBuys]...)
	result = append(result, in.Opportunities[domain.OpportunityCategoryOpportunityBuys]...)
	return result
}

// SequenceGenerator produces additional sequences.
type SequenceGenerator interface {
	Name() string
	Stage() Stage
	Generate(input Input, params map[string]interface{}) ([]domain.ActionSequence, error)
}

// BaseGenerator provides common functionality for generators.
type BaseGenerator struct {
	log zerolog.Logger
}

// NewBaseGenerator creates a new base generator.
func NewBaseGenerator(log zerolog.Logger, name string) *BaseGenerator {
	return &BaseGenerator{log: log.With().Str("generator", name).Logger()}
}

// GetFloatParam safely gets a float parameter with default.
func GetFloatParam(params map[string]interface{}, key string, defaultValue float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultValue
}

// GetIntParam safely gets an int parameter with default.
func GetIntParam(params map[string]interface{}, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return defaultValue
}

// aboveThreshold keeps candidates with priority at least threshold, capped at limit
func aboveThreshold(candidates []domain.ActionCandidate, threshold float64, limit int) []domain.ActionCandidate {
	var result []domain.ActionCandidate
	for _, c := range candidates {
		if c.Priority >= threshold {
			result = append(result, c)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// comboLimits derives the per-depth caps: sells ≤ min(maxSells, depth/2),
// buys ≤ min(maxBuys, depth).
func comboLimits(params map[string]interface{}, depth int) (maxSells, maxBuys int) {
	maxSells = GetIntParam(params, "max_sells", 4)
	if depth/2 < maxSells {
		maxSells = depth / 2
	}
	maxBuys = GetIntParam(params, "max_buys", 4)
	if depth < maxBuys {
		maxBuys = depth
	}
	return maxSells, maxBuys
}

// sortStableByPriority orders candidates by priority, highest first, keeping ties in place
func sortStableByPriority(candidates []domain.ActionCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Priority > candidates[j].Priority })
}
