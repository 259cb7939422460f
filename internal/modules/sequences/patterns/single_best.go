package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// SingleBestPattern proposes the single highest-priority action, for minimal
// intervention. A buy is proposed only when cash covers it.
type SingleBestPattern struct {
	*BasePattern
}

// NewSingleBestPattern creates a new single best pattern generator.
func NewSingleBestPattern(log zerolog.Logger) *SingleBestPattern {
	return &SingleBestPattern{
		BasePattern: NewBasePattern(log, "single_best"),
	}
}

// Name returns the pattern name.
func (p *SingleBestPattern) Name() string {
	return "single_best"
}

// Generate creates a one-action sequence from the best candidate.
func (p *SingleBestPattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	if GetIntParam(params, ParamMaxDepth, 5) < 1 {
		return nil, nil
	}

	all := allCandidates(opportunities)
	if len(all) == 0 {
		return nil, nil
	}

	best := all[0]
	for _, candidate := range all[1:] {
		if candidate.Priority > best.Priority {
			best = candidate
		}
	}

	if best.Side == domain.TradeSideBuy && best.ValueEUR > GetFloatParam(params, ParamAvailableCash, 0) {
		return nil, nil
	}
	return []domain.ActionSequence{CreateSequence([]domain.ActionCandidate{best}, p.Name())}, nil
}

// allCandidates lists every candidate in canonical category order
func allCandidates(opportunities domain.OpportunitiesByCategory) []domain.ActionCandidate {
	lists := make([][]domain.ActionCandidate, 0, len(domain.AllOpportunityCategories))
	for _, c := range domain.AllOpportunityCategories {
		lists = append(lists, opportunities[c])
	}
	return concat(lists...)
}
