package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// OpportunityFirstPattern buys high-quality opportunities first and fills the
// remaining depth with averaging-down and rebalance buys.
type OpportunityFirstPattern struct {
	*BasePattern
}

// NewOpportunityFirstPattern creates a new opportunity-first pattern generator.
func NewOpportunityFirstPattern(log zerolog.Logger) *OpportunityFirstPattern {
	return &OpportunityFirstPattern{
		BasePattern: NewBasePattern(log, "opportunity_first"),
	}
}

// Name returns the pattern name.
func (p *OpportunityFirstPattern) Name() string {
	return "opportunity_first"
}

// Generate creates an opportunity-first sequence.
func (p *OpportunityFirstPattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	opportunityBuys := opportunities[domain.OpportunityCategoryOpportunityBuys]
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if len(opportunityBuys) == 0 || depth < 1 {
		return nil, nil
	}

	b := newSequenceBuilder(GetFloatParam(params, ParamAvailableCash, 0), depth)
	for _, candidate := range concat(
		opportunityBuys,
		opportunities[domain.OpportunityCategoryAveragingDown],
		opportunities[domain.OpportunityCategoryRebalanceBuys],
	) {
		b.addBuy(candidate)
	}

	return b.result(p.Name()), nil
}
