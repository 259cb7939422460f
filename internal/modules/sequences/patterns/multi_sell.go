package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// MultiSellPattern combines profit-taking and rebalance sells, then funds
// buys from every buy category with the proceeds.
type MultiSellPattern struct {
	*BasePattern
}

// NewMultiSellPattern creates a new multi-sell pattern generator.
func NewMultiSellPattern(log zerolog.Logger) *MultiSellPattern {
	return &MultiSellPattern{
		BasePattern: NewBasePattern(log, "multi_sell"),
	}
}

// Name returns the pattern name.
func (p *MultiSellPattern) Name() string {
	return "multi_sell"
}

// Generate creates a multi-sell sequence.
func (p *MultiSellPattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	sells := concat(
		opportunities[domain.OpportunityCategoryProfitTaking],
		opportunities[domain.OpportunityCategoryRebalanceSells],
	)
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if len(sells) == 0 || depth < 1 {
		return nil, nil
	}

	b := newSequenceBuilder(GetFloatParam(params, ParamAvailableCash, 0), depth)
	for _, candidate := range sells {
		b.addSell(candidate)
	}
	for _, candidate := range concat(
		opportunities[domain.OpportunityCategoryAveragingDown],
		opportunities[domain.OpportunityCategoryRebalanceBuys],
		opportunities[domain.OpportunityCategoryOpportunityBuys],
	) {
		b.addBuy(candidate)
	}

	return b.result(p.Name()), nil
}
