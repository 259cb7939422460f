package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// CashGenerationPattern raises cash from several sells, then places
// strategic buys: opportunity, then averaging down, then rebalance.
type CashGenerationPattern struct {
	*BasePattern
}

// NewCashGenerationPattern creates a new cash generation pattern generator.
func NewCashGenerationPattern(log zerolog.Logger) *CashGenerationPattern {
	return &CashGenerationPattern{
		BasePattern: NewBasePattern(log, "cash_generation"),
	}
}

// Name returns the pattern name.
func (p *CashGenerationPattern) Name() string {
	return "cash_generation"
}

// Generate creates a cash generation sequence.
func (p *CashGenerationPattern) Generate(
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
		opportunities[domain.OpportunityCategoryOpportunityBuys],
		opportunities[domain.OpportunityCategoryAveragingDown],
		opportunities[domain.OpportunityCategoryRebalanceBuys],
	) {
		b.addBuy(candidate)
	}

	return b.result(p.Name()), nil
}
