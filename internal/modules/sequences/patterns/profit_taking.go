package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// ProfitTakingPattern takes profits and reinvests the proceeds in averaging
// down and rebalance buys.
type ProfitTakingPattern struct {
	*BasePattern
}

// NewProfitTakingPattern creates a new profit-taking pattern generator.
func NewProfitTakingPattern(log zerolog.Logger) *ProfitTakingPattern {
	return &ProfitTakingPattern{
		BasePattern: NewBasePattern(log, "profit_taking"),
	}
}

// Name returns the pattern name.
func (p *ProfitTakingPattern) Name() string {
	return "profit_taking"
}

// Generate creates a profit-taking plus reinvest sequence.
func (p *ProfitTakingPattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	profitTaking := opportunities[domain.OpportunityCategoryProfitTaking]
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if len(profitTaking) == 0 || depth < 1 {
		return nil, nil
	}

	b := newSequenceBuilder(GetFloatParam(params, ParamAvailableCash, 0), depth)
	for _, candidate := range profitTaking {
		b.addSell(candidate)
	}
	for _, candidate := range concat(
		opportunities[domain.OpportunityCategoryAveragingDown],
		opportunities[domain.OpportunityCategoryRebalanceBuys],
	) {
		b.addBuy(candidate)
	}

	return b.result(p.Name()), nil
}
