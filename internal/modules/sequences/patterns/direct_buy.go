package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// DirectBuyPattern spends available cash on buys only: averaging down first,
// then rebalance buys, then opportunity buys.
type DirectBuyPattern struct {
	*BasePattern
}

// NewDirectBuyPattern creates a new direct buy pattern generator.
func NewDirectBuyPattern(log zerolog.Logger) *DirectBuyPattern {
	return &DirectBuyPattern{
		BasePattern: NewBasePattern(log, "direct_buy"),
	}
}

// Name returns the pattern name.
func (p *DirectBuyPattern) Name() string {
	return "direct_buy"
}

// Generate creates at most one sequence of affordable buys.
func (p *DirectBuyPattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	cash := GetFloatParam(params, ParamAvailableCash, 0)
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if cash <= 0 || depth < 1 {
		return nil, nil
	}

	b := newSequenceBuilder(cash, depth)
	for _, candidate := range concat(
		opportunities[domain.OpportunityCategoryAveragingDown],
		opportunities[domain.OpportunityCategoryRebalanceBuys],
		opportunities[domain.OpportunityCategoryOpportunityBuys],
	) {
		b.addBuy(candidate)
	}

	p.log.Debug().
		Int("actions", len(b.actions)).
		Float64("remaining_cash", b.cash).
		Msg("Direct buy sequence built")

	return b.result(p.Name()), nil
}
