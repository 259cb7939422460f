package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// MixedStrategyPattern spends up to half the depth on sells and fills the
// rest with any affordable buys.
type MixedStrategyPattern struct {
	*BasePattern
}

// NewMixedStrategyPattern creates a new mixed strategy pattern generator.
func NewMixedStrategyPattern(log zerolog.Logger) *MixedStrategyPattern {
	return &MixedStrategyPattern{
		BasePattern: NewBasePattern(log, "mixed_strategy"),
	}
}

// Name returns the pattern name.
func (p *MixedStrategyPattern) Name() string {
	return "mixed_strategy"
}

// Generate creates a mixed sells-then-buys sequence.
func (p *MixedStrategyPattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if depth < 1 {
		return nil, nil
	}

	sells := concat(
		opportunities[domain.OpportunityCategoryProfitTaking],
		opportunities[domain.OpportunityCategoryRebalanceSells],
	)
	buys := concat(
		opportunities[domain.OpportunityCategoryAveragingDown],
		opportunities[domain.OpportunityCategoryRebalanceBuys],
		opportunities[domain.OpportunityCategoryOpportunityBuys],
	)

	b := newSequenceBuilder(GetFloatParam(params, ParamAvailableCash, 0), depth)
	maxSells := halfDepth(depth)
	for i := 0; i < len(sells) && i < maxSells; i++ {
		b.addSell(sells[i])
	}
	for _, candidate := range buys {
		b.addBuy(candidate)
	}

	return b.result(p.Name()), nil
}
