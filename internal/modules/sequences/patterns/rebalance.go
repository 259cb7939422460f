package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// RebalancePattern generates sequences that rebalance the portfolio by selling overweight
// and buying underweight positions.
type RebalancePattern struct {
	*BasePattern
}

// NewRebalancePattern creates a new rebalance pattern generator.
func NewRebalancePattern(log zerolog.Logger) *RebalancePattern {
	return &RebalancePattern{
		BasePattern: NewBasePattern(log, "rebalance"),
	}
}

// Name returns the pattern name.
func (p *RebalancePattern) Name() string {
	return "rebalance"
}

// Generate creates a sequence of rebalance sells followed by the rebalance
// buys their proceeds can fund. Nothing is generated without a rebalance sell.
func (p *RebalancePattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	sells := opportunities[domain.OpportunityCategoryRebalanceSells]
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if len(sells) == 0 || depth < 1 {
		p.log.Debug().Msg("No rebalance sells found")
		return nil, nil
	}

	b := newSequenceBuilder(GetFloatParam(params, ParamAvailableCash, 0), depth)
	for _, candidate := range sells {
		b.addSell(candidate)
	}
	for _, candidate := range opportunities[domain.OpportunityCategoryRebalanceBuys] {
		b.addBuy(candidate)
	}

	return b.result(p.Name()), nil
}

// DeepRebalancePattern spends at most half the depth on rebalance sells and
// the rest on rebalance buys. It needs both sides.
type DeepRebalancePattern struct {
	*BasePattern
}

// NewDeepRebalancePattern creates a new deep rebalance pattern generator.
func NewDeepRebalancePattern(log zerolog.Logger) *DeepRebalancePattern {
	return &DeepRebalancePattern{
		BasePattern: NewBasePattern(log, "deep_rebalance"),
	}
}

// Name returns the pattern name.
func (p *DeepRebalancePattern) Name() string {
	return "deep_rebalance"
}

// Generate creates a deep rebalance sequence.
func (p *DeepRebalancePattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	sells := opportunities[domain.OpportunityCategoryRebalanceSells]
	buys := opportunities[domain.OpportunityCategoryRebalanceBuys]
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if len(sells) == 0 || len(buys) == 0 || depth < 1 {
		return nil, nil
	}

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
