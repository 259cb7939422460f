package patterns

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// CostOptimizedPattern minimizes the number of trades while maximizing
// impact: all sells first, then buys by priority across categories.
type CostOptimizedPattern struct {
	*BasePattern
}

// NewCostOptimizedPattern creates a new cost-optimized pattern generator.
func NewCostOptimizedPattern(log zerolog.Logger) *CostOptimizedPattern {
	return &CostOptimizedPattern{
		BasePattern: NewBasePattern(log, "cost_optimized"),
	}
}

// Name returns the pattern name.
func (p *CostOptimizedPattern) Name() string {
	return "cost_optimized"
}

// Generate creates a cost-optimized sequence.
func (p *CostOptimizedPattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if depth < 1 {
		return nil, nil
	}

	all := allCandidates(opportunities)
	if len(all) == 0 {
		return nil, nil
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Priority > all[j].Priority })

	b := newSequenceBuilder(GetFloatParam(params, ParamAvailableCash, 0), depth)
	for _, candidate := range concat(
		opportunities[domain.OpportunityCategoryProfitTaking],
		opportunities[domain.OpportunityCategoryRebalanceSells],
	) {
		if candidate.Side == domain.TradeSideSell {
			b.addSell(candidate)
		}
	}
	for _, candidate := range all {
		if candidate.Side == domain.TradeSideBuy {
			b.addBuy(candidate)
		}
	}

	return b.result(p.Name()), nil
}
