package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// MarketRegimePattern adjusts strategy to the market regime carried by the
// opportunity context (bull, bear or sideways). Without a regime it
// proposes nothing.
type MarketRegimePattern struct {
	*BasePattern
}

// NewMarketRegimePattern creates a new market regime pattern generator.
func NewMarketRegimePattern(log zerolog.Logger) *MarketRegimePattern {
	return &MarketRegimePattern{
		BasePattern: NewBasePattern(log, "market_regime"),
	}
}

// Name returns the pattern name.
func (p *MarketRegimePattern) Name() string {
	return "market_regime"
}

// Generate creates at most one regime-specific sequence.
//
//   - bull: take profit on the top two winners, reinvest in opportunity
//     then rebalance buys
//   - bear: reduce exposure with up to depth/2 sells, then average down
//   - sideways (or any other regime): top two rebalance sells, then
//     rebalance then opportunity buys
func (p *MarketRegimePattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	ctx := GetContextParam(params)
	if ctx == nil || ctx.MarketRegime == "" {
		return nil, nil
	}
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if depth < 1 {
		return nil, nil
	}

	b := newSequenceBuilder(GetFloatParam(params, ParamAvailableCash, 0), depth)

	switch ctx.MarketRegime {
	case domain.MarketRegimeBull:
		for _, candidate := range head(opportunities[domain.OpportunityCategoryProfitTaking], 2) {
			b.addSell(candidate)
		}
		for _, candidate := range concat(
			opportunities[domain.OpportunityCategoryOpportunityBuys],
			opportunities[domain.OpportunityCategoryRebalanceBuys],
		) {
			b.addBuy(candidate)
		}

	case domain.MarketRegimeBear:
		for _, candidate := range concat(
			opportunities[domain.OpportunityCategoryProfitTaking],
			opportunities[domain.OpportunityCategoryRebalanceSells],
		) {
			if len(b.actions) >= depth/2 {
				break
			}
			b.addSell(candidate)
		}
		for _, candidate := range opportunities[domain.OpportunityCategoryAveragingDown] {
			b.addBuy(candidate)
		}

	default:
		for _, candidate := range head(opportunities[domain.OpportunityCategoryRebalanceSells], 2) {
			b.addSell(candidate)
		}
		for _, candidate := range concat(
			opportunities[domain.OpportunityCategoryRebalanceBuys],
			opportunities[domain.OpportunityCategoryOpportunityBuys],
		) {
			b.addBuy(candidate)
		}
	}

	p.log.Debug().
		Str("regime", string(ctx.MarketRegime)).
		Int("actions", len(b.actions)).
		Msg("Market regime sequence built")

	return b.result(p.Name()), nil
}

// head returns at most the first n candidates
func head(candidates []domain.ActionCandidate, n int) []domain.ActionCandidate {
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}
