package calculators

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// RebalanceBuysCalculator identifies buys in underweight country groups.
type RebalanceBuysCalculator struct {
	*BaseCalculator
}

// NewRebalanceBuysCalculator creates a new rebalance buys calculator.
func NewRebalanceBuysCalculator(log zerolog.Logger) *RebalanceBuysCalculator {
	return &RebalanceBuysCalculator{
		BaseCalculator: NewBaseCalculator(log, "rebalance_buys"),
	}
}

// Name returns the calculator name.
func (c *RebalanceBuysCalculator) Name() string {
	return "rebalance_buys"
}

// Category returns the opportunity category.
func (c *RebalanceBuysCalculator) Category() domain.OpportunityCategory {
	return domain.OpportunityCategoryRebalanceBuys
}

// Calculate proposes a base-sized buy of every buyable security whose country
// group is under target by more than min_underweight_threshold (5%).
func (c *RebalanceBuysCalculator) Calculate(
	ctx *domain.OpportunityContext,
	params map[string]interface{},
) ([]domain.ActionCandidate, error) {
	minUnderweightThreshold := GetFloatParam(params, "min_underweight_threshold", 0.05)
	minQuality := GetFloatParam(params, "min_quality", DefaultQualityScore)
	maxCostRatio := GetFloatParam(params, "max_cost_ratio", DefaultMaxCostRatio)

	if !ctx.AllowBuy {
		c.log.Debug().Msg("Buying not allowed, skipping rebalance buys")
		return nil, nil
	}

	if len(ctx.CountryWeights) == 0 || ctx.TotalPortfolioValueEUR <= 0 {
		c.log.Debug().Msg("No country allocation data available")
		return nil, nil
	}

	underweightGroups := make(map[string]float64)
	for _, gap := range ctx.CountryGroupGaps() {
		if gap.Gap > minUnderweightThreshold {
			underweightGroups[gap.Group] = gap.Gap
		}
	}

	if len(underweightGroups) == 0 {
		c.log.Debug().Msg("No underweight country groups")
		return nil, nil
	}

	baseAmount := ctx.CalculateMinTradeAmount(maxCostRatio)
	var candidates []domain.ActionCandidate

	for _, security := range buyableSecurities(ctx, minQuality) {
		group := ctx.CountryGroup(security.Country)
		underweight, ok := underweightGroups[group]
		if !ok {
			continue
		}

		currentPrice, _ := ctx.Price(security.Symbol)
		quantity := QuantityForAmount(baseAmount, currentPrice, security.Lot())
		if quantity <= 0 {
			continue
		}

		quality := QualityScore(ctx, security.Symbol)

		candidates = append(candidates, domain.ActionCandidate{
			Side:     domain.TradeSideBuy,
			Symbol:   security.Symbol,
			Name:     nameOf(security, security.Symbol),
			Quantity: quantity,
			Price:    currentPrice,
			ValueEUR: float64(quantity) * currentPrice,
			Currency: currencyOf(security, ""),
			Priority: 0.5 + underweight + quality*0.5,
			Reason:   fmt.Sprintf("Rebalance: %s underweight by %.1f%%", group, underweight*100),
			Tags:     []string{domain.TagRebalance, domain.TagUnderweightPrefix + group},
		})
	}

	c.log.Debug().
		Int("candidates", len(candidates)).
		Int("underweight_groups", len(underweightGroups)).
		Msg("Rebalance buy opportunities identified")

	return candidates, nil
}
