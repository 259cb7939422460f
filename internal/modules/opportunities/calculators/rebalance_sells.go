package calculators

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// RebalanceSellsCalculator identifies overweight positions to sell for rebalancing.
type RebalanceSellsCalculator struct {
	*BaseCalculator
}

// NewRebalanceSellsCalculator creates a new rebalance sells calculator.
func NewRebalanceSellsCalculator(log zerolog.Logger) *RebalanceSellsCalculator {
	return &RebalanceSellsCalculator{
		BaseCalculator: NewBaseCalculator(log, "rebalance_sells"),
	}
}

// Name returns the calculator name.
func (c *RebalanceSellsCalculator) Name() string {
	return "rebalance_sells"
}

// Category returns the opportunity category.
func (c *RebalanceSellsCalculator) Category() domain.OpportunityCategory {
	return domain.OpportunityCategoryRebalanceSells
}

// Calculate trims positions in country groups that exceed their target by
// more than min_overweight_threshold (5%). Each position sells at most its
// group's excess value and at most max_sell_percentage of itself.
func (c *RebalanceSellsCalculator) Calculate(
	ctx *domain.OpportunityContext,
	params map[string]interface{},
) ([]domain.ActionCandidate, error) {
	minOverweightThreshold := GetFloatParam(params, "min_overweight_threshold", 0.05)
	maxSellPercentage := GetFloatParam(params, "max_sell_percentage", 0.50)

	if !ctx.AllowSell {
		c.log.Debug().Msg("Selling not allowed, skipping rebalance sells")
		return nil, nil
	}

	if len(ctx.CountryWeights) == 0 || ctx.TotalPortfolioValueEUR <= 0 {
		c.log.Debug().Msg("No country allocation data available")
		return nil, nil
	}

	overweightGroups := make(map[string]float64)
	for _, gap := range ctx.CountryGroupGaps() {
		if overweight := -gap.Gap; overweight > minOverweightThreshold {
			overweightGroups[gap.Group] = overweight
		}
	}

	if len(overweightGroups) == 0 {
		c.log.Debug().Msg("No overweight country groups")
		return nil, nil
	}

	var candidates []domain.ActionCandidate

	for _, position := range sortedPositions(ctx) {
		security, ok := sellable(ctx, position)
		if !ok {
			continue
		}

		country := position.Country
		if country == "" {
			country = security.Country
		}
		group := ctx.CountryGroup(country)
		overweight, ok := overweightGroups[group]
		if !ok {
			continue
		}

		currentPrice, ok := positionPrice(ctx, position)
		if !ok {
			continue
		}

		positionValue := position.MarketValueEUR
		if positionValue <= 0 {
			positionValue = position.Quantity * currentPrice
		}
		sellValue := overweight * ctx.TotalPortfolioValueEUR
		if maxSellPercentage > 0 {
			sellValue = math.Min(sellValue, positionValue*maxSellPercentage)
		}

		fraction := 0.0
		if positionValue > 0 {
			fraction = sellValue / positionValue
		}
		quantity := SellQuantity(position.Quantity, fraction, security.Lot())
		if quantity <= 0 {
			continue
		}

		candidates = append(candidates, domain.ActionCandidate{
			Side:     domain.TradeSideSell,
			Symbol:   position.Symbol,
			Name:     nameOf(security, position.SecurityName),
			Quantity: quantity,
			Price:    currentPrice,
			ValueEUR: float64(quantity) * currentPrice,
			Currency: currencyOf(security, position.Currency),
			Priority: 0.5 + overweight,
			Reason:   fmt.Sprintf("Rebalance: %s overweight by %.1f%%", group, overweight*100),
			Tags:     []string{domain.TagRebalance, domain.TagOverweightPrefix + group},
		})
	}

	c.log.Debug().
		Int("candidates", len(candidates)).
		Int("overweight_groups", len(overweightGroups)).
		Msg("Rebalance sell opportunities identified")

	return candidates, nil
}
