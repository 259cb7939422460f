package calculators

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// ProfitTakingCalculator identifies opportunities to take profits from positions with gains.
type ProfitTakingCalculator struct {
	*BaseCalculator
}

// NewProfitTakingCalculator creates a new profit taking calculator.
func NewProfitTakingCalculator(log zerolog.Logger) *ProfitTakingCalculator {
	return &ProfitTakingCalculator{
		BaseCalculator: NewBaseCalculator(log, "profit_taking"),
	}
}

// Name returns the calculator name.
func (c *ProfitTakingCalculator) Name() string {
	return "profit_taking"
}

// Category returns the opportunity category.
func (c *ProfitTakingCalculator) Category() domain.OpportunityCategory {
	return domain.OpportunityCategoryProfitTaking
}

// Calculate identifies profit-taking opportunities.
//
// A position qualifies at min_gain_threshold (30%) and is a windfall at
// windfall_threshold (50%). The sold fraction grows linearly from
// min_sell_fraction to max_sell_fraction between the two thresholds and is
// capped by max_sell_percentage.
func (c *ProfitTakingCalculator) Calculate(
	ctx *domain.OpportunityContext,
	params map[string]interface{},
) ([]domain.ActionCandidate, error) {
	minGainThreshold := GetFloatParam(params, "min_gain_threshold", 0.30)
	windfallThreshold := GetFloatParam(params, "windfall_threshold", 0.50)
	minSellFraction := GetFloatParam(params, "min_sell_fraction", 0.20)
	maxSellFraction := GetFloatParam(params, "max_sell_fraction", 0.40)
	maxSellPercentage := GetFloatParam(params, "max_sell_percentage", 1.0)

	if !ctx.AllowSell {
		c.log.Debug().Msg("Selling not allowed, skipping profit taking")
		return nil, nil
	}

	var candidates []domain.ActionCandidate

	for _, position := range sortedPositions(ctx) {
		security, ok := sellable(ctx, position)
		if !ok || position.AverageCost <= 0 {
			continue
		}

		currentPrice, ok := positionPrice(ctx, position)
		if !ok {
			c.log.Warn().
				Str("symbol", position.Symbol).
				Msg("No current price available")
			continue
		}

		gainPercent := (currentPrice - position.AverageCost) / position.AverageCost
		if gainPercent < minGainThreshold {
			continue
		}

		isWindfall := gainPercent >= windfallThreshold

		fraction := maxSellFraction
		if !isWindfall && windfallThreshold > minGainThreshold {
			progress := (gainPercent - minGainThreshold) / (windfallThreshold - minGainThreshold)
			fraction = minSellFraction + progress*(maxSellFraction-minSellFraction)
		}
		if maxSellPercentage > 0 {
			fraction = math.Min(fraction, maxSellPercentage)
		}

		quantity := SellQuantity(position.Quantity, fraction, security.Lot())
		if quantity <= 0 {
			continue
		}

		priority := gainPercent
		if isWindfall {
			priority *= 1.5
		}

		reason := fmt.Sprintf("%.1f%% gain (cost basis: %.2f, current: %.2f)",
			gainPercent*100, position.AverageCost, currentPrice)
		tags := []string{domain.TagProfitTaking}
		if isWindfall {
			reason = fmt.Sprintf("Windfall: %s", reason)
			tags = append(tags, domain.TagWindfall)
		}

		candidates = append(candidates, domain.ActionCandidate{
			Side:     domain.TradeSideSell,
			Symbol:   position.Symbol,
			Name:     nameOf(security, position.SecurityName),
			Quantity: quantity,
			Price:    currentPrice,
			ValueEUR: float64(quantity) * currentPrice,
			Currency: currencyOf(security, position.Currency),
			Priority: priority,
			Reason:   reason,
			Tags:     tags,
		})
	}

	c.log.Debug().
		Int("candidates", len(candidates)).
		Msg("Profit-taking opportunities identified")

	return candidates, nil
}
