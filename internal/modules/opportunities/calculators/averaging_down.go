package calculators

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// AveragingDownCalculator identifies quality positions trading below cost basis.
type AveragingDownCalculator struct {
	*BaseCalculator
}

// NewAveragingDownCalculator creates a new averaging down calculator.
func NewAveragingDownCalculator(log zerolog.Logger) *AveragingDownCalculator {
	return &AveragingDownCalculator{
		BaseCalculator: NewBaseCalculator(log, "averaging_down"),
	}
}

// Name returns the calculator name.
func (c *AveragingDownCalculator) Name() string {
	return "averaging_down"
}

// Category returns the opportunity category.
func (c *AveragingDownCalculator) Category() domain.OpportunityCategory {
	return domain.OpportunityCategoryAveragingDown
}

// Calculate proposes a base-sized buy for each held position that is between
// min_drawdown (10%) and max_drawdown (40%) under its cost basis and whose
// quality score is at least min_quality (0.6).
func (c *AveragingDownCalculator) Calculate(
	ctx *domain.OpportunityContext,
	params map[string]interface{},
) ([]domain.ActionCandidate, error) {
	minDrawdown := GetFloatParam(params, "min_drawdown", 0.10)
	maxDrawdown := GetFloatParam(params, "max_drawdown", 0.40)
	minQuality := GetFloatParam(params, "min_quality", 0.6)
	maxCostRatio := GetFloatParam(params, "max_cost_ratio", DefaultMaxCostRatio)

	if !ctx.AllowBuy {
		c.log.Debug().Msg("Buying not allowed, skipping averaging down")
		return nil, nil
	}

	baseAmount := ctx.CalculateMinTradeAmount(maxCostRatio)
	buyable := make(map[string]domain.Security)
	for _, sec := range buyableSecurities(ctx, minQuality) {
		buyable[sec.Symbol] = sec
	}

	var candidates []domain.ActionCandidate

	for _, position := range sortedPositions(ctx) {
		security, ok := buyable[position.Symbol]
		if !ok || position.AverageCost <= 0 {
			continue
		}

		currentPrice, ok := positionPrice(ctx, position)
		if !ok {
			continue
		}

		drawdown := (position.AverageCost - currentPrice) / position.AverageCost
		if drawdown < minDrawdown || drawdown > maxDrawdown {
			continue
		}

		quantity := QuantityForAmount(baseAmount, currentPrice, security.Lot())
		if quantity <= 0 {
			continue
		}

		quality := QualityScore(ctx, position.Symbol)
		priority := quality * (1 + drawdown)

		candidates = append(candidates, domain.ActionCandidate{
			Side:     domain.TradeSideBuy,
			Symbol:   position.Symbol,
			Name:     nameOf(security, position.SecurityName),
			Quantity: quantity,
			Price:    currentPrice,
			ValueEUR: float64(quantity) * currentPrice,
			Currency: currencyOf(security, position.Currency),
			Priority: priority,
			Reason: fmt.Sprintf("Quality %.2f trading %.1f%% below cost basis %.2f",
				quality, math.Abs(drawdown)*100, position.AverageCost),
			Tags: []string{domain.TagAveragingDown},
		})
	}

	c.log.Debug().
		Int("candidates", len(candidates)).
		Msg("Averaging-down opportunities identified")

	return candidates, nil
}
