package calculators

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/pkg/formulas"
)

// OpportunityBuysCalculator identifies new buying opportunities based on security scores.
type OpportunityBuysCalculator struct {
	*BaseCalculator
}

// NewOpportunityBuysCalculator creates a new opportunity buys calculator.
func NewOpportunityBuysCalculator(log zerolog.Logger) *OpportunityBuysCalculator {
	return &OpportunityBuysCalculator{
		BaseCalculator: NewBaseCalculator(log, "opportunity_buys"),
	}
}

// Name returns the calculator name.
func (c *OpportunityBuysCalculator) Name() string {
	return "opportunity_buys"
}

// Category returns the opportunity category.
func (c *OpportunityBuysCalculator) Category() domain.OpportunityCategory {
	return domain.OpportunityCategoryOpportunityBuys
}

// Calculate proposes a base-sized buy for every buyable security scoring at
// least min_score (0.7). Priority is the score, boosted by oversold_boost when
// the 14-day RSI of its price history is below oversold_rsi.
func (c *OpportunityBuysCalculator) Calculate(
	ctx *domain.OpportunityContext,
	params map[string]interface{},
) ([]domain.ActionCandidate, error) {
	minScore := GetFloatParam(params, "min_score", 0.7)
	oversoldRSI := GetFloatParam(params, "oversold_rsi", 30.0)
	oversoldBoost := GetFloatParam(params, "oversold_boost", 1.3)
	rsiPeriod := GetIntParam(params, "rsi_period", formulas.DefaultRSIPeriod)
	maxCostRatio := GetFloatParam(params, "max_cost_ratio", DefaultMaxCostRatio)

	if !ctx.AllowBuy {
		c.log.Debug().Msg("Buying not allowed, skipping opportunity buys")
		return nil, nil
	}

	if len(ctx.SecurityScores) == 0 {
		c.log.Debug().Msg("No security scores available")
		return nil, nil
	}

	baseAmount := ctx.CalculateMinTradeAmount(maxCostRatio)
	var candidates []domain.ActionCandidate

	for _, security := range buyableSecurities(ctx, minScore) {
		score, scored := ctx.SecurityScores[security.Symbol]
		if !scored {
			continue
		}

		currentPrice, _ := ctx.Price(security.Symbol)
		quantity := QuantityForAmount(baseAmount, currentPrice, security.Lot())
		if quantity <= 0 {
			continue
		}

		priority := score
		reason := fmt.Sprintf("High score: %.2f", score)
		if rsi := formulas.CalculateRSI(ctx.PriceHistory[security.Symbol], rsiPeriod); rsi != nil && *rsi < oversoldRSI {
			priority *= oversoldBoost
			reason = fmt.Sprintf("%s, oversold (RSI %.0f)", reason, *rsi)
		}

		candidates = append(candidates, domain.ActionCandidate{
			Side:     domain.TradeSideBuy,
			Symbol:   security.Symbol,
			Name:     nameOf(security, security.Symbol),
			Quantity: quantity,
			Price:    currentPrice,
			ValueEUR: float64(quantity) * currentPrice,
			Currency: currencyOf(security, ""),
			Priority: priority,
			Reason:   reason,
			Tags:     []string{domain.TagOpportunity},
		})
	}

	c.log.Debug().
		Int("candidates", len(candidates)).
		Msg("Opportunity buy candidates identified")

	return candidates, nil
}
