package calculators

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// MinWeightGap is the smallest |target - current| weight acted on
const MinWeightGap = 0.005

// WeightGap is the distance between a symbol's optimizer target and its current weight
type WeightGap struct {
	Symbol   string
	Current  float64
	Target   float64
	Gap      float64 // target - current
	GapValue float64 // Gap × total portfolio value, EUR
}

// WeightBasedCalculator identifies buy/sell opportunities based on optimizer
// target weights. Unlike the heuristic calculators it fills several categories.
type WeightBasedCalculator struct {
	*BaseCalculator
}

// NewWeightBasedCalculator creates a new weight-based calculator.
func NewWeightBasedCalculator(log zerolog.Logger) *WeightBasedCalculator {
	return &WeightBasedCalculator{
		BaseCalculator: NewBaseCalculator(log, "weight_based"),
	}
}

// Name returns the calculator name.
func (c *WeightBasedCalculator) Name() string {
	return "weight_based"
}

// CalculateWeightGaps returns every gap larger than MinWeightGap, largest
// absolute gap first. Held symbols without a target are treated as target 0.
func CalculateWeightGaps(targetWeights, currentWeights map[string]float64, totalValue float64) []WeightGap {
	var gaps []WeightGap

	for symbol, target := range targetWeights {
		current := currentWeights[symbol]
		gap := target - current
		if math.Abs(gap) > MinWeightGap {
			gaps = append(gaps, WeightGap{Symbol: symbol, Current: current, Target: target, Gap: gap, GapValue: gap * totalValue})
		}
	}

	for symbol, current := range currentWeights {
		if _, targeted := targetWeights[symbol]; !targeted && current > MinWeightGap {
			gaps = append(gaps, WeightGap{Symbol: symbol, Current: current, Gap: -current, GapValue: -current * totalValue})
		}
	}

	sort.Slice(gaps, func(i, j int) bool {
		ai, aj := math.Abs(gaps[i].Gap), math.Abs(gaps[j].Gap)
		if ai != aj {
			return ai > aj
		}
		return gaps[i].Symbol < gaps[j].Symbol
	})
	return gaps
}

// IsTradeWorthwhile reports whether a trade of gapValue costs at most half its value
func IsTradeWorthwhile(gapValue, fixed, percent float64) bool {
	tradeCost := fixed + math.Abs(gapValue)*percent
	return math.Abs(gapValue) >= tradeCost*2
}

// Calculate turns weight gaps into rebalance_buys, averaging_down and
// rebalance_sells candidates, each category sorted by priority.
func (c *WeightBasedCalculator) Calculate(ctx *domain.OpportunityContext) (domain.OpportunitiesByCategory, error) {
	opportunities := make(domain.OpportunitiesByCategory)

	total := ctx.TotalPortfolioValueEUR
	if total <= 0 {
		c.log.Debug().Msg("Invalid portfolio value")
		return opportunities, nil
	}

	currentWeights := make(map[string]float64)
	for symbol, value := range ctx.PortfolioSnapshot().Positions {
		currentWeights[symbol] = value / total
	}

	gaps := CalculateWeightGaps(ctx.TargetWeights, currentWeights, total)

	for _, gap := range gaps {
		price, ok := ctx.Price(gap.Symbol)
		if !ok {
			continue
		}

		if !IsTradeWorthwhile(gap.GapValue, ctx.TransactionCostFixed, ctx.TransactionCostPercent) {
			c.log.Debug().
				Str("symbol", gap.Symbol).
				Float64("gap_value", gap.GapValue).
				Msg("Gap too small for transaction costs")
			continue
		}

		if gap.Gap > 0 {
			if category, candidate, ok := c.buyCandidate(ctx, gap, price); ok {
				opportunities[category] = append(opportunities[category], candidate)
			}
			continue
		}

		if ctx.RecentlySold[gap.Symbol] || ctx.IneligibleSymbols[gap.Symbol] {
			c.log.Debug().
				Str("symbol", gap.Symbol).
				Msg("Skipping sell opportunity (cooldown or ineligible)")
			continue
		}
		if candidate, ok := c.sellCandidate(ctx, gap, price); ok {
			opportunities[domain.OpportunityCategoryRebalanceSells] = append(opportunities[domain.OpportunityCategoryRebalanceSells], candidate)
		}
	}

	for category, candidates := range opportunities {
		SortByPriority(candidates)
		opportunities[category] = candidates
	}

	c.log.Info().
		Int("rebalance_sells", len(opportunities[domain.OpportunityCategoryRebalanceSells])).
		Int("rebalance_buys", len(opportunities[domain.OpportunityCategoryRebalanceBuys])).
		Int("averaging_down", len(opportunities[domain.OpportunityCategoryAveragingDown])).
		Msg("Weight-based opportunities identified")

	return opportunities, nil
}

func (c *WeightBasedCalculator) buyCandidate(
	ctx *domain.OpportunityContext,
	gap WeightGap,
	price float64,
) (domain.OpportunityCategory, domain.ActionCandidate, bool) {
	security, ok := ctx.Security(gap.Symbol)
	if !ok || !security.AllowBuy || !ctx.AllowBuy || ctx.RecentlyBought[gap.Symbol] {
		return "", domain.ActionCandidate{}, false
	}

	quantity := int(gap.GapValue / price)
	if security.MinLot > 0 && quantity < security.MinLot {
		quantity = security.MinLot
	}
	if quantity <= 0 {
		return "", domain.ActionCandidate{}, false
	}

	currency := currencyOf(security, "")
	category := domain.OpportunityCategoryRebalanceBuys
	tags := []string{domain.TagRebalance, domain.TagOptimizerTarget}
	if position, held := ctx.Position(gap.Symbol); held {
		if position.Currency != "" {
			currency = position.Currency
		}
		if position.AverageCost > price {
			category = domain.OpportunityCategoryAveragingDown
			tags = []string{domain.TagAveragingDown, domain.TagOptimizerTarget}
		}
	}

	return category, domain.ActionCandidate{
		Side:     domain.TradeSideBuy,
		Symbol:   gap.Symbol,
		Name:     nameOf(security, gap.Symbol),
		Quantity: quantity,
		Price:    price,
		ValueEUR: float64(quantity) * price,
		Currency: currency,
		Priority: math.Abs(gap.Gap) * 100 * security.Multiplier(),
		Reason:   targetReason(gap),
		Tags:     tags,
	}, true
}

func (c *WeightBasedCalculator) sellCandidate(
	ctx *domain.OpportunityContext,
	gap WeightGap,
	price float64,
) (domain.ActionCandidate, bool) {
	position, held := ctx.Position(gap.Symbol)
	if !held || !ctx.AllowSell {
		return domain.ActionCandidate{}, false
	}
	security, ok := ctx.Security(gap.Symbol)
	if !ok || !security.AllowSell {
		return domain.ActionCandidate{}, false
	}

	lot := float64(security.Lot())
	if position.Quantity <= lot {
		c.log.Debug().Str("symbol", gap.Symbol).Msg("At min lot, can't reduce further")
		return domain.ActionCandidate{}, false
	}

	quantity := int(math.Abs(gap.GapValue) / price)
	if float64(quantity) > position.Quantity {
		quantity = int(position.Quantity)
	}
	if remaining := position.Quantity - float64(quantity); remaining > 0 && remaining < lot {
		quantity = int(position.Quantity - lot)
	}
	if quantity <= 0 {
		return domain.ActionCandidate{}, false
	}

	return domain.ActionCandidate{
		Side:     domain.TradeSideSell,
		Symbol:   gap.Symbol,
		Name:     nameOf(security, position.SecurityName),
		Quantity: quantity,
		Price:    price,
		ValueEUR: float64(quantity) * price,
		Currency: currencyOf(security, position.Currency),
		Priority: math.Abs(gap.Gap) * 100 / security.Multiplier(),
		Reason:   targetReason(gap),
		Tags:     []string{domain.TagRebalance, domain.TagOptimizerTarget},
	}, true
}

func targetReason(gap WeightGap) string {
	return fmt.Sprintf("Optimizer target: %.1f%% (current: %.1f%%)", gap.Target*100, gap.Current*100)
}
