// Package calculators turns portfolio state into categorized action candidates.
package calculators

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// OpportunityCalculator is the interface that all opportunity calculators must implement.
// Each calculator identifies trading opportunities of a specific type (profit taking,
// averaging down, rebalancing, etc.) based on current portfolio state.
type OpportunityCalculator interface {
	// Name returns the unique identifier for this calculator.
	Name() string

	// Calculate identifies trading opportunities based on the opportunity context.
	Calculate(ctx *domain.OpportunityContext, params map[string]interface{}) ([]domain.ActionCandidate, error)

	// Category returns the opportunity category this calculator produces.
	Category() domain.OpportunityCategory
}

// DefaultMaxCostRatio is the transaction-cost share a base-sized trade may carry
const DefaultMaxCostRatio = 0.01

// DefaultQualityScore stands in for securities without a score
const DefaultQualityScore = 0.5

// BaseCalculator provides common functionality for all calculators.
type BaseCalculator struct {
	log zerolog.Logger
}

// NewBaseCalculator creates a new base calculator with logging.
func NewBaseCalculator(log zerolog.Logger, name string) *BaseCalculator {
	return &BaseCalculator{
		log: log.With().Str("calculator", name).Logger(),
	}
}

// GetFloatParam retrieves a float parameter with a default value.
func GetFloatParam(params map[string]interface{}, key string, defaultValue float64) float64 {
	if params == nil {
		return defaultValue
	}
	if val, ok := params[key]; ok {
		if floatVal, ok := val.(float64); ok {
			return floatVal
		}
		if intVal, ok := val.(int); ok {
			return float64(intVal)
		}
	}
	return defaultValue
}

// GetIntParam retrieves an int parameter with a default value.
func GetIntParam(params map[string]interface{}, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}
	if val, ok := params[key]; ok {
		if intVal, ok := val.(int); ok {
			return intVal
		}
		if floatVal, ok := val.(float64); ok {
			return int(floatVal)
		}
	}
	return defaultValue
}

// RoundToLotSize intelligently rounds quantity to lot size
// Strategy:
//  1. Try rounding down: floor(quantity/lotSize) * lotSize
//  2. If result is 0 or invalid, try rounding up: ceil(quantity/lotSize) * lotSize
//  3. Return the valid rounded quantity, or 0 if both fail
func RoundToLotSize(quantity int, lotSize int) int {
	if lotSize <= 0 {
		return quantity
	}

	roundedDown := (quantity / lotSize) * lotSize
	if roundedDown >= lotSize {
		return roundedDown
	}

	roundedUp := ((quantity + lotSize - 1) / lotSize) * lotSize
	if roundedUp >= lotSize {
		return roundedUp
	}

	return 0
}

// QuantityForAmount returns the lot-rounded share count worth roughly amount.
// At least one lot is returned for any positive price.
func QuantityForAmount(amount, price float64, lotSize int) int {
	if price <= 0 || amount <= 0 {
		return 0
	}
	quantity := int(amount / price)
	if quantity < 1 {
		quantity = 1
	}
	return RoundToLotSize(quantity, lotSize)
}

// SellQuantity returns fraction × held shares, lot-rounded and never more than held
func SellQuantity(held float64, fraction float64, lotSize int) int {
	quantity := int(held * fraction)
	if quantity < 1 {
		quantity = 1
	}
	quantity = RoundToLotSize(quantity, lotSize)
	if float64(quantity) > held {
		quantity = int(math.Floor(held))
	}
	return quantity
}

// QualityScore returns the security score, DefaultQualityScore when missing
func QualityScore(ctx *domain.OpportunityContext, symbol string) float64 {
	if score, ok := ctx.SecurityScores[symbol]; ok {
		return score
	}
	return DefaultQualityScore
}

// positionPrice prefers the live price, falling back to the enriched one
func positionPrice(ctx *domain.OpportunityContext, pos domain.EnrichedPosition) (float64, bool) {
	if price, ok := ctx.Price(pos.Symbol); ok {
		return price, true
	}
	return pos.CurrentPrice, pos.CurrentPrice > 0
}

// sellable reports whether a held position may be sold right now
func sellable(ctx *domain.OpportunityContext, pos domain.EnrichedPosition) (domain.Security, bool) {
	if !ctx.AllowSell || ctx.IneligibleSymbols[pos.Symbol] || ctx.RecentlySold[pos.Symbol] {
		return domain.Security{}, false
	}
	security, ok := ctx.Security(pos.Symbol)
	if !ok || !security.AllowSell {
		return domain.Security{}, false
	}
	return security, pos.Quantity > 0
}

// buyableSecurities lists universe members that may be bought now and score at
// least minScore, sorted by symbol.
func buyableSecurities(ctx *domain.OpportunityContext, minScore float64) []domain.Security {
	if !ctx.AllowBuy {
		return nil
	}
	var result []domain.Security
	for _, sec := range ctx.Securities {
		if !sec.AllowBuy || ctx.RecentlyBought[sec.Symbol] {
			continue
		}
		if _, ok := ctx.Price(sec.Symbol); !ok {
			continue
		}
		if QualityScore(ctx, sec.Symbol) < minScore {
			continue
		}
		result = append(result, sec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result
}

// sortedPositions returns positions ordered by symbol
func sortedPositions(ctx *domain.OpportunityContext) []domain.EnrichedPosition {
	positions := append([]domain.EnrichedPosition(nil), ctx.Positions...)
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	return positions
}

// SortByPriority orders candidates by priority descending, ties by symbol
func SortByPriority(candidates []domain.ActionCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
}

func currencyOf(sec domain.Security, fallback string) string {
	if sec.Currency != "" {
		return sec.Currency
	}
	if fallback != "" {
		return fallback
	}
	return "EUR"
}

func nameOf(sec domain.Security, symbol string) string {
	if sec.Name != "" {
		return sec.Name
	}
	return symbol
}
