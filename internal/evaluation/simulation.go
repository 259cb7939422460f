package evaluation

import (
	"math"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// SimulateSequence simulates executing a sequence and returns the resulting portfolio state.
//
// The input context is never modified. Maps are shared with the input until
// the first write to them: positions until a trade executes, country and
// industry maps until a BUY introduces new metadata. A sequence whose trades
// are all skipped returns the input maps unchanged.
//
// Args:
//   - sequence: List of actions to execute in order
//   - portfolioContext: Starting portfolio state
//   - availableCash: Starting cash in EUR
//   - securities: Security metadata lookup by symbol
//   - priceAdjustments: Optional map of symbol -> price multiplier
//     (e.g., 1.05 for +5% price increase)
//
// Returns:
//   - Final portfolio context
//   - Final cash in EUR
func SimulateSequence(
	sequence []models.ActionCandidate,
	portfolioContext models.PortfolioContext,
	availableCash float64,
	securities map[string]models.Security,
	priceAdjustments map[string]float64,
) (models.PortfolioContext, float64) {
	end := portfolioContext
	positionsCopied := false
	writablePositions := func() {
		if !positionsCopied {
			end.Positions = copyMap(portfolioContext.Positions)
			positionsCopied = true
		}
	}
	countriesCopied := false
	industriesCopied := false

	cash := availableCash

	for _, action := range sequence {
		value := AdjustedValue(action, priceAdjustments)

		if action.Side.IsSell() {
			writablePositions()
			remaining := end.Positions[action.Symbol] - value
			if remaining <= 0 {
				delete(end.Positions, action.Symbol)
			} else {
				end.Positions[action.Symbol] = remaining
			}
			cash += value
			continue
		}

		// BUY: skip when running cash cannot cover it
		if value > cash {
			continue
		}

		writablePositions()
		end.Positions[action.Symbol] += value
		cash -= value

		security, known := securities[action.Symbol]
		if !known {
			continue
		}
		if security.Country != "" && end.SecurityCountries[action.Symbol] != security.Country {
			if !countriesCopied {
				end.SecurityCountries = copyStringMap(end.SecurityCountries)
				countriesCopied = true
			}
			end.SecurityCountries[action.Symbol] = security.Country
		}
		if security.Industry != "" && end.SecurityIndustries[action.Symbol] != security.Industry {
			if !industriesCopied {
				end.SecurityIndustries = copyStringMap(end.SecurityIndustries)
				industriesCopied = true
			}
			end.SecurityIndustries[action.Symbol] = security.Industry
		}
	}

	// Trades convert between cash and positions, TotalValue is unchanged
	return end, cash
}

// SimulateSequenceWithContext simulates sequence using EvaluationContext.
func SimulateSequenceWithContext(
	sequence []models.ActionCandidate,
	context models.EvaluationContext,
) (models.PortfolioContext, float64) {
	return SimulateSequence(
		sequence,
		context.PortfolioContext,
		context.AvailableCashEUR,
		SecuritiesLookup(context),
		context.PriceAdjustments,
	)
}

// SecuritiesLookup returns the symbol-keyed security map of a context,
// building it from the Securities slice when StocksBySymbol is empty.
func SecuritiesLookup(context models.EvaluationContext) map[string]models.Security {
	if len(context.StocksBySymbol) > 0 || len(context.Securities) == 0 {
		return context.StocksBySymbol
	}
	lookup := make(map[string]models.Security, len(context.Securities))
	for _, s := range context.Securities {
		lookup[s.Symbol] = s
	}
	return lookup
}

// AdjustedValue returns the trade value of an action, re-priced as
// |quantity| × price × multiplier when an adjustment exists for its symbol.
func AdjustedValue(action models.ActionCandidate, priceAdjustments map[string]float64) float64 {
	if multiplier, ok := priceAdjustments[action.Symbol]; ok {
		return math.Abs(float64(action.Quantity)) * action.Price * multiplier
	}
	return action.ValueEUR
}

// CheckSequenceFeasibility reports whether every BUY in the sequence is
// affordable from running cash, with SELL proceeds credited in order.
func CheckSequenceFeasibility(
	sequence []models.ActionCandidate,
	availableCash float64,
	priceAdjustments map[string]float64,
) bool {
	cash := availableCash
	for _, action := range sequence {
		value := AdjustedValue(action, priceAdjustments)
		if action.Side.IsSell() {
			cash += value
			continue
		}
		if value > cash {
			return false
		}
		cash -= value
	}
	return true
}

// CashFlowSummary represents the cash flow summary for a sequence
type CashFlowSummary struct {
	CashGenerated float64 // Total from sells
	CashRequired  float64 // Total for buys
	NetCashFlow   float64 // Difference (positive = net inflow)
}

// CalculateSequenceCashFlow calculates cash flow summary for a sequence.
func CalculateSequenceCashFlow(sequence []models.ActionCandidate) CashFlowSummary {
	var summary CashFlowSummary
	for _, action := range sequence {
		if action.Side.IsSell() {
			summary.CashGenerated += action.ValueEUR
		} else {
			summary.CashRequired += action.ValueEUR
		}
	}
	summary.NetCashFlow = summary.CashGenerated - summary.CashRequired
	return summary
}

func copyMap(m map[string]float64) map[string]float64 {
	result := make(map[string]float64, len(m)+1)
	for k, v := range m {
		result[k] = v
	}
	return result
}

func copyStringMap(m map[string]string) map[string]string {
	result := make(map[string]string, len(m)+1)
	for k, v := range m {
		result[k] = v
	}
	return result
}
