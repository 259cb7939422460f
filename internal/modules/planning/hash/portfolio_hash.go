// Package hash derives the deterministic identifiers the planner keys its
// persisted work by: the portfolio fingerprint and the sequence hash.
package hash

import (
	"crypto/md5"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// Position represents a portfolio position for hashing
type Position struct {
	Symbol   string
	Quantity float64
}

// SecurityConfig is the per-symbol configuration folded into the fingerprint
type SecurityConfig struct {
	Symbol    string
	AllowBuy  bool
	AllowSell bool
	Country   string
	Industry  string
}

// PendingOrder represents a pending order for hashing
type PendingOrder struct {
	Symbol   string
	Side     string // "buy" or "sell"
	Quantity float64
	Price    float64
	Currency string
}

// ApplyPendingOrdersToPortfolio applies pending orders to positions and cash balances
// to get hypothetical future state.
//
// For pending BUY orders: reduces cash balance by quantity * price in the order's
// currency and increases the position. For pending SELL orders: reduces the
// position quantity; cash is not credited until the sale executes.
//
// Args:
//   - positions: List of positions with symbol and quantity
//   - cashBalances: Map of currency -> amount (e.g., {"EUR": 1500.0, "USD": 200.0})
//   - pendingOrders: List of pending orders
//   - allowNegativeCash: If false, cash is clamped at 0
//
// Returns:
//   - Adjusted positions (sorted by symbol) and cash balances
func ApplyPendingOrdersToPortfolio(
	positions []Position,
	cashBalances map[string]float64,
	pendingOrders []PendingOrder,
	allowNegativeCash bool,
) ([]Position, map[string]float64) {
	positionMap := make(map[string]float64, len(positions))
	for _, p := range positions {
		if p.Quantity > 0 {
			positionMap[strings.ToUpper(p.Symbol)] += p.Quantity
		}
	}

	adjustedCash := make(map[string]float64, len(cashBalances))
	for currency, amount := range cashBalances {
		adjustedCash[currency] = amount
	}

	for _, order := range pendingOrders {
		symbol := strings.ToUpper(order.Symbol)
		currency := order.Currency
		if currency == "" {
			currency = "EUR"
		}

		if symbol == "" || order.Quantity <= 0 || order.Price <= 0 {
			log.Warn().
				Str("symbol", symbol).
				Float64("quantity", order.Quantity).
				Float64("price", order.Price).
				Msg("Skipping invalid pending order")
			continue
		}

		switch strings.ToLower(order.Side) {
		case "buy":
			newCash := adjustedCash[currency] - order.Quantity*order.Price
			if !allowNegativeCash {
				newCash = math.Max(0.0, newCash)
			}
			adjustedCash[currency] = newCash
			positionMap[symbol] += order.Quantity
		case "sell":
			remaining := positionMap[symbol] - order.Quantity
			if remaining > 0 {
				positionMap[symbol] = remaining
			} else {
				delete(positionMap, symbol)
			}
		default:
			log.Warn().Str("side", order.Side).Str("symbol", symbol).Msg("Unknown order side")
		}
	}

	adjusted := make([]Position, 0, len(positionMap))
	for symbol, qty := range positionMap {
		adjusted = append(adjusted, Position{Symbol: symbol, Quantity: qty})
	}
	sort.Slice(adjusted, func(i, j int) bool { return adjusted[i].Symbol < adjusted[j].Symbol })

	return adjusted, adjustedCash
}

// GeneratePortfolioHash generates a deterministic hash from current portfolio state.
//
// The canonical string holds one "SYMBOL:qty:allow_buy:allow_sell:country:industry"
// part per position and per universe security (quantity 0 when not held), with
// quantities rounded to 4 decimals, plus "CASH.<CUR>:<amount>" for every non-zero
// cash balance rounded to 2 decimals. Parts are sorted, so input order never
// matters.
//
// Returns:
//   - 8-character hex hash (first 8 chars of MD5)
func GeneratePortfolioHash(
	positions []Position,
	securities []SecurityConfig,
	cashBalances map[string]float64,
	pendingOrders []PendingOrder,
) string {
	if len(pendingOrders) > 0 {
		positions, cashBalances = ApplyPendingOrdersToPortfolio(positions, cashBalances, pendingOrders, true)
	}

	quantities := make(map[string]float64, len(positions)+len(securities))
	for _, p := range positions {
		quantities[strings.ToUpper(p.Symbol)] += p.Quantity
	}

	configs := make(map[string]SecurityConfig, len(securities))
	for _, sec := range securities {
		symbol := strings.ToUpper(sec.Symbol)
		configs[symbol] = sec
		if _, held := quantities[symbol]; !held {
			quantities[symbol] = 0
		}
	}

	parts := make([]string, 0, len(quantities)+len(cashBalances))
	for symbol, qty := range quantities {
		cfg, ok := configs[symbol]
		if !ok {
			// Held but outside the universe
			cfg = SecurityConfig{AllowBuy: true}
		}
		parts = append(parts, fmt.Sprintf("%s:%s:%t:%t:%s:%s",
			symbol,
			formatRounded(qty, 4),
			cfg.AllowBuy,
			cfg.AllowSell,
			cfg.Country,
			cfg.Industry,
		))
	}

	for currency, amount := range cashBalances {
		if rounded := roundTo(amount, 2); rounded != 0 {
			parts = append(parts, fmt.Sprintf("CASH.%s:%s", strings.ToUpper(currency), formatRounded(rounded, 2)))
		}
	}

	sort.Strings(parts)
	canonical := strings.Join(parts, ",")

	sum := md5.Sum([]byte(canonical))
	return fmt.Sprintf("%x", sum)[:8]
}

// PortfolioHashForContext fingerprints an opportunity context: its positions,
// universe configuration, cash balances and pending orders. When no per-currency
// balances are given the available EUR cash stands in.
func PortfolioHashForContext(ctx *domain.OpportunityContext) string {
	positions := make([]Position, 0, len(ctx.Positions))
	for _, p := range ctx.Positions {
		positions = append(positions, Position{Symbol: p.Symbol, Quantity: p.Quantity})
	}

	securities := make([]SecurityConfig, 0, len(ctx.Securities))
	for _, s := range ctx.Securities {
		securities = append(securities, SecurityConfig{
			Symbol:    s.Symbol,
			AllowBuy:  s.AllowBuy,
			AllowSell: s.AllowSell,
			Country:   s.Country,
			Industry:  s.Industry,
		})
	}

	cash := ctx.CashBalances
	if len(cash) == 0 {
		cash = map[string]float64{"EUR": ctx.AvailableCashEUR}
	}

	orders := make([]PendingOrder, 0, len(ctx.PendingOrders))
	for _, o := range ctx.PendingOrders {
		orders = append(orders, PendingOrder{
			Symbol:   o.Symbol,
			Side:     string(o.Side),
			Quantity: float64(o.Quantity),
			Price:    o.Price,
			Currency: o.Currency,
		})
	}

	return GeneratePortfolioHash(positions, securities, cash, orders)
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func formatRounded(v float64, decimals int) string {
	return strconv.FormatFloat(roundTo(v, decimals), 'f', -1, 64)
}
