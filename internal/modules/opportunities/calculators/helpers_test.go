package calculators

import (
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// testContext builds a 5000 EUR portfolio:
//
//	WIN  100 @ 16 (cost 10, +60%)  US
//	GAIN  50 @ 14 (cost 10, +40%)  US
//	DIP   20 @ 80 (cost 100, -20%) DE
//	DEEP  10 @ 50 (cost 100, -50%) JP
//	NEW   not held, @ 50           JP
//
// plus 600 EUR cash.
func testContext() *domain.OpportunityContext {
	positions := []domain.EnrichedPosition{
		{Symbol: "WIN", Quantity: 100, AverageCost: 10, CurrentPrice: 16, MarketValueEUR: 1600, Country: "US"},
		{Symbol: "GAIN", Quantity: 50, AverageCost: 10, CurrentPrice: 14, MarketValueEUR: 700, Country: "US"},
		{Symbol: "DIP", Quantity: 20, AverageCost: 100, CurrentPrice: 80, MarketValueEUR: 1600, Country: "DE"},
		{Symbol: "DEEP", Quantity: 10, AverageCost: 100, CurrentPrice: 50, MarketValueEUR: 500, Country: "JP"},
	}
	securities := []domain.Security{
		{Symbol: "WIN", Name: "Winner", Country: "US", Currency: "USD", AllowBuy: true, AllowSell: true},
		{Symbol: "GAIN", Name: "Gainer", Country: "US", Currency: "USD", AllowBuy: true, AllowSell: true},
		{Symbol: "DIP", Name: "Dipper", Country: "DE", Currency: "EUR", AllowBuy: true, AllowSell: true},
		{Symbol: "DEEP", Name: "Deep", Country: "JP", Currency: "JPY", AllowBuy: true, AllowSell: true},
		{Symbol: "NEW", Name: "Newcomer", Country: "JP", Currency: "JPY", AllowBuy: true, AllowSell: true},
	}
	prices := map[string]float64{"WIN": 16, "GAIN": 14, "DIP": 80, "DEEP": 50, "NEW": 50}

	ctx := domain.NewOpportunityContext(nil, positions, securities, 600, 5000, prices)
	ctx.SecurityScores = map[string]float64{"DIP": 0.8, "DEEP": 0.9, "NEW": 0.85}
	ctx.CountryWeights = map[string]float64{"US": 0.2, "DE": 0.4, "JP": 0.2}
	return ctx
}

func symbols(candidates []domain.ActionCandidate) []string {
	result := make([]string, len(candidates))
	for i, c := range candidates {
		result[i] = c.Symbol
	}
	return result
}

func bySymbol(candidates []domain.ActionCandidate, symbol string) (domain.ActionCandidate, bool) {
	for _, c := range candidates {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return domain.ActionCandidate{}, false
}
