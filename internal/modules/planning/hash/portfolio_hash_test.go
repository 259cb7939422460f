package hash

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePositions() []Position {
	return []Position{
		{Symbol: "AAPL", Quantity: 10},
		{Symbol: "GOOGL", Quantity: 5},
	}
}

func baseSecurities() []SecurityConfig {
	return []SecurityConfig{
		{Symbol: "AAPL", Country: "US", AllowBuy: true, AllowSell: true},
		{Symbol: "GOOGL", Country: "US", AllowBuy: true},
		{Symbol: "SAP", Country: "Germany", Industry: "Software", AllowBuy: true},
	}
}

func TestGeneratePortfolioHash_Deterministic(t *testing.T) {
	tests := []struct {
		name          string
		positions     []Position
		securities    []SecurityConfig
		cashBalances  map[string]float64
		pendingOrders []PendingOrder
	}{
		{"regular portfolio", basePositions(), baseSecurities(), map[string]float64{"EUR": 1000.0}, nil},
		{"empty portfolio", nil, nil, nil, nil},
		{
			"with pending buy order", basePositions(), baseSecurities(), map[string]float64{"EUR": 1000.0},
			[]PendingOrder{{Symbol: "AAPL", Side: "buy", Quantity: 5, Price: 150.0, Currency: "EUR"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash1 := GeneratePortfolioHash(tt.positions, tt.securities, tt.cashBalances, tt.pendingOrders)
			hash2 := GeneratePortfolioHash(tt.positions, tt.securities, tt.cashBalances, tt.pendingOrders)

			assert.Equal(t, hash1, hash2)
			assert.Len(t, hash1, 8)
		})
	}
}

func TestGeneratePortfolioHash_OrderInsensitive(t *testing.T) {
	cash := map[string]float64{"EUR": 1000.0, "USD": 50}

	positions := basePositions()
	reversed := []Position{positions[1], positions[0]}
	securities := baseSecurities()
	shuffled := []SecurityConfig{securities[2], securities[0], securities[1]}

	assert.Equal(t,
		GeneratePortfolioHash(positions, securities, cash, nil),
		GeneratePortfolioHash(reversed, shuffled, cash, nil),
	)
}

func TestGeneratePortfolioHash_Sensitivity(t *testing.T) {
	base := GeneratePortfolioHash(basePositions(), baseSecurities(), map[string]float64{"EUR": 1000.0}, nil)

	tests := []struct {
		name       string
		positions  []Position
		securities []SecurityConfig
		cash       map[string]float64
	}{
		{"quantity change", []Position{{Symbol: "AAPL", Quantity: 11}, {Symbol: "GOOGL", Quantity: 5}}, baseSecurities(), map[string]float64{"EUR": 1000.0}},
		{"fractional quantity change", []Position{{Symbol: "AAPL", Quantity: 10.0001}, {Symbol: "GOOGL", Quantity: 5}}, baseSecurities(), map[string]float64{"EUR": 1000.0}},
		{"cash change", basePositions(), baseSecurities(), map[string]float64{"EUR": 1000.01}},
		{"new currency", basePositions(), baseSecurities(), map[string]float64{"EUR": 1000.0, "USD": 1}},
		{"permission change", basePositions(), append(baseSecurities()[:2], SecurityConfig{Symbol: "SAP", Country: "Germany", Industry: "Software"}), map[string]float64{"EUR": 1000.0}},
		{"new universe member", basePositions(), append(baseSecurities(), SecurityConfig{Symbol: "NESN"}), map[string]float64{"EUR": 1000.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, GeneratePortfolioHash(tt.positions, tt.securities, tt.cash, nil))
		})
	}
}

func TestGeneratePortfolioHash_IgnoresSubPrecisionNoise(t *testing.T) {
	a := GeneratePortfolioHash(basePositions(), baseSecurities(), map[string]float64{"EUR": 1000.001}, nil)
	b := GeneratePortfolioHash(basePositions(), baseSecurities(), map[string]float64{"EUR": 1000.0}, nil)
	assert.Equal(t, a, b)

	zeroCash := GeneratePortfolioHash(basePositions(), baseSecurities(), map[string]float64{"EUR": 1000.0, "USD": 0}, nil)
	assert.Equal(t, b, zeroCash)
}

func TestApplyPendingOrdersToPortfolio(t *testing.T) {
	positions := []Position{{Symbol: "aapl", Quantity: 10}, {Symbol: "SAP", Quantity: 3}}
	cash := map[string]float64{"EUR": 1000}
	orders := []PendingOrder{
		{Symbol: "AAPL", Side: "buy", Quantity: 5, Price: 100},
		{Symbol: "SAP", Side: "SELL", Quantity: 3, Price: 50},
		{Symbol: "BAD", Side: "buy", Quantity: 0, Price: 10},
		{Symbol: "NESN", Side: "buy", Quantity: 20, Price: 100, Currency: "CHF"},
	}

	adjusted, adjustedCash := ApplyPendingOrdersToPortfolio(positions, cash, orders, false)

	require.Len(t, adjusted, 2)
	assert.Equal(t, Position{Symbol: "AAPL", Quantity: 15}, adjusted[0])
	assert.Equal(t, Position{Symbol: "NESN", Quantity: 20}, adjusted[1])
	assert.Equal(t, 500.0, adjustedCash["EUR"])
	assert.Equal(t, 0.0, adjustedCash["CHF"], "cash is clamped at zero")
	assert.Equal(t, 1000.0, cash["EUR"], "input map is not modified")

	_, negative := ApplyPendingOrdersToPortfolio(positions, cash, orders, true)
	assert.Equal(t, -2000.0, negative["CHF"])
}

func TestPortfolioHashForContext(t *testing.T) {
	ctx := domain.NewOpportunityContext(nil,
		[]domain.EnrichedPosition{{Symbol: "AAPL", Quantity: 10}},
		[]domain.Security{{Symbol: "AAPL", AllowBuy: true, AllowSell: true}},
		500, 2000, nil,
	)

	h := PortfolioHashForContext(ctx)
	assert.Len(t, h, 8)
	assert.Equal(t, h, PortfolioHashForContext(ctx))

	ctx.AvailableCashEUR = 600
	assert.NotEqual(t, h, PortfolioHashForContext(ctx))

	ctx.AvailableCashEUR = 500
	ctx.PendingOrders = []domain.PendingOrder{{Symbol: "AAPL", Side: domain.TradeSideSell, Quantity: 2, Price: 100}}
	assert.NotEqual(t, h, PortfolioHashForContext(ctx))
}
