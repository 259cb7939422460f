package domain

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContext() *OpportunityContext {
	positions := []EnrichedPosition{
		{Symbol: "AAPL", Quantity: 10, AverageCost: 120, MarketValueEUR: 1500, Country: "United States", Industry: "Technology"},
		{Symbol: "SAP", Quantity: 5, AverageCost: 100, MarketValueEUR: 500, Country: "Germany"},
	}
	securities := []Security{
		{Symbol: "AAPL", Name: "Apple Inc.", Country: "United States", Industry: "Technology", AllowBuy: true, AllowSell: true},
		{Symbol: "SAP", Name: "SAP SE", Country: "Germany", AllowBuy: true, AllowSell: true},
		{Symbol: "NESN", Name: "Nestle", Country: "Switzerland", AllowBuy: true},
	}
	return NewOpportunityContext(nil, positions, securities, 1000, 3000, map[string]float64{
		"AAPL": 150, "SAP": 100, "NESN": 90,
	})
}

func TestNewOpportunityContext(t *testing.T) {
	ctx := sampleContext()

	assert.Equal(t, 1000.0, ctx.AvailableCashEUR)
	assert.Equal(t, 3000.0, ctx.TotalPortfolioValueEUR)
	assert.Len(t, ctx.StocksBySymbol, 3)
	assert.NotNil(t, ctx.IneligibleSymbols)
	assert.NotNil(t, ctx.RecentlySold)
	assert.NotNil(t, ctx.RecentlyBought)
	assert.Equal(t, 2.0, ctx.TransactionCostFixed)
	assert.Equal(t, 0.002, ctx.TransactionCostPercent)
	assert.True(t, ctx.AllowBuy)
	assert.True(t, ctx.AllowSell)
}

func TestOpportunityContext_Lookups(t *testing.T) {
	ctx := sampleContext()

	sec, ok := ctx.Security("NESN")
	require.True(t, ok)
	assert.Equal(t, "Nestle", sec.Name)

	_, ok = ctx.Security("MISSING")
	assert.False(t, ok)

	pos, ok := ctx.Position("SAP")
	require.True(t, ok)
	assert.Equal(t, 5.0, pos.Quantity)

	price, ok := ctx.Price("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 150.0, price)

	ctx.CurrentPrices["ZERO"] = 0
	_, ok = ctx.Price("ZERO")
	assert.False(t, ok)
}

func TestOpportunityContext_ApplyConfig(t *testing.T) {
	ctx := sampleContext()
	cfg := NewDefaultConfiguration()
	cfg.TransactionCostFixed = 5
	cfg.AllowSell = false

	ctx.ApplyConfig(cfg)
	assert.Equal(t, 5.0, ctx.TransactionCostFixed)
	assert.False(t, ctx.AllowSell)

	ctx.ApplyConfig(nil)
	assert.Equal(t, 5.0, ctx.TransactionCostFixed)
}

func TestCalculateMinTradeAmount(t *testing.T) {
	tests := []struct {
		name     string
		fixed    float64
		percent  float64
		ratio    float64
		expected float64
	}{
		{"defaults give 250", 2.0, 0.002, 0.01, 250},
		{"zero ratio defaults to 1%", 2.0, 0.002, 0, 250},
		{"high fixed cost", 5.0, 0.002, 0.01, 625},
		{"cheap broker floors at 250", 0.5, 0.001, 0.01, MinTradeAmountFloor},
		{"variable cost above ratio", 2.0, 0.02, 0.01, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateMinTradeAmount(tt.fixed, tt.percent, tt.ratio), 1e-9)
		})
	}

	ctx := sampleContext()
	assert.InDelta(t, 250.0, ctx.CalculateMinTradeAmount(0.01), 1e-9)
}

func TestOpportunityContext_PortfolioSnapshot(t *testing.T) {
	ctx := sampleContext()
	ctx.Metrics = models.MetricsCache{"AAPL": {models.MetricDividendYield: 0.005}}

	pc := ctx.PortfolioSnapshot()

	assert.Equal(t, map[string]float64{"AAPL": 1500, "SAP": 500}, pc.Positions)
	assert.Equal(t, "Germany", pc.SecurityCountries["SAP"])
	assert.Equal(t, "Technology", pc.SecurityIndustries["AAPL"])
	assert.NotContains(t, pc.SecurityIndustries, "SAP")
	assert.Equal(t, 0.005, pc.SecurityDividends["AAPL"])
	assert.Equal(t, 3000.0, pc.TotalValue)

	supplied := &models.PortfolioContext{TotalValue: 42}
	ctx.PortfolioContext = supplied
	assert.Equal(t, 42.0, ctx.PortfolioSnapshot().TotalValue)
}

func TestOpportunityContext_EvaluationContext(t *testing.T) {
	ctx := sampleContext()
	cfg := NewDefaultConfiguration()
	cfg.EvaluationMode = EvaluationModeStochastic
	cfg.CostPenaltyFactor = 0.5

	evalCtx := ctx.EvaluationContext(cfg)

	assert.Equal(t, 1000.0, evalCtx.AvailableCashEUR)
	assert.Len(t, evalCtx.Securities, 3)
	assert.Equal(t, "Switzerland", evalCtx.StocksBySymbol["NESN"].Country)
	assert.Equal(t, models.ModeStochastic, evalCtx.Scoring.Mode)
	assert.Equal(t, 0.5, evalCtx.CostPenaltyFactor)
	assert.Equal(t, cfg.TransactionCostFixed, evalCtx.TransactionCostFixed)
}

func TestOpportunityContext_IndexSecuritiesAfterDecode(t *testing.T) {
	ctx := &OpportunityContext{Securities: []Security{{Symbol: "X"}, {Symbol: ""}}}
	ctx.IndexSecurities()

	assert.Len(t, ctx.StocksBySymbol, 1)
	assert.NotNil(t, ctx.RecentlySold)
}
