package evaluation

import (
	"reflect"
	"testing"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/stretchr/testify/assert"
)

func TestSimulateSequence_SellFundsBuy(t *testing.T) {
	start := models.PortfolioContext{
		Positions:         map[string]float64{"A": 1000},
		SecurityCountries: map[string]string{"A": "Germany"},
		TotalValue:        1000,
	}
	securities := map[string]models.Security{
		"B": {Symbol: "B", Country: "France", Industry: "Banks"},
	}
	sequence := []models.ActionCandidate{
		{Side: models.TradeSideSell, Symbol: "A", Quantity: 4, Price: 100, ValueEUR: 400},
		{Side: models.TradeSideBuy, Symbol: "B", Quantity: 3, Price: 100, ValueEUR: 300},
	}

	end, cash := SimulateSequence(sequence, start, 0, securities, nil)

	assert.InDelta(t, 100.0, cash, 1e-9)
	assert.InDelta(t, 600.0, end.Positions["A"], 1e-9)
	assert.InDelta(t, 300.0, end.Positions["B"], 1e-9)
	assert.Equal(t, "France", end.SecurityCountries["B"])
	assert.Equal(t, "Banks", end.SecurityIndustries["B"])
	assert.Equal(t, start.TotalValue, end.TotalValue)

	// The starting context is untouched
	assert.Equal(t, map[string]float64{"A": 1000}, start.Positions)
	assert.Equal(t, map[string]string{"A": "Germany"}, start.SecurityCountries)
	assert.True(t, CheckSequenceFeasibility(sequence, 0, nil))
}

func TestSimulateSequence_SellRemovesPosition(t *testing.T) {
	start := models.PortfolioContext{Positions: map[string]float64{"A": 500}, TotalValue: 500}
	sequence := []models.ActionCandidate{
		{Side: models.TradeSideSell, Symbol: "A", Quantity: 10, Price: 60, ValueEUR: 600},
	}

	end, cash := SimulateSequence(sequence, start, 0, nil, nil)

	assert.NotContains(t, end.Positions, "A")
	assert.InDelta(t, 600.0, cash, 1e-9)
}

func TestSimulateSequence_UnaffordableBuySkipped(t *testing.T) {
	start := models.PortfolioContext{Positions: map[string]float64{}, TotalValue: 100}
	sequence := []models.ActionCandidate{
		{Side: models.TradeSideBuy, Symbol: "X", Quantity: 5, Price: 100, ValueEUR: 500},
		{Side: models.TradeSideBuy, Symbol: "Y", Quantity: 1, Price: 50, ValueEUR: 50},
	}

	end, cash := SimulateSequence(sequence, start, 100, nil, nil)

	assert.NotContains(t, end.Positions, "X")
	assert.InDelta(t, 50.0, end.Positions["Y"], 1e-9)
	assert.InDelta(t, 50.0, cash, 1e-9)
	assert.False(t, CheckSequenceFeasibility(sequence, 100, nil))
}

func TestSimulateSequence_SharesMapsUntilWritten(t *testing.T) {
	start := models.PortfolioContext{
		Positions:          map[string]float64{"A": 100, "B": 200},
		SecurityCountries:  map[string]string{"A": "Germany"},
		SecurityIndustries: map[string]string{"A": "Banks"},
		TotalValue:         300,
	}
	same := func(a, b map[string]float64) bool {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}

	tests := []struct {
		name     string
		sequence []models.ActionCandidate
		shared   bool
	}{
		{"empty sequence", nil, true},
		{"only unaffordable buys", []models.ActionCandidate{
			{Side: models.TradeSideBuy, Symbol: "X", Quantity: 5, Price: 100, ValueEUR: 500},
		}, true},
		{"executed buy", []models.ActionCandidate{
			{Side: models.TradeSideBuy, Symbol: "A", Quantity: 1, Price: 10, ValueEUR: 10},
		}, false},
		{"executed sell", []models.ActionCandidate{
			{Side: models.TradeSideSell, Symbol: "B", Quantity: 1, Price: 50, ValueEUR: 50},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, _ := SimulateSequence(tt.sequence, start, 100, nil, nil)

			assert.Equal(t, tt.shared, same(start.Positions, end.Positions))
			assert.Equal(t, map[string]float64{"A": 100, "B": 200}, start.Positions)
			assert.Equal(t, "Germany", end.SecurityCountries["A"])
		})
	}
}

func TestSimulateSequence_PriceAdjustments(t *testing.T) {
	start := models.PortfolioContext{Positions: map[string]float64{}, TotalValue: 1000}
	sequence := []models.ActionCandidate{
		{Side: models.TradeSideBuy, Symbol: "X", Quantity: 10, Price: 10, ValueEUR: 100},
	}

	end, cash := SimulateSequence(sequence, start, 1000, nil, map[string]float64{"X": 1.1})

	assert.InDelta(t, 110.0, end.Positions["X"], 1e-9)
	assert.InDelta(t, 890.0, cash, 1e-9)
}

func TestSecuritiesLookup(t *testing.T) {
	ctx := models.EvaluationContext{
		Securities: []models.Security{{Symbol: "A"}, {Symbol: "B"}},
	}
	lookup := SecuritiesLookup(ctx)
	assert.Len(t, lookup, 2)
	assert.Contains(t, lookup, "B")

	ctx.StocksBySymbol = map[string]models.Security{"C": {Symbol: "C"}}
	assert.Equal(t, ctx.StocksBySymbol, SecuritiesLookup(ctx))
}

func TestCalculateSequenceCashFlow(t *testing.T) {
	summary := CalculateSequenceCashFlow([]models.ActionCandidate{
		{Side: models.TradeSideSell, ValueEUR: 400},
		{Side: models.TradeSideBuy, ValueEUR: 250},
		{Side: models.TradeSideBuy, ValueEUR: 100},
	})

	assert.InDelta(t, 400.0, summary.CashGenerated, 1e-9)
	assert.InDelta(t, 350.0, summary.CashRequired, 1e-9)
	assert.InDelta(t, 50.0, summary.NetCashFlow, 1e-9)
}
