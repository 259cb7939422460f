package calculators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

func TestRoundToLotSize(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		lotSize  int
		expected int
	}{
		{"no lot size", 7, 0, 7},
		{"exact multiple", 20, 10, 20},
		{"round down", 27, 10, 20},
		{"round up when below one lot", 3, 10, 10},
		{"zero quantity", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RoundToLotSize(tt.quantity, tt.lotSize))
		})
	}
}

func TestQuantityForAmount(t *testing.T) {
	assert.Equal(t, 3, QuantityForAmount(250, 80, 1))
	assert.Equal(t, 1, QuantityForAmount(250, 1000, 1), "at least one share")
	assert.Equal(t, 10, QuantityForAmount(250, 80, 10), "at least one lot")
	assert.Equal(t, 0, QuantityForAmount(250, 0, 1))
}

func TestSellQuantity(t *testing.T) {
	assert.Equal(t, 40, SellQuantity(100, 0.4, 1))
	assert.Equal(t, 1, SellQuantity(2, 0.1, 1))
	assert.Equal(t, 3, SellQuantity(3.5, 2, 1), "never more than held")
}

func TestParams(t *testing.T) {
	params := map[string]interface{}{"f": 0.5, "i": 3, "s": "x"}

	assert.Equal(t, 0.5, GetFloatParam(params, "f", 1))
	assert.Equal(t, 3.0, GetFloatParam(params, "i", 1))
	assert.Equal(t, 1.0, GetFloatParam(params, "s", 1))
	assert.Equal(t, 2.0, GetFloatParam(nil, "f", 2))
	assert.Equal(t, 3, GetIntParam(params, "i", 0))
	assert.Equal(t, 0, GetIntParam(params, "f", 9))
	assert.Equal(t, 9, GetIntParam(params, "missing", 9))
}

func TestSortByPriority(t *testing.T) {
	candidates := []domain.ActionCandidate{
		{Symbol: "B", Priority: 0.5},
		{Symbol: "C", Priority: 0.9},
		{Symbol: "A", Priority: 0.5},
	}
	SortByPriority(candidates)
	assert.Equal(t, []string{"C", "A", "B"}, symbols(candidates))
}

func TestBuyableSecurities(t *testing.T) {
	ctx := testContext()
	ctx.RecentlyBought["DIP"] = true
	delete(ctx.CurrentPrices, "NEW")

	buyable := buyableSecurities(ctx, 0.5)
	var got []string
	for _, s := range buyable {
		got = append(got, s.Symbol)
	}
	assert.Equal(t, []string{"DEEP", "GAIN", "WIN"}, got)

	ctx.AllowBuy = false
	assert.Empty(t, buyableSecurities(ctx, 0))
}
