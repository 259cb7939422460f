package calculators

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

func TestProfitTakingCalculator_Calculate(t *testing.T) {
	calc := NewProfitTakingCalculator(zerolog.Nop())
	assert.Equal(t, "profit_taking", calc.Name())
	assert.Equal(t, domain.OpportunityCategoryProfitTaking, calc.Category())

	candidates, err := calc.Calculate(testContext(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"GAIN", "WIN"}, symbols(candidates))

	windfall, _ := bySymbol(candidates, "WIN")
	assert.Equal(t, domain.TradeSideSell, windfall.Side)
	assert.Equal(t, 40, windfall.Quantity, "windfall sells the maximum 40%")
	assert.InDelta(t, 0.9, windfall.Priority, 1e-9)
	assert.InDelta(t, 640.0, windfall.ValueEUR, 1e-9)
	assert.Contains(t, windfall.Tags, domain.TagWindfall)
	assert.Contains(t, windfall.Reason, "Windfall")
	assert.Equal(t, "USD", windfall.Currency)

	gain, _ := bySymbol(candidates, "GAIN")
	assert.Equal(t, 15, gain.Quantity, "40% gain sits halfway between 20% and 40%")
	assert.InDelta(t, 0.4, gain.Priority, 1e-9)
	assert.NotContains(t, gain.Tags, domain.TagWindfall)
}

func TestProfitTakingCalculator_MaxSellPercentage(t *testing.T) {
	calc := NewProfitTakingCalculator(zerolog.Nop())

	candidates, err := calc.Calculate(testContext(), map[string]interface{}{"max_sell_percentage": 0.25})
	require.NoError(t, err)

	windfall, _ := bySymbol(candidates, "WIN")
	assert.Equal(t, 25, windfall.Quantity)
	gain, _ := bySymbol(candidates, "GAIN")
	assert.Equal(t, 12, gain.Quantity)
}

func TestProfitTakingCalculator_Exclusions(t *testing.T) {
	calc := NewProfitTakingCalculator(zerolog.Nop())

	tests := []struct {
		name     string
		mutate   func(ctx *domain.OpportunityContext)
		expected []string
	}{
		{"recently sold", func(ctx *domain.OpportunityContext) { ctx.RecentlySold["WIN"] = true }, []string{"GAIN"}},
		{"ineligible", func(ctx *domain.OpportunityContext) { ctx.IneligibleSymbols["GAIN"] = true }, []string{"WIN"}},
		{"sell disabled globally", func(ctx *domain.OpportunityContext) { ctx.AllowSell = false }, nil},
		{"security not sellable", func(ctx *domain.OpportunityContext) {
			sec := ctx.StocksBySymbol["WIN"]
			sec.AllowSell = false
			ctx.StocksBySymbol["WIN"] = sec
		}, []string{"GAIN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext()
			tt.mutate(ctx)
			candidates, err := calc.Calculate(ctx, nil)
			require.NoError(t, err)
			if tt.expected == nil {
				assert.Empty(t, candidates)
				return
			}
			assert.Equal(t, tt.expected, symbols(candidates))
		})
	}
}
