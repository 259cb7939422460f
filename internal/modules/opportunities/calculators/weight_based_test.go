package calculators

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// weightContext: A 10 @ 100 (cost 120), B 20 @ 100, C unheld @ 50, 4000 EUR total
func weightContext() *domain.OpportunityContext {
	positions := []domain.EnrichedPosition{
		{Symbol: "A", Quantity: 10, AverageCost: 120, CurrentPrice: 100, MarketValueEUR: 1000},
		{Symbol: "B", Quantity: 20, AverageCost: 80, CurrentPrice: 100, MarketValueEUR: 2000},
	}
	securities := []domain.Security{
		{Symbol: "A", AllowBuy: true, AllowSell: true},
		{Symbol: "B", AllowBuy: true, AllowSell: true},
		{Symbol: "C", AllowBuy: true, AllowSell: true, PriorityMultiplier: 2},
	}
	ctx := domain.NewOpportunityContext(nil, positions, securities, 1000, 4000,
		map[string]float64{"A": 100, "B": 100, "C": 50})
	ctx.TargetWeights = map[string]float64{"A": 0.375, "B": 0.25, "C": 0.125}
	return ctx
}

func TestCalculateWeightGaps(t *testing.T) {
	gaps := CalculateWeightGaps(
		map[string]float64{"A": 0.3, "B": 0.2, "TINY": 0.004},
		map[string]float64{"A": 0.1, "B": 0.21, "HELD": 0.25, "DUST": 0.001},
		1000,
	)

	require.Len(t, gaps, 3)
	assert.Equal(t, "HELD", gaps[0].Symbol)
	assert.InDelta(t, -0.25, gaps[0].Gap, 1e-9)
	assert.InDelta(t, -250.0, gaps[0].GapValue, 1e-9)
	assert.Equal(t, "A", gaps[1].Symbol)
	assert.Equal(t, "B", gaps[2].Symbol)
}

func TestIsTradeWorthwhile(t *testing.T) {
	assert.True(t, IsTradeWorthwhile(500, 2, 0.002))
	assert.True(t, IsTradeWorthwhile(-500, 2, 0.002))
	assert.False(t, IsTradeWorthwhile(3, 2, 0.002))
}

func TestWeightBasedCalculator_Calculate(t *testing.T) {
	calc := NewWeightBasedCalculator(zerolog.Nop())
	assert.Equal(t, "weight_based", calc.Name())

	opps, err := calc.Calculate(weightContext())
	require.NoError(t, err)

	sells := opps[domain.OpportunityCategoryRebalanceSells]
	require.Len(t, sells, 1)
	assert.Equal(t, "B", sells[0].Symbol)
	assert.Equal(t, 10, sells[0].Quantity)
	assert.InDelta(t, 25.0, sells[0].Priority, 1e-6)
	assert.Equal(t, []string{domain.TagRebalance, domain.TagOptimizerTarget}, sells[0].Tags)

	averaging := opps[domain.OpportunityCategoryAveragingDown]
	require.Len(t, averaging, 1, "A trades below its cost basis")
	assert.Equal(t, "A", averaging[0].Symbol)
	assert.Equal(t, 5, averaging[0].Quantity)
	assert.InDelta(t, 12.5, averaging[0].Priority, 1e-6)

	buys := opps[domain.OpportunityCategoryRebalanceBuys]
	require.Len(t, buys, 1)
	assert.Equal(t, "C", buys[0].Symbol)
	assert.Equal(t, 10, buys[0].Quantity)
	assert.InDelta(t, 25.0, buys[0].Priority, 1e-6, "multiplier raises buy priority")
	assert.Contains(t, buys[0].Reason, "Optimizer target: 12.5%")
}

func TestWeightBasedCalculator_SellRespectsMinLot(t *testing.T) {
	calc := NewWeightBasedCalculator(zerolog.Nop())

	t.Run("remainder stays at least one lot", func(t *testing.T) {
		ctx := weightContext()
		sec := ctx.StocksBySymbol["B"]
		sec.MinLot = 15
		ctx.StocksBySymbol["B"] = sec

		opps, err := calc.Calculate(ctx)
		require.NoError(t, err)
		sells := opps[domain.OpportunityCategoryRebalanceSells]
		require.Len(t, sells, 1)
		assert.Equal(t, 5, sells[0].Quantity)
	})

	t.Run("position at min lot is skipped", func(t *testing.T) {
		ctx := weightContext()
		sec := ctx.StocksBySymbol["B"]
		sec.MinLot = 20
		ctx.StocksBySymbol["B"] = sec

		opps, err := calc.Calculate(ctx)
		require.NoError(t, err)
		assert.Empty(t, opps[domain.OpportunityCategoryRebalanceSells])
	})

	t.Run("untargeted holding is sold entirely", func(t *testing.T) {
		ctx := weightContext()
		delete(ctx.TargetWeights, "B")

		opps, err := calc.Calculate(ctx)
		require.NoError(t, err)
		sells := opps[domain.OpportunityCategoryRebalanceSells]
		require.Len(t, sells, 1)
		assert.Equal(t, 20, sells[0].Quantity)
	})
}

func TestWeightBasedCalculator_Eligibility(t *testing.T) {
	calc := NewWeightBasedCalculator(zerolog.Nop())
	ctx := weightContext()
	ctx.RecentlySold["B"] = true
	ctx.RecentlyBought["C"] = true

	opps, err := calc.Calculate(ctx)
	require.NoError(t, err)
	assert.Empty(t, opps[domain.OpportunityCategoryRebalanceSells])
	assert.Empty(t, opps[domain.OpportunityCategoryRebalanceBuys])
	assert.Len(t, opps[domain.OpportunityCategoryAveragingDown], 1)
}
