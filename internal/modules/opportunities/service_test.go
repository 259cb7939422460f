package opportunities

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/progress"
)

// serviceContext holds a winner (+60%) and a dipper (-20%) with 600 EUR cash.
func serviceContext() *domain.OpportunityContext {
	positions := []domain.EnrichedPosition{
		{Symbol: "WIN", Quantity: 100, AverageCost: 10, CurrentPrice: 16, MarketValueEUR: 1600, Country: "US", AllowSell: true, AllowBuy: true},
		{Symbol: "DIP", Quantity: 20, AverageCost: 100, CurrentPrice: 80, MarketValueEUR: 1600, Country: "DE", AllowSell: true, AllowBuy: true},
	}
	securities := []domain.Security{
		{Symbol: "WIN", Name: "Winner", Country: "US", Currency: "USD", AllowBuy: true, AllowSell: true},
		{Symbol: "DIP", Name: "Dipper", Country: "DE", Currency: "EUR", AllowBuy: true, AllowSell: true},
		{Symbol: "NEW", Name: "Newcomer", Country: "JP", Currency: "JPY", AllowBuy: true, AllowSell: true},
	}
	prices := map[string]float64{"WIN": 16, "DIP": 80, "NEW": 50}

	ctx := domain.NewOpportunityContext(nil, positions, securities, 600, 3800, prices)
	ctx.SecurityScores = map[string]float64{"DIP": 0.8, "NEW": 0.85}
	return ctx
}

func newTestService() *Service {
	service := NewService(zerolog.Nop())
	service.eligibility.now = func() time.Time { return testNow }
	return service
}

func TestIdentifyOpportunities_NilInputs(t *testing.T) {
	service := newTestService()

	_, err := service.IdentifyOpportunities(nil, domain.NewDefaultConfiguration())
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = service.IdentifyOpportunities(serviceContext(), nil)
	assert.Error(t, err)
}

func TestIdentifyOpportunities_Heuristic(t *testing.T) {
	service := newTestService()

	opportunities, err := service.IdentifyOpportunities(serviceContext(), domain.NewDefaultConfiguration())
	require.NoError(t, err)

	profit := opportunities[domain.OpportunityCategoryProfitTaking]
	require.Len(t, profit, 1)
	assert.Equal(t, "WIN", profit[0].Symbol)
	assert.Equal(t, domain.TradeSideSell, profit[0].Side)

	averaging := opportunities[domain.OpportunityCategoryAveragingDown]
	require.Len(t, averaging, 1)
	assert.Equal(t, "DIP", averaging[0].Symbol)
	assert.Equal(t, domain.TradeSideBuy, averaging[0].Side)

	buys := opportunities[domain.OpportunityCategoryOpportunityBuys]
	require.NotEmpty(t, buys)
	assert.Equal(t, "NEW", buys[0].Symbol)
}

func TestIdentifyOpportunities_EligibilityBlocksSells(t *testing.T) {
	service := newTestService()
	ctx := serviceContext()
	ctx.Positions[0].LastTransactionAt = daysAgo(10)

	opportunities, err := service.IdentifyOpportunities(ctx, domain.NewDefaultConfiguration())
	require.NoError(t, err)

	assert.Empty(t, opportunities[domain.OpportunityCategoryProfitTaking])
	assert.True(t, ctx.IneligibleSymbols["WIN"])
}

func TestIdentifyOpportunities_WeightBasedMode(t *testing.T) {
	service := newTestService()
	ctx := serviceContext()
	ctx.TargetWeights = map[string]float64{"WIN": 0.25, "DIP": 0.25, "NEW": 0.25}

	opportunities, err := service.IdentifyOpportunities(ctx, domain.NewDefaultConfiguration())
	require.NoError(t, err)

	assert.Empty(t, opportunities[domain.OpportunityCategoryProfitTaking], "heuristic calculators do not run")
	assert.Empty(t, opportunities[domain.OpportunityCategoryOpportunityBuys])

	buys := opportunities[domain.OpportunityCategoryRebalanceBuys]
	require.Len(t, buys, 1)
	assert.Equal(t, "NEW", buys[0].Symbol)
	assert.Contains(t, buys[0].Tags, domain.TagOptimizerTarget)
}

func TestIdentifyOpportunities_WeightBasedDisabled(t *testing.T) {
	service := newTestService()
	ctx := serviceContext()
	ctx.TargetWeights = map[string]float64{"NEW": 0.25}
	config := domain.NewDefaultConfiguration()
	config.EnableWeightBasedCalc = false

	opportunities, err := service.IdentifyOpportunities(ctx, config)
	require.NoError(t, err)

	assert.NotEmpty(t, opportunities[domain.OpportunityCategoryProfitTaking])
}

func TestIdentifyOpportunities_CategoriesSorted(t *testing.T) {
	service := newTestService()

	opportunities, err := service.IdentifyOpportunities(serviceContext(), domain.NewDefaultConfiguration())
	require.NoError(t, err)

	for category, candidates := range opportunities {
		for i := 1; i < len(candidates); i++ {
			assert.GreaterOrEqual(t, candidates[i-1].Priority, candidates[i].Priority, string(category))
		}
	}
}

func TestIdentifyOpportunitiesWithProgress_CallsCallback(t *testing.T) {
	service := newTestService()

	var updates []progress.Update
	callback := func(update progress.Update) {
		updates = append(updates, update)
	}

	_, err := service.IdentifyOpportunitiesWithProgress(serviceContext(), domain.NewDefaultConfiguration(), callback)
	require.NoError(t, err)

	require.Len(t, updates, 2)
	for _, update := range updates {
		assert.Equal(t, progress.PhaseOpportunityIdentification, update.Phase)
		assert.Equal(t, "heuristic", update.SubPhase)
	}
	assert.Equal(t, 1, updates[1].Current)
	assert.NotEmpty(t, updates[1].Details)
}

func TestIdentifyOpportunitiesWithProgress_NilCallback(t *testing.T) {
	service := newTestService()

	_, err := service.IdentifyOpportunitiesWithProgress(serviceContext(), domain.NewDefaultConfiguration(), nil)
	assert.NoError(t, err)
}
