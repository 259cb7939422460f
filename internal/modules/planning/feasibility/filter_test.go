package feasibility

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

func testContext() *domain.OpportunityContext {
	return domain.NewOpportunityContext(nil,
		[]domain.EnrichedPosition{
			{Symbol: "AAPL", Quantity: 10, CurrentPrice: 100},
			{Symbol: "LOCK", Quantity: 5, CurrentPrice: 50},
		},
		[]domain.Security{
			{Symbol: "AAPL", AllowBuy: true, AllowSell: true},
			{Symbol: "SAP", AllowBuy: true, AllowSell: true},
			{Symbol: "LOCK", AllowBuy: false, AllowSell: false},
		},
		500, 2000, map[string]float64{"AAPL": 100, "SAP": 100, "LOCK": 50},
	)
}

func buy(symbol string, qty int, value float64) domain.ActionCandidate {
	return domain.ActionCandidate{Side: domain.TradeSideBuy, Symbol: symbol, Quantity: qty, Price: value / float64(qty), ValueEUR: value, Priority: 1}
}

func sell(symbol string, qty int, value float64) domain.ActionCandidate {
	return domain.ActionCandidate{Side: domain.TradeSideSell, Symbol: symbol, Quantity: qty, Price: value / float64(qty), ValueEUR: value, Priority: 1}
}

func seq(actions ...domain.ActionCandidate) domain.ActionSequence {
	return domain.ActionSequence{Actions: actions, Depth: len(actions)}
}

func TestFilter_Check(t *testing.T) {
	config := domain.NewDefaultConfiguration()
	filter := NewFilter(testContext(), config, zerolog.Nop())

	lowPriority := buy("SAP", 1, 100)
	lowPriority.Priority = 0.1

	tests := []struct {
		name     string
		sequence domain.ActionSequence
		ok       bool
		reason   RejectionReason
	}{
		{"empty", seq(), false, ReasonEmpty},
		{"duplicate symbol", seq(sell("AAPL", 1, 100), buy("AAPL", 1, 100)), false, ReasonDuplicateSymbol},
		{"below priority threshold", seq(lowPriority), false, ReasonLowPriority},
		{"unknown buy", seq(buy("NOPE", 1, 100)), false, ReasonUnknownBuy},
		{"buy not allowed", seq(buy("LOCK", 1, 50)), false, ReasonBuyNotAllowed},
		{"buy exceeds cash", seq(buy("SAP", 6, 600)), false, ReasonInsufficientCash},
		{"sell funds buy", seq(sell("AAPL", 2, 200), buy("SAP", 6, 600)), true, ReasonNone},
		{"unknown sell", seq(sell("NOPE", 1, 100)), false, ReasonUnknownSell},
		{"sell not allowed", seq(sell("LOCK", 1, 50)), false, ReasonSellNotAllowed},
		{"sell exceeds holding", seq(sell("AAPL", 11, 1100)), false, ReasonSellExceedsHolding},
		{"sell of unheld symbol", seq(sell("SAP", 1, 100)), false, ReasonSellExceedsHolding},
		{"affordable buy", seq(buy("SAP", 5, 500)), true, ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := filter.Check(tt.sequence)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestFilter_ExploratoryRelaxedCash(t *testing.T) {
	config := domain.NewDefaultConfiguration()
	filter := NewFilter(testContext(), config, zerolog.Nop())

	over := seq(buy("SAP", 6, 600))
	ok, reason := filter.Check(over)
	require.False(t, ok)
	assert.Equal(t, ReasonInsufficientCash, reason)

	over.Exploratory = true
	ok, _ = filter.Check(over)
	assert.True(t, ok, "600 fits within 500 x 1.3")

	tooFar := seq(buy("SAP", 7, 700))
	tooFar.Exploratory = true
	ok, reason = filter.Check(tooFar)
	assert.False(t, ok)
	assert.Equal(t, ReasonInsufficientCash, reason)

	locked := seq(buy("LOCK", 1, 50))
	locked.Exploratory = true
	ok, reason = filter.Check(locked)
	assert.False(t, ok)
	assert.Equal(t, ReasonBuyNotAllowed, reason)
}

func TestFilter_GlobalPermissions(t *testing.T) {
	ctx := testContext()
	ctx.AllowBuy = false
	filter := NewFilter(ctx, nil, zerolog.Nop())

	ok, reason := filter.Check(seq(buy("SAP", 1, 100)))
	assert.False(t, ok)
	assert.Equal(t, ReasonBuyNotAllowed, reason)
}

func TestFilter_Apply(t *testing.T) {
	filter := NewFilter(testContext(), domain.NewDefaultConfiguration(), zerolog.Nop())

	sequences := []domain.ActionSequence{
		seq(buy("SAP", 1, 100)),
		seq(),
		seq(buy("SAP", 9, 900)),
		seq(sell("AAPL", 1, 100)),
		seq(buy("NOPE", 1, 10)),
	}

	kept, stats := filter.Apply(sequences)

	require.Len(t, kept, 2)
	assert.Equal(t, "SAP", kept[0].Actions[0].Symbol)
	assert.Equal(t, "AAPL", kept[1].Actions[0].Symbol)
	assert.Equal(t, 5, stats.Input)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected[ReasonEmpty])
	assert.Equal(t, 1, stats.Rejected[ReasonInsufficientCash])
	assert.Equal(t, 1, stats.Rejected[ReasonUnknownBuy])
}
