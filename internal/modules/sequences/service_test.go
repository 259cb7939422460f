package sequences

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/hash"
	"github.com/aristath/holistic-planner/internal/modules/planning/progress"
	"github.com/aristath/holistic-planner/internal/modules/sequences/patterns"
)

func trade(side domain.TradeSide, symbol string, quantity int, price, priority float64) domain.ActionCandidate {
	return domain.ActionCandidate{
		Side:     side,
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		ValueEUR: float64(quantity) * price,
		Priority: priority,
	}
}

func serviceOpportunities() domain.OpportunitiesByCategory {
	return domain.OpportunitiesByCategory{
		domain.OpportunityCategoryProfitTaking:   {trade(domain.TradeSideSell, "WIN", 5, 100, 0.9)},
		domain.OpportunityCategoryRebalanceSells: {trade(domain.TradeSideSell, "HEAVY", 4, 75, 0.6)},
		domain.OpportunityCategoryAveragingDown:  {trade(domain.TradeSideBuy, "DIP", 4, 100, 0.8)},
		domain.OpportunityCategoryRebalanceBuys:  {trade(domain.TradeSideBuy, "GAP", 5, 50, 0.7)},
		domain.OpportunityCategoryOpportunityBuys: {
			trade(domain.TradeSideBuy, "NEW", 7, 50, 0.75),
			trade(domain.TradeSideBuy, "NEW2", 3, 100, 0.65),
		},
	}
}

func serviceContext() *domain.OpportunityContext {
	return domain.NewOpportunityContext(nil,
		[]domain.EnrichedPosition{
			{Symbol: "WIN", Quantity: 20, CurrentPrice: 100, Country: "US"},
			{Symbol: "HEAVY", Quantity: 10, CurrentPrice: 75, Country: "US"},
			{Symbol: "DIP", Quantity: 10, CurrentPrice: 100, Country: "DE"},
		},
		[]domain.Security{
			{Symbol: "WIN", Country: "US", Industry: "Technology", AllowBuy: true, AllowSell: true},
			{Symbol: "HEAVY", Country: "US", Industry: "Energy", AllowBuy: true, AllowSell: true},
			{Symbol: "DIP", Country: "DE", Industry: "Industrials", AllowBuy: true, AllowSell: true},
			{Symbol: "GAP", Country: "JP", Industry: "Consumer", AllowBuy: true, AllowSell: true},
			{Symbol: "NEW", Country: "FR", Industry: "Finance", AllowBuy: true, AllowSell: true},
			{Symbol: "NEW2", Country: "NL", Industry: "Technology", AllowBuy: true, AllowSell: true},
		},
		400, 4000,
		map[string]float64{"WIN": 100, "HEAVY": 75, "DIP": 100, "GAP": 50, "NEW": 50, "NEW2": 100},
	)
}

func TestGenerateSequences_Errors(t *testing.T) {
	service := NewService(zerolog.Nop())

	_, err := service.GenerateSequences(serviceOpportunities(), nil, nil)
	assert.ErrorIs(t, err, ErrNilContext)

	config := domain.NewDefaultConfiguration()
	config.MaxDepth = 0
	_, err = service.GenerateSequences(serviceOpportunities(), serviceContext(), config)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))

	sequences, err := service.GenerateSequences(domain.OpportunitiesByCategory{}, serviceContext(), nil)
	require.NoError(t, err)
	assert.Empty(t, sequences)
}

func TestGenerateSequences(t *testing.T) {
	service := NewService(zerolog.Nop())
	config := domain.NewDefaultConfiguration()

	sequences, err := service.GenerateSequences(serviceOpportunities(), serviceContext(), config)
	require.NoError(t, err)
	require.NotEmpty(t, sequences)

	patternTypes := make(map[string]bool)
	for _, seq := range sequences {
		patternTypes[seq.PatternType] = true

		require.NotEmpty(t, seq.Actions)
		assert.LessOrEqual(t, len(seq.Actions), config.MaxDepth)
		assert.Equal(t, len(seq.Actions), seq.Depth)
		assert.Equal(t, hash.SequenceHash(seq.Actions), seq.SequenceHash)

		seen := make(map[string]bool)
		buying := false
		priority := 0.0
		for _, a := range seq.Actions {
			assert.False(t, seen[a.Symbol], "duplicate symbol in %s", seq.PatternType)
			seen[a.Symbol] = true
			if a.Side.IsBuy() {
				buying = true
			} else {
				assert.False(t, buying, "sell after buy in %s", seq.PatternType)
			}
			priority += a.Priority
		}
		assert.InDelta(t, priority, seq.Priority, 1e-9)
		assert.False(t, seq.Exploratory, "relaxation is off by default")
	}

	assert.True(t, patternTypes["direct_buy"])
	assert.True(t, patternTypes["enhanced_combinatorial"])
	assert.False(t, patternTypes["combinatorial"], "enhanced sampling replaces the exhaustive generator")

	keys := make(map[string]string)
	for _, seq := range sequences {
		var key string
		for _, a := range seq.Actions {
			key += a.Symbol + ":" + string(a.Side) + ";"
		}
		first, dup := keys[key]
		assert.False(t, dup, "%s repeats %s", seq.PatternType, first)
		keys[key] = seq.PatternType
	}

	// single_best proposes [SELL WIN], which profit_taking already emitted
	// at depth 1; the dedupe keeps the earlier one.
	single, err := patterns.NewSingleBestPattern(zerolog.Nop()).Generate(serviceOpportunities(), map[string]interface{}{
		patterns.ParamAvailableCash: 400.0,
		patterns.ParamMaxDepth:      1,
	})
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "WIN", single[0].Actions[0].Symbol)

	found := false
	for _, seq := range sequences {
		if len(seq.Actions) == 1 && seq.Actions[0].Symbol == "WIN" && seq.Actions[0].Side == domain.TradeSideSell {
			found = true
			assert.Equal(t, "profit_taking", seq.PatternType)
		}
	}
	assert.True(t, found)
}

func TestWithVariants(t *testing.T) {
	service := NewService(zerolog.Nop())
	sellWin := trade(domain.TradeSideSell, "WIN", 5, 100, 0.9)
	buyDip := trade(domain.TradeSideBuy, "DIP", 4, 100, 0.8)
	buyGap := trade(domain.TradeSideBuy, "GAP", 5, 50, 0.7)

	base := []domain.ActionSequence{
		patterns.CreateSequence([]domain.ActionCandidate{sellWin}, "profit_taking"),
		patterns.CreateSequence([]domain.ActionCandidate{buyDip, sellWin, buyGap}, "mixed_strategy"),
	}

	tests := []struct {
		name     string
		variants []domain.ActionSequence
		want     []string
	}{
		{
			name: "prefix repeating a base sequence",
			variants: []domain.ActionSequence{
				{Actions: []domain.ActionCandidate{sellWin}, PatternType: "partial_execution"},
			},
			want: []string{"profit_taking", "mixed_strategy"},
		},
		{
			name: "unnormalized variant matching after reorder",
			variants: []domain.ActionSequence{
				{Actions: []domain.ActionCandidate{buyDip, sellWin, buyGap}, PatternType: "partial_execution"},
			},
			want: []string{"profit_taking", "mixed_strategy"},
		},
		{
			name: "new prefix kept",
			variants: []domain.ActionSequence{
				{Actions: []domain.ActionCandidate{sellWin, buyDip}, PatternType: "partial_execution"},
			},
			want: []string{"profit_taking", "mixed_strategy", "partial_execution"},
		},
		{
			name: "no variants",
			want: []string{"profit_taking", "mixed_strategy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.withVariants(base, tt.variants)

			got := make([]string, len(result))
			for i, seq := range result {
				got[i] = seq.PatternType
				assert.Equal(t, hash.SequenceHash(seq.Actions), seq.SequenceHash)
				assert.Equal(t, domain.TradeSideSell, seq.Actions[0].Side)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateSequences_Deterministic(t *testing.T) {
	service := NewService(zerolog.Nop())

	first, err := service.GenerateSequences(serviceOpportunities(), serviceContext(), nil)
	require.NoError(t, err)
	second, err := service.GenerateSequences(serviceOpportunities(), serviceContext(), nil)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].SequenceHash, second[i].SequenceHash)
		assert.Equal(t, first[i].PatternType, second[i].PatternType)
	}
}

func TestGenerateSequences_DepthOne(t *testing.T) {
	service := NewService(zerolog.Nop())
	config := domain.NewDefaultConfiguration()
	config.MaxDepth = 1

	sequences, err := service.GenerateSequences(serviceOpportunities(), serviceContext(), config)
	require.NoError(t, err)
	require.NotEmpty(t, sequences)
	for _, seq := range sequences {
		assert.Len(t, seq.Actions, 1)
		assert.NotEqual(t, "partial_execution", seq.PatternType)
	}
}

func TestGenerateSequences_ConstraintRelaxation(t *testing.T) {
	service := NewService(zerolog.Nop())
	config := domain.NewDefaultConfiguration()
	config.EnableConstraintRelaxationGenerator = true

	sequences, err := service.GenerateSequences(serviceOpportunities(), serviceContext(), config)
	require.NoError(t, err)

	exploratory := 0
	for _, seq := range sequences {
		if !seq.Exploratory {
			continue
		}
		exploratory++
		assert.Equal(t, "constraint_relaxation", seq.PatternType)
	}
	assert.Positive(t, exploratory)
}

func TestGenerateSequencesWithDetailedProgress(t *testing.T) {
	service := NewService(zerolog.Nop())
	config := domain.NewDefaultConfiguration()

	var updates []progress.Update
	_, err := service.GenerateSequencesWithDetailedProgress(serviceOpportunities(), serviceContext(), config, func(u progress.Update) {
		updates = append(updates, u)
	})
	require.NoError(t, err)

	require.Len(t, updates, config.MaxDepth+2)
	assert.Equal(t, "depth_1", updates[0].SubPhase)
	assert.Equal(t, "filters", updates[config.MaxDepth].SubPhase)
	last := updates[len(updates)-1]
	assert.Equal(t, "variants", last.SubPhase)
	assert.Equal(t, last.Total, last.Current)
	for _, u := range updates {
		assert.Equal(t, progress.PhaseSequenceGeneration, u.Phase)
	}
}

func TestServiceRegistries(t *testing.T) {
	service := NewService(zerolog.Nop())
	assert.Len(t, service.Patterns().List(), 13)
	assert.Len(t, service.Generators().List(), 4)
	assert.Len(t, service.Filters().List(), 2)
}
