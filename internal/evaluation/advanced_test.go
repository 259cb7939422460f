package evaluation

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advancedSequence() []models.ActionCandidate {
	return []models.ActionCandidate{
		{Side: models.TradeSideSell, Symbol: "AAPL", Quantity: 1, Price: 200, ValueEUR: 200},
		{Side: models.TradeSideBuy, Symbol: "SAP", Quantity: 4, Price: 150, ValueEUR: 600},
	}
}

func TestEvaluateSequence_Stochastic(t *testing.T) {
	ctx := evaluationContext()
	ctx.Scoring.Mode = models.ModeStochastic

	result := EvaluateSequence(advancedSequence(), ctx)

	require.NotNil(t, result.Breakdown.Stochastic)
	st := result.Breakdown.Stochastic
	assert.Equal(t, DefaultStochasticShifts, st.Shifts)
	assert.Len(t, st.Scores, len(DefaultStochasticShifts))
	assert.LessOrEqual(t, st.Worst, st.Average)
	assert.InDelta(t, st.Worst*0.6+st.Average*0.4, result.Score, 1e-12)
	assert.Equal(t, st.Final, result.Score)
	assert.Equal(t, "stochastic", result.Breakdown.PriceScenario)

	// The breakdown is the unshifted scenario
	ctx.Scoring.Mode = models.ModeStandard
	base := EvaluateSequence(advancedSequence(), ctx)
	assert.Equal(t, base.Breakdown.EndState, result.Breakdown.EndState)
}

func TestEvaluateSequence_StochasticCustomWeights(t *testing.T) {
	ctx := evaluationContext()
	ctx.Scoring.Mode = models.ModeStochastic
	ctx.Scoring.StochasticShifts = []float64{-0.2, 0}
	ctx.Scoring.StochasticWorstWeight = 1.0
	ctx.Scoring.StochasticAverageWeight = 0

	result := EvaluateSequence(advancedSequence(), ctx)

	require.NotNil(t, result.Breakdown.Stochastic)
	assert.InDelta(t, result.Breakdown.Stochastic.Worst, result.Score, 1e-12)
}

func TestEvaluateSequence_MonteCarloReproducible(t *testing.T) {
	ctx := evaluationContext()
	ctx.Scoring.Mode = models.ModeMonteCarlo
	ctx.Scoring.MonteCarloPaths = 50

	first := EvaluateSequence(advancedSequence(), ctx)
	second := EvaluateSequence(advancedSequence(), ctx)

	require.NotNil(t, first.Breakdown.MonteCarlo)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Breakdown, second.Breakdown)

	mc := first.Breakdown.MonteCarlo
	assert.Equal(t, 50, mc.PathsEvaluated)
	assert.LessOrEqual(t, mc.WorstScore, mc.P10Score)
	assert.LessOrEqual(t, mc.P10Score, mc.P90Score)
	assert.LessOrEqual(t, mc.P90Score, mc.BestScore)
	assert.InDelta(t, mc.WorstScore*0.4+mc.P10Score*0.3+mc.AvgScore*0.3, first.Score, 1e-12)
	assert.Equal(t, "monte_carlo", first.Breakdown.PriceScenario)
}

func TestEvaluateSequence_MonteCarloPathBounds(t *testing.T) {
	tests := []struct {
		requested int
		expected  int
	}{
		{0, DefaultMonteCarloPaths},
		{3, MinMonteCarloPaths},
		{5000, MaxMonteCarloPaths},
	}

	for _, tt := range tests {
		ctx := evaluationContext()
		ctx.Scoring.Mode = models.ModeMonteCarlo
		ctx.Scoring.MonteCarloPaths = tt.requested

		result := EvaluateSequence(advancedSequence(), ctx)
		require.NotNil(t, result.Breakdown.MonteCarlo)
		assert.Equal(t, tt.expected, result.Breakdown.MonteCarlo.PathsEvaluated)
	}
}

func TestSymbolVolatilities(t *testing.T) {
	metrics := models.MetricsCache{
		"LOW":  {models.MetricVolatilityAnnual: 0.01},
		"HIGH": {models.MetricVolatilityAnnual: 3.0},
		"MID":  {models.MetricVolatilityAnnual: 0.3},
	}

	vols := symbolVolatilities([]string{"LOW", "HIGH", "MID", "NONE"}, metrics)

	assert.InDelta(t, 0.1, vols["LOW"], 1e-12)
	assert.InDelta(t, 1.0, vols["HIGH"], 1e-12)
	assert.InDelta(t, 0.3, vols["MID"], 1e-12)
	assert.InDelta(t, defaultAnnualVolatility, vols["NONE"], 1e-12)
}

func TestSequenceSeed(t *testing.T) {
	a := advancedSequence()
	b := advancedSequence()
	assert.Equal(t, sequenceSeed(a), sequenceSeed(b))

	b[1].Quantity = 5
	assert.NotEqual(t, sequenceSeed(a), sequenceSeed(b))
}
