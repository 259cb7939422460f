package evaluation

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/stretchr/testify/assert"
)

func TestGetRiskProfileWeights_SumToOne(t *testing.T) {
	for _, profile := range []string{RiskProfileConservative, RiskProfileBalanced, RiskProfileAggressive, "unknown"} {
		t.Run(profile, func(t *testing.T) {
			w := GetRiskProfileWeights(profile)
			sum := w.TotalReturn + w.Diversification + w.LongTermPromise + w.Stability + w.Opinion
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
	assert.Equal(t, GetRiskProfileWeights(RiskProfileBalanced), GetRiskProfileWeights("unknown"))
}

func TestScoreTotalReturn(t *testing.T) {
	tests := []struct {
		name     string
		ret      float64
		expected float64
	}{
		{"negative return floors", -0.05, BellCurveFloor},
		{"zero return floors", 0, BellCurveFloor},
		{"at target peaks", TotalReturnTarget, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ScoreTotalReturn(tt.ret, TotalReturnTarget), 1e-9)
		})
	}

	// The right side of the curve is wider than the left
	below := ScoreTotalReturn(TotalReturnTarget-0.05, TotalReturnTarget)
	above := ScoreTotalReturn(TotalReturnTarget+0.05, TotalReturnTarget)
	assert.Greater(t, above, below)
}

func TestLongTermPromiseScore(t *testing.T) {
	assert.InDelta(t, 0.5, LongTermPromiseScore(nil), 1e-9)

	strong := map[string]float64{
		models.MetricConsistencyScore:    1.0,
		models.MetricFinancialStrength:   1.0,
		models.MetricDividendConsistency: 1.0,
		models.MetricSortino:             2.5,
	}
	assert.InDelta(t, 1.0, LongTermPromiseScore(strong), 1e-9)

	// Payout ratio in the healthy band stands in for dividend consistency
	payout := map[string]float64{models.MetricPayoutRatio: 0.45}
	expected := 0.5*promiseWeightConsistency + 0.5*promiseWeightFinancials +
		1.0*promiseWeightDividendStability + 0.5*promiseWeightSortino
	assert.InDelta(t, expected, LongTermPromiseScore(payout), 1e-9)
}

func TestStabilityScore(t *testing.T) {
	assert.InDelta(t, 0.5, StabilityScore(nil), 1e-9)

	calm := map[string]float64{
		models.MetricVolatilityAnnual: 0.10,
		models.MetricMaxDrawdown:      -0.05,
		models.MetricSharpe:           2.0,
	}
	assert.InDelta(t, 1.0, StabilityScore(calm), 1e-9)

	wild := map[string]float64{
		models.MetricVolatilityAnnual: 0.60,
		models.MetricMaxDrawdown:      -0.70,
		models.MetricSharpe:           -0.5,
	}
	assert.Less(t, StabilityScore(wild), 0.1)
}

func TestCalculatePortfolioEndStateScore(t *testing.T) {
	t.Run("empty portfolio is neutral", func(t *testing.T) {
		result := CalculatePortfolioEndStateScore(nil, 0, 0.7, nil, 0.5, "")
		assert.Equal(t, 0.5, result.Breakdown.Score)
		assert.Equal(t, RiskProfileBalanced, result.Breakdown.RiskProfile)
	})

	t.Run("value weighted components", func(t *testing.T) {
		positions := map[string]float64{"A": 600, "B": 400, "GONE": 0}
		metrics := models.MetricsCache{
			"A": {models.MetricCAGR5Y: 0.12},
			"B": {models.MetricCAGR5Y: -0.10},
		}

		result := CalculatePortfolioEndStateScore(positions, 1000, 0.8, metrics, 0.5, RiskProfileAggressive)
		b := result.Breakdown

		assert.InDelta(t, 0.6*1.0+0.4*BellCurveFloor, b.TotalReturn.Score, 1e-9)
		assert.InDelta(t, 0.8, b.Diversification.Score, 1e-9)
		assert.InDelta(t, 0.45, b.TotalReturn.Weight, 1e-9)
		assert.InDelta(t, 0.5, result.StabilityScore, 1e-9)

		total := b.TotalReturn.Weighted + b.Diversification.Weighted + b.LongTermPromise.Weighted +
			b.Stability.Weighted + b.Opinion.Weighted
		assert.InDelta(t, round3(total), b.Score, 1e-9)
	})

	t.Run("cash only weighs nothing", func(t *testing.T) {
		positions := map[string]float64{"A": 500}
		metrics := models.MetricsCache{"A": {models.MetricCAGR5Y: 0.12}}

		result := CalculatePortfolioEndStateScore(positions, 1000, 0.5, metrics, 0.5, RiskProfileBalanced)
		assert.InDelta(t, 0.5, result.Breakdown.TotalReturn.Score, 1e-9)
	})
}
