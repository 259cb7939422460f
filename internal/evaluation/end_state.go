package evaluation

import (
	"math"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// Bell curve parameters for total return scoring
const (
	BellCurveSigmaLeft  = 0.06
	BellCurveSigmaRight = 0.10
	BellCurveFloor      = 0.15

	TotalReturnTarget = 0.12
)

// Long-term promise sub-weights
const (
	promiseWeightConsistency       = 0.35
	promiseWeightFinancials        = 0.25
	promiseWeightDividendStability = 0.25
	promiseWeightSortino           = 0.15
)

// Stability sub-weights
const (
	stabilityWeightVolatility = 0.50
	stabilityWeightDrawdown   = 0.30
	stabilityWeightSharpe     = 0.20
)

// Risk profile names
const (
	RiskProfileConservative = "conservative"
	RiskProfileBalanced     = "balanced"
	RiskProfileAggressive   = "aggressive"
)

// EndStateWeights represents risk-adjusted weights for end-state scoring
type EndStateWeights struct {
	TotalReturn     float64
	Diversification float64
	LongTermPromise float64
	Stability       float64
	Opinion         float64
}

// GetRiskProfileWeights returns scoring weights adjusted for risk profile.
// Unknown profiles get the balanced weights. All profiles sum to 1.0.
func GetRiskProfileWeights(riskProfile string) EndStateWeights {
	switch riskProfile {
	case RiskProfileConservative:
		return EndStateWeights{TotalReturn: 0.25, Diversification: 0.30, LongTermPromise: 0.20, Stability: 0.20, Opinion: 0.05}
	case RiskProfileAggressive:
		return EndStateWeights{TotalReturn: 0.45, Diversification: 0.20, LongTermPromise: 0.25, Stability: 0.05, Opinion: 0.05}
	default:
		return EndStateWeights{TotalReturn: 0.35, Diversification: 0.25, LongTermPromise: 0.20, Stability: 0.15, Opinion: 0.05}
	}
}

// NormalizeRiskProfile maps anything unknown to the balanced profile
func NormalizeRiskProfile(riskProfile string) string {
	switch riskProfile {
	case RiskProfileConservative, RiskProfileAggressive:
		return riskProfile
	default:
		return RiskProfileBalanced
	}
}

// ScoreTotalReturn scores a total return on an asymmetric bell curve peaking
// at target. Non-positive returns get the floor.
//
// Returns:
//
//	Score from 0.15 to 1.0
func ScoreTotalReturn(totalReturn, target float64) float64 {
	if totalReturn <= 0 {
		return BellCurveFloor
	}

	sigma := BellCurveSigmaLeft
	if totalReturn >= target {
		sigma = BellCurveSigmaRight * 1.2
	}

	raw := math.Exp(-math.Pow(totalReturn-target, 2) / (2 * sigma * sigma))
	return BellCurveFloor + raw*(1-BellCurveFloor)
}

// TotalReturnScore scores CAGR_5Y + DIVIDEND_YIELD for one security
func TotalReturnScore(metrics map[string]float64) float64 {
	return ScoreTotalReturn(metrics[models.MetricCAGR5Y]+metrics[models.MetricDividendYield], TotalReturnTarget)
}

// LongTermPromiseScore combines consistency, financial strength, dividend
// consistency (derived from payout ratio when missing) and Sortino.
func LongTermPromiseScore(metrics map[string]float64) float64 {
	consistency := metricOr(metrics, models.MetricConsistencyScore, NeutralScore)
	financial := metricOr(metrics, models.MetricFinancialStrength, NeutralScore)

	dividendConsistency, ok := metrics[models.MetricDividendConsistency]
	if !ok {
		dividendConsistency = NeutralScore
		if payout, hasPayout := metrics[models.MetricPayoutRatio]; hasPayout {
			dividendConsistency = dividendConsistencyFromPayout(payout)
		}
	}

	sortinoScore := NeutralScore
	if sortino, has := metrics[models.MetricSortino]; has {
		sortinoScore = sortinoToScore(sortino)
	}

	total := consistency*promiseWeightConsistency +
		financial*promiseWeightFinancials +
		dividendConsistency*promiseWeightDividendStability +
		sortinoScore*promiseWeightSortino

	return math.Min(1.0, total)
}

// StabilityScore combines inverse volatility, drawdown and Sharpe.
func StabilityScore(metrics map[string]float64) float64 {
	volatilityScore := NeutralScore
	if vol, has := metrics[models.MetricVolatilityAnnual]; has && vol > 0 {
		volatilityScore = volatilityToScore(vol)
	}

	drawdownScore := NeutralScore
	if dd, has := metrics[models.MetricMaxDrawdown]; has {
		drawdownScore = drawdownToScore(dd)
	}

	sharpeScore := NeutralScore
	if sharpe, has := metrics[models.MetricSharpe]; has {
		sharpeScore = sharpeToScore(sharpe)
	}

	total := volatilityScore*stabilityWeightVolatility +
		drawdownScore*stabilityWeightDrawdown +
		sharpeScore*stabilityWeightSharpe

	return math.Min(1.0, total)
}

func dividendConsistencyFromPayout(payout float64) float64 {
	switch {
	case payout >= 0.3 && payout <= 0.6:
		return 1.0
	case payout < 0.3:
		return 0.5 + (payout/0.3)*0.5
	case payout <= 0.8:
		return 1.0 - ((payout-0.6)/0.2)*0.3
	default:
		return 0.4
	}
}

func sortinoToScore(sortino float64) float64 {
	switch {
	case sortino >= 2.0:
		return 1.0
	case sortino >= 1.5:
		return 0.8 + (sortino-1.5)*0.4
	case sortino >= 1.0:
		return 0.6 + (sortino-1.0)*0.4
	case sortino >= 0:
		return sortino * 0.6
	default:
		return 0.0
	}
}

func volatilityToScore(volatility float64) float64 {
	switch {
	case volatility <= 0.15:
		return 1.0
	case volatility <= 0.25:
		return 1.0 - ((volatility-0.15)/0.10)*0.3
	case volatility <= 0.40:
		return 0.7 - ((volatility-0.25)/0.15)*0.4
	default:
		return math.Max(0.1, 0.3-(volatility-0.40))
	}
}

func drawdownToScore(maxDrawdown float64) float64 {
	dd := math.Abs(maxDrawdown)
	switch {
	case dd <= 0.10:
		return 1.0
	case dd <= 0.20:
		return 0.8 + (0.20-dd)*2
	case dd <= 0.30:
		return 0.6 + (0.30-dd)*2
	case dd <= 0.50:
		return 0.2 + (0.50-dd)*2
	default:
		return math.Max(0.0, 0.2-(dd-0.50))
	}
}

func sharpeToScore(sharpe float64) float64 {
	switch {
	case sharpe >= 2.0:
		return 1.0
	case sharpe >= 1.0:
		return 0.7 + (sharpe-1.0)*0.3
	case sharpe >= 0.5:
		return 0.4 + (sharpe-0.5)*0.6
	case sharpe >= 0:
		return sharpe * 0.8
	default:
		return 0.0
	}
}

func metricOr(metrics map[string]float64, name string, fallback float64) float64 {
	if v, ok := metrics[name]; ok {
		return v
	}
	return fallback
}

// EndStateResult is the portfolio-level end-state score with its breakdown.
// StabilityScore is the value-weighted stability, reused as the risk objective.
type EndStateResult struct {
	Breakdown      models.EndStateBreakdown
	StabilityScore float64
}

// CalculatePortfolioEndStateScore calculates the end-state score for a whole portfolio.
//
// Per-position total return, long-term promise and stability scores are
// value-weighted by position / totalValue (cash contributes nothing) and
// blended with the diversification and opinion scores using the risk profile
// weights. An empty or valueless portfolio scores 0.5.
func CalculatePortfolioEndStateScore(
	positions map[string]float64,
	totalValue float64,
	diversificationScore float64,
	metricsCache models.MetricsCache,
	opinionScore float64,
	riskProfile string,
) EndStateResult {
	riskProfile = NormalizeRiskProfile(riskProfile)
	weights := GetRiskProfileWeights(riskProfile)

	if totalValue <= 0 || len(positions) == 0 {
		return EndStateResult{
			Breakdown:      models.EndStateBreakdown{RiskProfile: riskProfile, Score: NeutralScore},
			StabilityScore: NeutralScore,
		}
	}

	weightedTotalReturn := 0.0
	weightedPromise := 0.0
	weightedStability := 0.0

	for _, symbol := range sortedKeys(positions) {
		value := positions[symbol]
		if value <= 0 {
			continue
		}
		weight := value / totalValue

		metrics := metricsCache[symbol]
		weightedTotalReturn += TotalReturnScore(metrics) * weight
		weightedPromise += LongTermPromiseScore(metrics) * weight
		weightedStability += StabilityScore(metrics) * weight
	}

	component := func(score, weight float64) models.ComponentScore {
		return models.ComponentScore{Score: score, Weight: weight, Weighted: score * weight}
	}

	b := models.EndStateBreakdown{
		RiskProfile:     riskProfile,
		TotalReturn:     component(weightedTotalReturn, weights.TotalReturn),
		Diversification: component(diversificationScore, weights.Diversification),
		LongTermPromise: component(weightedPromise, weights.LongTermPromise),
		Stability:       component(weightedStability, weights.Stability),
		Opinion:         component(opinionScore, weights.Opinion),
	}
	total := b.TotalReturn.Weighted + b.Diversification.Weighted + b.LongTermPromise.Weighted +
		b.Stability.Weighted + b.Opinion.Weighted
	b.Score = round3(math.Min(1.0, total))

	return EndStateResult{Breakdown: b, StabilityScore: weightedStability}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
