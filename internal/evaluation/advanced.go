package evaluation

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// Defaults for the stochastic and Monte Carlo evaluation modes
var DefaultStochasticShifts = []float64{-0.10, -0.05, 0.0, 0.05, 0.10}

const (
	DefaultStochasticWorstWeight   = 0.6
	DefaultStochasticAverageWeight = 0.4

	DefaultMonteCarloPaths         = 100
	MinMonteCarloPaths             = 10
	MaxMonteCarloPaths             = 500
	DefaultMonteCarloWorstWeight   = 0.4
	DefaultMonteCarloP10Weight     = 0.3
	DefaultMonteCarloAverageWeight = 0.3

	defaultAnnualVolatility = 0.2
	tradingDaysPerYear      = 252
)

// sequenceSymbols returns the distinct symbols of a sequence, sorted
func sequenceSymbols(sequence []models.ActionCandidate) []string {
	set := make(map[string]struct{}, len(sequence))
	for _, action := range sequence {
		set[action.Symbol] = struct{}{}
	}
	return sortedKeys(set)
}

// evaluateStochastic scores the sequence under fixed uniform price shifts.
// The final score blends the worst scenario with the scenario average; the
// breakdown is taken from the unshifted scenario.
func evaluateStochastic(
	sequence []models.ActionCandidate,
	context models.EvaluationContext,
) scoredState {
	opts := context.Scoring
	shifts := opts.StochasticShifts
	if len(shifts) == 0 {
		shifts = DefaultStochasticShifts
	}
	worstWeight, avgWeight := opts.StochasticWorstWeight, opts.StochasticAverageWeight
	if worstWeight <= 0 && avgWeight <= 0 {
		worstWeight, avgWeight = DefaultStochasticWorstWeight, DefaultStochasticAverageWeight
	}

	symbols := sequenceSymbols(sequence)
	securities := SecuritiesLookup(context)

	scores := make([]float64, len(shifts))
	var base *scoredState
	baseDistance := math.Inf(1)

	for i, shift := range shifts {
		priceAdj := make(map[string]float64, len(symbols))
		for _, symbol := range symbols {
			priceAdj[symbol] = 1.0 + shift
		}

		endPortfolio, _ := SimulateSequence(sequence, context.PortfolioContext, context.AvailableCashEUR, securities, priceAdj)
		scenario := scoreEndState(endPortfolio, sequence, context)
		scores[i] = scenario.score

		if d := math.Abs(shift); d < baseDistance {
			baseDistance = d
			s := scenario
			base = &s
		}
	}

	worst := floats.Min(scores)
	avg := stat.Mean(scores, nil)
	final := worst*worstWeight + avg*avgWeight

	result := *base
	result.score = final
	result.breakdown.PriceScenario = "stochastic"
	result.breakdown.Stochastic = &models.StochasticBreakdown{
		Shifts:  append([]float64(nil), shifts...),
		Scores:  scores,
		Worst:   worst,
		Average: avg,
		Final:   final,
	}
	return result
}

// evaluateMonteCarlo scores the sequence across random geometric Brownian
// price paths. The RNG is seeded from the sequence so results are
// reproducible. The breakdown comes from the median-scoring path.
func evaluateMonteCarlo(
	sequence []models.ActionCandidate,
	context models.EvaluationContext,
) scoredState {
	opts := context.Scoring
	paths := opts.MonteCarloPaths
	if paths <= 0 {
		paths = DefaultMonteCarloPaths
	}
	if paths < MinMonteCarloPaths {
		paths = MinMonteCarloPaths
	}
	if paths > MaxMonteCarloPaths {
		paths = MaxMonteCarloPaths
	}

	worstW, p10W, avgW := opts.MonteCarloWorstWeight, opts.MonteCarloP10Weight, opts.MonteCarloAverageWeight
	if worstW <= 0 && p10W <= 0 && avgW <= 0 {
		worstW, p10W, avgW = DefaultMonteCarloWorstWeight, DefaultMonteCarloP10Weight, DefaultMonteCarloAverageWeight
	}

	symbols := sequenceSymbols(sequence)
	securities := SecuritiesLookup(context)
	volatilities := symbolVolatilities(symbols, context.Metrics)

	//nolint:gosec // G404: Monte Carlo simulation doesn't require crypto-grade randomness
	rng := rand.New(rand.NewSource(sequenceSeed(sequence)))

	states := make([]scoredState, paths)
	for i := 0; i < paths; i++ {
		priceAdj := generateRandomPrices(rng, symbols, volatilities)
		endPortfolio, _ := SimulateSequence(sequence, context.PortfolioContext, context.AvailableCashEUR, securities, priceAdj)
		states[i] = scoreEndState(endPortfolio, sequence, context)
	}

	sort.SliceStable(states, func(a, b int) bool { return states[a].score < states[b].score })
	pathScores := make([]float64, paths)
	for i, s := range states {
		pathScores[i] = s.score
	}

	avgScore := stat.Mean(pathScores, nil)
	worstScore := floats.Min(pathScores)
	bestScore := floats.Max(pathScores)
	p10Score := stat.Quantile(0.10, stat.Empirical, pathScores, nil)
	p90Score := stat.Quantile(0.90, stat.Empirical, pathScores, nil)
	finalScore := worstScore*worstW + p10Score*p10W + avgScore*avgW

	result := states[paths/2]
	result.score = finalScore
	result.breakdown.PriceScenario = "monte_carlo"
	result.breakdown.MonteCarlo = &models.MonteCarloResult{
		PathsEvaluated: paths,
		AvgScore:       avgScore,
		WorstScore:     worstScore,
		BestScore:      bestScore,
		P10Score:       p10Score,
		P90Score:       p90Score,
		FinalScore:     finalScore,
	}
	return result
}

// symbolVolatilities reads VOLATILITY_ANNUAL per symbol, clamped to [0.1, 1.0],
// defaulting to 20% when unknown.
func symbolVolatilities(symbols []string, metrics models.MetricsCache) map[string]float64 {
	vols := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		vol := defaultAnnualVolatility
		if v, ok := metrics.Get(symbol, models.MetricVolatilityAnnual); ok && v > 0 {
			vol = clamp(v, 0.1, 1.0)
		}
		vols[symbol] = vol
	}
	return vols
}

// generateRandomPrices generates price multipliers exp(daily_vol × Z), clamped to [0.5, 2.0]
func generateRandomPrices(rng *rand.Rand, symbols []string, volatilities map[string]float64) map[string]float64 {
	adjustments := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		dailyVol := volatilities[symbol] / math.Sqrt(tradingDaysPerYear)
		multiplier := math.Exp(dailyVol * rng.NormFloat64())
		adjustments[symbol] = clamp(multiplier, 0.5, 2.0)
	}
	return adjustments
}

func sequenceSeed(sequence []models.ActionCandidate) int64 {
	h := fnv.New64a()
	for _, action := range sequence {
		_, _ = h.Write([]byte(action.Side))
		_, _ = h.Write([]byte(action.Symbol))
		_, _ = h.Write([]byte(strconv.Itoa(action.Quantity)))
		_, _ = h.Write([]byte{0})
	}
	return int64(h.Sum64())
}
