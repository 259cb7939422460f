package evaluation

import (
	"math"
	"sort"
	"strings"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// =============================================================================
// DIVERSIFICATION WEIGHTS
// =============================================================================

const (
	GeoWeight      = 0.40 // Country group allocation fit
	IndustryWeight = 0.30 // Industry group allocation fit
	QualityWeight  = 0.30 // Value-weighted quality and dividends

	// Deviation scoring scale
	DeviationScale = 0.3 // Average deviation that scores 0

	SecurityQualityWeight = 0.6
	DividendYieldWeight   = 0.4

	// Neutral score used whenever data is missing
	NeutralScore = 0.5
)

// Multi-timeframe horizon multipliers and weights
const (
	shortTermMultiplier = 0.95
	longTermMultiplier  = 1.05
	shortTermWeight     = 0.2
	mediumTermWeight    = 0.3
	longTermWeight      = 0.5
)

// =============================================================================
// TRANSACTION COST CALCULATION
// =============================================================================

// CalculateTransactionCost calculates total transaction cost for a sequence:
// fixed + |value| × percent per action.
func CalculateTransactionCost(
	sequence []models.ActionCandidate,
	transactionCostFixed float64,
	transactionCostPercent float64,
) float64 {
	totalCost := 0.0
	for _, action := range sequence {
		totalCost += transactionCostFixed + math.Abs(action.ValueEUR)*transactionCostPercent
	}
	return totalCost
}

// =============================================================================
// DIVERSIFICATION SCORE
// =============================================================================

// CalculateDiversificationScore scores how well a portfolio matches its
// country and industry targets, blended with its value-weighted quality.
// Returns 0.5 for an empty or valueless portfolio.
func CalculateDiversificationScore(ctx models.PortfolioContext) float64 {
	totalValue := ctx.TotalValue
	if totalValue <= 0 {
		return NeutralScore
	}

	geoScore := calculateGeoDiversification(ctx, totalValue)
	indScore := calculateIndustryDiversification(ctx, totalValue)
	qualityScore := calculateQualityScore(ctx, totalValue)

	return geoScore*GeoWeight + indScore*IndustryWeight + qualityScore*QualityWeight
}

// calculateGeoDiversification calculates geographic diversification score
func calculateGeoDiversification(ctx models.PortfolioContext, totalValue float64) float64 {
	if ctx.SecurityCountries == nil || len(ctx.CountryWeights) == 0 {
		return NeutralScore
	}

	groupValues := make(map[string]float64)
	for _, symbol := range sortedKeys(ctx.Positions) {
		country, ok := ctx.SecurityCountries[symbol]
		if !ok {
			country = "OTHER"
		}
		groupValues[lookupGroup(ctx.CountryToGroup, country)] += ctx.Positions[symbol]
	}

	return deviationScore(ctx.CountryWeights, groupValues, totalValue)
}

// calculateIndustryDiversification calculates industry diversification score.
// A position listing several industries spreads its value evenly across them.
func calculateIndustryDiversification(ctx models.PortfolioContext, totalValue float64) float64 {
	if ctx.SecurityIndustries == nil || len(ctx.IndustryWeights) == 0 {
		return NeutralScore
	}

	groupValues := make(map[string]float64)
	for _, symbol := range sortedKeys(ctx.Positions) {
		value := ctx.Positions[symbol]
		industries := SplitIndustries(ctx.SecurityIndustries[symbol])
		if len(industries) == 0 {
			groupValues["OTHER"] += value
			continue
		}
		share := value / float64(len(industries))
		for _, industry := range industries {
			groupValues[lookupGroup(ctx.IndustryToGroup, industry)] += share
		}
	}

	return deviationScore(ctx.IndustryWeights, groupValues, totalValue)
}

// calculateQualityScore blends value-weighted security quality with
// value-weighted dividend yield (10% yield or more scores 1.0).
func calculateQualityScore(ctx models.PortfolioContext, totalValue float64) float64 {
	if len(ctx.SecurityScores) == 0 && len(ctx.SecurityDividends) == 0 {
		return NeutralScore
	}

	weightedQuality := 0.0
	weightedDividend := 0.0
	for _, symbol := range sortedKeys(ctx.Positions) {
		weight := ctx.Positions[symbol] / totalValue
		quality, ok := ctx.SecurityScores[symbol]
		if !ok {
			quality = NeutralScore
		}
		weightedQuality += quality * weight
		weightedDividend += ctx.SecurityDividends[symbol] * weight
	}

	dividendScore := math.Min(1.0, weightedDividend*10)
	return weightedQuality*SecurityQualityWeight + dividendScore*DividendYieldWeight
}

func deviationScore(targets map[string]float64, groupValues map[string]float64, totalValue float64) float64 {
	if len(targets) == 0 {
		return NeutralScore
	}

	deviationSum := 0.0
	for _, group := range sortedKeys(targets) {
		currentPct := groupValues[group] / totalValue
		deviationSum += math.Abs(currentPct - targets[group])
	}

	avgDeviation := deviationSum / float64(len(targets))
	return math.Max(0, 1.0-avgDeviation/DeviationScale)
}

func lookupGroup(mapping map[string]string, key string) string {
	if group, ok := mapping[key]; ok {
		return group
	}
	return "OTHER"
}

// SplitIndustries splits a comma separated industry list, dropping blanks.
func SplitIndustries(industry string) []string {
	if industry == "" {
		return nil
	}
	parts := strings.Split(industry, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// =============================================================================
// MAIN SEQUENCE EVALUATION
// =============================================================================

// scoredState is the outcome of scoring one simulated end state
type scoredState struct {
	score           float64
	diversification float64
	risk            float64
	breakdown       models.ScoreBreakdown
}

// scoreEndState scores a simulated end state: diversification, end-state
// blend, optional multi-timeframe weighting, then the cost penalty.
func scoreEndState(
	endPortfolio models.PortfolioContext,
	sequence []models.ActionCandidate,
	context models.EvaluationContext,
) scoredState {
	divScore := CalculateDiversificationScore(endPortfolio)
	endState := CalculatePortfolioEndStateScore(
		endPortfolio.Positions,
		endPortfolio.TotalValue,
		divScore,
		context.Metrics,
		NeutralScore,
		context.Scoring.RiskProfile,
	)

	score := endState.Breakdown.Score
	breakdown := models.ScoreBreakdown{
		EndState:        endState.Breakdown,
		Diversification: divScore,
		PriceScenario:   "base",
	}

	if context.Scoring.EnableMultiTimeframe {
		short := score * shortTermMultiplier
		long := score * longTermMultiplier
		weighted := short*shortTermWeight + score*mediumTermWeight + long*longTermWeight
		breakdown.MultiTimeframe = &models.MultiTimeframeBreakdown{
			Short:    short,
			Medium:   score,
			Long:     long,
			Weighted: weighted,
		}
		score = weighted
	}

	cost := CalculateTransactionCost(sequence, context.TransactionCostFixed, context.TransactionCostPercent)
	factor := clamp(context.CostPenaltyFactor, 0, 1)
	breakdown.TransactionCost = models.CostBreakdown{Cost: cost, PenaltyFactor: factor}
	if factor > 0 && endPortfolio.TotalValue > 0 {
		penalty := cost / endPortfolio.TotalValue * factor
		breakdown.TransactionCost.Penalty = penalty
		score = math.Max(0, score-penalty)
	}

	return scoredState{
		score:           score,
		diversification: divScore,
		risk:            endState.StabilityScore,
		breakdown:       breakdown,
	}
}

// EvaluateSequence evaluates a complete sequence: simulate + score.
//
// The scoring mode comes from context.Scoring.Mode. Sequences whose BUYs cannot
// all be afforded are still simulated (unaffordable BUYs are skipped) and
// scored, but are reported with Feasible=false.
func EvaluateSequence(
	sequence []models.ActionCandidate,
	context models.EvaluationContext,
) models.SequenceEvaluationResult {
	feasible := CheckSequenceFeasibility(sequence, context.AvailableCashEUR, context.PriceAdjustments)
	endPortfolio, endCash := SimulateSequenceWithContext(sequence, context)
	txCosts := CalculateTransactionCost(sequence, context.TransactionCostFixed, context.TransactionCostPercent)

	var scored scoredState
	switch context.Scoring.Mode {
	case models.ModeStochastic:
		scored = evaluateStochastic(sequence, context)
	case models.ModeMonteCarlo:
		scored = evaluateMonteCarlo(sequence, context)
	default:
		scored = scoreEndState(endPortfolio, sequence, context)
	}

	return models.SequenceEvaluationResult{
		Sequence:             sequence,
		Score:                scored.score,
		DiversificationScore: scored.diversification,
		RiskScore:            scored.risk,
		Breakdown:            scored.breakdown,
		EndCashEUR:           endCash,
		EndPortfolio:         endPortfolio,
		TransactionCosts:     txCosts,
		Feasible:             feasible,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
