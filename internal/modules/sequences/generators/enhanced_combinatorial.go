package generators

import (
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/holistic-planner/internal/evaluation"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/hash"
	"github.com/aristath/holistic-planner/internal/modules/sequences/patterns"
)

const (
	diversityLookback   = 10
	maxDiversityOverlap = 0.8
)

// EnhancedCombinatorialGenerator samples sell and buy combinations weighted
// towards high priority, rejecting samples too similar in country and
// industry mix to recently accepted ones.
//
// The random source is seeded from the portfolio fingerprint and depth, so
// a given portfolio always yields the same sequences.
type EnhancedCombinatorialGenerator struct {
	*BaseGenerator
}

// NewEnhancedCombinatorialGenerator creates a new weighted-sampling generator.
func NewEnhancedCombinatorialGenerator(log zerolog.Logger) *EnhancedCombinatorialGenerator {
	return &EnhancedCombinatorialGenerator{BaseGenerator: NewBaseGenerator(log, "enhanced_combinatorial")}
}

// Name returns the generator name.
func (g *EnhancedCombinatorialGenerator) Name() string {
	return "enhanced_combinatorial"
}

// Stage returns StageCombinatorial.
func (g *EnhancedCombinatorialGenerator) Stage() Stage {
	return StageCombinatorial
}

// Generate samples up to max_combinations sequences in at most three times
// as many attempts.
func (g *EnhancedCombinatorialGenerator) Generate(input Input, params map[string]interface{}) ([]domain.ActionSequence, error) {
	depth := input.Depth
	maxCombinations := GetIntParam(params, "max_combinations", 50)
	maxCandidates := GetIntParam(params, "max_candidates", 12)
	threshold := GetFloatParam(params, "priority_threshold", 0.3)
	maxSells, maxBuys := comboLimits(params, depth)

	sells := aboveThreshold(sortedByPriority(input.Sells()), threshold, maxCandidates)
	buys := aboveThreshold(sortedByPriority(input.Buys()), threshold, maxCandidates)
	if len(sells) == 0 && len(buys) == 0 {
		return nil, nil
	}

	sellWeights := PriorityWeights(sells)
	buyWeights := PriorityWeights(buys)

	//nolint:gosec // G404: sampling doesn't require crypto-grade randomness
	rng := rand.New(rand.NewSource(samplingSeed(input.Context, depth)))

	var sequences []domain.ActionSequence
	var accepted [][]domain.ActionCandidate
	maxAttempts := maxCombinations * 3

	for attempts := 0; len(sequences) < maxCombinations && attempts < maxAttempts; attempts++ {
		numSells := 0
		if n := min(maxSells, len(sells)); n > 0 {
			numSells = 1 + rng.Intn(n)
		}
		numBuys := 0
		if n := min(maxBuys, len(buys)); n > 0 {
			numBuys = 1 + rng.Intn(n)
		}
		if numSells+numBuys > depth || numSells+numBuys == 0 {
			continue
		}

		actions := uniqueBySymbol(sampleWeighted(rng, sells, sellWeights, numSells))
		actions = append(actions, uniqueBySymbol(sampleWeighted(rng, buys, buyWeights, numBuys))...)

		if !isDiverse(actions, accepted, input.Context) {
			continue
		}

		accepted = append(accepted, actions)
		sequences = append(sequences, patterns.CreateSequence(actions, g.Name()))
	}

	g.log.Debug().
		Int("depth", depth).
		Int("sells", len(sells)).
		Int("buys", len(buys)).
		Int("sequences", len(sequences)).
		Msg("Weighted combinations sampled")

	return sequences, nil
}

// PriorityWeights returns sampling weights ((p-min)/(max-min))² + 0.1,
// normalized to sum to 1. Equal priorities give uniform weights.
func PriorityWeights(candidates []domain.ActionCandidate) []float64 {
	if len(candidates) == 0 {
		return nil
	}

	priorities := make([]float64, len(candidates))
	for i, c := range candidates {
		priorities[i] = c.Priority
	}
	lo, hi := floats.Min(priorities), floats.Max(priorities)

	weights := make([]float64, len(candidates))
	for i, p := range priorities {
		if hi == lo {
			weights[i] = 1
			continue
		}
		norm := (p - lo) / (hi - lo)
		weights[i] = norm*norm + 0.1
	}
	floats.Scale(1/floats.Sum(weights), weights)
	return weights
}

// sampleWeighted draws k candidates with replacement
func sampleWeighted(rng *rand.Rand, candidates []domain.ActionCandidate, weights []float64, k int) []domain.ActionCandidate {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	cumulative := make([]float64, len(weights))
	floats.CumSum(cumulative, weights)
	total := cumulative[len(cumulative)-1]

	result := make([]domain.ActionCandidate, 0, k)
	for i := 0; i < k; i++ {
		r := rng.Float64() * total
		idx := len(cumulative) - 1
		for j, c := range cumulative {
			if r < c {
				idx = j
				break
			}
		}
		result = append(result, candidates[idx])
	}
	return result
}

// uniqueBySymbol drops repeated symbols, keeping the first occurrence
func uniqueBySymbol(candidates []domain.ActionCandidate) []domain.ActionCandidate {
	seen := make(map[string]bool, len(candidates))
	result := make([]domain.ActionCandidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.Symbol] {
			continue
		}
		seen[c.Symbol] = true
		result = append(result, c)
	}
	return result
}

// isDiverse rejects a sample whose country and industry sets both overlap
// more than 80% (Jaccard) with one of the last accepted samples.
func isDiverse(actions []domain.ActionCandidate, accepted [][]domain.ActionCandidate, ctx *domain.OpportunityContext) bool {
	if ctx == nil || len(accepted) == 0 {
		return true
	}

	countries, industries := exposure(actions, ctx)

	start := len(accepted) - diversityLookback
	if start < 0 {
		start = 0
	}
	for _, existing := range accepted[start:] {
		existingCountries, existingIndustries := exposure(existing, ctx)
		if jaccard(countries, existingCountries) > maxDiversityOverlap &&
			jaccard(industries, existingIndustries) > maxDiversityOverlap {
			return false
		}
	}
	return true
}

// exposure collects the countries and industries touched by actions
func exposure(actions []domain.ActionCandidate, ctx *domain.OpportunityContext) (map[string]bool, map[string]bool) {
	countries := make(map[string]bool)
	industries := make(map[string]bool)
	for _, a := range actions {
		sec, ok := ctx.Security(a.Symbol)
		if !ok {
			continue
		}
		if sec.Country != "" {
			countries[sec.Country] = true
		}
		for _, ind := range evaluation.SplitIndustries(sec.Industry) {
			industries[ind] = true
		}
	}
	return countries, industries
}

// jaccard returns |a∩b| / max(|a∪b|, 1)
func jaccard(a, b map[string]bool) float64 {
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union < 1 {
		union = 1
	}
	return float64(intersection) / float64(union)
}

// samplingSeed derives a reproducible seed from the portfolio fingerprint and depth
func samplingSeed(ctx *domain.OpportunityContext, depth int) int64 {
	h := fnv.New64a()
	if ctx != nil {
		_, _ = h.Write([]byte(hash.PortfolioHashForContext(ctx)))
	}
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.Itoa(depth)))
	return int64(h.Sum64())
}

func sortedByPriority(candidates []domain.ActionCandidate) []domain.ActionCandidate {
	result := append([]domain.ActionCandidate(nil), candidates...)
	sortStableByPriority(result)
	return result
}
