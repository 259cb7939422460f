package generators

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/sequences/patterns"
)

// CombinatorialGenerator enumerates sells×buys combinations exhaustively,
// sells first, until the per-depth combination cap is reached.
type CombinatorialGenerator struct {
	*BaseGenerator
}

// NewCombinatorialGenerator creates a new exhaustive combination generator.
func NewCombinatorialGenerator(log zerolog.Logger) *CombinatorialGenerator {
	return &CombinatorialGenerator{BaseGenerator: NewBaseGenerator(log, "combinatorial")}
}

// Name returns the generator name.
func (g *CombinatorialGenerator) Name() string {
	return "combinatorial"
}

// Stage returns StageCombinatorial.
func (g *CombinatorialGenerator) Stage() Stage {
	return StageCombinatorial
}

// Generate returns sell combinations of size 1..maxSells, each extended by
// buy combinations of size 1..min(maxBuys, remaining depth).
func (g *CombinatorialGenerator) Generate(input Input, params map[string]interface{}) ([]domain.ActionSequence, error) {
	depth := input.Depth
	maxCombinations := GetIntParam(params, "max_combinations", 50)
	maxCandidates := GetIntParam(params, "max_candidates", 12)
	threshold := GetFloatParam(params, "priority_threshold", 0.3)
	maxSells, maxBuys := comboLimits(params, depth)

	sells := aboveThreshold(input.Sells(), threshold, maxCandidates)
	buys := aboveThreshold(input.Buys(), threshold, maxCandidates)

	var sequences []domain.ActionSequence

	for numSells := 1; numSells <= maxSells && numSells <= len(sells); numSells++ {
		forEachCombination(len(sells), numSells, func(sellIdx []int) bool {
			remaining := depth - numSells
			if remaining <= 0 {
				return len(sequences) < maxCombinations
			}
			buyCap := min(maxBuys, remaining, len(buys))
			for numBuys := 1; numBuys <= buyCap; numBuys++ {
				forEachCombination(len(buys), numBuys, func(buyIdx []int) bool {
					actions := make([]domain.ActionCandidate, 0, numSells+numBuys)
					for _, i := range sellIdx {
						actions = append(actions, sells[i])
					}
					for _, i := range buyIdx {
						actions = append(actions, buys[i])
					}
					sequences = append(sequences, patterns.CreateSequence(actions, g.Name()))
					return len(sequences) < maxCombinations
				})
				if len(sequences) >= maxCombinations {
					break
				}
			}
			return len(sequences) < maxCombinations
		})
		if len(sequences) >= maxCombinations {
			break
		}
	}

	g.log.Debug().
		Int("depth", depth).
		Int("sells", len(sells)).
		Int("buys", len(buys)).
		Int("sequences", len(sequences)).
		Msg("Combinations generated")

	return sequences, nil
}

// forEachCombination calls fn with each k-subset of [0, n) in lexicographic
// order until fn returns false.
func forEachCombination(n, k int, fn func(indices []int) bool) {
	if k <= 0 || k > n {
		return
	}

	indices := make([]int, k)
	for i := range indices {
		indices[i] = i
	}

	for {
		if !fn(indices) {
			return
		}

		// Find rightmost index that can be incremented
		i := k - 1
		for i >= 0 && indices[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}

		indices[i]++
		for j := i + 1; j < k; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}
