package generators

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/sequences/patterns"
)

// DefaultRelaxationFactors are the cash budgets tried, as multiples of available cash
var DefaultRelaxationFactors = []float64{1.1, 1.2, 1.3}

// DefaultAmplification scales buys into held positions in relaxed variants
const DefaultAmplification = 1.5

// ConstraintRelaxationGenerator produces exploratory variants that bend the
// cash and position-size constraints, so the planner can see what a slightly
// larger budget would buy. Its sequences are never executable.
type ConstraintRelaxationGenerator struct {
	*BaseGenerator
}

// NewConstraintRelaxationGenerator creates a new constraint relaxation generator.
func NewConstraintRelaxationGenerator(log zerolog.Logger) *ConstraintRelaxationGenerator {
	return &ConstraintRelaxationGenerator{BaseGenerator: NewBaseGenerator(log, "constraint_relaxation")}
}

// Name returns the generator name.
func (g *ConstraintRelaxationGenerator) Name() string {
	return "constraint_relaxation"
}

// Stage returns StageVariant.
func (g *ConstraintRelaxationGenerator) Stage() Stage {
	return StageVariant
}

// Generate emits, per non-exploratory sequence:
//   - a same-action copy when its buys overrun available cash but fit the
//     smallest relaxed budget no larger than max_cash_factor;
//   - one copy per buy into a held position, with that buy's quantity and
//     value amplified and its reason suffixed "(relaxed)".
//
// Every emitted sequence is Exploratory.
func (g *ConstraintRelaxationGenerator) Generate(input Input, params map[string]interface{}) ([]domain.ActionSequence, error) {
	if input.Context == nil {
		return nil, nil
	}
	cash := input.Context.AvailableCashEUR
	maxFactor := GetFloatParam(params, "max_cash_factor", DefaultRelaxationFactors[len(DefaultRelaxationFactors)-1])
	amplification := GetFloatParam(params, "amplification", DefaultAmplification)

	var result []domain.ActionSequence
	for _, seq := range input.Sequences {
		if seq.Exploratory {
			continue
		}

		if factor, ok := relaxedBudget(seq, cash, maxFactor); ok {
			g.log.Debug().
				Str("sequence_hash", seq.SequenceHash).
				Float64("factor", factor).
				Msg("Sequence fits relaxed budget")
			result = append(result, exploratory(seq.Actions, g.Name()))
		}

		for i, action := range seq.Actions {
			if action.Side != domain.TradeSideBuy {
				continue
			}
			if _, held := input.Context.Position(action.Symbol); !held {
				continue
			}
			amplified := int(float64(action.Quantity) * amplification)
			if amplified <= action.Quantity {
				continue
			}

			actions := make([]domain.ActionCandidate, len(seq.Actions))
			copy(actions, seq.Actions)
			relaxed := action
			relaxed.Quantity = amplified
			relaxed.ValueEUR = action.ValueEUR * amplification
			relaxed.Reason = action.Reason + " (relaxed)"
			relaxed.Tags = withTag(action.Tags, domain.TagRelaxed)
			actions[i] = relaxed

			result = append(result, exploratory(actions, g.Name()))
		}
	}

	if len(result) > 0 {
		g.log.Info().
			Int("relaxed", len(result)).
			Int("sources", len(input.Sequences)).
			Msg("Generated constraint relaxation scenarios")
	}

	return result, nil
}

// relaxedBudget returns the smallest relaxation factor whose budget covers
// the sequence's running cash need, when plain cash does not.
func relaxedBudget(seq domain.ActionSequence, cash, maxFactor float64) (float64, bool) {
	need := peakCashNeed(seq.Actions, cash)
	if need <= cash {
		return 0, false
	}
	for _, factor := range DefaultRelaxationFactors {
		if factor > maxFactor {
			break
		}
		if need <= cash*factor {
			return factor, true
		}
	}
	return 0, false
}

// peakCashNeed returns the starting cash the sequence needs so no buy overruns
func peakCashNeed(actions []domain.ActionCandidate, cash float64) float64 {
	running, lowest := cash, cash
	for _, a := range actions {
		if a.Side == domain.TradeSideSell {
			running += a.ValueEUR
		} else {
			running -= a.ValueEUR
		}
		if running < lowest {
			lowest = running
		}
	}
	return cash - lowest
}

func exploratory(actions []domain.ActionCandidate, patternType string) domain.ActionSequence {
	seq := patterns.CreateSequence(actions, patternType)
	seq.Exploratory = true
	return seq
}
