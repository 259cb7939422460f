package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// AdaptivePattern targets the largest underweight allocation groups. One
// sequence buys into underweight country groups, another into underweight
// industry groups.
type AdaptivePattern struct {
	*BasePattern
}

// NewAdaptivePattern creates a new adaptive pattern generator.
func NewAdaptivePattern(log zerolog.Logger) *AdaptivePattern {
	return &AdaptivePattern{BasePattern: NewBasePattern(log, "adaptive")}
}

// Name returns the pattern name.
func (p *AdaptivePattern) Name() string {
	return "adaptive"
}

// DefaultParams returns the gap thresholds and the number of gaps targeted.
func (p *AdaptivePattern) DefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"geography_gap_threshold": 0.02,
		"industry_gap_threshold":  0.01,
		"max_gaps":                3,
	}
}

// Generate creates up to two gap-driven buy sequences. It needs the
// opportunity context in params.
func (p *AdaptivePattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	ctx := GetContextParam(params)
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if ctx == nil || ctx.TotalPortfolioValueEUR <= 0 || depth < 1 {
		return nil, nil
	}

	cash := GetFloatParam(params, ParamAvailableCash, 0)
	maxGaps := GetIntParam(params, "max_gaps", 3)
	buys := concat(
		opportunities[domain.OpportunityCategoryRebalanceBuys],
		opportunities[domain.OpportunityCategoryOpportunityBuys],
	)
	if len(buys) == 0 {
		return nil, nil
	}

	var sequences []domain.ActionSequence

	geoGaps := underweight(ctx.CountryGroupGaps(), GetFloatParam(params, "geography_gap_threshold", 0.02), maxGaps)
	if len(geoGaps) > 0 {
		b := newSequenceBuilder(cash, depth)
		for _, gap := range geoGaps {
			for _, candidate := range buys {
				if b.full() {
					break
				}
				if sec, ok := ctx.Security(candidate.Symbol); ok && ctx.CountryGroup(sec.Country) == gap.Group {
					b.addBuy(candidate)
				}
			}
		}
		sequences = append(sequences, b.result(p.Name())...)
	}

	industryGaps := underweight(ctx.IndustryGroupGaps(), GetFloatParam(params, "industry_gap_threshold", 0.01), maxGaps)
	if len(industryGaps) > 0 {
		b := newSequenceBuilder(cash, depth)
		for _, gap := range industryGaps {
			for _, candidate := range buys {
				if b.full() {
					break
				}
				sec, ok := ctx.Security(candidate.Symbol)
				if ok && containsString(ctx.IndustryGroups(sec.Industry), gap.Group) {
					b.addBuy(candidate)
				}
			}
		}
		sequences = append(sequences, b.result(p.Name())...)
	}

	p.log.Debug().
		Int("geography_gaps", len(geoGaps)).
		Int("industry_gaps", len(industryGaps)).
		Int("sequences", len(sequences)).
		Msg("Adaptive sequences generated")

	return sequences, nil
}

// underweight keeps gaps above threshold, largest first, at most limit of them.
// Input gaps arrive sorted by magnitude.
func underweight(gaps []domain.GroupGap, threshold float64, limit int) []domain.GroupGap {
	var result []domain.GroupGap
	for _, gap := range gaps {
		if gap.Gap > threshold {
			result = append(result, gap)
		}
		if len(result) == limit {
			break
		}
	}
	return result
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
