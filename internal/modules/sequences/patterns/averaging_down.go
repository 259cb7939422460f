package patterns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// AveragingDownPattern focuses on averaging down. When cash cannot cover the
// top averaging-down buy, the top profit-taking sell funds it.
type AveragingDownPattern struct {
	*BasePattern
}

// NewAveragingDownPattern creates a new averaging down pattern generator.
func NewAveragingDownPattern(log zerolog.Logger) *AveragingDownPattern {
	return &AveragingDownPattern{
		BasePattern: NewBasePattern(log, "averaging_down"),
	}
}

// Name returns the pattern name.
func (p *AveragingDownPattern) Name() string {
	return "averaging_down"
}

// Generate creates an averaging-down sequence.
func (p *AveragingDownPattern) Generate(
	opportunities domain.OpportunitiesByCategory,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	averaging := opportunities[domain.OpportunityCategoryAveragingDown]
	depth := GetIntParam(params, ParamMaxDepth, 5)
	if len(averaging) == 0 || depth < 1 {
		return nil, nil
	}

	b := newSequenceBuilder(GetFloatParam(params, ParamAvailableCash, 0), depth)

	profitTaking := opportunities[domain.OpportunityCategoryProfitTaking]
	if b.cash < averaging[0].ValueEUR && len(profitTaking) > 0 {
		b.addSell(profitTaking[0])
	}
	for _, candidate := range averaging {
		b.addBuy(candidate)
	}

	return b.result(p.Name()), nil
}
