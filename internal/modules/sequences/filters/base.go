// Package filters removes redundant or undesirable sequences before evaluation.
package filters

import (
	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// ParamContext carries the *domain.OpportunityContext for filters that need market data
const ParamContext = "context"

// SequenceFilter drops sequences from a generated set.
type SequenceFilter interface {
	Name() string
	Filter(sequences []domain.ActionSequence, params map[string]interface{}) ([]domain.ActionSequence, error)
}

// BaseFilter provides common functionality for filters.
type BaseFilter struct {
	log zerolog.Logger
}

// NewBaseFilter creates a new base filter.
func NewBaseFilter(log zerolog.Logger, name string) *BaseFilter {
	return &BaseFilter{log: log.With().Str("filter", name).Logger()}
}

// GetFloatParam safely gets a float parameter with default.
func GetFloatParam(params map[string]interface{}, key string, defaultValue float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultValue
}

// GetIntParam safely gets an int parameter with default.
func GetIntParam(params map[string]interface{}, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return defaultValue
}

// GetContextParam returns the opportunity context passed under ParamContext, or nil
func GetContextParam(params map[string]interface{}) *domain.OpportunityContext {
	ctx, _ := params[ParamContext].(*domain.OpportunityContext)
	return ctx
}

func buySymbols(seq domain.ActionSequence) []string {
	var symbols []string
	for _, action := range seq.Actions {
		if action.Side.IsBuy() {
			symbols = append(symbols, action.Symbol)
		}
	}
	return symbols
}
