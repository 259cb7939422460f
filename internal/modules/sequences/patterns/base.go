// Package patterns provides the fixed sequence patterns built from the
// selected opportunities of each category.
package patterns

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/internal/modules/planning/hash"
)

// Parameters every pattern receives from the sequence service
const (
	ParamAvailableCash = "available_cash"
	ParamMaxDepth      = "max_depth"
	ParamContext       = "context"
)

// PatternGenerator builds action sequences from categorized opportunities.
type PatternGenerator interface {
	Name() string
	DefaultParams() map[string]interface{}
	Generate(opportunities domain.OpportunitiesByCategory, params map[string]interface{}) ([]domain.ActionSequence, error)
}

// BasePattern provides common functionality for patterns.
type BasePattern struct {
	log zerolog.Logger
}

// NewBasePattern creates a new base pattern.
func NewBasePattern(log zerolog.Logger, name string) *BasePattern {
	return &BasePattern{
		log: log.With().Str("pattern", name).Logger(),
	}
}

// DefaultParams returns no defaults; patterns with tunables override it.
func (b *BasePattern) DefaultParams() map[string]interface{} {
	return map[string]interface{}{}
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

// GetContextParam returns the opportunity context passed in params, if any.
func GetContextParam(params map[string]interface{}) *domain.OpportunityContext {
	ctx, _ := params[ParamContext].(*domain.OpportunityContext)
	return ctx
}

// CreateSequence builds a normalized sequence: sells move before buys with
// their relative order kept, and priority, depth and hash are filled in.
func CreateSequence(actions []domain.ActionCandidate, patternType string) domain.ActionSequence {
	normalized := make([]domain.ActionCandidate, len(actions))
	copy(normalized, actions)
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Side == domain.TradeSideSell && normalized[j].Side != domain.TradeSideSell
	})

	priority := 0.0
	for _, action := range normalized {
		priority += action.Priority
	}

	return domain.ActionSequence{
		Actions:      normalized,
		Priority:     priority,
		Depth:        len(normalized),
		PatternType:  patternType,
		SequenceHash: hash.SequenceHash(normalized),
	}
}

// Normalize re-derives the computed fields of a sequence, keeping its
// pattern type and exploratory flag.
func Normalize(seq domain.ActionSequence) domain.ActionSequence {
	normalized := CreateSequence(seq.Actions, seq.PatternType)
	normalized.Exploratory = seq.Exploratory
	return normalized
}

// concat joins candidate lists into a fresh slice
func concat(lists ...[]domain.ActionCandidate) []domain.ActionCandidate {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	result := make([]domain.ActionCandidate, 0, n)
	for _, l := range lists {
		result = append(result, l...)
	}
	return result
}

// sequenceBuilder accumulates actions under a depth cap and a running cash
// budget. A symbol is never added twice.
type sequenceBuilder struct {
	actions []domain.ActionCandidate
	symbols map[string]bool
	cash    float64
	limit   int
}

func newSequenceBuilder(cash float64, limit int) *sequenceBuilder {
	return &sequenceBuilder{
		symbols: make(map[string]bool),
		cash:    cash,
		limit:   limit,
	}
}

func (b *sequenceBuilder) full() bool {
	return len(b.actions) >= b.limit
}

// addSell appends a sell and credits its value to the running cash
func (b *sequenceBuilder) addSell(candidate domain.ActionCandidate) bool {
	if b.full() || b.symbols[candidate.Symbol] {
		return false
	}
	b.actions = append(b.actions, candidate)
	b.symbols[candidate.Symbol] = true
	b.cash += candidate.ValueEUR
	return true
}

// addBuy appends a buy when the running cash covers it
func (b *sequenceBuilder) addBuy(candidate domain.ActionCandidate) bool {
	if b.full() || b.symbols[candidate.Symbol] || candidate.ValueEUR > b.cash {
		return false
	}
	b.actions = append(b.actions, candidate)
	b.symbols[candidate.Symbol] = true
	b.cash -= candidate.ValueEUR
	return true
}

// add dispatches on the candidate side
func (b *sequenceBuilder) add(candidate domain.ActionCandidate) bool {
	if candidate.Side == domain.TradeSideSell {
		return b.addSell(candidate)
	}
	return b.addBuy(candidate)
}

// result returns the built sequence, or none when empty
func (b *sequenceBuilder) result(patternType string) []domain.ActionSequence {
	if len(b.actions) == 0 {
		return nil
	}
	return []domain.ActionSequence{CreateSequence(b.actions, patternType)}
}

// halfDepth is the sell allowance of mixed patterns: max(1, depth/2)
func halfDepth(depth int) int {
	if depth/2 < 1 {
		return 1
	}
	return depth / 2
}
