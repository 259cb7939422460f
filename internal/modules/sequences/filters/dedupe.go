package filters

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// DedupeFilter removes empty sequences, sequences touching a symbol twice,
// and sequences whose ordered (symbol, side) list repeats an earlier one.
// Different patterns regularly assemble the same trades with different
// quantities; only the first is kept.
type DedupeFilter struct {
	*BaseFilter
}

// NewDedupeFilter creates a new deduplication filter.
func NewDedupeFilter(log zerolog.Logger) *DedupeFilter {
	return &DedupeFilter{
		BaseFilter: NewBaseFilter(log, "dedupe"),
	}
}

// Name returns the filter name.
func (f *DedupeFilter) Name() string {
	return "dedupe"
}

// Filter keeps the first occurrence of every distinct sequence, in order.
func (f *DedupeFilter) Filter(
	sequences []domain.ActionSequence,
	_ map[string]interface{},
) ([]domain.ActionSequence, error) {
	if len(sequences) == 0 {
		return sequences, nil
	}

	seen := make(map[string]bool, len(sequences))
	result := make([]domain.ActionSequence, 0, len(sequences))
	empty, repeated, duplicates := 0, 0, 0

	for _, seq := range sequences {
		if len(seq.Actions) == 0 {
			empty++
			continue
		}
		if hasRepeatedSymbol(seq) {
			repeated++
			continue
		}

		key := dedupeKey(seq)
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
		result = append(result, seq)
	}

	if len(result) < len(sequences) {
		f.log.Info().
			Int("input", len(sequences)).
			Int("output", len(result)).
			Int("empty", empty).
			Int("repeated_symbol", repeated).
			Int("duplicates_removed", duplicates).
			Msg("Deduplicated sequences")
	}

	return result, nil
}

func hasRepeatedSymbol(seq domain.ActionSequence) bool {
	seen := make(map[string]bool, len(seq.Actions))
	for _, action := range seq.Actions {
		if seen[action.Symbol] {
			return true
		}
		seen[action.Symbol] = true
	}
	return false
}

// dedupeKey renders the ordered (symbol, side) list; exploratory sequences
// never collide with executable ones.
func dedupeKey(seq domain.ActionSequence) string {
	var b strings.Builder
	if seq.Exploratory {
		b.WriteString("x|")
	}
	for _, action := range seq.Actions {
		b.WriteString(action.Symbol)
		b.WriteByte(':')
		b.WriteString(string(action.Side))
		b.WriteByte(';')
	}
	return b.String()
}
