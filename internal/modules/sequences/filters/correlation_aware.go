package filters

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
	"github.com/aristath/holistic-planner/pkg/formulas"
)

const (
	// DefaultCorrelationThreshold is the |correlation| above which two buys are too similar
	DefaultCorrelationThreshold = 0.7
	// DefaultLookbackDays bounds the daily closes used, about one trading year
	DefaultLookbackDays = 252

	minCorrelationObservations = 10
)

// CorrelationAwareFilter drops sequences that would buy two securities whose
// daily returns move together, judged from the context's price history.
// Without enough history the filter passes sequences through.
type CorrelationAwareFilter struct {
	*BaseFilter
}

// NewCorrelationAwareFilter creates a new correlation filter.
func NewCorrelationAwareFilter(log zerolog.Logger) *CorrelationAwareFilter {
	return &CorrelationAwareFilter{
		BaseFilter: NewBaseFilter(log, "correlation_aware"),
	}
}

// Name returns the filter name.
func (f *CorrelationAwareFilter) Name() string {
	return "correlation_aware"
}

// Filter removes sequences with a pair of BUY legs correlated above the threshold.
// Params: threshold (float), lookback_days (int), context (*domain.OpportunityContext).
func (f *CorrelationAwareFilter) Filter(
	sequences []domain.ActionSequence,
	params map[string]interface{},
) ([]domain.ActionSequence, error) {
	if len(sequences) == 0 {
		return sequences, nil
	}

	ctx := GetContextParam(params)
	if ctx == nil || len(ctx.PriceHistory) == 0 {
		f.log.Debug().Msg("No price history available, returning all sequences")
		return sequences, nil
	}

	threshold := GetFloatParam(params, "threshold", DefaultCorrelationThreshold)
	lookback := GetIntParam(params, "lookback_days", DefaultLookbackDays)

	correlations := BuildCorrelationMap(allBuySymbols(sequences), ctx.PriceHistory, lookback)
	if len(correlations) == 0 {
		return sequences, nil
	}

	filtered := make([]domain.ActionSequence, 0, len(sequences))
	for _, seq := range sequences {
		buys := buySymbols(seq)
		if pair, corr, ok := highlyCorrelated(buys, correlations, threshold); ok {
			f.log.Debug().
				Str("sequence_hash", seq.SequenceHash).
				Strs("pair", pair).
				Float64("correlation", corr).
				Msg("Filtered sequence due to high correlation")
			continue
		}
		filtered = append(filtered, seq)
	}

	if len(filtered) < len(sequences) {
		f.log.Info().
			Int("before", len(sequences)).
			Int("after", len(filtered)).
			Int("removed", len(sequences)-len(filtered)).
			Float64("threshold", threshold).
			Msg("Correlation filtering complete")
	}

	return filtered, nil
}

// BuildCorrelationMap returns the Pearson correlation of daily returns for
// every symbol pair with enough overlapping history, keyed "A:B" with A < B.
// Series are aligned on their most recent closes.
func BuildCorrelationMap(symbols []string, history map[string][]float64, lookbackDays int) map[string]float64 {
	returns := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		closes := history[symbol]
		if lookbackDays > 0 && len(closes) > lookbackDays {
			closes = closes[len(closes)-lookbackDays:]
		}
		if r := formulas.DailyReturns(closes); len(r) >= minCorrelationObservations {
			returns[symbol] = r
		}
	}

	correlations := make(map[string]float64)
	for i, a := range symbols {
		for _, b := range symbols[i+1:] {
			ra, okA := returns[a]
			rb, okB := returns[b]
			if !okA || !okB {
				continue
			}
			n := min(len(ra), len(rb))
			corr := stat.Correlation(ra[len(ra)-n:], rb[len(rb)-n:], nil)
			if math.IsNaN(corr) {
				continue
			}
			correlations[pairKey(a, b)] = corr
		}
	}
	return correlations
}

func highlyCorrelated(symbols []string, correlations map[string]float64, threshold float64) ([]string, float64, bool) {
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			corr, ok := correlations[pairKey(symbols[i], symbols[j])]
			if ok && math.Abs(corr) > threshold {
				return []string{symbols[i], symbols[j]}, corr, true
			}
		}
	}
	return nil, 0, false
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// allBuySymbols returns the distinct BUY symbols across sequences, sorted
func allBuySymbols(sequences []domain.ActionSequence) []string {
	set := make(map[string]bool)
	for _, seq := range sequences {
		for _, symbol := range buySymbols(seq) {
			set[symbol] = true
		}
	}
	symbols := make([]string, 0, len(set))
	for symbol := range set {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
