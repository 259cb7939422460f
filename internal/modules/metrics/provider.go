// Package metrics supplies the per-security metrics the end-state scorer
// reads. Providers are collaborators: a missing value is omitted, never an
// error, and scoring falls back to neutral defaults.
package metrics

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// Provider looks up named metrics for one symbol.
type Provider interface {
	// GetMetrics returns the known values among names; unknown ones are left out
	GetMetrics(ctx context.Context, symbol string, names []string) (map[string]float64, error)
}

// LoadMetricsCache builds the metrics cache for symbols. A provider error
// degrades that symbol to empty metrics and is logged.
func LoadMetricsCache(ctx context.Context, provider Provider, symbols []string, log zerolog.Logger) models.MetricsCache {
	cache := make(models.MetricsCache, len(symbols))
	if provider == nil {
		return cache
	}

	failed := 0
	for _, symbol := range uniqueSymbols(symbols) {
		values, err := provider.GetMetrics(ctx, symbol, models.RequiredMetrics)
		if err != nil {
			failed++
			log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to load metrics, using neutral defaults")
			values = map[string]float64{}
		}
		cache[symbol] = values
	}

	log.Debug().
		Int("symbols", len(cache)).
		Int("failed", failed).
		Msg("Loaded metrics cache")
	return cache
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
