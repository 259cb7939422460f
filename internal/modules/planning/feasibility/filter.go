// Package feasibility rejects action sequences that cannot be executed
// before any simulation work is spent on them.
package feasibility

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/evaluation"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// RejectionReason explains why a sequence was filtered out
type RejectionReason string

const (
	ReasonNone               RejectionReason = ""
	ReasonEmpty              RejectionReason = "empty_sequence"
	ReasonDuplicateSymbol    RejectionReason = "duplicate_symbol"
	ReasonLowPriority        RejectionReason = "below_priority_threshold"
	ReasonUnknownBuy         RejectionReason = "unknown_buy_symbol"
	ReasonBuyNotAllowed      RejectionReason = "buy_not_allowed"
	ReasonInsufficientCash   RejectionReason = "insufficient_cash"
	ReasonUnknownSell        RejectionReason = "unknown_sell_symbol"
	ReasonSellNotAllowed     RejectionReason = "sell_not_allowed"
	ReasonSellExceedsHolding RejectionReason = "sell_exceeds_holding"
)

// Stats counts rejections per reason for one Apply call
type Stats struct {
	Input    int                     `json:"input"`
	Accepted int                     `json:"accepted"`
	Rejected map[RejectionReason]int `json:"rejected"`
}

// Filter checks sequences against cash, permissions, holdings and the
// priority threshold of one opportunity context.
type Filter struct {
	ctx               *domain.OpportunityContext
	priorityThreshold float64
	relaxationFactor  float64
	log               zerolog.Logger
}

// NewFilter creates a feasibility filter for the given context and configuration
func NewFilter(ctx *domain.OpportunityContext, config *domain.PlannerConfiguration, log zerolog.Logger) *Filter {
	f := &Filter{
		ctx:              ctx,
		relaxationFactor: config.RelaxedCashFactor(),
		log:              log.With().Str("component", "feasibility_filter").Logger(),
	}
	if config != nil {
		f.priorityThreshold = config.PriorityThreshold
	}
	return f
}

// Check reports whether a sequence passes every pre-simulation constraint.
// Running cash is tracked the same way the simulator tracks it. Exploratory
// sequences get the relaxed cash budget but still obey permission and
// holding rules.
func (f *Filter) Check(sequence domain.ActionSequence) (bool, RejectionReason) {
	actions := sequence.Actions
	if len(actions) == 0 {
		return false, ReasonEmpty
	}

	seen := make(map[string]bool, len(actions))
	for _, action := range actions {
		if seen[action.Symbol] {
			return false, ReasonDuplicateSymbol
		}
		seen[action.Symbol] = true
	}

	if sequence.AveragePriority() < f.priorityThreshold {
		return false, ReasonLowPriority
	}

	cash := f.ctx.AvailableCashEUR
	if sequence.Exploratory {
		cash *= f.relaxationFactor
	}

	for _, action := range actions {
		value := evaluation.AdjustedValue(action, nil)

		if action.Side.IsSell() {
			security, ok := f.ctx.Security(action.Symbol)
			if !ok {
				return false, ReasonUnknownSell
			}
			if !security.AllowSell || !f.ctx.AllowSell {
				return false, ReasonSellNotAllowed
			}
			position, held := f.ctx.Position(action.Symbol)
			if !held || float64(action.Quantity) > position.Quantity {
				return false, ReasonSellExceedsHolding
			}
			cash += value
			continue
		}

		security, ok := f.ctx.Security(action.Symbol)
		if !ok {
			return false, ReasonUnknownBuy
		}
		if !security.AllowBuy || !f.ctx.AllowBuy {
			return false, ReasonBuyNotAllowed
		}
		if value > cash {
			return false, ReasonInsufficientCash
		}
		cash -= value
	}

	return true, ReasonNone
}

// Apply keeps the feasible sequences, preserving order, and logs the
// rejection counts.
func (f *Filter) Apply(sequences []domain.ActionSequence) ([]domain.ActionSequence, Stats) {
	stats := Stats{
		Input:    len(sequences),
		Rejected: make(map[RejectionReason]int),
	}

	kept := make([]domain.ActionSequence, 0, len(sequences))
	for _, seq := range sequences {
		ok, reason := f.Check(seq)
		if !ok {
			stats.Rejected[reason]++
			continue
		}
		kept = append(kept, seq)
	}
	stats.Accepted = len(kept)

	event := f.log.Debug().
		Int("input", stats.Input).
		Int("accepted", stats.Accepted)
	reasons := make([]string, 0, len(stats.Rejected))
	for reason := range stats.Rejected {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		event = event.Int(reason, stats.Rejected[RejectionReason(reason)])
	}
	event.Msg("Feasibility filter applied")

	return kept, stats
}
