package opportunities

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// Ineligibility reasons reported by EligibilityChecker.Check
const (
	ReasonMinHold       = "min_hold"
	ReasonSellCooldown  = "sell_cooldown"
	ReasonLossThreshold = "loss_threshold"
)

// EligibilityChecker derives the sell-ineligible, recently sold and recently
// bought sets of an opportunity context from each position's trade history.
type EligibilityChecker struct {
	now func() time.Time
	log zerolog.Logger
}

// NewEligibilityChecker creates a checker using the wall clock
func NewEligibilityChecker(log zerolog.Logger) *EligibilityChecker {
	return &EligibilityChecker{
		now: time.Now,
		log: log.With().Str("component", "eligibility_checker").Logger(),
	}
}

// Check reports whether a position may be sold under the configured hold,
// cooldown and loss rules. Positions without trade history are eligible.
func (e *EligibilityChecker) Check(
	position domain.EnrichedPosition,
	config *domain.PlannerConfiguration,
	now time.Time,
) (bool, string) {
	if position.LastTransactionAt == nil {
		return true, ""
	}

	if days := domain.DaysSince(position.LastTransactionAt, now); days < config.MinHoldDays {
		return false, ReasonMinHold
	}

	if days := domain.DaysSince(position.LastSoldAt, now); days >= 0 && days < config.SellCooldownDays {
		return false, ReasonSellCooldown
	}

	if position.CurrentPrice > 0 && position.GainPercent() < config.MaxLossThreshold {
		return false, ReasonLossThreshold
	}

	return true, ""
}

// Apply marks ineligible, recently sold and recently bought symbols on the
// context. Existing marks are kept.
func (e *EligibilityChecker) Apply(ctx *domain.OpportunityContext, config *domain.PlannerConfiguration) {
	now := e.now()
	ctx.IndexSecurities()

	for _, position := range ctx.Positions {
		if days := domain.DaysSince(position.LastSoldAt, now); days >= 0 && days < config.SellCooldownDays {
			ctx.RecentlySold[position.Symbol] = true
		}

		if recentlyBought(position, now, config.BuyCooldownDays) {
			ctx.RecentlyBought[position.Symbol] = true
		}

		if price, ok := ctx.Price(position.Symbol); ok {
			position.CurrentPrice = price
		}
		if ok, reason := e.Check(position, config, now); !ok {
			ctx.IneligibleSymbols[position.Symbol] = true
			e.log.Debug().
				Str("symbol", position.Symbol).
				Str("reason", reason).
				Msg("Position ineligible for selling")
		}
	}
}

// recentlyBought reports a last transaction that was a purchase within the cooldown
func recentlyBought(position domain.EnrichedPosition, now time.Time, cooldownDays int) bool {
	last := position.LastTransactionAt
	if last == nil {
		last = position.FirstBoughtAt
	}
	if last == nil {
		return false
	}
	if position.LastSoldAt != nil && !position.LastSoldAt.Before(*last) {
		return false
	}
	days := domain.DaysSince(last, now)
	return days >= 0 && days < cooldownDays
}
