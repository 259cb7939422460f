package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// EmptyPlanNarrative is the summary of a plan with no steps.
const EmptyPlanNarrative = "Portfolio is well-balanced. No actions recommended at this time."

// highDividendYield is the yield above which a buy narrative mentions income.
const highDividendYield = 0.03

// StepNarrative explains a single action against the portfolio it is applied to.
func StepNarrative(action domain.ActionCandidate, portfolio models.PortfolioContext) string {
	if action.Side.IsSell() {
		return sellNarrative(action, portfolio)
	}
	return buyNarrative(action, portfolio)
}

func sellNarrative(action domain.ActionCandidate, portfolio models.PortfolioContext) string {
	var parts []string

	held := portfolio.Positions[action.Symbol]
	if held > 0 && action.ValueEUR > 0 {
		parts = append(parts, fmt.Sprintf("Sell %.0f%% / €%.0f of %s (%s).",
			math.Min(100, action.ValueEUR/held*100), action.ValueEUR, displayName(action), action.Symbol))
	} else {
		parts = append(parts, fmt.Sprintf("Sell €%.0f of %s (%s).", action.ValueEUR, displayName(action), action.Symbol))
	}

	switch {
	case action.HasTag(domain.TagWindfall):
		parts = append(parts, "This position has gained well beyond its normal growth.")
		parts = append(parts, reasonSentence(action.Reason))
		parts = append(parts, "Taking profits locks in gains and frees capital for better opportunities.")
	case action.HasTag(domain.TagProfitTaking):
		parts = append(parts, reasonSentence(action.Reason))
		parts = append(parts, "This reduces risk by turning paper gains into realized profits.")
	case action.HasTag(domain.TagRebalance):
		if group := tagSuffix(action.Tags, domain.TagOverweightPrefix); group != "" {
			parts = append(parts, fmt.Sprintf("The portfolio is overweight in %s.", group))
			parts = append(parts, "Trimming this position improves diversification.")
		} else {
			parts = append(parts, reasonSentence(action.Reason))
		}
	default:
		parts = append(parts, reasonSentence(action.Reason))
	}

	return joinParts(parts)
}

func buyNarrative(action domain.ActionCandidate, portfolio models.PortfolioContext) string {
	parts := []string{fmt.Sprintf("Buy €%.0f of %s (%s).", action.ValueEUR, displayName(action), action.Symbol)}

	switch {
	case action.HasTag(domain.TagAveragingDown):
		parts = append(parts, "This quality holding is temporarily down, which lowers the average cost basis.")
		parts = append(parts, reasonSentence(action.Reason))
	case action.HasTag(domain.TagRebalance):
		if group := tagSuffix(action.Tags, domain.TagUnderweightPrefix); group != "" {
			parts = append(parts, fmt.Sprintf("The portfolio is underweight in %s.", group))
			parts = append(parts, "This purchase improves diversification and reduces concentration risk.")
		} else {
			parts = append(parts, reasonSentence(action.Reason))
		}
	case action.HasTag(domain.TagOptimizerTarget):
		parts = append(parts, "This moves the holding towards its optimizer target weight.")
		parts = append(parts, reasonSentence(action.Reason))
	case action.HasTag(domain.TagOpportunity):
		parts = append(parts, reasonSentence(action.Reason))
		parts = append(parts, "Quality holdings with good fundamentals tend to outperform over the long term.")
	default:
		parts = append(parts, reasonSentence(action.Reason))
	}

	if y := portfolio.SecurityDividends[action.Symbol]; y > highDividendYield {
		parts = append(parts, fmt.Sprintf("It also yields %.1f%% in dividends.", y*100))
	}

	return joinParts(parts)
}

// PlanNarrative summarizes a plan from its steps and score change.
// Scores are on the 0-100 scale used by HolisticPlan.
func PlanNarrative(steps []domain.HolisticStep, currentScore, endScore float64) string {
	if len(steps) == 0 {
		return EmptyPlanNarrative
	}

	var sells, buys []domain.HolisticStep
	windfall, averaging := 0, 0
	for _, s := range steps {
		if s.Side.IsSell() {
			sells = append(sells, s)
			if s.IsWindfall {
				windfall++
			}
			continue
		}
		buys = append(buys, s)
		if s.IsAveragingDown {
			averaging++
		}
	}

	var parts []string
	switch {
	case windfall > 0 && averaging > 0:
		parts = append(parts, "This plan takes profits from windfall gains and reinvests in quality holdings that are temporarily down.")
	case windfall > 0:
		parts = append(parts, "This plan captures windfall profits from positions that outgrew their historical rates.")
	case averaging > 0:
		parts = append(parts, "This plan averages down on quality positions that are temporarily undervalued.")
	case len(sells) > 0 && len(buys) > 0:
		parts = append(parts, "This plan rebalances the portfolio by trimming overweight positions and adding to underweight areas.")
	case len(buys) > 0:
		parts = append(parts, "This plan deploys available cash into high-quality opportunities.")
	default:
		parts = append(parts, "This plan reduces risk by taking profits from selected positions.")
	}

	parts = append(parts, fmt.Sprintf("The plan consists of %d action(s):", len(steps)))
	if len(sells) > 0 {
		parts = append(parts, fmt.Sprintf("sell €%.0f from %s;", totalValue(sells), strings.Join(symbols(sells), ", ")))
	}
	if len(buys) > 0 {
		parts = append(parts, fmt.Sprintf("buy €%.0f in %s.", totalValue(buys), strings.Join(symbols(buys), ", ")))
	}

	improvement := endScore - currentScore
	switch {
	case improvement > 0:
		parts = append(parts, fmt.Sprintf("Expected portfolio improvement: +%.1f points (from %.1f to %.1f).", improvement, currentScore, endScore))
	case improvement < 0:
		parts = append(parts, fmt.Sprintf("The short-term score may drop by %.1f points in exchange for better long-term positioning.", -improvement))
	default:
		parts = append(parts, fmt.Sprintf("The portfolio score stays at %.1f.", currentScore))
	}

	return joinParts(parts)
}

// ContributesTo lists the goals an action serves, derived from its tags.
func ContributesTo(action domain.ActionCandidate) []string {
	goals := []string{}
	for _, tag := range action.Tags {
		switch {
		case tag == domain.TagWindfall || tag == domain.TagProfitTaking:
			goals = appendUnique(goals, "profit_taking")
		case tag == domain.TagAveragingDown:
			goals = appendUnique(goals, "cost_basis")
		case tag == domain.TagRebalance:
			goals = appendUnique(goals, "diversification")
		case tag == domain.TagOptimizerTarget:
			goals = appendUnique(goals, "target_allocation")
		case tag == domain.TagOpportunity:
			goals = appendUnique(goals, "quality")
		case strings.HasPrefix(tag, domain.TagUnderweightPrefix), strings.HasPrefix(tag, domain.TagOverweightPrefix):
			goals = appendUnique(goals, "diversification")
		}
	}
	return goals
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func displayName(action domain.ActionCandidate) string {
	if action.Name != "" {
		return action.Name
	}
	return action.Symbol
}

// reasonSentence capitalizes a reason and ends it with a period.
func reasonSentence(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ""
	}
	reason = strings.ToUpper(reason[:1]) + reason[1:]
	if !strings.HasSuffix(reason, ".") && !strings.HasSuffix(reason, "!") {
		reason += "."
	}
	return reason
}

func tagSuffix(tags []string, prefix string) string {
	for _, tag := range tags {
		if strings.HasPrefix(tag, prefix) && len(tag) > len(prefix) {
			return strings.ToUpper(strings.TrimPrefix(tag, prefix))
		}
	}
	return ""
}

func joinParts(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func totalValue(steps []domain.HolisticStep) float64 {
	total := 0.0
	for _, s := range steps {
		total += s.EstimatedValue
	}
	return total
}

func symbols(steps []domain.HolisticStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Symbol
	}
	return out
}
