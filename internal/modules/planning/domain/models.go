package domain

import (
	"math"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// ActionCandidate is shared with the evaluator so sequences cross the
// planner/evaluator boundary without conversion.
type ActionCandidate = models.ActionCandidate

// TradeSide is the direction of a trade (BUY or SELL)
type TradeSide = models.TradeSide

const (
	TradeSideBuy  = models.TradeSideBuy
	TradeSideSell = models.TradeSideSell
)

// Classification tags carried on action candidates
const (
	TagWindfall         = "windfall"
	TagProfitTaking     = "profit_taking"
	TagAveragingDown    = "averaging_down"
	TagRebalance        = "rebalance"
	TagOptimizerTarget  = "optimizer_target"
	TagOpportunity      = "opportunity"
	TagRelaxed          = "relaxed"
	TagPartialExecution = "partial_execution"

	TagUnderweightPrefix = "underweight_"
	TagOverweightPrefix  = "overweight_"
)

// HolisticStep represents a single step in a holistic plan.
type HolisticStep struct {
	StepNumber      int       `json:"step_number"`       // Step sequence number (1-based)
	Side            TradeSide `json:"side"`              // "BUY" or "SELL"
	Symbol          string    `json:"symbol"`            // Security symbol
	Name            string    `json:"name"`              // Security name
	Quantity        int       `json:"quantity"`          // Number of units to trade
	EstimatedPrice  float64   `json:"estimated_price"`   // Estimated price per unit
	EstimatedValue  float64   `json:"estimated_value"`   // Estimated total value in EUR
	Currency        string    `json:"currency"`          // Trading currency
	Reason          string    `json:"reason"`            // Why this action is recommended
	Narrative       string    `json:"narrative"`         // Human-readable explanation
	IsWindfall      bool      `json:"is_windfall"`       // Whether this is windfall profit-taking
	IsAveragingDown bool      `json:"is_averaging_down"` // Whether this is averaging down
	ContributesTo   []string  `json:"contributes_to"`    // Goals addressed by this step

	PortfolioScoreBefore float64 `json:"portfolio_score_before"`
	PortfolioScoreAfter  float64 `json:"portfolio_score_after"`
	AvailableCashBefore  float64 `json:"available_cash_before"`
	AvailableCashAfter   float64 `json:"available_cash_after"`
}

// HolisticPlan represents a complete holistic plan with end-state scoring.
type HolisticPlan struct {
	Steps            []HolisticStep         `json:"steps"`             // Sequence of actions to execute
	CurrentScore     float64                `json:"current_score"`     // Current portfolio score
	EndStateScore    float64                `json:"end_state_score"`   // Expected score after execution
	Improvement      float64                `json:"improvement"`       // Score improvement (end - current)
	NarrativeSummary string                 `json:"narrative_summary"` // Human-readable plan summary
	ScoreBreakdown   *models.ScoreBreakdown `json:"score_breakdown,omitempty"`
	CashRequired     float64                `json:"cash_required"`  // Total cash needed for buys
	CashGenerated    float64                `json:"cash_generated"` // Total cash from sells
	Feasible         bool                   `json:"feasible"`       // Whether plan can be executed
	PortfolioHash    string                 `json:"portfolio_hash,omitempty"`
	SequenceHash     string                 `json:"sequence_hash,omitempty"`
	PatternType      string                 `json:"pattern_type,omitempty"`
}

// ActionSequence represents a sequence of actions for evaluation.
// Sells always precede buys and no symbol appears twice.
type ActionSequence struct {
	Actions      []ActionCandidate `json:"actions"`       // Sequence of actions
	Priority     float64           `json:"priority"`      // Summed action priority
	Depth        int               `json:"depth"`         // Number of actions in sequence
	PatternType  string            `json:"pattern_type"`  // Pattern that generated this sequence
	SequenceHash string            `json:"sequence_hash"` // MD5 hash for deduplication
	Exploratory  bool              `json:"exploratory"`   // Research-only, never executable
}

// AveragePriority returns the mean action priority, 0 for an empty sequence
func (s ActionSequence) AveragePriority() float64 {
	if len(s.Actions) == 0 {
		return 0
	}
	total := 0.0
	for _, a := range s.Actions {
		total += a.Priority
	}
	return total / float64(len(s.Actions))
}

// EvaluationResult represents the result of evaluating an action sequence.
type EvaluationResult struct {
	SequenceHash         string                `json:"sequence_hash"`
	PortfolioHash        string                `json:"portfolio_hash,omitempty"`
	EndScore             float64               `json:"end_score"`
	DiversificationScore float64               `json:"diversification_score"`
	RiskScore            float64               `json:"risk_score"`
	TransactionCost      float64               `json:"transaction_cost"`
	EndCash              float64               `json:"end_cash"`
	EndPositions         map[string]float64    `json:"end_positions"` // Symbol -> value EUR after the sequence
	Breakdown            models.ScoreBreakdown `json:"breakdown"`
	TotalValue           float64               `json:"total_value"`
	Feasible             bool                  `json:"feasible"`
	Exploratory          bool                  `json:"exploratory,omitempty"`
	Error                string                `json:"error,omitempty"`
}

// Usable reports whether the result can be recorded and ranked: evaluated
// without error, feasible, with a finite score.
func (r EvaluationResult) Usable() bool {
	return r.Error == "" && r.Feasible && !math.IsNaN(r.EndScore) && !math.IsInf(r.EndScore, 0)
}

// IsDominatedBy reports whether other Pareto-dominates r: other is at least as
// good on end score, diversification, risk (all maximized) and transaction
// cost (minimized), and strictly better on at least one.
func (r EvaluationResult) IsDominatedBy(other EvaluationResult) bool {
	if other.EndScore < r.EndScore ||
		other.DiversificationScore < r.DiversificationScore ||
		other.RiskScore < r.RiskScore ||
		other.TransactionCost > r.TransactionCost {
		return false
	}
	return other.EndScore > r.EndScore ||
		other.DiversificationScore > r.DiversificationScore ||
		other.RiskScore > r.RiskScore ||
		other.TransactionCost < r.TransactionCost
}

// OpportunityCategory represents different types of trading opportunities.
type OpportunityCategory string

const (
	OpportunityCategoryProfitTaking    OpportunityCategory = "profit_taking"
	OpportunityCategoryAveragingDown   OpportunityCategory = "averaging_down"
	OpportunityCategoryOpportunityBuys OpportunityCategory = "opportunity_buys"
	OpportunityCategoryRebalanceSells  OpportunityCategory = "rebalance_sells"
	OpportunityCategoryRebalanceBuys   OpportunityCategory = "rebalance_buys"
)

// AllOpportunityCategories lists the categories in their canonical order
var AllOpportunityCategories = []OpportunityCategory{
	OpportunityCategoryProfitTaking,
	OpportunityCategoryAveragingDown,
	OpportunityCategoryRebalanceSells,
	OpportunityCategoryRebalanceBuys,
	OpportunityCategoryOpportunityBuys,
}

// OpportunitiesByCategory organizes action candidates by their category.
type OpportunitiesByCategory map[OpportunityCategory][]ActionCandidate

// Count returns the total number of candidates across categories
func (o OpportunitiesByCategory) Count() int {
	n := 0
	for _, candidates := range o {
		n += len(candidates)
	}
	return n
}

// IsEmpty reports whether no category holds a candidate
func (o OpportunitiesByCategory) IsEmpty() bool {
	return o.Count() == 0
}
