// Package models holds the value types shared by the simulator, the evaluator
// and the remote evaluation wire contract.
package models

// TradeSide represents the direction of a trade (BUY or SELL)
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// IsBuy checks if this trade side is BUY
func (t TradeSide) IsBuy() bool {
	return t == TradeSideBuy
}

// IsSell checks if this trade side is SELL
func (t TradeSide) IsSell() bool {
	return t == TradeSideSell
}

// ActionCandidate represents a potential trade action with associated metadata
// for priority-based selection and sequencing.
type ActionCandidate struct {
	Side     TradeSide `json:"side" msgpack:"side"`
	Symbol   string    `json:"symbol" msgpack:"symbol"`
	Name     string    `json:"name" msgpack:"name"`
	Currency string    `json:"currency" msgpack:"currency"`
	Reason   string    `json:"reason" msgpack:"reason"`
	Tags     []string  `json:"tags" msgpack:"tags"`
	Quantity int       `json:"quantity" msgpack:"quantity"`
	Price    float64   `json:"price" msgpack:"price"`
	ValueEUR float64   `json:"value_eur" msgpack:"value_eur"`
	Priority float64   `json:"priority" msgpack:"priority"`
}

// HasTag reports whether the action carries the given classification tag
func (a ActionCandidate) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Security represents a security in the investment universe
// (only the fields needed for simulation).
type Security struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Country  string `json:"country,omitempty"`
	Industry string `json:"industry,omitempty"` // May be comma separated
	Currency string `json:"currency"`
}

// PortfolioContext is an immutable portfolio snapshot used for scoring.
// Simulation never mutates a context; it derives a new one that shares
// every map it does not modify.
type PortfolioContext struct {
	CountryWeights     map[string]float64 `json:"country_weights"`  // Target weight per country group
	IndustryWeights    map[string]float64 `json:"industry_weights"` // Target weight per industry group
	Positions          map[string]float64 `json:"positions"`        // Symbol -> market value EUR
	SecurityCountries  map[string]string  `json:"security_countries,omitempty"`
	SecurityIndustries map[string]string  `json:"security_industries,omitempty"`
	SecurityScores     map[string]float64 `json:"security_scores,omitempty"`    // Quality 0-1
	SecurityDividends  map[string]float64 `json:"security_dividends,omitempty"` // Dividend yield
	CountryToGroup     map[string]string  `json:"country_to_group,omitempty"`
	IndustryToGroup    map[string]string  `json:"industry_to_group,omitempty"`
	PositionAvgPrices  map[string]float64 `json:"position_avg_prices,omitempty"`
	CurrentPrices      map[string]float64 `json:"current_prices,omitempty"`
	TotalValue         float64            `json:"total_value"` // Positions plus cash, EUR
}

// MetricsCache maps symbol -> metric name -> value. Missing entries mean
// the metric is unknown and neutral defaults apply.
type MetricsCache map[string]map[string]float64

// Get returns a metric value and whether it is known
func (m MetricsCache) Get(symbol, metric string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	values, ok := m[symbol]
	if !ok {
		return 0, false
	}
	v, ok := values[metric]
	return v, ok
}

// Metric names read from the metrics cache
const (
	MetricCAGR5Y              = "CAGR_5Y"
	MetricDividendYield       = "DIVIDEND_YIELD"
	MetricConsistencyScore    = "CONSISTENCY_SCORE"
	MetricFinancialStrength   = "FINANCIAL_STRENGTH"
	MetricDividendConsistency = "DIVIDEND_CONSISTENCY"
	MetricPayoutRatio         = "PAYOUT_RATIO"
	MetricSortino             = "SORTINO"
	MetricVolatilityAnnual    = "VOLATILITY_ANNUAL"
	MetricMaxDrawdown         = "MAX_DRAWDOWN"
	MetricSharpe              = "SHARPE"
)

// RequiredMetrics lists every metric the end-state scorer reads
var RequiredMetrics = []string{
	MetricCAGR5Y,
	MetricDividendYield,
	MetricConsistencyScore,
	MetricFinancialStrength,
	MetricDividendConsistency,
	MetricPayoutRatio,
	MetricSortino,
	MetricVolatilityAnnual,
	MetricMaxDrawdown,
	MetricSharpe,
}

// EvaluationMode selects how a sequence's end state is scored
type EvaluationMode string

const (
	ModeStandard   EvaluationMode = "standard"
	ModeStochastic EvaluationMode = "stochastic"
	ModeMonteCarlo EvaluationMode = "monte_carlo"
)

// ScoringOptions tunes the evaluator. Zero values fall back to defaults.
type ScoringOptions struct {
	Mode                 EvaluationMode `json:"mode"`
	RiskProfile          string         `json:"risk_profile"` // conservative, balanced, aggressive
	EnableMultiTimeframe bool           `json:"enable_multi_timeframe"`

	StochasticShifts        []float64 `json:"stochastic_shifts,omitempty"`
	StochasticWorstWeight   float64   `json:"stochastic_worst_weight,omitempty"`
	StochasticAverageWeight float64   `json:"stochastic_average_weight,omitempty"`

	MonteCarloPaths         int     `json:"monte_carlo_paths,omitempty"`
	MonteCarloWorstWeight   float64 `json:"monte_carlo_worst_weight,omitempty"`
	MonteCarloP10Weight     float64 `json:"monte_carlo_p10_weight,omitempty"`
	MonteCarloAverageWeight float64 `json:"monte_carlo_average_weight,omitempty"`
}

// EvaluationContext contains all data needed to simulate and score action sequences
type EvaluationContext struct {
	PortfolioContext       PortfolioContext    `json:"portfolio_context"`
	CurrentPrices          map[string]float64  `json:"current_prices"`
	StocksBySymbol         map[string]Security `json:"stocks_by_symbol"`
	PriceAdjustments       map[string]float64  `json:"price_adjustments,omitempty"` // Symbol -> price multiplier
	Metrics                MetricsCache        `json:"metrics,omitempty"`
	Securities             []Security          `json:"securities"`
	AvailableCashEUR       float64             `json:"available_cash_eur"`
	TotalPortfolioValueEUR float64             `json:"total_portfolio_value_eur"`
	TransactionCostFixed   float64             `json:"transaction_cost_fixed"`
	TransactionCostPercent float64             `json:"transaction_cost_percent"`
	CostPenaltyFactor      float64             `json:"cost_penalty_factor"` // Clamped to [0, 1]
	Scoring                ScoringOptions      `json:"scoring"`
}

// ComponentScore is one weighted part of the end-state score
type ComponentScore struct {
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// EndStateBreakdown explains how the end-state score was composed
type EndStateBreakdown struct {
	RiskProfile     string         `json:"risk_profile"`
	TotalReturn     ComponentScore `json:"total_return"`
	Diversification ComponentScore `json:"diversification"`
	LongTermPromise ComponentScore `json:"long_term_promise"`
	Stability       ComponentScore `json:"stability"`
	Opinion         ComponentScore `json:"opinion"`
	Score           float64        `json:"score"`
}

// CostBreakdown records the transaction-cost penalty applied to a score
type CostBreakdown struct {
	Cost          float64 `json:"cost"`
	PenaltyFactor float64 `json:"penalty_factor"`
	Penalty       float64 `json:"penalty"`
}

// MultiTimeframeBreakdown records the short/medium/long horizon blend
type MultiTimeframeBreakdown struct {
	Short    float64 `json:"short"`
	Medium   float64 `json:"medium"`
	Long     float64 `json:"long"`
	Weighted float64 `json:"weighted"`
}

// StochasticBreakdown records the fixed price-shift scenarios
type StochasticBreakdown struct {
	Shifts  []float64 `json:"shifts"`
	Scores  []float64 `json:"scores"`
	Worst   float64   `json:"worst"`
	Average float64   `json:"average"`
	Final   float64   `json:"final"`
}

// ScoreBreakdown is the typed explanation stored with every evaluation
type ScoreBreakdown struct {
	EndState        EndStateBreakdown        `json:"end_state"`
	Diversification float64                  `json:"diversification"`
	MultiTimeframe  *MultiTimeframeBreakdown `json:"multi_timeframe,omitempty"`
	TransactionCost CostBreakdown            `json:"transaction_cost"`
	Stochastic      *StochasticBreakdown     `json:"stochastic,omitempty"`
	MonteCarlo      *MonteCarloResult        `json:"monte_carlo,omitempty"`
	PriceScenario   string                   `json:"price_scenario"`
}

// SequenceEvaluationResult represents the result of evaluating a single sequence
type SequenceEvaluationResult struct {
	EndPortfolio         PortfolioContext  `json:"end_portfolio"`
	Sequence             []ActionCandidate `json:"sequence"`
	Breakdown            ScoreBreakdown    `json:"breakdown"`
	Score                float64           `json:"score"`
	DiversificationScore float64           `json:"diversification_score"`
	RiskScore            float64           `json:"risk_score"`
	EndCashEUR           float64           `json:"end_cash_eur"`
	TransactionCosts     float64           `json:"transaction_costs"`
	Feasible             bool              `json:"feasible"`
}

// BatchEvaluationRequest represents a request to evaluate multiple sequences
type BatchEvaluationRequest struct {
	Sequences         [][]ActionCandidate `json:"sequences"`
	EvaluationContext EvaluationContext   `json:"evaluation_context"`
}

// BatchEvaluationResponse represents the response from batch evaluation
type BatchEvaluationResponse struct {
	Results []SequenceEvaluationResult `json:"results"` // Same order as the request
	Errors  []string                   `json:"errors"`
}

// HealthResponse is returned by the evaluator health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// MonteCarloResult represents the result of Monte Carlo simulation
type MonteCarloResult struct {
	PathsEvaluated int     `json:"paths_evaluated"`
	AvgScore       float64 `json:"avg_score"`
	WorstScore     float64 `json:"worst_score"`
	BestScore      float64 `json:"best_score"`
	P10Score       float64 `json:"p10_score"`
	P90Score       float64 `json:"p90_score"`
	FinalScore     float64 `json:"final_score"`
}

// SimulationResult is the outcome of simulating a sequence without scoring
type SimulationResult struct {
	EndPortfolio PortfolioContext  `json:"end_portfolio"`
	Sequence     []ActionCandidate `json:"sequence"`
	EndCashEUR   float64           `json:"end_cash_eur"`
	Feasible     bool              `json:"feasible"`
}
