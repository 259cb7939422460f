// Package domain provides planning domain models.
package domain

import (
	"errors"
	"fmt"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// ErrInvalidConfiguration is returned (wrapped) by PlannerConfiguration.Validate
var ErrInvalidConfiguration = errors.New("invalid planner configuration")

// SearchMode selects how the search controller keeps its best-so-far set
type SearchMode string

const (
	SearchModeBeam   SearchMode = "beam"
	SearchModePareto SearchMode = "pareto"
)

// EvaluationMode selects how each sequence's end state is scored
type EvaluationMode = models.EvaluationMode

const (
	EvaluationModeStandard   = models.ModeStandard
	EvaluationModeStochastic = models.ModeStochastic
	EvaluationModeMonteCarlo = models.ModeMonteCarlo
)

// PlannerConfiguration represents the complete configuration for a planner instance.
// Flattened structure with individual boolean fields per module.
type PlannerConfiguration struct {
	// Planner identification
	Name string `json:"name"`

	// Global planner settings
	MaxDepth                    int     `json:"max_depth"`
	MaxOpportunitiesPerCategory int     `json:"max_opportunities_per_category"`
	EnableDiverseSelection      bool    `json:"enable_diverse_selection"`
	DiversityWeight             float64 `json:"diversity_weight"`
	PriorityThreshold           float64 `json:"priority_threshold"` // Minimum average action priority

	// Transaction costs
	TransactionCostFixed   float64 `json:"transaction_cost_fixed"`
	TransactionCostPercent float64 `json:"transaction_cost_percent"`

	// Trade permissions
	AllowSell bool `json:"allow_sell"`
	AllowBuy  bool `json:"allow_buy"`

	// Risk management settings
	MinHoldDays       int     `json:"min_hold_days"`       // Minimum days a position must be held before selling
	SellCooldownDays  int     `json:"sell_cooldown_days"`  // Days after a sale before selling the symbol again
	BuyCooldownDays   int     `json:"buy_cooldown_days"`   // Days after a purchase before buying the symbol again
	MaxLossThreshold  float64 `json:"max_loss_threshold"`  // Positions losing more than this are not sold
	MaxSellPercentage float64 `json:"max_sell_percentage"` // Maximum fraction of a position sold per trade

	// Search
	SearchMode          SearchMode `json:"search_mode"`
	BeamWidth           int        `json:"beam_width"`
	BatchSize           int        `json:"batch_size"`            // Sequences taken from the job store per batch
	EvaluationChunkSize int        `json:"evaluation_chunk_size"` // Sequences evaluated per worker-pool round
	PlateauThreshold    int        `json:"plateau_threshold"`
	MinEvaluations      int        `json:"min_evaluations"`

	// Evaluation
	EvaluationMode          EvaluationMode `json:"evaluation_mode"`
	RiskProfile             string         `json:"risk_profile"`
	CostPenaltyFactor       float64        `json:"cost_penalty_factor"`
	EnableMultiTimeframe    bool           `json:"enable_multi_timeframe"`
	StochasticShifts        []float64      `json:"stochastic_shifts"`
	StochasticWorstWeight   float64        `json:"stochastic_worst_weight"`
	StochasticAverageWeight float64        `json:"stochastic_average_weight"`
	MonteCarloPaths         int            `json:"monte_carlo_paths"`
	MonteCarloWorstWeight   float64        `json:"monte_carlo_worst_weight"`
	MonteCarloP10Weight     float64        `json:"monte_carlo_p10_weight"`
	MonteCarloAverageWeight float64        `json:"monte_carlo_average_weight"`

	// Combinatorial generation limits
	MaxCombinationsPerDepth int `json:"max_combinations_per_depth"`
	MaxSellsPerSequence     int `json:"max_sells_per_sequence"`
	MaxBuysPerSequence      int `json:"max_buys_per_sequence"`
	MaxCombinatorialCands   int `json:"max_combinatorial_candidates"`

	// Exploratory variants
	RelaxationCashFactor float64 `json:"relaxation_cash_factor"` // Cash budget multiplier for exploratory feasibility

	// Correlation filter
	CorrelationThreshold float64 `json:"correlation_threshold"`

	// Opportunity Calculator enabled flags
	EnableProfitTakingCalc    bool `json:"enable_profit_taking_calc"`
	EnableAveragingDownCalc   bool `json:"enable_averaging_down_calc"`
	EnableOpportunityBuysCalc bool `json:"enable_opportunity_buys_calc"`
	EnableRebalanceSellsCalc  bool `json:"enable_rebalance_sells_calc"`
	EnableRebalanceBuysCalc   bool `json:"enable_rebalance_buys_calc"`
	EnableWeightBasedCalc     bool `json:"enable_weight_based_calc"`

	// Pattern Generator enabled flags
	EnableDirectBuyPattern        bool `json:"enable_direct_buy_pattern"`
	EnableProfitTakingPattern     bool `json:"enable_profit_taking_pattern"`
	EnableRebalancePattern        bool `json:"enable_rebalance_pattern"`
	EnableAveragingDownPattern    bool `json:"enable_averaging_down_pattern"`
	EnableSingleBestPattern       bool `json:"enable_single_best_pattern"`
	EnableMultiSellPattern        bool `json:"enable_multi_sell_pattern"`
	EnableMixedStrategyPattern    bool `json:"enable_mixed_strategy_pattern"`
	EnableOpportunityFirstPattern bool `json:"enable_opportunity_first_pattern"`
	EnableDeepRebalancePattern    bool `json:"enable_deep_rebalance_pattern"`
	EnableCashGenerationPattern   bool `json:"enable_cash_generation_pattern"`
	EnableCostOptimizedPattern    bool `json:"enable_cost_optimized_pattern"`
	EnableAdaptivePattern         bool `json:"enable_adaptive_pattern"`
	EnableMarketRegimePattern     bool `json:"enable_market_regime_pattern"`

	// Sequence Generator enabled flags
	EnableCombinatorialGenerator         bool `json:"enable_combinatorial_generator"`
	EnableEnhancedCombinatorialGenerator bool `json:"enable_enhanced_combinatorial_generator"`
	EnablePartialExecution               bool `json:"enable_partial_execution"`
	EnableConstraintRelaxationGenerator  bool `json:"enable_constraint_relaxation_generator"`

	// Filter enabled flags
	EnableCorrelationAwareFilter bool `json:"enable_correlation_aware_filter"`
}

// NewDefaultConfiguration creates a PlannerConfiguration with default settings.
func NewDefaultConfiguration() *PlannerConfiguration {
	return &PlannerConfiguration{
		Name:                        "default",
		MaxDepth:                    5,
		MaxOpportunitiesPerCategory: 5,
		EnableDiverseSelection:      true,
		DiversityWeight:             0.3,
		PriorityThreshold:           0.3,
		TransactionCostFixed:        2.0,
		TransactionCostPercent:      0.002,
		AllowSell:                   true,
		AllowBuy:                    true,
		MinHoldDays:                 90,
		SellCooldownDays:            180,
		BuyCooldownDays:             30,
		MaxLossThreshold:            -0.20,
		MaxSellPercentage:           0.40,

		SearchMode:          SearchModeBeam,
		BeamWidth:           10,
		BatchSize:           100,
		EvaluationChunkSize: 20,
		PlateauThreshold:    5,
		MinEvaluations:      10,

		EvaluationMode:          EvaluationModeStandard,
		RiskProfile:             "balanced",
		CostPenaltyFactor:       0.1,
		StochasticShifts:        []float64{-0.10, -0.05, 0.0, 0.05, 0.10},
		StochasticWorstWeight:   0.6,
		StochasticAverageWeight: 0.4,
		MonteCarloPaths:         100,
		MonteCarloWorstWeight:   0.4,
		MonteCarloP10Weight:     0.3,
		MonteCarloAverageWeight: 0.3,

		MaxCombinationsPerDepth: 50,
		MaxSellsPerSequence:     4,
		MaxBuysPerSequence:      4,
		MaxCombinatorialCands:   12,

		RelaxationCashFactor: 1.3,
		CorrelationThreshold: 0.7,

		EnableProfitTakingCalc:    true,
		EnableAveragingDownCalc:   true,
		EnableOpportunityBuysCalc: true,
		EnableRebalanceSellsCalc:  true,
		EnableRebalanceBuysCalc:   true,
		EnableWeightBasedCalc:     true,

		EnableDirectBuyPattern:        true,
		EnableProfitTakingPattern:     true,
		EnableRebalancePattern:        true,
		EnableAveragingDownPattern:    true,
		EnableSingleBestPattern:       true,
		EnableMultiSellPattern:        true,
		EnableMixedStrategyPattern:    true,
		EnableOpportunityFirstPattern: true,
		EnableDeepRebalancePattern:    true,
		EnableCashGenerationPattern:   true,
		EnableCostOptimizedPattern:    true,
		EnableAdaptivePattern:         true,
		EnableMarketRegimePattern:     false,

		EnableCombinatorialGenerator:         true,
		EnableEnhancedCombinatorialGenerator: true,
		EnablePartialExecution:               true,
		EnableConstraintRelaxationGenerator:  false,

		EnableCorrelationAwareFilter: true,
	}
}

// Validate rejects configurations the planner cannot run with.
// Errors wrap ErrInvalidConfiguration.
func (c *PlannerConfiguration) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidConfiguration)
	}

	checks := []struct {
		failed bool
		msg    string
	}{
		{c.MaxDepth < 1, "max_depth must be at least 1"},
		{c.MaxOpportunitiesPerCategory < 1, "max_opportunities_per_category must be at least 1"},
		{c.DiversityWeight < 0 || c.DiversityWeight > 1, "diversity_weight must be within [0, 1]"},
		{c.PriorityThreshold < 0, "priority_threshold must not be negative"},
		{c.TransactionCostFixed < 0, "transaction_cost_fixed must not be negative"},
		{c.TransactionCostPercent < 0 || c.TransactionCostPercent >= 1, "transaction_cost_percent must be within [0, 1)"},
		{c.BeamWidth < 1, "beam_width must be at least 1"},
		{c.BatchSize < 1, "batch_size must be at least 1"},
		{c.EvaluationChunkSize < 0, "evaluation_chunk_size must not be negative"},
		{c.PlateauThreshold < 1, "plateau_threshold must be at least 1"},
		{c.MinEvaluations < 0, "min_evaluations must not be negative"},
		{c.SearchMode != SearchModeBeam && c.SearchMode != SearchModePareto, fmt.Sprintf("unknown search_mode %q", c.SearchMode)},
		{c.EvaluationMode != EvaluationModeStandard && c.EvaluationMode != EvaluationModeStochastic &&
			c.EvaluationMode != EvaluationModeMonteCarlo, fmt.Sprintf("unknown evaluation_mode %q", c.EvaluationMode)},
		{c.MonteCarloPaths < 0, "monte_carlo_paths must not be negative"},
		{c.CostPenaltyFactor < 0, "cost_penalty_factor must not be negative"},
		{c.RelaxationCashFactor < 0, "relaxation_cash_factor must not be negative"},
		{c.CorrelationThreshold < -1 || c.CorrelationThreshold > 1, "correlation_threshold must be within [-1, 1]"},
	}

	for _, check := range checks {
		if check.failed {
			return fmt.Errorf("%w: %s", ErrInvalidConfiguration, check.msg)
		}
	}
	return nil
}

// ScoringOptions returns the evaluator options this configuration implies
func (c *PlannerConfiguration) ScoringOptions() models.ScoringOptions {
	return models.ScoringOptions{
		Mode:                    c.EvaluationMode,
		RiskProfile:             c.RiskProfile,
		EnableMultiTimeframe:    c.EnableMultiTimeframe,
		StochasticShifts:        c.StochasticShifts,
		StochasticWorstWeight:   c.StochasticWorstWeight,
		StochasticAverageWeight: c.StochasticAverageWeight,
		MonteCarloPaths:         c.MonteCarloPaths,
		MonteCarloWorstWeight:   c.MonteCarloWorstWeight,
		MonteCarloP10Weight:     c.MonteCarloP10Weight,
		MonteCarloAverageWeight: c.MonteCarloAverageWeight,
	}
}

// GetEnabledCalculators returns a list of enabled opportunity calculator names.
func (c *PlannerConfiguration) GetEnabledCalculators() []string {
	enabled := []string{}
	if c.EnableProfitTakingCalc {
		enabled = append(enabled, "profit_taking")
	}
	if c.EnableAveragingDownCalc {
		enabled = append(enabled, "averaging_down")
	}
	if c.EnableOpportunityBuysCalc {
		enabled = append(enabled, "opportunity_buys")
	}
	if c.EnableRebalanceSellsCalc {
		enabled = append(enabled, "rebalance_sells")
	}
	if c.EnableRebalanceBuysCalc {
		enabled = append(enabled, "rebalance_buys")
	}
	return enabled
}

// GetEnabledPatterns returns a list of enabled pattern generator names.
func (c *PlannerConfiguration) GetEnabledPatterns() []string {
	flags := []struct {
		on   bool
		name string
	}{
		{c.EnableDirectBuyPattern, "direct_buy"},
		{c.EnableProfitTakingPattern, "profit_taking"},
		{c.EnableRebalancePattern, "rebalance"},
		{c.EnableAveragingDownPattern, "averaging_down"},
		{c.EnableSingleBestPattern, "single_best"},
		{c.EnableMultiSellPattern, "multi_sell"},
		{c.EnableMixedStrategyPattern, "mixed_strategy"},
		{c.EnableOpportunityFirstPattern, "opportunity_first"},
		{c.EnableDeepRebalancePattern, "deep_rebalance"},
		{c.EnableCashGenerationPattern, "cash_generation"},
		{c.EnableCostOptimizedPattern, "cost_optimized"},
		{c.EnableAdaptivePattern, "adaptive"},
		{c.EnableMarketRegimePattern, "market_regime"},
	}

	enabled := []string{}
	for _, f := range flags {
		if f.on {
			enabled = append(enabled, f.name)
		}
	}
	return enabled
}

// GetEnabledGenerators returns a list of enabled sequence generator names.
// Enhanced combinatorial sampling replaces the exhaustive generator when both are on.
func (c *PlannerConfiguration) GetEnabledGenerators() []string {
	enabled := []string{}
	if c.EnableEnhancedCombinatorialGenerator {
		enabled = append(enabled, "enhanced_combinatorial")
	} else if c.EnableCombinatorialGenerator {
		enabled = append(enabled, "combinatorial")
	}
	if c.EnablePartialExecution {
		enabled = append(enabled, "partial_execution")
	}
	if c.EnableConstraintRelaxationGenerator {
		enabled = append(enabled, "constraint_relaxation")
	}
	return enabled
}

// GetEnabledFilters returns a list of enabled filter names. Dedupe always runs.
func (c *PlannerConfiguration) GetEnabledFilters() []string {
	enabled := []string{"dedupe"}
	if c.EnableCorrelationAwareFilter {
		enabled = append(enabled, "correlation_aware")
	}
	return enabled
}

// GetGeneratorParams returns parameters for a specific generator.
func (c *PlannerConfiguration) GetGeneratorParams(name string) map[string]interface{} {
	params := map[string]interface{}{
		"max_depth": c.MaxDepth,
	}
	switch name {
	case "combinatorial", "enhanced_combinatorial":
		params["max_combinations"] = c.MaxCombinationsPerDepth
		params["max_sells"] = c.MaxSellsPerSequence
		params["max_buys"] = c.MaxBuysPerSequence
		params["max_candidates"] = c.MaxCombinatorialCands
		params["priority_threshold"] = c.PriorityThreshold
	case "constraint_relaxation":
		params["max_cash_factor"] = c.RelaxationCashFactor
	}
	return params
}

// RelaxedCashFactor is the cash budget multiplier exploratory sequences are
// filtered and evaluated with. A nil configuration relaxes nothing.
func (c *PlannerConfiguration) RelaxedCashFactor() float64 {
	if c != nil && c.RelaxationCashFactor > 1.0 {
		return c.RelaxationCashFactor
	}
	return 1.0
}

// GetFilterParams returns parameters for a specific filter.
func (c *PlannerConfiguration) GetFilterParams(name string) map[string]interface{} {
	params := make(map[string]interface{})
	if name == "correlation_aware" {
		params["threshold"] = c.CorrelationThreshold
	}
	return params
}

// GetCalculatorParams returns parameters for a specific opportunity calculator.
func (c *PlannerConfiguration) GetCalculatorParams(name string) map[string]interface{} {
	params := make(map[string]interface{})
	switch name {
	case "profit_taking", "rebalance_sells":
		params["max_sell_percentage"] = c.MaxSellPercentage
	}
	return params
}
