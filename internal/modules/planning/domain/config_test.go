package domain

import (
	"testing"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfiguration(t *testing.T) {
	config := NewDefaultConfiguration()

	require.NotNil(t, config)
	assert.Equal(t, "default", config.Name)
	assert.Equal(t, 5, config.MaxDepth)
	assert.Equal(t, 5, config.MaxOpportunitiesPerCategory)
	assert.True(t, config.EnableDiverseSelection)
	assert.Equal(t, 0.3, config.DiversityWeight)
	assert.Equal(t, 2.0, config.TransactionCostFixed)
	assert.Equal(t, 0.002, config.TransactionCostPercent)
	assert.Equal(t, 90, config.MinHoldDays)
	assert.Equal(t, 180, config.SellCooldownDays)
	assert.Equal(t, -0.20, config.MaxLossThreshold)
	assert.Equal(t, SearchModeBeam, config.SearchMode)
	assert.Equal(t, 10, config.BeamWidth)
	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 5, config.PlateauThreshold)
	assert.Equal(t, 10, config.MinEvaluations)
	assert.Equal(t, EvaluationModeStandard, config.EvaluationMode)
	assert.False(t, config.EnableConstraintRelaxationGenerator)

	assert.NoError(t, config.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *PlannerConfiguration)
	}{
		{"zero depth", func(c *PlannerConfiguration) { c.MaxDepth = 0 }},
		{"zero opportunities", func(c *PlannerConfiguration) { c.MaxOpportunitiesPerCategory = 0 }},
		{"diversity weight above one", func(c *PlannerConfiguration) { c.DiversityWeight = 1.5 }},
		{"negative fixed cost", func(c *PlannerConfiguration) { c.TransactionCostFixed = -1 }},
		{"percent cost of one", func(c *PlannerConfiguration) { c.TransactionCostPercent = 1 }},
		{"zero beam", func(c *PlannerConfiguration) { c.BeamWidth = 0 }},
		{"zero batch", func(c *PlannerConfiguration) { c.BatchSize = 0 }},
		{"zero plateau", func(c *PlannerConfiguration) { c.PlateauThreshold = 0 }},
		{"unknown search mode", func(c *PlannerConfiguration) { c.SearchMode = "greedy" }},
		{"unknown evaluation mode", func(c *PlannerConfiguration) { c.EvaluationMode = "quantum" }},
		{"correlation threshold out of range", func(c *PlannerConfiguration) { c.CorrelationThreshold = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDefaultConfiguration()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}

	var nilConfig *PlannerConfiguration
	assert.ErrorIs(t, nilConfig.Validate(), ErrInvalidConfiguration)
}

func TestScoringOptions(t *testing.T) {
	c := NewDefaultConfiguration()
	c.EvaluationMode = EvaluationModeMonteCarlo
	c.RiskProfile = "aggressive"
	c.MonteCarloPaths = 250

	opts := c.ScoringOptions()

	assert.Equal(t, models.ModeMonteCarlo, opts.Mode)
	assert.Equal(t, "aggressive", opts.RiskProfile)
	assert.Equal(t, 250, opts.MonteCarloPaths)
	assert.Equal(t, 0.6, opts.StochasticWorstWeight)
	assert.Equal(t, 0.4, opts.MonteCarloWorstWeight)
}

func TestGetEnabledCalculators(t *testing.T) {
	tests := []struct {
		name     string
		config   *PlannerConfiguration
		expected []string
	}{
		{
			name: "all enabled",
			config: &PlannerConfiguration{
				EnableProfitTakingCalc:    true,
				EnableAveragingDownCalc:   true,
				EnableOpportunityBuysCalc: true,
				EnableRebalanceSellsCalc:  true,
				EnableRebalanceBuysCalc:   true,
			},
			expected: []string{"profit_taking", "averaging_down", "opportunity_buys", "rebalance_sells", "rebalance_buys"},
		},
		{
			name:     "none enabled",
			config:   &PlannerConfiguration{},
			expected: []string{},
		},
		{
			name: "only sells",
			config: &PlannerConfiguration{
				EnableProfitTakingCalc:   true,
				EnableRebalanceSellsCalc: true,
			},
			expected: []string{"profit_taking", "rebalance_sells"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.GetEnabledCalculators())
		})
	}
}

func TestGetEnabledPatterns(t *testing.T) {
	patterns := NewDefaultConfiguration().GetEnabledPatterns()

	assert.Len(t, patterns, 12)
	assert.Contains(t, patterns, "direct_buy")
	assert.Contains(t, patterns, "cost_optimized")
	assert.Contains(t, patterns, "adaptive")
	assert.NotContains(t, patterns, "market_regime")

	config := NewDefaultConfiguration()
	config.EnableMarketRegimePattern = true
	assert.Equal(t, "market_regime", config.GetEnabledPatterns()[12])

	assert.Empty(t, (&PlannerConfiguration{}).GetEnabledPatterns())
}

func TestGetEnabledGenerators(t *testing.T) {
	tests := []struct {
		name     string
		config   *PlannerConfiguration
		expected []string
	}{
		{
			name:     "defaults",
			config:   NewDefaultConfiguration(),
			expected: []string{"enhanced_combinatorial", "partial_execution"},
		},
		{
			name: "exhaustive when enhanced is off",
			config: &PlannerConfiguration{
				EnableCombinatorialGenerator:        true,
				EnableConstraintRelaxationGenerator: true,
			},
			expected: []string{"combinatorial", "constraint_relaxation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.GetEnabledGenerators())
		})
	}
}

func TestGetEnabledFilters(t *testing.T) {
	assert.Equal(t, []string{"dedupe", "correlation_aware"}, NewDefaultConfiguration().GetEnabledFilters())
	assert.Equal(t, []string{"dedupe"}, (&PlannerConfiguration{}).GetEnabledFilters())
}

func TestGetParams(t *testing.T) {
	c := NewDefaultConfiguration()

	params := c.GetGeneratorParams("enhanced_combinatorial")
	assert.Equal(t, 5, params["max_depth"])
	assert.Equal(t, 50, params["max_combinations"])
	assert.Equal(t, 12, params["max_candidates"])
	assert.Equal(t, 0.3, params["priority_threshold"])
	assert.Equal(t, 1.3, c.GetGeneratorParams("constraint_relaxation")["max_cash_factor"])

	assert.Equal(t, map[string]interface{}{"max_depth": 5}, c.GetGeneratorParams("partial_execution"))
	assert.Equal(t, 0.7, c.GetFilterParams("correlation_aware")["threshold"])
	assert.Empty(t, c.GetFilterParams("dedupe"))
	assert.Equal(t, 0.40, c.GetCalculatorParams("profit_taking")["max_sell_percentage"])
	assert.Empty(t, c.GetCalculatorParams("opportunity_buys"))
}
