package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluationResult_IsDominatedBy(t *testing.T) {
	base := EvaluationResult{EndScore: 0.6, DiversificationScore: 0.5, RiskScore: 0.5, TransactionCost: 10}

	tests := []struct {
		name     string
		other    EvaluationResult
		expected bool
	}{
		{"identical does not dominate", base, false},
		{"better score dominates", EvaluationResult{EndScore: 0.7, DiversificationScore: 0.5, RiskScore: 0.5, TransactionCost: 10}, true},
		{"cheaper dominates", EvaluationResult{EndScore: 0.6, DiversificationScore: 0.5, RiskScore: 0.5, TransactionCost: 5}, true},
		{"trade-off does not dominate", EvaluationResult{EndScore: 0.7, DiversificationScore: 0.4, RiskScore: 0.5, TransactionCost: 10}, false},
		{"costlier does not dominate", EvaluationResult{EndScore: 0.9, DiversificationScore: 0.9, RiskScore: 0.9, TransactionCost: 11}, false},
		{"worse everywhere does not dominate", EvaluationResult{EndScore: 0.1, DiversificationScore: 0.1, RiskScore: 0.1, TransactionCost: 50}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, base.IsDominatedBy(tt.other))
		})
	}
}

func TestActionSequence_AveragePriority(t *testing.T) {
	assert.Equal(t, 0.0, ActionSequence{}.AveragePriority())

	seq := ActionSequence{Actions: []ActionCandidate{{Priority: 0.2}, {Priority: 0.6}}}
	assert.InDelta(t, 0.4, seq.AveragePriority(), 1e-12)
}

func TestOpportunitiesByCategory_Count(t *testing.T) {
	opps := OpportunitiesByCategory{
		OpportunityCategoryProfitTaking:  {{Symbol: "A"}},
		OpportunityCategoryRebalanceBuys: {{Symbol: "B"}, {Symbol: "C"}},
	}
	assert.Equal(t, 3, opps.Count())
	assert.False(t, opps.IsEmpty())
	assert.True(t, OpportunitiesByCategory{OpportunityCategoryAveragingDown: nil}.IsEmpty())
}

func TestActionCandidate_HasTag(t *testing.T) {
	c := ActionCandidate{Tags: []string{TagWindfall, TagProfitTaking}}
	assert.True(t, c.HasTag(TagWindfall))
	assert.False(t, c.HasTag(TagAveragingDown))
}

func TestEvaluationResult_Usable(t *testing.T) {
	tests := []struct {
		name   string
		result EvaluationResult
		want   bool
	}{
		{"feasible", EvaluationResult{EndScore: 0.5, Feasible: true}, true},
		{"infeasible", EvaluationResult{EndScore: 0.5}, false},
		{"errored", EvaluationResult{EndScore: 0.5, Feasible: true, Error: "boom"}, false},
		{"nan score", EvaluationResult{EndScore: math.NaN(), Feasible: true}, false},
		{"infinite score", EvaluationResult{EndScore: math.Inf(1), Feasible: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Usable())
		})
	}
}
