package repository

import (
	"time"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// SequenceRecord represents a stored sequence and its consumption state.
type SequenceRecord struct {
	SequenceHash  string
	PortfolioHash string
	Sequence      domain.ActionSequence
	PatternType   string
	Depth         int
	Priority      float64
	Exploratory   bool
	Completed     bool
	EvaluatedAt   *time.Time // Nullable
	CreatedAt     time.Time
}

// EvaluationRecord represents a stored evaluation.
type EvaluationRecord struct {
	SequenceHash         string
	PortfolioHash        string
	EndScore             float64
	DiversificationScore float64
	RiskScore            float64
	TransactionCost      float64
	EndCash              float64
	EndPositions         map[string]float64 // Symbol -> value EUR
	Breakdown            models.ScoreBreakdown
	TotalValue           float64
	EvaluatedAt          time.Time
}

// BestResultRecord represents the best evaluated sequence of a portfolio fingerprint.
type BestResultRecord struct {
	PortfolioHash string
	SequenceHash  string
	Score         float64
	UpdatedAt     time.Time
}

// NewEvaluationRecord builds the record stored for one evaluation result.
func NewEvaluationRecord(portfolioHash string, result domain.EvaluationResult, evaluatedAt time.Time) EvaluationRecord {
	return EvaluationRecord{
		SequenceHash:         result.SequenceHash,
		PortfolioHash:        portfolioHash,
		EndScore:             result.EndScore,
		DiversificationScore: result.DiversificationScore,
		RiskScore:            result.RiskScore,
		TransactionCost:      result.TransactionCost,
		EndCash:              result.EndCash,
		EndPositions:         result.EndPositions,
		Breakdown:            result.Breakdown,
		TotalValue:           result.TotalValue,
		EvaluatedAt:          evaluatedAt,
	}
}

// Result converts the record back into an evaluation result. Stored
// evaluations are always of feasible sequences.
func (r EvaluationRecord) Result() domain.EvaluationResult {
	return domain.EvaluationResult{
		SequenceHash:         r.SequenceHash,
		PortfolioHash:        r.PortfolioHash,
		EndScore:             r.EndScore,
		DiversificationScore: r.DiversificationScore,
		RiskScore:            r.RiskScore,
		TransactionCost:      r.TransactionCost,
		EndCash:              r.EndCash,
		EndPositions:         r.EndPositions,
		Breakdown:            r.Breakdown,
		TotalValue:           r.TotalValue,
		Feasible:             true,
	}
}
