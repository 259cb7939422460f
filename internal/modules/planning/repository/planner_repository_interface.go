package repository

import (
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// PlannerRepositoryInterface defines the contract for the planner job store.
// Every record is scoped by portfolio fingerprint.
type PlannerRepositoryInterface interface {
	// Seed inserts sequences for a fingerprint in one transaction. It is a
	// no-op when the fingerprint already has sequences, and repeated hashes
	// in the input are inserted once.
	Seed(portfolioHash string, sequences []domain.ActionSequence) (int, error)

	// NextBatch returns up to limit pending sequences, highest priority first
	// and oldest first among equal priorities
	NextBatch(portfolioHash string, limit int) ([]SequenceRecord, error)

	// GetSequence retrieves a sequence by sequence hash and portfolio hash
	GetSequence(sequenceHash, portfolioHash string) (*domain.ActionSequence, error)

	// RecordEvaluation stores an evaluation and marks its sequence completed
	// in one transaction. Recording the same evaluation twice keeps the first.
	RecordEvaluation(record EvaluationRecord) error

	// MarkSequenceCompleted marks a sequence completed without an evaluation
	MarkSequenceCompleted(sequenceHash, portfolioHash string) error

	// GetEvaluation retrieves an evaluation, nil when there is none
	GetEvaluation(sequenceHash, portfolioHash string) (*EvaluationRecord, error)

	// UpdateBestIfBetter stores the best result unless an equal or better
	// score is already stored, and reports whether it did
	UpdateBestIfBetter(portfolioHash, sequenceHash string, score float64) (bool, error)

	// BestResult retrieves the best result, nil when there is none
	BestResult(portfolioHash string) (*BestResultRecord, error)

	// AllEvaluated reports whether the fingerprint has sequences and none is pending
	AllEvaluated(portfolioHash string) (bool, error)

	// PurgeStaleFingerprints deletes sequences, evaluations and best results
	// of every other fingerprint and returns the purged fingerprints, sorted
	PurgeStaleFingerprints(currentHash string) ([]string, error)

	// HasSequences reports whether any sequence exists for the fingerprint
	HasSequences(portfolioHash string) (bool, error)

	// CountSequences returns the total number of sequences for a portfolio hash
	CountSequences(portfolioHash string) (int, error)

	// CountPendingSequences returns the number of pending sequences for a portfolio hash
	CountPendingSequences(portfolioHash string) (int, error)

	// CountEvaluations returns the total number of evaluations for a portfolio hash
	CountEvaluations(portfolioHash string) (int, error)
}

// Compile-time checks that both stores implement PlannerRepositoryInterface
var (
	_ PlannerRepositoryInterface = (*PlannerRepository)(nil)
	_ PlannerRepositoryInterface = (*InMemoryPlannerRepository)(nil)
)
