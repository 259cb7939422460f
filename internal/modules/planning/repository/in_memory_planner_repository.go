package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// InMemoryPlannerRepository is a PlannerRepositoryInterface kept in process memory.
// Used by the evaluator-less test setups and by planners started without a database.
type InMemoryPlannerRepository struct {
	mu          sync.RWMutex
	sequences   map[string]map[string]*SequenceRecord // portfolio -> sequence -> record
	order       map[string][]string                   // insertion order per portfolio
	evaluations map[string]map[string]EvaluationRecord
	best        map[string]BestResultRecord
	now         func() time.Time
	log         zerolog.Logger
}

// NewInMemoryPlannerRepository creates an empty in-memory job store.
func NewInMemoryPlannerRepository(log zerolog.Logger) *InMemoryPlannerRepository {
	return &InMemoryPlannerRepository{
		sequences:   make(map[string]map[string]*SequenceRecord),
		order:       make(map[string][]string),
		evaluations: make(map[string]map[string]EvaluationRecord),
		best:        make(map[string]BestResultRecord),
		now:         time.Now,
		log:         log.With().Str("component", "memory_planner_repository").Logger(),
	}
}

// Seed inserts sequences for a fingerprint, unless it already has some.
func (r *InMemoryPlannerRepository) Seed(portfolioHash string, sequences []domain.ActionSequence) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sequences[portfolioHash]) > 0 {
		return 0, nil
	}

	bucket := make(map[string]*SequenceRecord, len(sequences))
	order := make([]string, 0, len(sequences))
	createdAt := time.Unix(r.now().Unix(), 0)
	for _, seq := range sequences {
		if _, ok := bucket[seq.SequenceHash]; ok {
			continue
		}
		stored := seq
		stored.Actions = append([]domain.ActionCandidate(nil), seq.Actions...)
		bucket[seq.SequenceHash] = &SequenceRecord{
			SequenceHash:  seq.SequenceHash,
			PortfolioHash: portfolioHash,
			Sequence:      stored,
			PatternType:   seq.PatternType,
			Depth:         seq.Depth,
			Priority:      seq.Priority,
			Exploratory:   seq.Exploratory,
			CreatedAt:     createdAt,
		}
		order = append(order, seq.SequenceHash)
	}
	if len(order) == 0 {
		return 0, nil
	}
	r.sequences[portfolioHash] = bucket
	r.order[portfolioHash] = order

	r.log.Info().
		Str("portfolio_hash", portfolioHash).
		Int("inserted", len(order)).
		Msg("Seeded sequences")
	return len(order), nil
}

// NextBatch returns up to limit pending sequences in consumption order.
func (r *InMemoryPlannerRepository) NextBatch(portfolioHash string, limit int) ([]SequenceRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.sequences[portfolioHash]
	var pending []SequenceRecord
	for _, hash := range r.order[portfolioHash] {
		record := bucket[hash]
		if !record.Completed {
			pending = append(pending, *record)
		}
	}
	// Insertion order stands in for created_at, rowid.
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority > pending[j].Priority
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// GetSequence retrieves a sequence by sequence hash and portfolio hash, nil when absent.
func (r *InMemoryPlannerRepository) GetSequence(sequenceHash, portfolioHash string) (*domain.ActionSequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.sequences[portfolioHash][sequenceHash]
	if !ok {
		return nil, nil
	}
	seq := record.Sequence
	return &seq, nil
}

// RecordEvaluation stores an evaluation and completes its sequence.
func (r *InMemoryPlannerRepository) RecordEvaluation(record EvaluationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.EvaluatedAt.IsZero() {
		record.EvaluatedAt = r.now()
	}
	record.EvaluatedAt = time.Unix(record.EvaluatedAt.Unix(), 0)
	if record.EndPositions == nil {
		record.EndPositions = map[string]float64{}
	}

	evals, ok := r.evaluations[record.PortfolioHash]
	if !ok {
		evals = make(map[string]EvaluationRecord)
		r.evaluations[record.PortfolioHash] = evals
	}
	if _, exists := evals[record.SequenceHash]; !exists {
		evals[record.SequenceHash] = record
	}
	r.markCompletedLocked(record.SequenceHash, record.PortfolioHash, record.EvaluatedAt)
	return nil
}

// MarkSequenceCompleted marks a sequence completed without an evaluation.
func (r *InMemoryPlannerRepository) MarkSequenceCompleted(sequenceHash, portfolioHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCompletedLocked(sequenceHash, portfolioHash, time.Unix(r.now().Unix(), 0))
	return nil
}

func (r *InMemoryPlannerRepository) markCompletedLocked(sequenceHash, portfolioHash string, at time.Time) {
	record, ok := r.sequences[portfolioHash][sequenceHash]
	if !ok {
		return
	}
	record.Completed = true
	if record.EvaluatedAt == nil {
		t := at
		record.EvaluatedAt = &t
	}
}

// GetEvaluation retrieves an evaluation, nil when there is none.
func (r *InMemoryPlannerRepository) GetEvaluation(sequenceHash, portfolioHash string) (*EvaluationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.evaluations[portfolioHash][sequenceHash]
	if !ok {
		return nil, nil
	}
	positions := make(map[string]float64, len(record.EndPositions))
	for symbol, value := range record.EndPositions {
		positions[symbol] = value
	}
	record.EndPositions = positions
	return &record, nil
}

// UpdateBestIfBetter stores the best result only when score beats the stored one.
func (r *InMemoryPlannerRepository) UpdateBestIfBetter(portfolioHash, sequenceHash string, score float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.best[portfolioHash]; ok && score <= current.Score {
		return false, nil
	}
	r.best[portfolioHash] = BestResultRecord{
		PortfolioHash: portfolioHash,
		SequenceHash:  sequenceHash,
		Score:         score,
		UpdatedAt:     time.Unix(r.now().Unix(), 0),
	}
	return true, nil
}

// BestResult retrieves the best result, nil when there is none.
func (r *InMemoryPlannerRepository) BestResult(portfolioHash string) (*BestResultRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.best[portfolioHash]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// AllEvaluated reports whether the fingerprint has sequences and none is pending.
func (r *InMemoryPlannerRepository) AllEvaluated(portfolioHash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.sequences[portfolioHash]
	if len(bucket) == 0 {
		return false, nil
	}
	for _, record := range bucket {
		if !record.Completed {
			return false, nil
		}
	}
	return true, nil
}

// PurgeStaleFingerprints deletes everything not belonging to currentHash.
func (r *InMemoryPlannerRepository) PurgeStaleFingerprints(currentHash string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stale := make(map[string]struct{})
	for hash := range r.sequences {
		stale[hash] = struct{}{}
	}
	for hash := range r.evaluations {
		stale[hash] = struct{}{}
	}
	for hash := range r.best {
		stale[hash] = struct{}{}
	}
	delete(stale, currentHash)

	purged := make([]string, 0, len(stale))
	for hash := range stale {
		delete(r.sequences, hash)
		delete(r.order, hash)
		delete(r.evaluations, hash)
		delete(r.best, hash)
		purged = append(purged, hash)
	}
	sort.Strings(purged)
	if len(purged) == 0 {
		return nil, nil
	}

	r.log.Info().
		Str("current_hash", currentHash).
		Strs("purged", purged).
		Msg("Purged stale portfolio fingerprints")
	return purged, nil
}

// HasSequences reports whether any sequence exists for the fingerprint.
func (r *InMemoryPlannerRepository) HasSequences(portfolioHash string) (bool, error) {
	n, err := r.CountSequences(portfolioHash)
	return n > 0, err
}

// CountSequences returns the total number of sequences for a portfolio hash.
func (r *InMemoryPlannerRepository) CountSequences(portfolioHash string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sequences[portfolioHash]), nil
}

// CountPendingSequences returns the number of pending sequences for a portfolio hash.
func (r *InMemoryPlannerRepository) CountPendingSequences(portfolioHash string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, record := range r.sequences[portfolioHash] {
		if !record.Completed {
			n++
		}
	}
	return n, nil
}

// CountEvaluations returns the total number of evaluations for a portfolio hash.
func (r *InMemoryPlannerRepository) CountEvaluations(portfolioHash string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.evaluations[portfolioHash]), nil
}
