// Package repository provides the planner job store: generated sequences,
// their evaluations and the best result, all scoped by portfolio fingerprint.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/holistic-planner/internal/database"
	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// PlannerRepository handles database operations for the planner job store.
// Database: planner.db (sequences, evaluations, best_result tables)
type PlannerRepository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewPlannerRepository creates a new planner repository on a migrated planner.db connection.
func NewPlannerRepository(db *sql.DB, log zerolog.Logger) *PlannerRepository {
	return &PlannerRepository{
		db:  db,
		now: time.Now,
		log: log.With().Str("component", "planner_repository").Logger(),
	}
}

// Seed inserts sequences for a fingerprint, unless it already has some.
func (r *PlannerRepository) Seed(portfolioHash string, sequences []domain.ActionSequence) (int, error) {
	inserted := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM sequences WHERE portfolio_hash = ?`, portfolioHash,
		).Scan(&existing); err != nil {
			return fmt.Errorf("failed to count sequences: %w", err)
		}
		if existing > 0 {
			return nil
		}

		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO sequences
				(sequence_hash, portfolio_hash, sequence_data, pattern_type, depth, priority, exploratory, completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare sequence insert: %w", err)
		}
		defer stmt.Close()

		createdAt := r.now().Unix()
		for _, seq := range sequences {
			data, err := msgpack.Marshal(seq.Actions)
			if err != nil {
				return fmt.Errorf("failed to marshal sequence %s: %w", seq.SequenceHash, err)
			}
			result, err := stmt.Exec(
				seq.SequenceHash, portfolioHash, data, seq.PatternType,
				seq.Depth, seq.Priority, seq.Exploratory, createdAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert sequence %s: %w", seq.SequenceHash, err)
			}
			if n, _ := result.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed sequences: %w", err)
	}

	r.log.Info().
		Str("portfolio_hash", portfolioHash).
		Int("offered", len(sequences)).
		Int("inserted", inserted).
		Msg("Seeded sequences")

	return inserted, nil
}

// NextBatch returns up to limit pending sequences in consumption order.
func (r *PlannerRepository) NextBatch(portfolioHash string, limit int) ([]SequenceRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT sequence_hash, portfolio_hash, sequence_data, pattern_type, depth, priority,
		       exploratory, completed, evaluated_at, created_at
		FROM sequences
		WHERE portfolio_hash = ? AND completed = 0
		ORDER BY priority DESC, created_at ASC, rowid ASC
		LIMIT ?
	`, portfolioHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending sequences: %w", err)
	}
	defer rows.Close()

	var records []SequenceRecord
	for rows.Next() {
		record, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending sequences: %w", err)
	}
	return records, nil
}

// GetSequence retrieves a sequence by sequence hash and portfolio hash, nil when absent.
func (r *PlannerRepository) GetSequence(sequenceHash, portfolioHash string) (*domain.ActionSequence, error) {
	row := r.db.QueryRow(`
		SELECT sequence_hash, portfolio_hash, sequence_data, pattern_type, depth, priority,
		       exploratory, completed, evaluated_at, created_at
		FROM sequences
		WHERE sequence_hash = ? AND portfolio_hash = ?
	`, sequenceHash, portfolioHash)

	record, err := scanSequence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record.Sequence, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSequence(row rowScanner) (SequenceRecord, error) {
	var (
		record      SequenceRecord
		data        []byte
		evaluatedAt sql.NullInt64
		createdAt   int64
	)
	err := row.Scan(
		&record.SequenceHash,
		&record.PortfolioHash,
		&data,
		&record.PatternType,
		&record.Depth,
		&record.Priority,
		&record.Exploratory,
		&record.Completed,
		&evaluatedAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return record, err
	}
	if err != nil {
		return record, fmt.Errorf("failed to scan sequence: %w", err)
	}

	var actions []domain.ActionCandidate
	if err := msgpack.Unmarshal(data, &actions); err != nil {
		return record, fmt.Errorf("failed to unmarshal sequence %s: %w", record.SequenceHash, err)
	}

	record.Sequence = domain.ActionSequence{
		Actions:      actions,
		Priority:     record.Priority,
		Depth:        record.Depth,
		PatternType:  record.PatternType,
		SequenceHash: record.SequenceHash,
		Exploratory:  record.Exploratory,
	}
	record.CreatedAt = time.Unix(createdAt, 0)
	if evaluatedAt.Valid {
		t := time.Unix(evaluatedAt.Int64, 0)
		record.EvaluatedAt = &t
	}
	return record, nil
}

// RecordEvaluation stores an evaluation and completes its sequence atomically.
func (r *PlannerRepository) RecordEvaluation(record EvaluationRecord) error {
	positions := record.EndPositions
	if positions == nil {
		positions = map[string]float64{}
	}
	positionsJSON, err := json.Marshal(positions)
	if err != nil {
		return fmt.Errorf("failed to marshal end positions: %w", err)
	}
	breakdownJSON, err := json.Marshal(record.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	evaluatedAt := record.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = r.now()
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO evaluations
				(sequence_hash, portfolio_hash, end_score, diversification_score, risk_score,
				 transaction_cost, end_cash, end_positions_json, breakdown_json, total_value, evaluated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			record.SequenceHash, record.PortfolioHash, record.EndScore, record.DiversificationScore,
			record.RiskScore, record.TransactionCost, record.EndCash, string(positionsJSON),
			string(breakdownJSON), record.TotalValue, evaluatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert evaluation: %w", err)
		}
		return markCompleted(tx, record.SequenceHash, record.PortfolioHash, evaluatedAt)
	})
	if err != nil {
		return fmt.Errorf("failed to record evaluation: %w", err)
	}
	return nil
}

// MarkSequenceCompleted marks a sequence completed without an evaluation.
func (r *PlannerRepository) MarkSequenceCompleted(sequenceHash, portfolioHash string) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		return markCompleted(tx, sequenceHash, portfolioHash, r.now())
	})
	if err != nil {
		return fmt.Errorf("failed to mark sequence completed: %w", err)
	}
	return nil
}

func markCompleted(tx *sql.Tx, sequenceHash, portfolioHash string, at time.Time) error {
	if _, err := tx.Exec(`
		UPDATE sequences
		SET completed = 1, evaluated_at = COALESCE(evaluated_at, ?)
		WHERE sequence_hash = ? AND portfolio_hash = ?
	`, at.Unix(), sequenceHash, portfolioHash); err != nil {
		return fmt.Errorf("failed to update sequence: %w", err)
	}
	return nil
}

// GetEvaluation retrieves an evaluation, nil when there is none.
func (r *PlannerRepository) GetEvaluation(sequenceHash, portfolioHash string) (*EvaluationRecord, error) {
	var (
		record        EvaluationRecord
		positionsJSON string
		breakdownJSON string
		evaluatedAt   int64
	)
	err := r.db.QueryRow(`
		SELECT sequence_hash, portfolio_hash, end_score, diversification_score, risk_score,
		       transaction_cost, end_cash, end_positions_json, breakdown_json, total_value, evaluated_at
		FROM evaluations
		WHERE sequence_hash = ? AND portfolio_hash = ?
	`, sequenceHash, portfolioHash).Scan(
		&record.SequenceHash,
		&record.PortfolioHash,
		&record.EndScore,
		&record.DiversificationScore,
		&record.RiskScore,
		&record.TransactionCost,
		&record.EndCash,
		&positionsJSON,
		&breakdownJSON,
		&record.TotalValue,
		&evaluatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	if err := json.Unmarshal([]byte(positionsJSON), &record.EndPositions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal end positions: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdownJSON), &record.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}
	record.EvaluatedAt = time.Unix(evaluatedAt, 0)
	return &record, nil
}

// UpdateBestIfBetter upserts the best result only when score beats the stored one.
func (r *PlannerRepository) UpdateBestIfBetter(portfolioHash, sequenceHash string, score float64) (bool, error) {
	result, err := r.db.Exec(`
		INSERT INTO best_result (portfolio_hash, best_sequence_hash, best_score, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(portfolio_hash) DO UPDATE SET
			best_sequence_hash = excluded.best_sequence_hash,
			best_score = excluded.best_score,
			updated_at = excluded.updated_at
		WHERE excluded.best_score > best_result.best_score
	`, portfolioHash, sequenceHash, score, r.now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to update best result: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if n > 0 {
		r.log.Debug().
			Str("portfolio_hash", portfolioHash).
			Str("sequence_hash", sequenceHash).
			Float64("score", score).
			Msg("Best result updated")
	}
	return n > 0, nil
}

// BestResult retrieves the best result, nil when there is none.
func (r *PlannerRepository) BestResult(portfolioHash string) (*BestResultRecord, error) {
	var (
		record    BestResultRecord
		updatedAt int64
	)
	err := r.db.QueryRow(`
		SELECT portfolio_hash, best_sequence_hash, best_score, updated_at
		FROM best_result
		WHERE portfolio_hash = ?
	`, portfolioHash).Scan(&record.PortfolioHash, &record.SequenceHash, &record.Score, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get best result: %w", err)
	}
	record.UpdatedAt = time.Unix(updatedAt, 0)
	return &record, nil
}

// AllEvaluated reports whether the fingerprint has sequences and none is pending.
func (r *PlannerRepository) AllEvaluated(portfolioHash string) (bool, error) {
	total, err := r.CountSequences(portfolioHash)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	pending, err := r.CountPendingSequences(portfolioHash)
	if err != nil {
		return false, err
	}
	return pending == 0, nil
}

// PurgeStaleFingerprints deletes everything not belonging to currentHash.
func (r *PlannerRepository) PurgeStaleFingerprints(currentHash string) ([]string, error) {
	var purged []string
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT portfolio_hash FROM sequences WHERE portfolio_hash != ?
			UNION
			SELECT portfolio_hash FROM evaluations WHERE portfolio_hash != ?
			UNION
			SELECT portfolio_hash FROM best_result WHERE portfolio_hash != ?
		`, currentHash, currentHash, currentHash)
		if err != nil {
			return fmt.Errorf("failed to query stale fingerprints: %w", err)
		}
		for rows.Next() {
			var hash string
			if err := rows.Scan(&hash); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan fingerprint: %w", err)
			}
			purged = append(purged, hash)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("failed to close fingerprint rows: %w", err)
		}
		if len(purged) == 0 {
			return nil
		}

		for _, table := range []string{"evaluations", "sequences", "best_result"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE portfolio_hash != ?`, currentHash); err != nil {
				return fmt.Errorf("failed to purge %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to purge stale fingerprints: %w", err)
	}

	sort.Strings(purged)
	if len(purged) > 0 {
		r.log.Info().
			Str("current_hash", currentHash).
			Strs("purged", purged).
			Msg("Purged stale portfolio fingerprints")
	}
	return purged, nil
}

// HasSequences reports whether any sequence exists for the fingerprint.
func (r *PlannerRepository) HasSequences(portfolioHash string) (bool, error) {
	n, err := r.CountSequences(portfolioHash)
	return n > 0, err
}

// CountSequences returns the total number of sequences for a portfolio hash.
func (r *PlannerRepository) CountSequences(portfolioHash string) (int, error) {
	return r.count(`SELECT COUNT(*) FROM sequences WHERE portfolio_hash = ?`, portfolioHash)
}

// CountPendingSequences returns the number of pending sequences for a portfolio hash.
func (r *PlannerRepository) CountPendingSequences(portfolioHash string) (int, error) {
	return r.count(`SELECT COUNT(*) FROM sequences WHERE portfolio_hash = ? AND completed = 0`, portfolioHash)
}

// CountEvaluations returns the total number of evaluations for a portfolio hash.
func (r *PlannerRepository) CountEvaluations(portfolioHash string) (int, error) {
	return r.count(`SELECT COUNT(*) FROM evaluations WHERE portfolio_hash = ?`, portfolioHash)
}

func (r *PlannerRepository) count(query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}
