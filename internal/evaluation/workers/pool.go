// Package workers evaluates batches of sequences in parallel.
package workers

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/aristath/holistic-planner/internal/evaluation"
	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// ProgressCallback is invoked once per completed evaluation, always from a
// single goroutine, so it needs no locking of its own.
type ProgressCallback func(current, total int, message string)

// WorkerPool manages a pool of worker goroutines for parallel sequence evaluation
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 10 // Default to 10 workers
	}
	return &WorkerPool{
		numWorkers: numWorkers,
	}
}

// NewDefaultWorkerPool sizes the pool to the number of logical CPUs
func NewDefaultWorkerPool() *WorkerPool {
	return NewWorkerPool(DefaultWorkerCount())
}

// DefaultWorkerCount returns the logical CPU count, falling back to GOMAXPROCS
func DefaultWorkerCount() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// Workers returns the configured worker count
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// EvaluateBatch evaluates multiple sequences in parallel using the worker pool
//
// Args:
//   - sequences: List of sequences to evaluate
//   - evalContext: Evaluation context shared by all sequences
//   - progressCallback: Optional, called after every completed evaluation
//
// Returns:
//   - List of evaluation results (same order as input sequences)
func (wp *WorkerPool) EvaluateBatch(
	sequences [][]models.ActionCandidate,
	evalContext models.EvaluationContext,
	progressCallback ProgressCallback,
) []models.SequenceEvaluationResult {
	results, _ := wp.EvaluateBatchContext(context.Background(), sequences, evalContext, progressCallback)
	return results
}

// EvaluateBatchContext is EvaluateBatch with cancellation. Jobs not started
// before ctx is done are skipped; their slots stay zero-valued and ctx.Err()
// is returned. A panic while evaluating one sequence is reported as an error
// for that sequence only.
func (wp *WorkerPool) EvaluateBatchContext(
	ctx context.Context,
	sequences [][]models.ActionCandidate,
	evalContext models.EvaluationContext,
	progressCallback ProgressCallback,
) ([]models.SequenceEvaluationResult, error) {
	outcomes := wp.EvaluateOutcomes(ctx, sequences, evalContext, progressCallback)

	resultSlice := make([]models.SequenceEvaluationResult, len(outcomes))
	var firstErr error
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			if firstErr == nil {
				firstErr = outcome.Err
			}
			continue
		}
		resultSlice[i] = outcome.Result
	}

	if err := ctx.Err(); err != nil {
		return resultSlice, err
	}
	return resultSlice, firstErr
}

// Outcome is the result of evaluating one sequence, or why it has none
type Outcome struct {
	Result models.SequenceEvaluationResult
	Err    error
}

// EvaluateOutcomes evaluates sequences in parallel and reports every
// sequence's outcome separately, in input order. Sequences skipped because
// ctx is done carry ctx.Err().
func (wp *WorkerPool) EvaluateOutcomes(
	ctx context.Context,
	sequences [][]models.ActionCandidate,
	evalContext models.EvaluationContext,
	progressCallback ProgressCallback,
) []Outcome {
	numSequences := len(sequences)
	if numSequences == 0 {
		return []Outcome{}
	}

	jobs := make(chan jobItem, numSequences)
	results := make(chan resultItem, numSequences)

	var wg sync.WaitGroup
	numActualWorkers := wp.numWorkers
	if numSequences < numActualWorkers {
		numActualWorkers = numSequences // Don't spawn more workers than sequences
	}

	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, evalContext)
		}()
	}

	for idx, sequence := range sequences {
		jobs <- jobItem{index: idx, sequence: sequence}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, numSequences)
	seen := make([]bool, numSequences)
	completed := 0
	for result := range results {
		seen[result.index] = true
		if result.err != nil {
			outcomes[result.index].Err = result.err
			continue
		}
		outcomes[result.index].Result = result.evalResult
		completed++
		if progressCallback != nil {
			progressCallback(completed, numSequences, fmt.Sprintf("Evaluating sequences (%d/%d)", completed, numSequences))
		}
	}

	for i := range outcomes {
		if !seen[i] {
			outcomes[i].Err = fmt.Errorf("evaluation of sequence %d skipped: %w", i, ctx.Err())
		}
	}
	return outcomes
}

// jobItem represents a single evaluation job
type jobItem struct {
	index    int
	sequence []models.ActionCandidate
}

// resultItem represents the result of an evaluation job
type resultItem struct {
	index      int
	evalResult models.SequenceEvaluationResult
	err        error
}

// worker is the worker goroutine that processes evaluation jobs
func worker(
	ctx context.Context,
	jobs <-chan jobItem,
	results chan<- resultItem,
	evalContext models.EvaluationContext,
) {
	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- evaluateJob(job, evalContext)
	}
}

func evaluateJob(job jobItem, evalContext models.EvaluationContext) (item resultItem) {
	item.index = job.index
	defer func() {
		if r := recover(); r != nil {
			item.err = fmt.Errorf("panic evaluating sequence %d: %v", job.index, r)
		}
	}()
	item.evalResult = evaluation.EvaluateSequence(job.sequence, evalContext)
	return item
}

// SimulateBatch simulates multiple sequences in parallel (no scoring)
//
// Returns:
//   - List of simulation results (same order as input sequences)
func (wp *WorkerPool) SimulateBatch(
	sequences [][]models.ActionCandidate,
	evalContext models.EvaluationContext,
) []models.SimulationResult {
	numSequences := len(sequences)
	if numSequences == 0 {
		return []models.SimulationResult{}
	}

	jobs := make(chan jobItem, numSequences)
	results := make(chan simResultItem, numSequences)

	var wg sync.WaitGroup
	numActualWorkers := wp.numWorkers
	if numSequences < numActualWorkers {
		numActualWorkers = numSequences
	}

	securities := evaluation.SecuritiesLookup(evalContext)
	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				endContext, endCash := evaluation.SimulateSequence(
					job.sequence,
					evalContext.PortfolioContext,
					evalContext.AvailableCashEUR,
					securities,
					evalContext.PriceAdjustments,
				)
				results <- simResultItem{
					index: job.index,
					simResult: models.SimulationResult{
						Sequence:     job.sequence,
						EndPortfolio: endContext,
						EndCashEUR:   endCash,
						Feasible:     evaluation.CheckSequenceFeasibility(job.sequence, evalContext.AvailableCashEUR, evalContext.PriceAdjustments),
					},
				}
			}
		}()
	}

	for idx, sequence := range sequences {
		jobs <- jobItem{index: idx, sequence: sequence}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	resultSlice := make([]models.SimulationResult, numSequences)
	for result := range results {
		resultSlice[result.index] = result.simResult
	}

	return resultSlice
}

// simResultItem represents the result of a simulation job
type simResultItem struct {
	index     int
	simResult models.SimulationResult
}
