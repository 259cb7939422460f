package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/holistic-planner/internal/modules/planning/domain"
)

// SearchState is the phase of the search controller over one batch.
type SearchState string

const (
	StateScanning    SearchState = "SCANNING"
	StateEvaluating  SearchState = "EVALUATING"
	StateBeamUpdated SearchState = "BEAM_UPDATED"
	StatePlateau     SearchState = "PLATEAU"
)

// Candidate pairs a sequence with its evaluation.
type Candidate struct {
	Sequence domain.ActionSequence
	Result   domain.EvaluationResult
}

// Frontier is the bounded best-so-far set kept during search.
type Frontier interface {
	// Offer considers a candidate and reports whether the frontier changed
	Offer(c Candidate) bool
	// Best returns the highest-scoring member
	Best() (Candidate, bool)
	// Members returns the members, best first
	Members() []Candidate
}

// NewFrontier returns the frontier selected by the configuration's search mode.
func NewFrontier(config *domain.PlannerConfiguration) Frontier {
	width := config.BeamWidth
	if width < 1 {
		width = 1
	}
	if config.SearchMode == domain.SearchModePareto {
		return NewParetoFrontier(width)
	}
	return NewBeam(width)
}

// Beam keeps the top-K candidates by end score.
type Beam struct {
	width   int
	members []Candidate
}

// NewBeam creates a beam of the given width.
func NewBeam(width int) *Beam {
	return &Beam{width: width, members: make([]Candidate, 0, width)}
}

// Offer adds the candidate when the beam has room or it beats the tail.
func (b *Beam) Offer(c Candidate) bool {
	if len(b.members) >= b.width && c.Result.EndScore <= b.members[len(b.members)-1].Result.EndScore {
		return false
	}
	b.members = append(b.members, c)
	sortByScore(b.members)
	if len(b.members) > b.width {
		b.members = b.members[:b.width]
	}
	return true
}

// Best returns the beam head.
func (b *Beam) Best() (Candidate, bool) {
	if len(b.members) == 0 {
		return Candidate{}, false
	}
	return b.members[0], true
}

// Members returns a copy of the beam, best first.
func (b *Beam) Members() []Candidate {
	return append([]Candidate(nil), b.members...)
}

// ParetoFrontier keeps candidates no other member dominates on end score,
// diversification, risk and transaction cost, capped at K by end score.
type ParetoFrontier struct {
	capacity int
	members  []Candidate
}

// NewParetoFrontier creates a Pareto frontier holding at most capacity members.
func NewParetoFrontier(capacity int) *ParetoFrontier {
	return &ParetoFrontier{capacity: capacity}
}

// Offer removes members the candidate dominates, then inserts it unless a
// member dominates it.
func (p *ParetoFrontier) Offer(c Candidate) bool {
	for _, m := range p.members {
		if c.Result.IsDominatedBy(m.Result) {
			return false
		}
	}

	kept := p.members[:0]
	for _, m := range p.members {
		if !m.Result.IsDominatedBy(c.Result) {
			kept = append(kept, m)
		}
	}
	p.members = append(kept, c)
	sortByScore(p.members)

	if len(p.members) > p.capacity {
		dropped := p.members[p.capacity:]
		p.members = p.members[:p.capacity]
		for _, d := range dropped {
			if d.Sequence.SequenceHash == c.Sequence.SequenceHash {
				return false
			}
		}
	}
	return true
}

// Best returns the member with the highest end score.
func (p *ParetoFrontier) Best() (Candidate, bool) {
	if len(p.members) == 0 {
		return Candidate{}, false
	}
	return p.members[0], true
}

// Members returns a copy of the frontier, best first.
func (p *ParetoFrontier) Members() []Candidate {
	return append([]Candidate(nil), p.members...)
}

func sortByScore(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].Result.EndScore > c[j].Result.EndScore
	})
}

// Evaluator scores sequences; results come back in input order.
type Evaluator interface {
	BatchEvaluate(
		ctx context.Context,
		sequences []domain.ActionSequence,
		portfolioHash string,
		config *domain.PlannerConfiguration,
		opportunityCtx *domain.OpportunityContext,
	) ([]domain.EvaluationResult, error)
}

// SearchResult is the outcome of searching one batch of sequences.
type SearchResult struct {
	Best           *Candidate  // Best non-exploratory candidate, nil when none was usable
	Frontier       []Candidate // Final beam or Pareto frontier, best first
	Evaluated      []Candidate // Usable evaluations, in completion order
	Failed         []Candidate // Evaluations with an error, infeasible or non-finite
	EvaluatedCount int         // Sequences whose evaluation came back, usable or not
	EarlyStop      bool
	State          SearchState
}

// SearchController runs beam or Pareto search over sequences with plateau
// detection. Chunks are evaluated one after another by a producer goroutine
// while the caller's goroutine folds results into the frontier.
type SearchController struct {
	evaluator Evaluator
	log       zerolog.Logger
}

// NewSearchController creates a search controller.
func NewSearchController(evaluator Evaluator, log zerolog.Logger) *SearchController {
	return &SearchController{
		evaluator: evaluator,
		log:       log.With().Str("component", "search_controller").Logger(),
	}
}

type evaluatedChunk struct {
	sequences []domain.ActionSequence
	results   []domain.EvaluationResult
}

// Search evaluates sequences in priority order and returns the best found.
//
// When ctx is cancelled the partial result is returned together with the
// context error, so completed evaluations can still be persisted.
func (s *SearchController) Search(
	ctx context.Context,
	sequences []domain.ActionSequence,
	portfolioHash string,
	config *domain.PlannerConfiguration,
	opportunityCtx *domain.OpportunityContext,
) (*SearchResult, error) {
	if config == nil {
		config = domain.NewDefaultConfiguration()
	}

	result := &SearchResult{State: StateScanning}
	frontier := NewFrontier(config)
	if len(sequences) == 0 {
		return result, nil
	}

	ordered := append([]domain.ActionSequence(nil), sequences...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	chunkSize := config.EvaluationChunkSize
	if chunkSize <= 0 || chunkSize > len(ordered) {
		chunkSize = len(ordered)
	}

	stopCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(stopCtx)

	chunks := make(chan evaluatedChunk, 1)
	g.Go(func() error {
		defer close(chunks)
		for start := 0; start < len(ordered); start += chunkSize {
			if gctx.Err() != nil {
				return nil
			}
			end := min(start+chunkSize, len(ordered))
			chunk := ordered[start:end]

			results, err := s.evaluator.BatchEvaluate(gctx, chunk, portfolioHash, config, opportunityCtx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("failed to evaluate chunk at %d: %w", start, err)
			}
			if len(results) != len(chunk) {
				return fmt.Errorf("evaluator returned %d results for %d sequences", len(results), len(chunk))
			}

			select {
			case chunks <- evaluatedChunk{sequences: chunk, results: results}:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	result.State = StateEvaluating
	var bestScore float64
	haveBest := false
	plateau := 0

coordinate:
	for chunk := range chunks {
		updated := false
		for i, seq := range chunk.sequences {
			if ctx.Err() != nil {
				break coordinate
			}

			res := chunk.results[i]
			if res.SequenceHash == "" {
				res.SequenceHash = seq.SequenceHash
			}
			res.Exploratory = seq.Exploratory
			c := Candidate{Sequence: seq, Result: res}
			result.EvaluatedCount++

			if !res.Usable() {
				result.Failed = append(result.Failed, c)
				plateau++
				continue
			}
			result.Evaluated = append(result.Evaluated, c)

			// Exploratory sequences are recorded but never ranked.
			if seq.Exploratory {
				plateau++
				continue
			}

			if frontier.Offer(c) {
				updated = true
			}
			if !haveBest || res.EndScore > bestScore {
				bestScore = res.EndScore
				haveBest = true
				plateau = 0
			} else {
				plateau++
			}
		}

		if updated {
			result.State = StateBeamUpdated
		} else {
			result.State = StateEvaluating
		}

		// Early stop depends on the score plateau alone; a Pareto frontier
		// may still be admitting members.
		if result.EvaluatedCount >= config.MinEvaluations && plateau >= config.PlateauThreshold {
			result.State = StatePlateau
			result.EarlyStop = true
			s.log.Info().
				Int("evaluated", result.EvaluatedCount).
				Int("plateau", plateau).
				Int("remaining", len(ordered)-result.EvaluatedCount).
				Msg("Search plateaued, stopping early")
			break
		}
	}

	stop()
	for range chunks {
	}
	err := g.Wait()

	result.Frontier = frontier.Members()
	if best, ok := frontier.Best(); ok {
		result.Best = &best
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if err != nil {
		return result, err
	}

	s.log.Debug().
		Int("sequences", len(ordered)).
		Int("evaluated", result.EvaluatedCount).
		Int("failed", len(result.Failed)).
		Str("state", string(result.State)).
		Bool("early_stop", result.EarlyStop).
		Msg("Search complete")

	return result, nil
}
