// Package mmr implements Maximal Marginal Relevance re-ranking of a
// candidate pool.
//
// Selection is greedy. The nearest candidate always seeds the result; every
// further pick maximizes
//
//	lambda*relevance(c) - (1-lambda)*max(similarity(c, s) for s in selected)
//
// where relevance and similarity are both derived from the pool's distance
// metric. Lambda 1 reproduces nearest-neighbor order, lambda 0 maximizes
// dissimilarity to what was already picked.
package mmr

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
)

// ErrInvalidLambda is returned for a lambda outside [0, 1].
var ErrInvalidLambda = errors.New("lambda must be in [0.0, 1.0]")

// Rerank selects up to k candidates from pool. pool must be ordered by
// ascending distance with ties by ascending row id, as produced by the
// retriever. The returned candidates keep their query distance.
func Rerank(ctx context.Context, kernel distance.Kernel, pool []model.Candidate, lambda float64, k int) ([]model.Candidate, error) {
	if math.IsNaN(lambda) || lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidLambda, lambda)
	}
	if k <= 0 || len(pool) == 0 {
		return []model.Candidate{}, nil
	}

	n := min(k, len(pool))
	s := newSelection(kernel, pool)
	out := make([]model.Candidate, 0, n)

	for len(out) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next int
		if len(out) == 0 {
			next = s.nearest()
		} else {
			next = s.best(lambda)
		}

		s.selected.Set(uint(next))
		out = append(out, pool[next])

		if len(out) < n && lambda < 1 {
			if err := s.observe(next); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// selection is the greedy loop state. Candidates are addressed by their
// index in the pool.
type selection struct {
	kernel    distance.Kernel
	pool      []model.Candidate
	relevance []float64
	// maxSim[i] is the highest similarity of pool[i] to any selected candidate.
	maxSim   []float64
	selected *bitset.BitSet
}

func newSelection(kernel distance.Kernel, pool []model.Candidate) *selection {
	s := &selection{
		kernel:    kernel,
		pool:      pool,
		relevance: make([]float64, len(pool)),
		maxSim:    make([]float64, len(pool)),
		selected:  bitset.New(uint(len(pool))),
	}
	for i, c := range pool {
		s.relevance[i] = kernel.Similarity(c.Distance)
		s.maxSim[i] = math.Inf(-1)
	}
	return s
}

// nearest returns the unselected candidate closest to the query.
func (s *selection) nearest() int {
	best := -1
	for i := range s.pool {
		if s.selected.Test(uint(i)) {
			continue
		}
		if best < 0 || s.closer(i, best) {
			best = i
		}
	}
	return best
}

// best returns the unselected candidate with the highest marginal score.
// Equal scores go to the smaller row id.
func (s *selection) best(lambda float64) int {
	best := -1
	bestScore := math.Inf(-1)
	for i := range s.pool {
		if s.selected.Test(uint(i)) {
			continue
		}
		score := lambda * s.relevance[i]
		if lambda < 1 {
			score -= (1 - lambda) * s.maxSim[i]
		}
		if best < 0 || score > bestScore || (score == bestScore && s.pool[i].RowID < s.pool[best].RowID) {
			best, bestScore = i, score
		}
	}
	return best
}

// observe folds the similarity to the newly selected candidate into maxSim.
func (s *selection) observe(picked int) error {
	ref := s.pool[picked]
	for i, c := range s.pool {
		if s.selected.Test(uint(i)) {
			continue
		}
		d, err := s.kernel.Distance(c.Vector, ref.Vector)
		if err != nil {
			return fmt.Errorf("similarity of rows %d and %d: %w", c.RowID, ref.RowID, err)
		}
		if sim := s.kernel.Similarity(d); sim > s.maxSim[i] {
			s.maxSim[i] = sim
		}
	}
	return nil
}

func (s *selection) closer(i, j int) bool {
	a, b := s.pool[i], s.pool[j]
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.RowID < b.RowID
}
