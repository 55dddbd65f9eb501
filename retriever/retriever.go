// Package retriever gathers the candidate pool for a KNN query.
//
// # Pool sizing
//
// Without diversification only the top k rows are kept. With
// diversification the pool must leave the reranker something to choose
// from:
//
//   - if the filtered row set has at most Config.ExhaustiveThreshold rows,
//     every surviving row enters the pool;
//   - otherwise the pool holds the max(k, OverfetchFactor*k) nearest rows.
//
// Diversity is therefore computed over the retrieved pool only. A row that
// would have been a more diverse pick but lies outside the overfetch window
// is never considered.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
	"github.com/hupe1980/vecmmr/queue"
)

const (
	// DefaultOverfetchFactor is the default pool multiplier for diversified queries.
	DefaultOverfetchFactor = 10

	// DefaultExhaustiveThreshold is the largest filtered row count that is
	// pooled in full for diversified queries.
	DefaultExhaustiveThreshold = 1000
)

// ErrInvalidConfig is returned by NewRetriever for unusable settings.
var ErrInvalidConfig = errors.New("invalid retriever config")

// Source is a filtered, read-locked view of stored vectors.
type Source interface {
	// Count returns the number of rows matching the partition filter.
	Count(filter *model.PartitionFilter) (int, error)
	// Scan visits every row matching the partition filter.
	Scan(ctx context.Context, filter *model.PartitionFilter, fn func(id model.RowID, vec distance.Vector) error) error
}

// Config controls pool sizing.
type Config struct {
	// OverfetchFactor multiplies k for diversified queries over large row sets.
	OverfetchFactor int
	// ExhaustiveThreshold is the filtered row count up to which diversified
	// queries pool every row. Zero disables exhaustive pooling.
	ExhaustiveThreshold int
}

// DefaultConfig returns the default pool sizing.
func DefaultConfig() Config {
	return Config{
		OverfetchFactor:     DefaultOverfetchFactor,
		ExhaustiveThreshold: DefaultExhaustiveThreshold,
	}
}

// Request is a validated retrieval request.
type Request struct {
	Vector    distance.Vector
	K         int
	Diversify bool
	Partition *model.PartitionFilter
	Filters   []model.DistanceFilter
}

// Retriever produces candidate pools ordered by ascending distance.
type Retriever struct {
	cfg  Config
	tops sync.Pool
}

// NewRetriever creates a retriever.
func NewRetriever(cfg Config) (*Retriever, error) {
	if cfg.OverfetchFactor < 1 {
		return nil, fmt.Errorf("%w: overfetch factor must be at least 1, got %d", ErrInvalidConfig, cfg.OverfetchFactor)
	}
	if cfg.ExhaustiveThreshold < 0 {
		return nil, fmt.Errorf("%w: exhaustive threshold must be non-negative, got %d", ErrInvalidConfig, cfg.ExhaustiveThreshold)
	}
	return &Retriever{cfg: cfg}, nil
}

// Config returns the retriever's configuration.
func (r *Retriever) Config() Config { return r.cfg }

// PoolSize returns the number of candidates to retain for a request over
// filteredRows rows.
func (r *Retriever) PoolSize(k int, diversify bool, filteredRows int) int {
	if k <= 0 {
		return 0
	}
	if !diversify {
		return k
	}
	if filteredRows <= r.cfg.ExhaustiveThreshold {
		return filteredRows
	}
	return max(k, r.cfg.OverfetchFactor*k)
}

// Retrieve scans src and returns the candidate pool, nearest first, ties by
// ascending row id. Distance filters are applied to every row before it can
// enter the pool. A kernel error on any row aborts the retrieval.
func (r *Retriever) Retrieve(ctx context.Context, src Source, kernel distance.Kernel, req Request) ([]model.Candidate, error) {
	if req.K <= 0 {
		return []model.Candidate{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := src.Count(req.Partition)
	if err != nil {
		return nil, err
	}
	size := r.PoolSize(req.K, req.Diversify, n)
	if size == 0 {
		return []model.Candidate{}, nil
	}

	top := r.getTopK(size)
	defer r.tops.Put(top)
	var vecs []distance.Vector

	err = src.Scan(ctx, req.Partition, func(id model.RowID, vec distance.Vector) error {
		d, err := kernel.Distance(req.Vector, vec)
		if err != nil {
			return &RowError{RowID: id, cause: err}
		}
		if !model.MatchAll(req.Filters, d) {
			return nil
		}
		item := queue.Item{Slot: uint32(len(vecs)), Key: int64(id), Distance: d}
		if top.Len() == top.Cap() {
			worst, _ := top.Worst()
			if !queue.Before(item, worst) {
				return nil
			}
			// reuse the evicted item's slot
			item.Slot = worst.Slot
			vecs[item.Slot] = vec
		} else {
			vecs = append(vecs, vec)
		}
		top.Push(item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := top.Sorted()
	pool := make([]model.Candidate, len(items))
	for i, it := range items {
		pool[i] = model.Candidate{
			RowID:    model.RowID(it.Key),
			Vector:   vecs[it.Slot],
			Distance: it.Distance,
		}
	}
	return pool, nil
}

// getTopK returns a pooled queue emptied and sized for n items.
func (r *Retriever) getTopK(n int) *queue.TopK {
	if top, ok := r.tops.Get().(*queue.TopK); ok {
		top.Reset(n)
		return top
	}
	return queue.NewTopK(n)
}

// RowError reports a distance computation failure for a specific row.
type RowError struct {
	RowID model.RowID
	cause error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.RowID, e.cause)
}

func (e *RowError) Unwrap() error { return e.cause }
