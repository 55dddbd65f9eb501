package model

import (
	"fmt"

	"github.com/hupe1980/vecmmr/distance"
)

// RowID is the stable identifier of a row within a table.
type RowID int64

// Candidate represents a row found during retrieval.
type Candidate struct {
	// RowID is the identifier of the row.
	RowID RowID
	// Vector is borrowed from table storage and is only valid while the
	// table view that produced it is held.
	Vector distance.Vector
	// Distance is the distance to the query vector.
	Distance float32
}

// Result is a single output row.
type Result struct {
	RowID    RowID
	Distance float32
}

// PartitionFilter restricts a search to rows whose partition column equals Value.
type PartitionFilter struct {
	Column string
	Value  string
}

// Query is a resolved KNN query. It is built once per search and not mutated.
type Query struct {
	// Vector is the query vector; it must match the table's dimension and encoding.
	Vector distance.Vector

	// K is the number of results to return.
	K int

	// MMRLambda enables Maximal Marginal Relevance re-ranking when non-nil.
	// 1 is pure relevance, 0 pure diversity.
	MMRLambda *float64

	// Partition optionally scopes the search to one partition.
	Partition *PartitionFilter

	// DistanceFilters are applied to every candidate before ranking.
	DistanceFilters []DistanceFilter
}

// Lambda returns a pointer to l, for use as Query.MMRLambda.
func Lambda(l float64) *float64 { return &l }

// Op is a comparison operator on the distance column.
type Op int

const (
	OpGreater Op = iota
	OpGreaterOrEqual
	OpLess
	OpLessOrEqual
)

// Valid reports whether o is a known operator.
func (o Op) Valid() bool { return o >= OpGreater && o <= OpLessOrEqual }

func (o Op) String() string {
	switch o {
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// DistanceFilter is a predicate on a candidate's distance to the query.
type DistanceFilter struct {
	Op    Op
	Value float32
}

// DistanceGreaterThan returns the filter distance > v.
func DistanceGreaterThan(v float32) DistanceFilter { return DistanceFilter{Op: OpGreater, Value: v} }

// DistanceAtLeast returns the filter distance >= v.
func DistanceAtLeast(v float32) DistanceFilter { return DistanceFilter{Op: OpGreaterOrEqual, Value: v} }

// DistanceLessThan returns the filter distance < v.
func DistanceLessThan(v float32) DistanceFilter { return DistanceFilter{Op: OpLess, Value: v} }

// DistanceAtMost returns the filter distance <= v.
func DistanceAtMost(v float32) DistanceFilter { return DistanceFilter{Op: OpLessOrEqual, Value: v} }

// Match reports whether d satisfies the filter.
func (f DistanceFilter) Match(d float32) bool {
	switch f.Op {
	case OpGreater:
		return d > f.Value
	case OpGreaterOrEqual:
		return d >= f.Value
	case OpLess:
		return d < f.Value
	case OpLessOrEqual:
		return d <= f.Value
	default:
		return false
	}
}

func (f DistanceFilter) String() string {
	return fmt.Sprintf("distance %s %g", f.Op, f.Value)
}

// MatchAll reports whether d satisfies every filter.
func MatchAll(filters []DistanceFilter, d float32) bool {
	for _, f := range filters {
		if !f.Match(d) {
			return false
		}
	}
	return true
}
