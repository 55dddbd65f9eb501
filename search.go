package vecmmr

import (
	"context"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
)

// Search creates a new fluent search builder for the given query vector.
//
// Example:
//
//	results, err := db.Search("docs", query).
//	    KNN(10).
//	    MMR(0.5).
//	    Partition("lang", "en").
//	    Where(model.DistanceGreaterThan(0.001)).
//	    Execute(ctx)
func (db *DB) Search(tableName string, query distance.Vector) *SearchBuilder {
	return &SearchBuilder{
		db:    db,
		table: tableName,
		q: model.Query{
			Vector: query,
			K:      10, // Default k
		},
	}
}

// SearchBuilder is a fluent builder for constructing search queries.
type SearchBuilder struct {
	db    *DB
	table string
	q     model.Query
}

// KNN sets the number of results to return.
func (sb *SearchBuilder) KNN(k int) *SearchBuilder {
	sb.q.K = k
	return sb
}

// MMR enables Maximal Marginal Relevance re-ranking. lambda must be in
// [0, 1]: 1 is pure relevance, 0 maximal diversity.
func (sb *SearchBuilder) MMR(lambda float64) *SearchBuilder {
	sb.q.MMRLambda = model.Lambda(lambda)
	return sb
}

// Partition restricts the search to rows whose partition key column equals value.
func (sb *SearchBuilder) Partition(column, value string) *SearchBuilder {
	sb.q.Partition = &model.PartitionFilter{Column: column, Value: value}
	return sb
}

// Where adds distance predicates. They are applied before ranking, so an
// MMR query only diversifies among rows that pass them.
func (sb *SearchBuilder) Where(filters ...model.DistanceFilter) *SearchBuilder {
	sb.q.DistanceFilters = append(sb.q.DistanceFilters, filters...)
	return sb
}

// Query returns the query built so far.
func (sb *SearchBuilder) Query() model.Query {
	return sb.q
}

// Execute runs the search and returns the results.
func (sb *SearchBuilder) Execute(ctx context.Context) ([]Result, error) {
	return sb.db.Query(ctx, sb.table, sb.q)
}

// MustExecute runs the search, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (sb *SearchBuilder) MustExecute(ctx context.Context) []Result {
	results, err := sb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return results
}

// First returns only the top result, or ErrNotFound if none matched.
func (sb *SearchBuilder) First(ctx context.Context) (Result, error) {
	sb.q.K = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 {
		return Result{}, ErrNotFound
	}
	return results[0], nil
}
