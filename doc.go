// Package vecmmr provides an embeddable vector search engine with Maximal
// Marginal Relevance (MMR) re-ranking.
//
// A DB holds named tables. Each table has a fixed dimension, vector encoding
// (float32 or int8) and distance metric (L2 or cosine), plus an optional
// text partition key column.
//
// # Quick Start
//
//	ctx := context.Background()
//	db, _ := vecmmr.New()
//	defer db.Close()
//
//	db.CreateTable("docs", table.Schema{Dimension: 3, Metric: distance.MetricCosine})
//	db.Insert(ctx, "docs", table.Row{ID: 1, Vector: distance.Float32(1, 0, 0)})
//
//	// plain KNN, nearest first
//	results, _ := db.Search("docs", query).KNN(10).Execute(ctx)
//
//	// diversified top 10
//	results, _ = db.Search("docs", query).KNN(10).MMR(0.5).Execute(ctx)
//
// # MMR
//
// With MMR the engine first retrieves a pool of nearest candidates and then
// greedily selects k of them. The first pick is always the nearest
// candidate; every later pick maximizes
//
//	lambda*relevance(c) - (1-lambda)*max similarity(c, selected)
//
// where relevance and similarity come from the table's metric (1-d for
// cosine, 1/(1+d) for L2). lambda=1 reproduces plain KNN order and lambda=0
// ignores relevance after the first pick. Results are returned in selection
// order.
//
// The pool holds every row of the (partition-filtered) table when it has at
// most WithExhaustiveThreshold rows, otherwise the WithOverfetchFactor*k
// nearest rows. Diversity is only computed within that pool.
//
// # Filters
//
// Partition filters restrict the rows before any distance is computed.
// Distance predicates (Where) are applied to every candidate before it can
// enter the pool.
//
// # Writes
//
// mmr_lambda is a query-only column. Every write that names it fails with
// ErrConstraintViolation, whatever the value.
//
// # Snapshots
//
// With WithBlobStore, SaveSnapshot and LoadSnapshot persist tables to a
// blobstore.BlobStore (memory, local directory, S3, S3+DynamoDB or MinIO).
package vecmmr
