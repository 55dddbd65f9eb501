// Package table implements the in-memory vector table that backs KNN queries.
//
// A table has a fixed schema: one vector column of fixed dimension and
// encoding, a distance metric, an optional text partition key and optional
// auxiliary columns. Rows are addressed by caller-assigned row ids.
//
// Partition values are indexed with Roaring bitmaps so a partition-scoped
// scan only visits rows of that partition.
//
// The columns mmr_lambda, distance and k are query-time constraints only.
// They have no storage slot and every write naming them fails with
// *ErrQueryOnlyColumn.
package table
