// Package model defines the types exchanged between the query stages.
//
// # Identity Types
//
//   - RowID: stable, caller-assigned row identifier (unique per table)
//
// # Query Types
//
//   - Query: query vector, k, optional MMR lambda, partition and distance filters
//   - PartitionFilter: equality constraint on the table's partition column
//   - DistanceFilter: comparison on the output distance (e.g. distance > 0.001)
//
// # Result Types
//
//   - Candidate: a scanned row with its vector and distance to the query
//   - Result: the output unit (row id + distance)
package model
