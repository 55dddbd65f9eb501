// Package testutil provides testing utilities for vecmmr.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random rows and computing exact
// nearest neighbors.
//
// # Random Rows
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UnitVectors(1000, 64)
//	rows := testutil.Rows(vecs, rng.Partitions(1000, "a", "b"))
//
// # Exact Search (Ground Truth)
//
//	want, _ := testutil.BruteForceSearch(kernel, rows, query, k, nil)
//	recall := testutil.ComputeRecall(want, got)
package testutil
