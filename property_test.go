package vecmmr

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
	"github.com/hupe1980/vecmmr/table"
	"github.com/hupe1980/vecmmr/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type randomTable struct {
	db     *DB
	schema table.Schema
	rows   []table.Row
	kernel distance.Kernel
}

func newRandomTable(t *testing.T, rng *testutil.RNG, schema table.Schema, vecs []distance.Vector, opts ...Option) *randomTable {
	t.Helper()
	db := newTestDB(t, opts...)
	_, err := db.CreateTable("r", schema)
	require.NoError(t, err)

	rows := testutil.Rows(vecs, rng.Partitions(len(vecs), "a", "b", "c"))
	for _, row := range rows {
		require.NoError(t, db.Insert(context.Background(), "r", row))
	}

	kernel, err := distance.NewKernel(schema.Metric, schema.Encoding)
	require.NoError(t, err)
	return &randomTable{db: db, schema: schema, rows: rows, kernel: kernel}
}

func (rt *randomTable) partition(value string) []table.Row {
	var out []table.Row
	for _, r := range rt.rows {
		if r.Partition == value {
			out = append(out, r)
		}
	}
	return out
}

func TestRandomized_KNNMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(42)
	schemas := map[string]struct {
		schema table.Schema
		vecs   []distance.Vector
	}{
		"CosineFloat32": {
			table.Schema{Dimension: 16, Metric: distance.MetricCosine, PartitionColumn: "p"},
			rng.ClusteredVectors(300, 16, 6, 0.05),
		},
		"L2Float32": {
			table.Schema{Dimension: 8, Metric: distance.MetricL2, PartitionColumn: "p"},
			rng.UnitVectors(300, 8),
		},
		"CosineInt8": {
			table.Schema{Dimension: 8, Encoding: distance.EncodingInt8, Metric: distance.MetricCosine, PartitionColumn: "p"},
			rng.Int8Vectors(300, 8),
		},
	}

	for name, tc := range schemas {
		t.Run(name, func(t *testing.T) {
			rt := newRandomTable(t, rng, tc.schema, tc.vecs)
			ctx := context.Background()

			for i := range 10 {
				query := tc.vecs[rng.Intn(len(tc.vecs))]
				k := 1 + rng.Intn(20)

				want, err := testutil.BruteForceSearch(rt.kernel, rt.rows, query, k, nil)
				require.NoError(t, err)
				got, err := rt.db.Search("r", query).KNN(k).Execute(ctx)
				require.NoError(t, err)
				assert.Equal(t, want, got, "query %d", i)

				// lambda=1 keeps the nearest-first order
				got, err = rt.db.Search("r", query).KNN(k).MMR(1).Execute(ctx)
				require.NoError(t, err)
				assert.Equal(t, want, got, "query %d with lambda 1", i)

				part := []string{"a", "b", "c"}[rng.Intn(3)]
				want, err = testutil.BruteForceSearch(rt.kernel, rt.partition(part), query, k, nil)
				require.NoError(t, err)
				got, err = rt.db.Search("r", query).KNN(k).Partition("p", part).Execute(ctx)
				require.NoError(t, err)
				assert.Equal(t, want, got, "query %d in partition %s", i, part)
			}
		})
	}
}

func TestRandomized_MMRInvariants(t *testing.T) {
	rng := testutil.NewRNG(7)
	vecs := rng.ClusteredVectors(400, 12, 8, 0.02)
	schema := table.Schema{Dimension: 12, Metric: distance.MetricCosine, PartitionColumn: "p"}
	ctx := context.Background()

	for _, threshold := range []int{0, 1000} {
		t.Run(fmt.Sprintf("Threshold%d", threshold), func(t *testing.T) {
			rt := newRandomTable(t, rng, schema, vecs, WithExhaustiveThreshold(threshold), WithOverfetchFactor(3))

			for range 20 {
				query := rng.UnitVector(12)
				k := 1 + rng.Intn(15)
				lambda := rng.Float64()
				filter := model.DistanceAtLeast(float32(rng.Float64() * 0.5))
				part := []string{"a", "b", "c"}[rng.Intn(3)]

				got, err := rt.db.Search("r", query).KNN(k).MMR(lambda).Where(filter).Partition("p", part).Execute(ctx)
				require.NoError(t, err)

				eligible, err := testutil.BruteForceSearch(rt.kernel, rt.partition(part), query, len(rt.rows), []model.DistanceFilter{filter})
				require.NoError(t, err)

				require.Len(t, got, min(k, len(eligible)))
				if len(got) == 0 {
					continue
				}
				// the first pick is always the nearest eligible row
				assert.Equal(t, eligible[0], got[0])

				byID := make(map[model.RowID]model.Result, len(eligible))
				for _, r := range eligible {
					byID[r.RowID] = r
				}
				seen := make(map[model.RowID]bool, len(got))
				for _, r := range got {
					assert.False(t, seen[r.RowID], "duplicate row %d", r.RowID)
					seen[r.RowID] = true
					want, ok := byID[r.RowID]
					if assert.True(t, ok, "row %d is not eligible", r.RowID) {
						assert.Equal(t, want.Distance, r.Distance)
					}
				}

				if threshold == 0 {
					// the pool is the 3k nearest eligible rows
					window := eligible[:min(3*k, len(eligible))]
					inWindow := make(map[model.RowID]bool, len(window))
					for _, r := range window {
						inWindow[r.RowID] = true
					}
					for _, r := range got {
						assert.True(t, inWindow[r.RowID], "row %d is outside the pool", r.RowID)
					}
				}
			}
		})
	}
}
