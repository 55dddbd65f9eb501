package testutil

import (
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
	"github.com/hupe1980/vecmmr/queue"
	"github.com/hupe1980/vecmmr/table"
)

// RNG wraps a seeded random source. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UnitVectors generates L2-normalized float32 vectors, uniform on the sphere.
func (r *RNG) UnitVectors(num, dim int) []distance.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]distance.Vector, num)
	for i := range out {
		out[i] = distance.Float32(r.unit(dim)...)
	}
	return out
}

// UnitVector generates a single L2-normalized float32 vector.
func (r *RNG) UnitVector(dim int) distance.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return distance.Float32(r.unit(dim)...)
}

func (r *RNG) unit(dim int) []float32 {
	vec := make([]float32, dim)
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		vec[0], norm = 1, 1
	}
	inv := 1 / math.Sqrt(norm)
	for j := range vec {
		vec[j] = float32(float64(vec[j]) * inv)
	}
	return vec
}

// ClusteredVectors generates float32 vectors around random unit centroids.
// Near-duplicates within a cluster are what MMR exists to spread out.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) []distance.Vector {
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]distance.Vector, num)
	for i := range out {
		c := centroids[i%clusters].Float32s()
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = c[j] + float32(r.rand.NormFloat64())*spread
		}
		out[i] = distance.Float32(vec...)
	}
	return out
}

// Int8Vectors generates int8 vectors with no all-zero rows, so they are
// usable with the cosine metric.
func (r *RNG) Int8Vectors(num, dim int) []distance.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]distance.Vector, num)
	for i := range out {
		vec := make([]int8, dim)
		for j := range vec {
			vec[j] = int8(r.rand.Intn(256) - 128)
		}
		if !slices.ContainsFunc(vec, func(x int8) bool { return x != 0 }) {
			vec[0] = 1
		}
		out[i] = distance.Int8(vec...)
	}
	return out
}

// Partitions assigns one of values to each of num rows.
func (r *RNG) Partitions(num int, values ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, num)
	for i := range out {
		out[i] = values[r.rand.Intn(len(values))]
	}
	return out
}

// Rows builds table rows with IDs 1..len(vecs). partitions may be nil.
func Rows(vecs []distance.Vector, partitions []string) []table.Row {
	rows := make([]table.Row, len(vecs))
	for i, v := range vecs {
		rows[i] = table.Row{ID: model.RowID(i + 1), Vector: v}
		if partitions != nil {
			rows[i].Partition = partitions[i]
		}
	}
	return rows
}

// BruteForceSearch returns the exact k nearest rows whose distance passes
// filters, nearest first with ties broken by row ID.
func BruteForceSearch(kernel distance.Kernel, rows []table.Row, query distance.Vector, k int, filters []model.DistanceFilter) ([]model.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	top := queue.NewTopK(k)
	for _, row := range rows {
		d, err := kernel.Distance(query, row.Vector)
		if err != nil {
			return nil, err
		}
		if model.MatchAll(filters, d) {
			top.Push(queue.Item{Key: int64(row.ID), Distance: d})
		}
	}

	items := top.Sorted()
	out := make([]model.Result, len(items))
	for i, it := range items {
		out[i] = model.Result{RowID: model.RowID(it.Key), Distance: it.Distance}
	}
	return out, nil
}

// ComputeRecall computes recall@k by comparing results against ground truth.
func ComputeRecall(groundTruth, approximate []model.Result) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truth := make(map[model.RowID]struct{}, k)
	for i := range k {
		truth[groundTruth[i].RowID] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truth[r.RowID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(k)
}
