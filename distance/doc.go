// Package distance provides the distance metrics used to rank stored vectors
// against a query.
//
// # Supported Metrics
//
//   - MetricL2: Euclidean distance (default)
//   - MetricCosine: cosine distance, 1 - a·b/(‖a‖‖b‖)
//
// # Encodings
//
// Vectors are stored either as float32 or as int8 components. Int8
// components are promoted to integer accumulators, so results are
// real-valued regardless of the storage encoding.
//
// # Usage
//
//	k, err := distance.NewKernel(distance.MetricCosine, distance.EncodingFloat32)
//	d, err := k.Distance(distance.Float32(1, 0, 0), distance.Float32(0, 1, 0))
//	sim := k.Similarity(d)
//
// A Kernel is resolved once per query; Distance then runs the loop that was
// specialized for the metric/encoding pair.
package distance
