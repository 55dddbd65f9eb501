package distance

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricCosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseMetric parses a metric name. The empty string selects MetricL2.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "l2", "euclidean":
		return MetricL2, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", s)
	}
}

// ErrZeroMagnitude is returned by the cosine metric for an all-zero vector.
var ErrZeroMagnitude = errors.New("zero-magnitude vector has no cosine distance")

// ErrNonFinite is returned for a vector with a NaN or infinite component.
var ErrNonFinite = errors.New("vector component is not finite")

// ErrDimensionMismatch indicates two vectors of different lengths.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrEncodingMismatch indicates vectors (or a vector and a kernel) of different encodings.
type ErrEncodingMismatch struct {
	Expected Encoding
	Actual   Encoding
}

func (e *ErrEncodingMismatch) Error() string {
	return fmt.Sprintf("encoding mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// ErrUnsupportedMetric indicates a metric/encoding pair without a kernel.
type ErrUnsupportedMetric struct {
	Metric   Metric
	Encoding Encoding
}

func (e *ErrUnsupportedMetric) Error() string {
	return fmt.Sprintf("unsupported metric %s for %s vectors", e.Metric, e.Encoding)
}

// Kernel computes distances for one metric and one encoding.
// It is resolved once per query and is safe for concurrent use.
type Kernel struct {
	metric   Metric
	encoding Encoding
	fn       func(a, b Vector) (float32, error)
}

// NewKernel returns the kernel for the given metric and encoding.
func NewKernel(m Metric, enc Encoding) (Kernel, error) {
	k := Kernel{metric: m, encoding: enc}
	switch {
	case m == MetricL2 && enc == EncodingFloat32:
		k.fn = l2Float32
	case m == MetricL2 && enc == EncodingInt8:
		k.fn = l2Int8
	case m == MetricCosine && enc == EncodingFloat32:
		k.fn = cosineFloat32
	case m == MetricCosine && enc == EncodingInt8:
		k.fn = cosineInt8
	default:
		return Kernel{}, &ErrUnsupportedMetric{Metric: m, Encoding: enc}
	}
	return k, nil
}

// Metric returns the metric of k.
func (k Kernel) Metric() Metric { return k.metric }

// Encoding returns the encoding of k.
func (k Kernel) Encoding() Encoding { return k.encoding }

// Distance returns the distance between a and b. It fails if the vectors
// differ in length or encoding; it never truncates or pads.
func (k Kernel) Distance(a, b Vector) (float32, error) {
	if a.enc != k.encoding {
		return 0, &ErrEncodingMismatch{Expected: k.encoding, Actual: a.enc}
	}
	if b.enc != k.encoding {
		return 0, &ErrEncodingMismatch{Expected: k.encoding, Actual: b.enc}
	}
	if a.Len() != b.Len() {
		return 0, &ErrDimensionMismatch{Expected: a.Len(), Actual: b.Len()}
	}
	return k.fn(a, b)
}

// Similarity maps a distance of this kernel's metric onto a similarity that
// decreases monotonically with distance:
//
//	cosine: 1 - d
//	L2:     1 / (1 + d)
func (k Kernel) Similarity(d float32) float64 {
	if k.metric == MetricCosine {
		return 1 - float64(d)
	}
	return 1 / (1 + float64(d))
}

// Distance computes the distance between a and b under metric m.
func Distance(m Metric, a, b Vector) (float32, error) {
	k, err := NewKernel(m, a.enc)
	if err != nil {
		return 0, err
	}
	return k.Distance(a, b)
}

// Similarity computes the metric-derived similarity between a and b.
func Similarity(m Metric, a, b Vector) (float64, error) {
	k, err := NewKernel(m, a.enc)
	if err != nil {
		return 0, err
	}
	d, err := k.Distance(a, b)
	if err != nil {
		return 0, err
	}
	return k.Similarity(d), nil
}

func l2Float32(a, b Vector) (float32, error) {
	x, y := a.f32, b.f32
	var sum float64
	for i := range x {
		d := float64(x[i]) - float64(y[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum)), nil
}

func l2Int8(a, b Vector) (float32, error) {
	x, y := a.i8, b.i8
	var sum int64
	for i := range x {
		d := int64(x[i]) - int64(y[i])
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum))), nil
}

func cosineFloat32(a, b Vector) (float32, error) {
	x, y := a.f32, b.f32
	var dot, nx, ny float64
	for i := range x {
		xi, yi := float64(x[i]), float64(y[i])
		dot += xi * yi
		nx += xi * xi
		ny += yi * yi
	}
	return cosine(dot, nx, ny)
}

func cosineInt8(a, b Vector) (float32, error) {
	x, y := a.i8, b.i8
	var dot, nx, ny int64
	for i := range x {
		xi, yi := int64(x[i]), int64(y[i])
		dot += xi * yi
		nx += xi * xi
		ny += yi * yi
	}
	return cosine(float64(dot), float64(nx), float64(ny))
}

func cosine(dot, nx, ny float64) (float32, error) {
	if nx == 0 || ny == 0 {
		return 0, ErrZeroMagnitude
	}
	d := 1 - dot/(math.Sqrt(nx)*math.Sqrt(ny))
	if d < 0 {
		// rounding on parallel vectors
		d = 0
	}
	return float32(d), nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	switch m {
	case MetricL2:
		return []byte("l2"), nil
	case MetricCosine:
		return []byte("cosine"), nil
	default:
		return nil, fmt.Errorf("unknown distance metric %d", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	v, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
