package distance

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// Encoding is the storage type of vector components.
type Encoding int

const (
	EncodingFloat32 Encoding = iota
	EncodingInt8
)

func (e Encoding) String() string {
	switch e {
	case EncodingFloat32:
		return "float32"
	case EncodingInt8:
		return "int8"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// ParseEncoding parses an encoding name ("float32", "float", "f32", "int8", "i8").
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "float", "f32":
		return EncodingFloat32, nil
	case "int8", "i8":
		return EncodingInt8, nil
	default:
		return 0, fmt.Errorf("unknown vector encoding %q", s)
	}
}

// Vector is a fixed-length vector in one of the supported encodings.
// The zero value is an empty float32 vector.
type Vector struct {
	enc Encoding
	f32 []float32
	i8  []int8
}

// Float32 returns a float32 vector with the given components.
func Float32(v ...float32) Vector {
	return Vector{enc: EncodingFloat32, f32: v}
}

// Int8 returns an int8 vector with the given components.
func Int8(v ...int8) Vector {
	return Vector{enc: EncodingInt8, i8: v}
}

// Encoding returns the component encoding of v.
func (v Vector) Encoding() Encoding { return v.enc }

// Len returns the dimensionality of v.
func (v Vector) Len() int {
	if v.enc == EncodingInt8 {
		return len(v.i8)
	}
	return len(v.f32)
}

// Float32s returns the float32 components. It is nil for int8 vectors.
func (v Vector) Float32s() []float32 { return v.f32 }

// Int8s returns the int8 components. It is nil for float32 vectors.
func (v Vector) Int8s() []int8 { return v.i8 }

// CheckFinite reports the first NaN or infinite component of v.
// int8 vectors are always finite.
func (v Vector) CheckFinite() error {
	for i, x := range v.f32 {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: component %d is %v", ErrNonFinite, i, x)
		}
	}
	return nil
}

// Clone returns a copy of v that does not share backing memory.
func (v Vector) Clone() Vector {
	return Vector{enc: v.enc, f32: slices.Clone(v.f32), i8: slices.Clone(v.i8)}
}

// String formats v as a JSON array, e.g. "[1,0,0]".
func (v Vector) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := range v.Len() {
		if i > 0 {
			sb.WriteByte(',')
		}
		if v.enc == EncodingInt8 {
			sb.WriteString(strconv.Itoa(int(v.i8[i])))
		} else {
			sb.WriteString(strconv.FormatFloat(float64(v.f32[i]), 'g', -1, 32))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// ParseJSON parses a JSON array such as "[1,0,0]" into a vector of the given
// encoding. Int8 components must be integers within [-128, 127].
func ParseJSON(s string, enc Encoding) (Vector, error) {
	var raw []float64
	if err := gojson.Unmarshal([]byte(s), &raw); err != nil {
		return Vector{}, fmt.Errorf("parse vector %q: %w", s, err)
	}
	return FromFloat64s(raw, enc)
}

// FromFloat64s converts raw numeric components into a vector of the given encoding.
func FromFloat64s(raw []float64, enc Encoding) (Vector, error) {
	switch enc {
	case EncodingFloat32:
		out := make([]float32, len(raw))
		for i, x := range raw {
			out[i] = float32(x)
		}
		v := Float32(out...)
		if err := v.CheckFinite(); err != nil {
			return Vector{}, err
		}
		return v, nil
	case EncodingInt8:
		out := make([]int8, len(raw))
		for i, x := range raw {
			if x != math.Trunc(x) || x < math.MinInt8 || x > math.MaxInt8 {
				return Vector{}, fmt.Errorf("component %d (%v) is not an int8", i, x)
			}
			out[i] = int8(x)
		}
		return Int8(out...), nil
	default:
		return Vector{}, fmt.Errorf("unknown vector encoding %v", enc)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoding) MarshalText() ([]byte, error) {
	switch e {
	case EncodingFloat32, EncodingInt8:
		return []byte(e.String()), nil
	default:
		return nil, fmt.Errorf("unknown vector encoding %d", int(e))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	v, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
