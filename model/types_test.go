package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceFilter_Match(t *testing.T) {
	tests := []struct {
		name   string
		filter DistanceFilter
		d      float32
		want   bool
	}{
		{"GreaterTrue", DistanceGreaterThan(0.001), 0.005, true},
		{"GreaterEqualBoundary", DistanceGreaterThan(0.5), 0.5, false},
		{"AtLeastBoundary", DistanceAtLeast(0.5), 0.5, true},
		{"LessTrue", DistanceLessThan(1), 0.2, true},
		{"LessBoundary", DistanceLessThan(1), 1, false},
		{"AtMostBoundary", DistanceAtMost(1), 1, true},
		{"UnknownOp", DistanceFilter{Op: Op(9), Value: 1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.d))
		})
	}
}

func TestMatchAll(t *testing.T) {
	band := []DistanceFilter{DistanceGreaterThan(0.1), DistanceAtMost(0.5)}
	assert.True(t, MatchAll(band, 0.3))
	assert.False(t, MatchAll(band, 0.05))
	assert.False(t, MatchAll(band, 0.6))
	assert.True(t, MatchAll(nil, 42))
}

func TestOp(t *testing.T) {
	assert.True(t, OpLessOrEqual.Valid())
	assert.False(t, Op(-1).Valid())
	assert.Equal(t, ">=", OpGreaterOrEqual.String())
	assert.Equal(t, "distance > 0.001", DistanceGreaterThan(0.001).String())
}

func TestLambda(t *testing.T) {
	l := Lambda(0.5)
	assert.Equal(t, 0.5, *l)
}
