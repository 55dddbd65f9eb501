package vecmmr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/mmr"
	"github.com/hupe1980/vecmmr/retriever"
	"github.com/hupe1980/vecmmr/snapshot"
	"github.com/hupe1980/vecmmr/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"QueryOnlyColumn", &table.ErrQueryOnlyColumn{Column: table.ColumnMMRLambda}, ErrConstraintViolation},
		{"DuplicateRow", fmt.Errorf("%w: 1", table.ErrDuplicateRow), ErrConstraintViolation},
		{"RowNotFound", fmt.Errorf("%w: 1", table.ErrRowNotFound), ErrNotFound},
		{"NoSnapshot", snapshot.ErrNoSnapshot, ErrNotFound},
		{"DimensionMismatch", &distance.ErrDimensionMismatch{Expected: 3, Actual: 2}, ErrInvalidArgument},
		{"EncodingMismatch", &distance.ErrEncodingMismatch{}, ErrInvalidArgument},
		{"UnsupportedMetric", &distance.ErrUnsupportedMetric{Metric: 9}, ErrInvalidArgument},
		{"NonFinite", fmt.Errorf("%w: component 0 is NaN", distance.ErrNonFinite), ErrInvalidArgument},
		{"ZeroMagnitude", fmt.Errorf("row 4: %w", distance.ErrZeroMagnitude), ErrInvalidArgument},
		{"UnknownColumn", &table.ErrUnknownColumn{Column: "x"}, ErrInvalidArgument},
		{"InvalidValue", &table.ErrInvalidValue{Column: "rowid", Value: "x"}, ErrInvalidArgument},
		{"InvalidSchema", table.ErrInvalidSchema, ErrInvalidArgument},
		{"InvalidLambda", mmr.ErrInvalidLambda, ErrInvalidArgument},
		{"InvalidConfig", retriever.ErrInvalidConfig, ErrInvalidArgument},
		{"InvalidTableName", snapshot.ErrInvalidTableName, ErrInvalidArgument},
		{"Unrelated", boom, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			// the cause stays reachable
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, translateError(nil))
}

func TestTranslateError_Idempotent(t *testing.T) {
	once := translateError(&table.ErrQueryOnlyColumn{Column: table.ColumnMMRLambda})
	assert.Same(t, once, translateError(once))
}

func TestErrDimensionMismatch(t *testing.T) {
	err := translateError(fmt.Errorf("query vector: %w", &distance.ErrDimensionMismatch{Expected: 3, Actual: 2}))

	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "expected 3, got 2")

	var inner *distance.ErrDimensionMismatch
	assert.ErrorAs(t, err, &inner)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validateK(0))
	assert.ErrorIs(t, validateK(-1), ErrInvalidArgument)

	for _, l := range []float64{0, 0.25, 1} {
		assert.NoError(t, validateLambda(l))
	}
	for _, l := range []float64{-0.1, 1.5} {
		err := validateLambda(l)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Contains(t, err.Error(), fmt.Sprint(l))
	}

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, validateTableName(name), ErrInvalidArgument, name)
	}
	assert.NoError(t, validateTableName("docs_v2"))
}
