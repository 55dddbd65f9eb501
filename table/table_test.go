package table

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCosineTable(t *testing.T, partition string) *Table {
	t.Helper()
	tbl, err := New("v", Schema{
		Dimension:       3,
		Encoding:        distance.EncodingFloat32,
		Metric:          distance.MetricCosine,
		PartitionColumn: partition,
		AuxColumns:      []string{"title"},
	})
	require.NoError(t, err)
	return tbl
}

func scanIDs(t *testing.T, tbl *Table, filter *model.PartitionFilter) []model.RowID {
	t.Helper()
	var ids []model.RowID
	err := tbl.View(func(v *View) error {
		return v.Scan(context.Background(), filter, func(id model.RowID, _ distance.Vector) error {
			ids = append(ids, id)
			return nil
		})
	})
	require.NoError(t, err)
	return ids
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{"Valid", Schema{Dimension: 3}, false},
		{"ValidInt8Cosine", Schema{Dimension: 3, Encoding: distance.EncodingInt8, Metric: distance.MetricCosine}, false},
		{"ZeroDimension", Schema{Dimension: 0}, true},
		{"UnknownMetric", Schema{Dimension: 3, Metric: distance.Metric(9)}, true},
		{"ReservedPartition", Schema{Dimension: 3, PartitionColumn: "mmr_lambda"}, true},
		{"ReservedAux", Schema{Dimension: 3, AuxColumns: []string{"distance"}}, true},
		{"RowIDColumn", Schema{Dimension: 3, VectorColumn: "rowid"}, true},
		{"Duplicate", Schema{Dimension: 3, PartitionColumn: "c", AuxColumns: []string{"c"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchema)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTable_InsertGetDelete(t *testing.T) {
	ctx := context.Background()
	tbl := newCosineTable(t, "")

	vec := []float32{1, 0, 0}
	require.NoError(t, tbl.Insert(ctx, Row{ID: 1, Vector: distance.Float32(vec...), Aux: map[string]any{"title": "x"}}))
	vec[0] = 42 // storage must not alias the caller's slice

	row, err := tbl.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, row.Vector.Float32s())
	assert.Equal(t, "x", row.Aux["title"])

	err = tbl.Insert(ctx, Row{ID: 1, Vector: distance.Float32(0, 1, 0)})
	assert.ErrorIs(t, err, ErrDuplicateRow)

	require.NoError(t, tbl.Delete(ctx, 1))
	assert.Equal(t, 0, tbl.Len())
	_, err = tbl.Get(1)
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.ErrorIs(t, tbl.Delete(ctx, 1), ErrRowNotFound)

	// the id is free again after a delete
	require.NoError(t, tbl.Insert(ctx, Row{ID: 1, Vector: distance.Float32(0, 1, 0)}))
	assert.Equal(t, []model.RowID{1}, scanIDs(t, tbl, nil))
}

func TestTable_VectorShape(t *testing.T) {
	ctx := context.Background()
	tbl := newCosineTable(t, "")

	err := tbl.Insert(ctx, Row{ID: 1, Vector: distance.Float32(1, 0)})
	var dm *distance.ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)

	err = tbl.Insert(ctx, Row{ID: 2, Vector: distance.Int8(1, 0, 0)})
	var em *distance.ErrEncodingMismatch
	assert.ErrorAs(t, err, &em)

	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err = tbl.Insert(ctx, Row{ID: 3, Vector: distance.Float32(1, float32(x), 0)})
		assert.ErrorIs(t, err, distance.ErrNonFinite, "%v", x)
		var iv *ErrInvalidValue
		assert.ErrorAs(t, err, &iv)
	}
	assert.Zero(t, tbl.Len())

	require.NoError(t, tbl.Insert(ctx, Row{ID: 4, Vector: distance.Float32(1, 0, 0)}))
	err = tbl.Update(ctx, Row{ID: 4, Vector: distance.Float32(float32(math.NaN()), 0, 0)})
	assert.ErrorIs(t, err, distance.ErrNonFinite)
	got, err := tbl.Get(4)
	require.NoError(t, err)
	assert.Equal(t, distance.Float32(1, 0, 0), got.Vector)
}

func TestTable_Partitions(t *testing.T) {
	ctx := context.Background()
	tbl := newCosineTable(t, "category")

	rows := []struct {
		id  model.RowID
		cat string
	}{{1, "a"}, {2, "a"}, {3, "b"}, {4, "a"}}
	for _, r := range rows {
		require.NoError(t, tbl.Insert(ctx, Row{ID: r.id, Vector: distance.Float32(1, 0, 0), Partition: r.cat}))
	}

	a := &model.PartitionFilter{Column: "category", Value: "a"}
	assert.Equal(t, []model.RowID{1, 2, 4}, scanIDs(t, tbl, a))
	assert.Equal(t, []model.RowID{3}, scanIDs(t, tbl, &model.PartitionFilter{Column: "category", Value: "b"}))
	assert.Empty(t, scanIDs(t, tbl, &model.PartitionFilter{Column: "category", Value: "zzz"}))

	// moving a row between partitions updates both bitmaps
	require.NoError(t, tbl.Update(ctx, Row{ID: 2, Vector: distance.Float32(0, 1, 0), Partition: "b"}))
	assert.Equal(t, []model.RowID{1, 4}, scanIDs(t, tbl, a))
	assert.Equal(t, []model.RowID{2, 3}, scanIDs(t, tbl, &model.PartitionFilter{Column: "category", Value: "b"}))

	err := tbl.View(func(v *View) error {
		n, err := v.Count(a)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = v.Count(&model.PartitionFilter{Column: "color", Value: "a"})
		return err
	})
	var uc *ErrUnknownColumn
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, "color", uc.Column)
}

func TestTable_ScanCancellation(t *testing.T) {
	tbl := newCosineTable(t, "")
	require.NoError(t, tbl.Insert(context.Background(), Row{ID: 1, Vector: distance.Float32(1, 0, 0)}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tbl.View(func(v *View) error {
		return v.Scan(ctx, nil, func(model.RowID, distance.Vector) error { return nil })
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTable_ScanStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	tbl := newCosineTable(t, "")
	for i := 1; i <= 3; i++ {
		require.NoError(t, tbl.Insert(ctx, Row{ID: model.RowID(i), Vector: distance.Float32(1, 0, 0)}))
	}

	stop := errors.New("stop")
	visited := 0
	err := tbl.View(func(v *View) error {
		return v.Scan(ctx, nil, func(model.RowID, distance.Vector) error {
			visited++
			return stop
		})
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}

func TestTable_Compact(t *testing.T) {
	ctx := context.Background()
	tbl := newCosineTable(t, "category")
	for i := 1; i <= 4; i++ {
		require.NoError(t, tbl.Insert(ctx, Row{ID: model.RowID(i), Vector: distance.Float32(float32(i), 1, 0), Partition: "a"}))
	}
	require.NoError(t, tbl.Delete(ctx, 2))

	tbl.Compact()

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []model.RowID{1, 3, 4}, scanIDs(t, tbl, &model.PartitionFilter{Column: "category", Value: "a"}))
	row, err := tbl.Get(4)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1, 0}, row.Vector.Float32s())
}

func TestTable_StateRoundTrip(t *testing.T) {
	ctx := context.Background()
	tbl, err := New("ints", Schema{Dimension: 3, Encoding: distance.EncodingInt8, Metric: distance.MetricCosine, PartitionColumn: "p"})
	require.NoError(t, err)
	require.NoError(t, tbl.Insert(ctx, Row{ID: 7, Vector: distance.Int8(100, 0, 0), Partition: "x"}))
	require.NoError(t, tbl.Insert(ctx, Row{ID: 9, Vector: distance.Int8(0, -100, 0), Partition: "y"}))
	require.NoError(t, tbl.Delete(ctx, 7))

	st := tbl.State()
	require.Len(t, st.Rows, 1)

	restored, err := FromState(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, "ints", restored.Name())
	assert.Equal(t, tbl.Schema(), restored.Schema())

	row, err := restored.Get(9)
	require.NoError(t, err)
	assert.Equal(t, []int8{0, -100, 0}, row.Vector.Int8s())
	assert.Equal(t, "y", row.Partition)
}
