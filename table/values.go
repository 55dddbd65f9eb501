package table

import (
	"context"
	"fmt"
	"math"
	"sort"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
)

// InsertValues inserts a row given as column name → value, the shape of an
// `insert into t(rowid, embedding, ...) values (...)` statement.
//
// Assigning any query-only column (mmr_lambda, distance, k) fails with
// *ErrQueryOnlyColumn regardless of the value.
func (t *Table) InsertValues(ctx context.Context, values map[string]any) error {
	if err := checkQueryOnly(values); err != nil {
		return err
	}
	rawID, ok := values[ColumnRowID]
	if !ok {
		return &ErrInvalidValue{Column: ColumnRowID, cause: fmt.Errorf("rowid is required")}
	}
	id, err := toRowID(rawID)
	if err != nil {
		return err
	}

	row := Row{ID: id}
	if _, ok := values[t.schema.Column()]; !ok {
		return &ErrInvalidValue{Column: t.schema.Column(), cause: fmt.Errorf("vector is required")}
	}
	if err := t.applyValues(&row, values); err != nil {
		return err
	}
	return t.Insert(ctx, row)
}

// UpdateValues assigns the given columns of an existing row. The rowid
// itself cannot be changed.
func (t *Table) UpdateValues(ctx context.Context, id model.RowID, values map[string]any) error {
	if err := checkQueryOnly(values); err != nil {
		return err
	}
	if _, ok := values[ColumnRowID]; ok {
		return &ErrInvalidValue{Column: ColumnRowID, cause: fmt.Errorf("rowid cannot be updated")}
	}

	row, err := t.Get(id)
	if err != nil {
		return err
	}
	if err := t.applyValues(&row, values); err != nil {
		return err
	}
	return t.Update(ctx, row)
}

// checkQueryOnly rejects query-only columns before any other validation, so
// the failure never depends on the supplied value. mmr_lambda is reported
// first when several are present.
func checkQueryOnly(values map[string]any) error {
	for _, name := range queryOnlyColumns {
		if _, ok := values[name]; ok {
			return &ErrQueryOnlyColumn{Column: name}
		}
	}
	return nil
}

func (t *Table) applyValues(row *Row, values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := values[name]
		switch {
		case name == ColumnRowID:
		case name == t.schema.Column():
			vec, err := toVector(value, t.schema.Encoding)
			if err != nil {
				return &ErrInvalidValue{Column: name, Value: value, cause: err}
			}
			row.Vector = vec
		case name == t.schema.PartitionColumn && name != "":
			s, ok := value.(string)
			if !ok {
				return &ErrInvalidValue{Column: name, Value: value}
			}
			row.Partition = s
		case t.schema.hasAux(name):
			if row.Aux == nil {
				row.Aux = make(map[string]any)
			}
			row.Aux[name] = value
		default:
			return &ErrUnknownColumn{Column: name}
		}
	}
	return nil
}

func toRowID(v any) (model.RowID, error) {
	switch x := v.(type) {
	case model.RowID:
		return x, nil
	case int:
		return model.RowID(x), nil
	case int32:
		return model.RowID(x), nil
	case int64:
		return model.RowID(x), nil
	case uint32:
		return model.RowID(x), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return model.RowID(x), nil
		}
	case gojson.Number:
		if n, err := x.Int64(); err == nil {
			return model.RowID(n), nil
		}
	}
	return 0, &ErrInvalidValue{Column: ColumnRowID, Value: v}
}

func toVector(v any, enc distance.Encoding) (distance.Vector, error) {
	switch x := v.(type) {
	case distance.Vector:
		return x, nil
	case []float32:
		if enc != distance.EncodingFloat32 {
			return distance.Vector{}, &distance.ErrEncodingMismatch{Expected: enc, Actual: distance.EncodingFloat32}
		}
		return distance.Float32(x...).Clone(), nil
	case []int8:
		if enc != distance.EncodingInt8 {
			return distance.Vector{}, &distance.ErrEncodingMismatch{Expected: enc, Actual: distance.EncodingInt8}
		}
		return distance.Int8(x...).Clone(), nil
	case []float64:
		return distance.FromFloat64s(x, enc)
	case []any:
		raw := make([]float64, len(x))
		for i, e := range x {
			f, ok := e.(float64)
			if !ok {
				return distance.Vector{}, fmt.Errorf("component %d is %T, not a number", i, e)
			}
			raw[i] = f
		}
		return distance.FromFloat64s(raw, enc)
	case string:
		return distance.ParseJSON(x, enc)
	default:
		return distance.Vector{}, fmt.Errorf("unsupported vector value %T", v)
	}
}
