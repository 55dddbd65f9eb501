package table

import (
	"context"
	"fmt"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
)

// State is the serializable content of a table.
type State struct {
	Name   string     `json:"name"`
	Schema Schema     `json:"schema"`
	Rows   []RowState `json:"rows"`
}

// RowState is the serializable form of a row. Exactly one of F32 and I8 is set.
type RowState struct {
	ID        model.RowID    `json:"rowid"`
	F32       []float32      `json:"f32,omitempty"`
	I8        []int8         `json:"i8,omitempty"`
	Partition string         `json:"partition,omitempty"`
	Aux       map[string]any `json:"aux,omitempty"`
}

// State captures the live rows of t in slot order.
func (t *Table) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows := t.liveRows()
	st := State{Name: t.name, Schema: t.schema, Rows: make([]RowState, len(rows))}
	for i, r := range rows {
		st.Rows[i] = RowState{
			ID:        r.ID,
			F32:       r.Vector.Float32s(),
			I8:        r.Vector.Int8s(),
			Partition: r.Partition,
			Aux:       r.Aux,
		}
	}
	return st
}

// FromState rebuilds a table from a captured state.
func FromState(ctx context.Context, st State) (*Table, error) {
	t, err := New(st.Name, st.Schema)
	if err != nil {
		return nil, err
	}
	for _, rs := range st.Rows {
		var vec distance.Vector
		if st.Schema.Encoding == distance.EncodingInt8 {
			vec = distance.Int8(rs.I8...)
		} else {
			vec = distance.Float32(rs.F32...)
		}
		if err := t.Insert(ctx, Row{ID: rs.ID, Vector: vec, Partition: rs.Partition, Aux: rs.Aux}); err != nil {
			return nil, fmt.Errorf("restore row %d: %w", rs.ID, err)
		}
	}
	return t, nil
}
