package table

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
)

// scanCheckInterval is the number of rows visited between context checks.
const scanCheckInterval = 1024

// Row is a single table row.
type Row struct {
	ID        model.RowID
	Vector    distance.Vector
	Partition string
	Aux       map[string]any
}

// Table is an in-memory vector table.
//
// Vectors live in a columnar arena indexed by slot. Deleted slots are
// tombstoned and dropped from the live bitmap; Compact reclaims them.
// Table is safe for concurrent use.
type Table struct {
	name   string
	schema Schema

	mu         sync.RWMutex
	f32        []float32
	i8         []int8
	ids        []model.RowID
	partitions []string
	aux        []map[string]any
	slots      map[model.RowID]uint32
	live       *roaring.Bitmap
	partIdx    map[string]*roaring.Bitmap
}

// New creates an empty table.
func New(name string, schema Schema) (*Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if schema.VectorColumn == "" {
		schema.VectorColumn = DefaultVectorColumn
	}
	return &Table{
		name:    name,
		schema:  schema,
		slots:   make(map[model.RowID]uint32),
		live:    roaring.New(),
		partIdx: make(map[string]*roaring.Bitmap),
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Schema returns the table schema.
func (t *Table) Schema() Schema { return t.schema }

// Len returns the number of live rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int(t.live.GetCardinality())
}

// Insert adds a row. The vector is copied into table storage.
func (t *Table) Insert(_ context.Context, row Row) error {
	if err := t.checkRow(row); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.slots[row.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateRow, row.ID)
	}
	t.appendRow(row)
	return nil
}

// Update replaces the vector, partition and auxiliary values of an existing row.
func (t *Table) Update(_ context.Context, row Row) error {
	if err := t.checkRow(row); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.slots[row.ID]
	if !ok {
		return rowNotFound(row.ID)
	}
	t.setVector(slot, row.Vector)
	t.setPartition(slot, row.Partition)
	t.aux[slot] = maps.Clone(row.Aux)
	return nil
}

// Delete removes a row.
func (t *Table) Delete(_ context.Context, id model.RowID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.slots[id]
	if !ok {
		return rowNotFound(id)
	}
	delete(t.slots, id)
	t.live.Remove(slot)
	t.removeFromPartition(slot)
	t.aux[slot] = nil
	return nil
}

// Get returns a copy of a row.
func (t *Table) Get(id model.RowID) (Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	slot, ok := t.slots[id]
	if !ok {
		return Row{}, rowNotFound(id)
	}
	return Row{
		ID:        id,
		Vector:    t.vector(slot).Clone(),
		Partition: t.partitions[slot],
		Aux:       maps.Clone(t.aux[slot]),
	}, nil
}

// Compact rewrites storage without tombstoned slots.
func (t *Table) Compact() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(t.live.GetCardinality()) == len(t.ids) {
		return
	}
	rows := t.liveRows()
	t.reset()
	for _, r := range rows {
		t.appendRow(r)
	}
}

// View runs fn while holding the table's read lock. Candidate vectors
// produced by the view borrow table storage and must not be used after fn
// returns.
func (t *Table) View(fn func(v *View) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fn(&View{t: t})
}

// View is a read-only, locked view of a table.
type View struct {
	t *Table
}

// Schema returns the schema of the viewed table.
func (v *View) Schema() Schema { return v.t.schema }

// Count returns the number of rows matching the partition filter.
func (v *View) Count(filter *model.PartitionFilter) (int, error) {
	bm, err := v.t.rowsFor(filter)
	if err != nil {
		return 0, err
	}
	return int(bm.GetCardinality()), nil
}

// Scan calls fn for every row matching the partition filter, in slot order.
// Scanning stops at the first error returned by fn or by ctx.
func (v *View) Scan(ctx context.Context, filter *model.PartitionFilter, fn func(id model.RowID, vec distance.Vector) error) error {
	bm, err := v.t.rowsFor(filter)
	if err != nil {
		return err
	}

	it := bm.Iterator()
	for n := 0; it.HasNext(); n++ {
		if n%scanCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		slot := it.Next()
		if err := fn(v.t.ids[slot], v.t.vector(slot)); err != nil {
			return err
		}
	}
	return nil
}

// rowsFor returns the slots matching filter. The result must not be mutated.
func (t *Table) rowsFor(filter *model.PartitionFilter) (*roaring.Bitmap, error) {
	if filter == nil {
		return t.live, nil
	}
	if t.schema.PartitionColumn == "" || filter.Column != t.schema.PartitionColumn {
		return nil, &ErrUnknownColumn{Column: filter.Column}
	}
	bm, ok := t.partIdx[filter.Value]
	if !ok {
		return roaring.New(), nil
	}
	return bm, nil
}

func (t *Table) checkRow(row Row) error {
	if err := t.schema.CheckVector(row.Vector); err != nil {
		return &ErrInvalidValue{Column: t.schema.Column(), Value: row.Vector, cause: err}
	}
	if row.Partition != "" && t.schema.PartitionColumn == "" {
		return &ErrUnknownColumn{Column: "partition"}
	}
	for name := range row.Aux {
		if IsQueryOnly(name) {
			return &ErrQueryOnlyColumn{Column: name}
		}
		if !t.schema.hasAux(name) {
			return &ErrUnknownColumn{Column: name}
		}
	}
	return nil
}

// appendRow stores a validated row in a new slot. Callers hold the write lock.
func (t *Table) appendRow(row Row) {
	slot := uint32(len(t.ids))
	switch t.schema.Encoding {
	case distance.EncodingInt8:
		t.i8 = append(t.i8, row.Vector.Int8s()...)
	default:
		t.f32 = append(t.f32, row.Vector.Float32s()...)
	}
	t.ids = append(t.ids, row.ID)
	t.partitions = append(t.partitions, "")
	t.aux = append(t.aux, maps.Clone(row.Aux))
	t.slots[row.ID] = slot
	t.live.Add(slot)
	t.setPartition(slot, row.Partition)
}

func (t *Table) setVector(slot uint32, vec distance.Vector) {
	dim := t.schema.Dimension
	off := int(slot) * dim
	switch t.schema.Encoding {
	case distance.EncodingInt8:
		copy(t.i8[off:off+dim], vec.Int8s())
	default:
		copy(t.f32[off:off+dim], vec.Float32s())
	}
}

func (t *Table) setPartition(slot uint32, value string) {
	if t.schema.PartitionColumn == "" {
		return
	}
	t.removeFromPartition(slot)
	t.partitions[slot] = value
	bm, ok := t.partIdx[value]
	if !ok {
		bm = roaring.New()
		t.partIdx[value] = bm
	}
	bm.Add(slot)
}

func (t *Table) removeFromPartition(slot uint32) {
	if t.schema.PartitionColumn == "" {
		return
	}
	old := t.partitions[slot]
	if bm, ok := t.partIdx[old]; ok {
		bm.Remove(slot)
		if bm.IsEmpty() {
			delete(t.partIdx, old)
		}
	}
}

// vector returns the arena-backed vector of a slot.
func (t *Table) vector(slot uint32) distance.Vector {
	dim := t.schema.Dimension
	lo := int(slot) * dim
	hi := lo + dim
	if t.schema.Encoding == distance.EncodingInt8 {
		return distance.Int8(t.i8[lo:hi:hi]...)
	}
	return distance.Float32(t.f32[lo:hi:hi]...)
}

func (t *Table) liveRows() []Row {
	rows := make([]Row, 0, t.live.GetCardinality())
	it := t.live.Iterator()
	for it.HasNext() {
		slot := it.Next()
		rows = append(rows, Row{
			ID:        t.ids[slot],
			Vector:    t.vector(slot).Clone(),
			Partition: t.partitions[slot],
			Aux:       t.aux[slot],
		})
	}
	return rows
}

func (t *Table) reset() {
	t.f32 = nil
	t.i8 = nil
	t.ids = nil
	t.partitions = nil
	t.aux = nil
	t.slots = make(map[model.RowID]uint32)
	t.live = roaring.New()
	t.partIdx = make(map[string]*roaring.Bitmap)
}
