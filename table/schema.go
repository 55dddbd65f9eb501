package table

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/vecmmr/distance"
)

// Reserved column names.
const (
	ColumnRowID     = "rowid"
	ColumnDistance  = "distance"
	ColumnK         = "k"
	ColumnMMRLambda = "mmr_lambda"

	// DefaultVectorColumn is used when Schema.VectorColumn is empty.
	DefaultVectorColumn = "embedding"
)

// queryOnlyColumns exist only as query constraints and have no storage slot.
var queryOnlyColumns = []string{ColumnMMRLambda, ColumnDistance, ColumnK}

// IsQueryOnly reports whether name is a query-time-only column.
func IsQueryOnly(name string) bool {
	return slices.Contains(queryOnlyColumns, name)
}

// ErrInvalidSchema is returned for a schema that cannot back a table.
var ErrInvalidSchema = errors.New("invalid schema")

// Schema describes the columns of a vector table.
type Schema struct {
	// VectorColumn names the vector column. Defaults to "embedding".
	VectorColumn string `json:"vector_column"`
	// Dimension is the fixed vector length.
	Dimension int `json:"dimension"`
	// Encoding is the component type of stored vectors.
	Encoding distance.Encoding `json:"encoding"`
	// Metric is the distance metric, fixed at creation time.
	Metric distance.Metric `json:"metric"`
	// PartitionColumn optionally names a text partition key column.
	PartitionColumn string `json:"partition_column,omitempty"`
	// AuxColumns are stored alongside each row but never filtered on.
	AuxColumns []string `json:"aux_columns,omitempty"`
}

// Column returns the effective vector column name.
func (s Schema) Column() string {
	if s.VectorColumn == "" {
		return DefaultVectorColumn
	}
	return s.VectorColumn
}

// Validate checks that s describes a usable table.
func (s Schema) Validate() error {
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidSchema, s.Dimension)
	}
	if _, err := distance.NewKernel(s.Metric, s.Encoding); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	seen := map[string]bool{}
	names := append([]string{s.Column()}, s.AuxColumns...)
	if s.PartitionColumn != "" {
		names = append(names, s.PartitionColumn)
	}
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: empty column name", ErrInvalidSchema)
		}
		if name == ColumnRowID || IsQueryOnly(name) {
			return fmt.Errorf("%w: column name %q is reserved", ErrInvalidSchema, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidSchema, name)
		}
		seen[name] = true
	}
	return nil
}

// CheckVector verifies that v matches the schema's encoding and dimension
// and has only finite components.
func (s Schema) CheckVector(v distance.Vector) error {
	if v.Encoding() != s.Encoding {
		return &distance.ErrEncodingMismatch{Expected: s.Encoding, Actual: v.Encoding()}
	}
	if v.Len() != s.Dimension {
		return &distance.ErrDimensionMismatch{Expected: s.Dimension, Actual: v.Len()}
	}
	return v.CheckFinite()
}

func (s Schema) hasAux(name string) bool {
	return slices.Contains(s.AuxColumns, name)
}
