package table

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecmmr/model"
)

var (
	// ErrDuplicateRow is returned when inserting a row id that already exists.
	ErrDuplicateRow = errors.New("row id already exists")

	// ErrRowNotFound is returned when a row id does not exist.
	ErrRowNotFound = errors.New("row not found")
)

// ErrQueryOnlyColumn is returned by every write that assigns a value to a
// query-time-only column, whatever the value.
type ErrQueryOnlyColumn struct {
	Column string
}

func (e *ErrQueryOnlyColumn) Error() string {
	if e.Column == ColumnMMRLambda {
		return "diversity parameter is query-only and cannot be stored"
	}
	return fmt.Sprintf("column %q is query-only and cannot be stored", e.Column)
}

// ErrUnknownColumn is returned for a write or filter naming a column the table lacks.
type ErrUnknownColumn struct {
	Column string
}

func (e *ErrUnknownColumn) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

// ErrInvalidValue is returned when a written value does not fit its column.
type ErrInvalidValue struct {
	Column string
	Value  any
	cause  error
}

func (e *ErrInvalidValue) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid value for column %q: %v", e.Column, e.cause)
	}
	return fmt.Sprintf("invalid value %v (%T) for column %q", e.Value, e.Value, e.Column)
}

func (e *ErrInvalidValue) Unwrap() error { return e.cause }

func rowNotFound(id model.RowID) error {
	return fmt.Errorf("%w: %d", ErrRowNotFound, id)
}
