package vecmmr

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/mmr"
	"github.com/hupe1980/vecmmr/retriever"
	"github.com/hupe1980/vecmmr/snapshot"
	"github.com/hupe1980/vecmmr/table"
)

var (
	// ErrInvalidArgument is returned for a query or write parameter outside
	// its allowed domain.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConstraintViolation is returned for writes that break a table
	// constraint, including any write to the query-only mmr_lambda column.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrNotFound is returned for a missing row or snapshot.
	ErrNotFound = errors.New("not found")

	// ErrTableNotFound is returned for an unknown table name.
	ErrTableNotFound = errors.New("table not found")

	// ErrTableExists is returned when creating a table whose name is taken.
	ErrTableExists = errors.New("table already exists")

	// ErrNoBlobStore is returned by snapshot operations on a DB without a blob store.
	ErrNoBlobStore = errors.New("no blob store configured")

	// ErrClosed is returned by every operation on a closed DB.
	ErrClosed = errors.New("db is closed")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
// It matches ErrInvalidArgument with errors.Is.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("%v: dimension mismatch: expected %d, got %d", ErrInvalidArgument, e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// Is reports whether target is ErrInvalidArgument.
func (e *ErrDimensionMismatch) Is(target error) bool { return target == ErrInvalidArgument }

func translateError(err error) error {
	if err == nil {
		return nil
	}
	// already classified
	if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrConstraintViolation) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrTableNotFound) ||
		errors.Is(err, ErrTableExists) || errors.Is(err, ErrClosed) || errors.Is(err, ErrNoBlobStore) {
		return err
	}

	// Write-path constraints.
	var qo *table.ErrQueryOnlyColumn
	if errors.As(err, &qo) {
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}
	if errors.Is(err, table.ErrDuplicateRow) {
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}

	// Not found unification.
	if errors.Is(err, table.ErrRowNotFound) || errors.Is(err, snapshot.ErrNoSnapshot) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Dimension and argument normalization.
	var dm *distance.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var em *distance.ErrEncodingMismatch
	var um *distance.ErrUnsupportedMetric
	var uc *table.ErrUnknownColumn
	var iv *table.ErrInvalidValue
	switch {
	case errors.As(err, &em), errors.As(err, &um), errors.As(err, &uc), errors.As(err, &iv),
		errors.Is(err, distance.ErrZeroMagnitude),
		errors.Is(err, distance.ErrNonFinite),
		errors.Is(err, table.ErrInvalidSchema),
		errors.Is(err, mmr.ErrInvalidLambda),
		errors.Is(err, retriever.ErrInvalidConfig),
		errors.Is(err, snapshot.ErrInvalidTableName):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return err
}
