package vecmmr

import (
	"fmt"
	"math"
	"strings"

	"github.com/hupe1980/vecmmr/model"
	"github.com/hupe1980/vecmmr/table"
)

func validateK(k int) error {
	if k < 0 {
		return fmt.Errorf("%w: k must be non-negative, got %d", ErrInvalidArgument, k)
	}
	return nil
}

// validateLambda never clamps: out-of-range values are rejected.
func validateLambda(lambda float64) error {
	if math.IsNaN(lambda) || lambda < 0 || lambda > 1 {
		return fmt.Errorf("%w: mmr_lambda must be in [0.0, 1.0], got %v", ErrInvalidArgument, lambda)
	}
	return nil
}

func validateTableName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidArgument, name)
	}
	return nil
}

// validateQuery checks every query parameter against the table schema
// before any row is touched.
func validateQuery(schema table.Schema, q model.Query) error {
	if err := validateK(q.K); err != nil {
		return err
	}
	if q.MMRLambda != nil {
		if err := validateLambda(*q.MMRLambda); err != nil {
			return err
		}
	}
	if err := schema.CheckVector(q.Vector); err != nil {
		return translateError(fmt.Errorf("query vector: %w", err))
	}
	for _, f := range q.DistanceFilters {
		if !f.Op.Valid() {
			return fmt.Errorf("%w: unknown distance operator %v", ErrInvalidArgument, f.Op)
		}
		if math.IsNaN(float64(f.Value)) {
			return fmt.Errorf("%w: distance filter value is NaN", ErrInvalidArgument)
		}
	}
	if q.Partition != nil && (schema.PartitionColumn == "" || q.Partition.Column != schema.PartitionColumn) {
		return fmt.Errorf("%w: %q is not a partition key column", ErrInvalidArgument, q.Partition.Column)
	}
	return nil
}
