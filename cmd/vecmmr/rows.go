package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/vecmmr"
	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/table"
	"github.com/spf13/cobra"
)

const maxLineBytes = 16 << 20

func addSchemaFlags(cmd *cobra.Command) {
	cmd.Flags().Int("dim", 0, "vector dimension")
	cmd.Flags().String("metric", "l2", "distance metric (l2, cosine)")
	cmd.Flags().String("encoding", "float32", "vector encoding (float32, int8)")
	cmd.Flags().String("vector-column", table.DefaultVectorColumn, "name of the vector column")
	cmd.Flags().String("partition-column", "", "optional text partition key column")
	cmd.Flags().StringSlice("aux", nil, "additional stored columns")
}

func schemaFromFlags(cmd *cobra.Command) (table.Schema, error) {
	dim, _ := cmd.Flags().GetInt("dim")
	metricName, _ := cmd.Flags().GetString("metric")
	encName, _ := cmd.Flags().GetString("encoding")
	vecCol, _ := cmd.Flags().GetString("vector-column")
	partCol, _ := cmd.Flags().GetString("partition-column")
	aux, _ := cmd.Flags().GetStringSlice("aux")

	metric, err := distance.ParseMetric(metricName)
	if err != nil {
		return table.Schema{}, err
	}
	enc, err := distance.ParseEncoding(encName)
	if err != nil {
		return table.Schema{}, err
	}

	schema := table.Schema{
		VectorColumn:    vecCol,
		Dimension:       dim,
		Encoding:        enc,
		Metric:          metric,
		PartitionColumn: partCol,
		AuxColumns:      aux,
	}
	if err := schema.Validate(); err != nil {
		return table.Schema{}, err
	}
	return schema, nil
}

// loadRows creates tableName in db and fills it from a JSON lines file, one
// object of column values per line.
func loadRows(ctx context.Context, db *vecmmr.DB, tableName string, schema table.Schema, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := db.CreateTable(tableName, schema); err != nil {
		return 0, err
	}
	return readRows(ctx, db, tableName, f)
}

func readRows(ctx context.Context, db *vecmmr.DB, tableName string, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	n := 0
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var values map[string]any
		if err := gojson.Unmarshal([]byte(text), &values); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if err := db.InsertValues(ctx, tableName, values); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	return n, sc.Err()
}
