package main

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/vecmmr"
	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/model"
	"github.com/spf13/cobra"
)

type resultLine struct {
	RowID    model.RowID `json:"rowid"`
	Distance float32     `json:"distance"`
}

var distanceFlags = []struct {
	name   string
	usage  string
	filter func(float32) model.DistanceFilter
}{
	{"distance-gt", "keep candidates with distance > value", model.DistanceGreaterThan},
	{"distance-ge", "keep candidates with distance >= value", model.DistanceAtLeast},
	{"distance-lt", "keep candidates with distance < value", model.DistanceLessThan},
	{"distance-le", "keep candidates with distance <= value", model.DistanceAtMost},
}

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a nearest-neighbor search, optionally re-ranked with MMR",
		Long: `Search a table for the k rows nearest to a query vector.

The table is loaded from its latest snapshot, or built in memory from --rows.
With --mmr-lambda the results are diversified: 1 keeps the nearest-first
order, 0 favours diversity only.`,
		Example: `  vecmmr search --table docs --query '[1,0,0]' --k 5 --mmr-lambda 0.5
  vecmmr search --rows docs.jsonl --dim 3 --metric cosine --query '[1,0,0]' --distance-gt 0.001`,
		RunE: a.runSearch,
	}
	cmd.Flags().String("table", "default", "table name")
	cmd.Flags().String("rows", "", "build the table from this JSON lines file instead of a snapshot")
	cmd.Flags().String("query", "", "query vector as a JSON array")
	cmd.Flags().Int("k", 10, "number of results")
	cmd.Flags().Float64("mmr-lambda", 0, "enable MMR with this relevance weight in [0, 1]")
	cmd.Flags().String("partition", "", "only search rows with this partition key value")
	for _, f := range distanceFlags {
		cmd.Flags().Float32(f.name, 0, f.usage)
	}
	addSchemaFlags(cmd)
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func (a *app) runSearch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	tableName, _ := flags.GetString("table")
	rowsPath, _ := flags.GetString("rows")
	queryText, _ := flags.GetString("query")
	k, _ := flags.GetInt("k")

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if rowsPath != "" {
		schema, err := schemaFromFlags(cmd)
		if err != nil {
			return err
		}
		if _, err := loadRows(ctx, db, tableName, schema, rowsPath); err != nil {
			return err
		}
	} else if _, err := db.LoadSnapshot(ctx, tableName); err != nil {
		return err
	}

	tbl, err := db.Table(tableName)
	if err != nil {
		return err
	}
	schema := tbl.Schema()

	vec, err := distance.ParseJSON(queryText, schema.Encoding)
	if err != nil {
		return fmt.Errorf("%w: %w", vecmmr.ErrInvalidArgument, err)
	}

	search := db.Search(tableName, vec).KNN(k)
	if flags.Changed("mmr-lambda") {
		lambda, _ := flags.GetFloat64("mmr-lambda")
		search = search.MMR(lambda)
	}
	if flags.Changed("partition") {
		if schema.PartitionColumn == "" {
			return fmt.Errorf("%w: table %s has no partition column", vecmmr.ErrInvalidArgument, tableName)
		}
		value, _ := flags.GetString("partition")
		search = search.Partition(schema.PartitionColumn, value)
	}
	for _, f := range distanceFlags {
		if flags.Changed(f.name) {
			v, _ := flags.GetFloat32(f.name)
			search = search.Where(f.filter(v))
		}
	}

	results, err := search.Execute(ctx)
	if err != nil {
		return err
	}

	enc := gojson.NewEncoder(cmd.OutOrStdout())
	for _, r := range results {
		if err := enc.Encode(resultLine{RowID: r.RowID, Distance: r.Distance}); err != nil {
			return err
		}
	}
	return nil
}
