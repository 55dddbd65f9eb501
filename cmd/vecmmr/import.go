package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Build a table from a JSON lines file and save it as a snapshot",
		Example: `  vecmmr import --table docs --rows docs.jsonl --dim 3 --metric cosine
  echo '{"rowid":1,"embedding":[1,0,0]}' > docs.jsonl`,
		RunE: a.runImport,
	}
	cmd.Flags().String("table", "", "table name")
	cmd.Flags().String("rows", "", "JSON lines file with one row per line")
	addSchemaFlags(cmd)
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("rows")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	tableName, _ := cmd.Flags().GetString("table")
	rowsPath, _ := cmd.Flags().GetString("rows")

	schema, err := schemaFromFlags(cmd)
	if err != nil {
		return err
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := loadRows(ctx, db, tableName, schema, rowsPath)
	if err != nil {
		return err
	}

	info, err := db.SaveSnapshot(ctx, tableName)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s (%s, %d bytes)\n", n, tableName, info.Blob, info.Size)
	return err
}
