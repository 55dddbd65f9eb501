package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect table snapshots",
	}

	list := &cobra.Command{
		Use:   "list TABLE",
		Short: "List the stored snapshot versions of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			seqs, err := db.SnapshotVersions(ctx, args[0])
			if err != nil {
				return err
			}
			for _, seq := range seqs {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), seq); err != nil {
					return err
				}
			}
			return nil
		},
	}

	drop := &cobra.Command{
		Use:   "drop TABLE",
		Short: "Delete all stored snapshots of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DropSnapshots(ctx, args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "dropped snapshots of %s\n", args[0])
			return err
		},
	}

	cmd.AddCommand(list, drop)
	return cmd
}
