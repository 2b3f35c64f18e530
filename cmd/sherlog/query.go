package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sherlog/internal/duckdb"
)

func newQueryCmd(a *app) *cobra.Command {
	var schema bool
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL query against the database",
		Long: `Run one SELECT or WITH query against the stored files, sources and
entries tables and print the rows as JSON.

Examples:
  sherlog query "SELECT level, COUNT(*) FROM entries GROUP BY level"
  sherlog query --schema`,
		Args: func(cmd *cobra.Command, args []string) error {
			if schema {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.NewStore(a.cfg.DBPath, a.cfg.QueryTimeout)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			if schema {
				fmt.Fprintln(cmd.OutOrStdout(), store.SchemaDescription())
				return nil
			}
			rows, err := store.ExecuteQuery(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "describe the tables instead of running a query")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <dest>",
		Short: "Copy a consistent snapshot of the database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.NewStore(a.cfg.DBPath, a.cfg.QueryTimeout)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			if err := store.SnapshotTo(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot written to %s\n", args[0])
			return nil
		},
	}
}
