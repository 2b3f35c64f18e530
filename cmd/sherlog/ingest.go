package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sherlog/internal/duckdb"
)

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Parse log files and store them in the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.NewStore(a.cfg.DBPath, a.cfg.QueryTimeout)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()
			return a.runIngest(cmd.Context(), cmd.OutOrStdout(), store, args)
		},
	}
}

// runIngest stores every file that parses. It keeps going past failed files
// and returns an error naming how many failed.
func (a *app) runIngest(ctx context.Context, w io.Writer, store *duckdb.Store, paths []string) error {
	results, err := a.dispatcher().ParseFiles(ctx, paths, a.cfg.Concurrency)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			a.logger.Error().Err(r.Err).Str("path", r.Path).Msg("parse failed")
			failed++
			continue
		}
		id, err := store.InsertTree(r.Path, r.Source)
		if err != nil {
			a.logger.Error().Err(err).Str("path", r.Path).Msg("store failed")
			failed++
			continue
		}
		fmt.Fprintf(w, "%s  %s  %d entries\n", id, r.Path, r.Source.EntryCount())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
