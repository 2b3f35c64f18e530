package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sherlog/internal/logparse"
	"github.com/tinytelemetry/sherlog/internal/logstore"
	"github.com/tinytelemetry/sherlog/internal/model"
	"github.com/tinytelemetry/sherlog/internal/output"
	"github.com/tinytelemetry/sherlog/internal/parse"
	"github.com/tinytelemetry/sherlog/internal/timeshift"
)

type parseOptions struct {
	format        string
	levels        string
	search        string
	caseSensitive bool
	sources       string
	shift         string
	shiftSources  string
	noColor       bool
}

func newParseCmd(a *app) *cobra.Command {
	var opts parseOptions
	cmd := &cobra.Command{
		Use:   "parse <file>...",
		Short: "Parse log files and print the entries",
		Long: `Parse one or more .glog, .sfile, .lfile or Robot log .txt files and print
their entries merged in timestamp order.

Examples:
  sherlog parse controller.glog
  sherlog parse debug.txt --level warn,error --search timeout
  sherlog parse sensor.glog --shift "+0D 01:00:00.000" --shift-source Sensor
  sherlog parse controller.glog --format yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format == "" {
				opts.format = a.cfg.Format
			}
			return a.runParse(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "", "output format: text, json, yaml, summary (default from config)")
	f.StringVarP(&opts.levels, "level", "l", "", "only show these severities (comma-separated)")
	f.StringVarP(&opts.search, "search", "s", "", "only show entries whose message contains this text")
	f.BoolVar(&opts.caseSensitive, "case-sensitive", false, "match --search case-sensitively")
	f.StringVar(&opts.sources, "source", "", "only show sources whose path contains this text")
	f.StringVar(&opts.shift, "shift", "", `shift timestamps, e.g. "+0D 00:00:01.500" or "-90"`)
	f.StringVar(&opts.shiftSources, "shift-source", "", "only shift sources whose path contains this text")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colored text output")
	return cmd
}

func (a *app) runParse(ctx context.Context, w io.Writer, paths []string, opts parseOptions) error {
	results, err := a.dispatcher().ParseFiles(ctx, paths, a.cfg.Concurrency)
	if err != nil {
		return err
	}
	root, err := mergeResults(results, func(r parse.Result) {
		a.logger.Error().Err(r.Err).Str("path", r.Path).Msg("parse failed")
	})
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		return output.WriteJSON(w, root)
	case "yaml":
		return output.WriteYAML(w, root)
	case "summary":
		return output.WriteSummary(w, root, a.cfg.Color && !opts.noColor)
	case "text":
	default:
		return fmt.Errorf("unknown output format %q", opts.format)
	}

	store := logstore.New(root)

	if opts.shift != "" {
		delta, canonical := timeshift.NewTracker(a.sink).Update(opts.shift)
		ids := store.SourceIDs(func(path string) bool {
			return strings.Contains(path, opts.shiftSources)
		})
		store.Shift(ids, delta)
		a.logger.Info().Str("shift", canonical).Int("sources", len(ids)).Msg("shifted timestamps")
	}

	levels, err := logparse.ParseLevels(opts.levels)
	if err != nil {
		return err
	}
	filter := model.Filter{
		Search:        opts.search,
		CaseSensitive: opts.caseSensitive,
		Levels:        levels,
	}
	if opts.sources != "" {
		filter.SourceIDs = store.SourceIDs(func(path string) bool {
			return strings.Contains(path, opts.sources)
		})
		if len(filter.SourceIDs) == 0 {
			return fmt.Errorf("no source matches %q", opts.sources)
		}
	}
	store.Apply(filter)

	return output.WriteText(w, store.Visible(), a.cfg.Color && !opts.noColor)
}

// mergeResults returns the single parsed tree, or a synthetic root holding
// every successfully parsed file. Failed files are reported and skipped; it
// is an error when none parsed.
func mergeResults(results []parse.Result, report func(parse.Result)) (*model.LogSource, error) {
	var roots []*model.LogSource
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			report(r)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", r.Path, r.Err)
			}
			continue
		}
		roots = append(roots, r.Source)
	}
	switch len(roots) {
	case 0:
		if firstErr == nil {
			firstErr = fmt.Errorf("no files to parse")
		}
		return nil, firstErr
	case 1:
		return roots[0], nil
	}
	merged := model.NewLogSource("merged")
	merged.SetSources(roots)
	return merged, nil
}
