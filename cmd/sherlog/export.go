package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sherlog/internal/export"
	"github.com/tinytelemetry/sherlog/internal/parse"
)

type exportOptions struct {
	out      string
	asJSON   bool
	push     bool
	endpoint string
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export <file>...",
		Short: "Convert log files to OTLP logs",
		Long: `Convert parsed log files to OpenTelemetry logs. Each file becomes one
resource and each source one scope. The result is written to --out as
protobuf (or JSON with --json), pushed to an OTLP/gRPC collector with
--push, or both.

Examples:
  sherlog export controller.glog --out controller.otlp
  sherlog export debug.txt --out - --json
  sherlog export controller.glog --push --endpoint collector:4317`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.out == "" && !opts.push {
				return fmt.Errorf("nothing to do: set --out or --push")
			}
			if opts.endpoint == "" {
				opts.endpoint = a.cfg.OTLPEndpoint
			}
			return a.runExport(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", `output file, "-" for stdout`)
	f.BoolVar(&opts.asJSON, "json", false, "write OTLP JSON instead of protobuf")
	f.BoolVar(&opts.push, "push", false, "push to an OTLP/gRPC collector")
	f.StringVar(&opts.endpoint, "endpoint", "", "collector address (default from config)")
	return cmd
}

func (a *app) runExport(ctx context.Context, w io.Writer, paths []string, opts exportOptions) error {
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

	data := export.ToLogsData(root, a.cfg.ServiceName)

	switch opts.out {
	case "":
	case "-":
		b, err := export.Marshal(data, opts.asJSON)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	default:
		if err := export.WriteFile(opts.out, data, opts.asJSON); err != nil {
			return err
		}
		a.logger.Info().Str("path", opts.out).Int("records", export.RecordCount(data)).Msg("wrote OTLP logs")
	}

	if !opts.push {
		return nil
	}
	client, err := export.NewClient(opts.endpoint, export.ClientConfig{Timeout: a.cfg.OTLPTimeout})
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Export(ctx, data); err != nil {
		return err
	}
	a.logger.Info().Str("endpoint", opts.endpoint).Int("records", export.RecordCount(data)).Msg("pushed OTLP logs")
	return nil
}
