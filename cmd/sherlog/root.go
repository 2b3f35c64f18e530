package main

import (
	"fmt"
	"log"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sherlog/internal/diag"
	"github.com/tinytelemetry/sherlog/internal/parse"
)

// app carries what PersistentPreRunE sets up to the subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg    appConfig
	logger zerolog.Logger
	sink   diag.Sink
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sherlog",
		Short: "Parse, store and explore machine logs",
		Long: `sherlog reads GLOG files written by controller and sensor firmware and
Robot framework text logs, normalizes them into one tree of timestamped
entries, and prints, stores, serves or exports the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default $HOME/.config/sherlog/config.yml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "diagnostics level: trace, debug, info, warn, error, disabled")

	root.AddCommand(
		newParseCmd(a),
		newIngestCmd(a),
		newServeCmd(a),
		newExportCmd(a),
		newQueryCmd(a),
		newSnapshotCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	a.cfg = cfg
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).With().Timestamp().Logger()
	a.sink = diag.NewZerolog(a.logger)

	// Infrastructure packages log through the standard logger.
	log.SetFlags(0)
	log.SetOutput(a.logger.With().Str("component", "store").Logger())
	return nil
}

func (a *app) dispatcher() *parse.Dispatcher {
	return &parse.Dispatcher{Sink: a.sink}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sherlog - log parser and explorer\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		},
	}
}
