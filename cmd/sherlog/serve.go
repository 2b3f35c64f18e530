package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/sherlog/internal/backup"
	"github.com/tinytelemetry/sherlog/internal/duckdb"
	"github.com/tinytelemetry/sherlog/internal/httpserver"
)

type serveOptions struct {
	addr     string
	preload  []string
	noBanner bool
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve [file]...",
		Short: "Serve stored logs over the HTTP API",
		Long: `Open the database and serve the HTTP API until interrupted. Files given
as arguments are parsed and ingested before the API starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.addr == "" {
				opts.addr = a.cfg.APIAddr
			}
			opts.preload = args
			return a.runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noBanner, "no-banner", false, "do not print the startup banner")
	return cmd
}

func (a *app) runServe(parent context.Context, opts serveOptions) error {
	store, err := duckdb.NewStore(a.cfg.DBPath, a.cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	if cleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{MaxAge: a.cfg.Retention}); cleaner != nil {
		defer cleaner.Stop()
	}

	snapshots, err := backup.NewManager(store, backup.Config{
		Dir:      a.cfg.SnapshotDir,
		Interval: a.cfg.SnapshotInterval,
		KeepLast: a.cfg.SnapshotKeep,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize snapshots: %w", err)
	}
	if snapshots != nil {
		defer snapshots.Stop()
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if len(opts.preload) > 0 {
		if err := a.runIngest(ctx, os.Stdout, store, opts.preload); err != nil {
			a.logger.Warn().Err(err).Msg("preload incomplete")
		}
	}

	api := httpserver.NewServer(opts.addr, store, httpserver.Config{Parser: a.dispatcher()})
	if err := api.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()
		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	if !opts.noBanner {
		printStartupBanner(a.cfg, api.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return api.Stop()
	})
	if err := g.Wait(); err != nil {
		a.logger.Error().Err(err).Msg("server shutdown")
	}
	return nil
}

func printStartupBanner(cfg appConfig, addr string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	separator := dim.Render("    ─────────────────────────────────")

	lines := []string{
		"",
		cyan.Bold(true).Render("    sherlog"),
		"    " + dim.Render("v"+version),
		"",
		separator,
		"",
		bold.Render("    Gateway"),
		"",
		fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render("http://"+addr+"/api")),
		"",
		bold.Render("    Storage"),
		"",
		fmt.Sprintf("    %s  Database       %s", check, dim.Render(shortenPath(cfg.DBPath))),
	}
	if cfg.Retention > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", check, dim.Render(cfg.Retention.String())))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", dot, dim.Render("disabled")))
	}

	if cfg.SnapshotDir != "" {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.SnapshotDir)+" every "+cfg.SnapshotInterval.String())))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}

	lines = append(lines, "", bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines,
		"",
		separator,
		"",
		"    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"),
		"",
	)
	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
