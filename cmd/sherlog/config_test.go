package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/sherlog/internal/model"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	home := isolateHome(t)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if want := filepath.Join(home, ".local", "share", "sherlog", "sherlog.duckdb"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if cfg.Concurrency != model.DefaultConcurrency {
		t.Errorf("Concurrency = %d", cfg.Concurrency)
	}
	if cfg.Format != "text" || cfg.LogLevel != "warn" || !cfg.Color {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.QueryTimeout != model.DefaultQueryTimeout {
		t.Errorf("QueryTimeout = %v", cfg.QueryTimeout)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty without a file", cfg.ConfigPath)
	}
}

func TestLoadConfigFile(t *testing.T) {
	home := isolateHome(t)
	path := writeConfig(t, strings.Join([]string{
		"db-path: ~/data/logs.duckdb",
		"format: JSON",
		"concurrency: 8",
		"retention: 72h",
		"service-name: line-3",
		"snapshot-dir: ~/snaps",
		"snapshot-interval: 30m",
	}, "\n"))

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if want := filepath.Join(home, "data", "logs.duckdb"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.Retention != 72*time.Hour {
		t.Errorf("Retention = %v, want 72h", cfg.Retention)
	}
	if cfg.ServiceName != "line-3" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if want := filepath.Join(home, "snaps"); cfg.SnapshotDir != want || cfg.SnapshotInterval != 30*time.Minute {
		t.Errorf("snapshots = %q every %v", cfg.SnapshotDir, cfg.SnapshotInterval)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, "concurrency: 8\n")
	t.Setenv("SHERLOG_CONCURRENCY", "2")
	t.Setenv("SHERLOG_LOG_LEVEL", "debug")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Concurrency)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"format", "format: xml\n"},
		{"concurrency", "concurrency: 0\n"},
		{"log level", "log-level: loud\n"},
		{"api addr", "api-addr: nowhere\n"},
		{"negative retention", "retention: -1h\n"},
		{"snapshot keep", "snapshot-keep: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			if _, err := loadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	isolateHome(t)
	if _, err := loadConfig(writeConfig(t, "format: [unterminated\n")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
