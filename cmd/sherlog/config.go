package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/sherlog/internal/backup"
	"github.com/tinytelemetry/sherlog/internal/export"
	"github.com/tinytelemetry/sherlog/internal/httpserver"
	"github.com/tinytelemetry/sherlog/internal/model"
)

const (
	envPrefix           = "SHERLOG"
	defaultLogLevel     = "warn"
	defaultFormat       = "text"
	defaultRetention    = 0 // disabled
	defaultOTLPEndpoint = "127.0.0.1:4317"
)

// appConfig is the runtime configuration shared by all subcommands.
type appConfig struct {
	DBPath           string        `mapstructure:"db-path" validate:"required"`
	APIAddr          string        `mapstructure:"api-addr" validate:"required,hostname_port"`
	Concurrency      int           `mapstructure:"concurrency" validate:"min=1,max=256"`
	LogLevel         string        `mapstructure:"log-level" validate:"oneof=trace debug info warn error disabled"`
	Format           string        `mapstructure:"format" validate:"oneof=text json yaml summary"`
	Color            bool          `mapstructure:"color"`
	OTLPEndpoint     string        `mapstructure:"otlp-endpoint" validate:"required"`
	OTLPTimeout      time.Duration `mapstructure:"otlp-timeout" validate:"gt=0"`
	ServiceName      string        `mapstructure:"service-name" validate:"required"`
	QueryTimeout     time.Duration `mapstructure:"query-timeout" validate:"gt=0"`
	Retention        time.Duration `mapstructure:"retention" validate:"gte=0"`
	SnapshotDir      string        `mapstructure:"snapshot-dir"`
	SnapshotInterval time.Duration `mapstructure:"snapshot-interval" validate:"gt=0"`
	SnapshotKeep     int           `mapstructure:"snapshot-keep" validate:"min=1"`
	ConfigPath       string        `mapstructure:"-"`
}

// loadConfig reads an optional .env file, then defaults, the config file and
// SHERLOG_* environment variables, in increasing priority. A missing config
// file is not an error.
func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db-path", filepath.Join(home, ".local", "share", "sherlog", "sherlog.duckdb"))
	v.SetDefault("api-addr", httpserver.DefaultAddr)
	v.SetDefault("concurrency", model.DefaultConcurrency)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("format", defaultFormat)
	v.SetDefault("color", true)
	v.SetDefault("otlp-endpoint", defaultOTLPEndpoint)
	v.SetDefault("otlp-timeout", export.DefaultTimeout)
	v.SetDefault("service-name", model.DefaultServiceName)
	v.SetDefault("query-timeout", model.DefaultQueryTimeout)
	v.SetDefault("retention", defaultRetention)
	v.SetDefault("snapshot-dir", "")
	v.SetDefault("snapshot-interval", backup.DefaultInterval)
	v.SetDefault("snapshot-keep", backup.DefaultKeepLast)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "sherlog", "config.yml"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	} else {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Format = strings.ToLower(cfg.Format)
	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.SnapshotDir = expandHome(home, cfg.SnapshotDir)

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
