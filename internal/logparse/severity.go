package logparse

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/sherlog/internal/model"
)

// RobotLevel maps a Robot log level token. Matching is case-insensitive and
// limited to the tokens the test framework emits; FAIL is an error.
func RobotLevel(token string) (model.LogLevel, bool) {
	switch strings.ToUpper(token) {
	case "TRACE":
		return model.LevelTrace, true
	case "DEBUG":
		return model.LevelDebug, true
	case "INFO":
		return model.LevelInfo, true
	case "WARN":
		return model.LevelWarning, true
	case "ERROR", "FAIL":
		return model.LevelError, true
	default:
		return model.LevelInfo, false
	}
}

// ParseLevel converts the many spellings people type on a command line or
// query string into a level.
func ParseLevel(severity string) (model.LogLevel, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(severity))

	switch normalized {
	case "TRACE", "TRAC", "TRC":
		return model.LevelTrace, true
	case "DEBUG", "DEBU", "DBG", "DEB":
		return model.LevelDebug, true
	case "INFO", "INFORMATION", "INF":
		return model.LevelInfo, true
	case "WARN", "WARNING", "WRNG", "WRN":
		return model.LevelWarning, true
	case "ERROR", "ERR", "ERRO", "FAIL":
		return model.LevelError, true
	case "CRITICAL", "CRIT", "CRT", "FATAL", "FATL", "FTL", "PANIC", "PNC":
		return model.LevelCritical, true
	default:
		if len(normalized) >= 4 {
			switch normalized[:4] {
			case "INFO":
				return model.LevelInfo, true
			case "WARN":
				return model.LevelWarning, true
			case "ERRO":
				return model.LevelError, true
			case "DEBU":
				return model.LevelDebug, true
			case "TRAC":
				return model.LevelTrace, true
			case "FATA", "CRIT":
				return model.LevelCritical, true
			}
		}
		return model.LevelInfo, false
	}
}

// ParseLevels parses a comma-separated level list. Empty input means all levels.
func ParseLevels(list string) ([]model.LogLevel, error) {
	var out []model.LogLevel
	seen := make(map[model.LogLevel]bool)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		level, ok := ParseLevel(part)
		if !ok {
			return nil, fmt.Errorf("unknown severity %q", part)
		}
		if !seen[level] {
			seen[level] = true
			out = append(out, level)
		}
	}
	return out, nil
}
