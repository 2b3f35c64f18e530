package glog

import "github.com/tinytelemetry/sherlog/internal/model"

// glogSeverity is the six-valued firmware severity.
type glogSeverity uint32

const (
	sevCritical glogSeverity = iota
	sevHardware
	sevError
	sevWarning
	sevInfo
	sevNone
)

func severityFromUint(v uint32) (glogSeverity, bool) {
	if v > uint32(sevNone) {
		return 0, false
	}
	return glogSeverity(v), true
}

// normalizeSeverity maps firmware severities onto model levels. sevNone is
// what sensor firmware uses for unclassified output; it maps to Debug so it
// never shows up as a flood of critical errors.
func normalizeSeverity(s glogSeverity) model.LogLevel {
	switch s {
	case sevCritical, sevHardware:
		return model.LevelCritical
	case sevError:
		return model.LevelError
	case sevWarning:
		return model.LevelWarning
	case sevInfo:
		return model.LevelInfo
	default:
		return model.LevelDebug
	}
}
