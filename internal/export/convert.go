// Package export converts parsed log trees to OpenTelemetry logs and ships
// them to a file or an OTLP/gRPC collector.
package export

import (
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/tinytelemetry/sherlog/internal/model"
)

// Attribute keys set on exported data.
const (
	AttrServiceName = "service.name"
	AttrFileName    = "log.file.name"
	AttrSessionID   = "session.id"
)

// ToLogsData maps one parsed tree to OTLP: the root becomes a resource, each
// leaf a scope named by its source path, each entry a log record.
func ToLogsData(root *model.LogSource, serviceName string) *logspb.LogsData {
	if serviceName == "" {
		serviceName = model.DefaultServiceName
	}
	rl := &logspb.ResourceLogs{
		Resource: &resourcepb.Resource{
			Attributes: []*commonpb.KeyValue{
				stringAttr(AttrServiceName, serviceName),
				stringAttr(AttrFileName, root.Name),
			},
		},
	}

	root.Walk(func(path []string, leaf *model.LogSource) {
		sl := &logspb.ScopeLogs{
			Scope:      &commonpb.InstrumentationScope{Name: model.JoinPath(path)},
			LogRecords: make([]*logspb.LogRecord, 0, len(leaf.Entries)),
		}
		for i := range leaf.Entries {
			sl.LogRecords = append(sl.LogRecords, toLogRecord(&leaf.Entries[i]))
		}
		rl.ScopeLogs = append(rl.ScopeLogs, sl)
	})

	return &logspb.LogsData{ResourceLogs: []*logspb.ResourceLogs{rl}}
}

func toLogRecord(e *model.LogEntry) *logspb.LogRecord {
	rec := &logspb.LogRecord{
		TimeUnixNano:   unixNano(e.Timestamp),
		SeverityNumber: severityNumber(e.Severity),
		SeverityText:   e.Severity.String(),
		Body:           &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: e.Message}},
	}
	for name, v := range e.Fields {
		key := name
		if name == model.FieldSessionID {
			key = AttrSessionID
		}
		if kv := fieldAttr(key, v); kv != nil {
			rec.Attributes = append(rec.Attributes, kv)
		}
	}
	return rec
}

// unixNano clamps to the range OTLP can carry; uncorrected device ticks
// before 1970 become 0 (unknown time).
func unixNano(t time.Time) uint64 {
	if t.Before(time.Unix(0, 0)) {
		return 0
	}
	if t.After(time.Unix(0, 1<<63-1)) {
		return 1<<63 - 1
	}
	return uint64(t.UnixNano())
}

func severityNumber(level model.LogLevel) logspb.SeverityNumber {
	switch level {
	case model.LevelTrace:
		return logspb.SeverityNumber_SEVERITY_NUMBER_TRACE
	case model.LevelDebug:
		return logspb.SeverityNumber_SEVERITY_NUMBER_DEBUG
	case model.LevelInfo:
		return logspb.SeverityNumber_SEVERITY_NUMBER_INFO
	case model.LevelWarning:
		return logspb.SeverityNumber_SEVERITY_NUMBER_WARN
	case model.LevelError:
		return logspb.SeverityNumber_SEVERITY_NUMBER_ERROR
	case model.LevelCritical:
		return logspb.SeverityNumber_SEVERITY_NUMBER_FATAL
	default:
		return logspb.SeverityNumber_SEVERITY_NUMBER_UNSPECIFIED
	}
}

func stringAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}

func fieldAttr(key string, v model.CustomField) *commonpb.KeyValue {
	switch f := v.(type) {
	case model.UInt32Field:
		return &commonpb.KeyValue{Key: key, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: int64(f)}}}
	case model.Int32Field:
		return &commonpb.KeyValue{Key: key, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: int64(f)}}}
	case model.StringField:
		return stringAttr(key, string(f))
	default:
		return nil
	}
}

// RecordCount returns the number of log records in data.
func RecordCount(data *logspb.LogsData) int {
	n := 0
	for _, rl := range data.GetResourceLogs() {
		for _, sl := range rl.GetScopeLogs() {
			n += len(sl.GetLogRecords())
		}
	}
	return n
}
