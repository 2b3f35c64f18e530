package model

import (
	"strings"
	"time"
)

// Epoch is the default timestamp of a freshly constructed entry.
var Epoch = time.Unix(0, 0).UTC()

// LogLevel is the normalized severity of a log entry.
type LogLevel uint8

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

// AllLevels lists every severity from least to most severe.
var AllLevels = []LogLevel{LevelTrace, LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical}

func (l LogLevel) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the level by name so JSON and YAML output stay readable.
func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// FieldSessionID is the custom field key carrying a device session identifier.
const FieldSessionID = "SessionId"

// CustomField is a typed scalar attached to an entry under a field name.
type CustomField interface {
	isCustomField()
}

// UInt32Field is an unsigned 32-bit custom field value.
type UInt32Field uint32

// Int32Field is a signed 32-bit custom field value.
type Int32Field int32

// StringField is a text custom field value.
type StringField string

func (UInt32Field) isCustomField() {}
func (Int32Field) isCustomField()  {}
func (StringField) isCustomField() {}

// LogEntry is one normalized log line.
type LogEntry struct {
	Timestamp time.Time
	Severity  LogLevel
	Message   string
	Fields    map[string]CustomField

	// EntryID belongs to consumers (selection bookkeeping); parsers leave it zero.
	EntryID uint32
}

// NewLogEntry returns an entry with the default timestamp and severity.
func NewLogEntry() LogEntry {
	return LogEntry{
		Timestamp: Epoch,
		Severity:  LevelInfo,
	}
}

// SetField stores a custom field, allocating the map on first use.
func (e *LogEntry) SetField(name string, value CustomField) {
	if e.Fields == nil {
		e.Fields = make(map[string]CustomField, 1)
	}
	e.Fields[name] = value
}

// SessionID returns the entry's session id when present and typed as UInt32Field.
func (e *LogEntry) SessionID() (uint32, bool) {
	v, ok := e.Fields[FieldSessionID]
	if !ok {
		return 0, false
	}
	id, ok := v.(UInt32Field)
	if !ok {
		return 0, false
	}
	return uint32(id), true
}

// LogSource is a node of the parsed log tree. A node holds either entries
// (leaf) or child sources, never both.
type LogSource struct {
	Name    string
	Entries []LogEntry
	Sources []*LogSource
}

// NewLogSource creates an empty leaf.
func NewLogSource(name string) *LogSource {
	return &LogSource{Name: name}
}

// IsLeaf reports whether the node holds entries rather than sub-sources.
func (s *LogSource) IsLeaf() bool {
	return s.Sources == nil
}

// SetEntries turns the node into a leaf holding entries.
func (s *LogSource) SetEntries(entries []LogEntry) {
	s.Sources = nil
	s.Entries = entries
}

// SetSources turns the node into an internal node holding sources.
func (s *LogSource) SetSources(sources []*LogSource) {
	s.Entries = nil
	if sources == nil {
		sources = []*LogSource{}
	}
	s.Sources = sources
}

// Walk visits every leaf in tree order. path holds the names from the root
// down to and including the leaf.
func (s *LogSource) Walk(fn func(path []string, leaf *LogSource)) {
	s.walk(nil, fn)
}

func (s *LogSource) walk(parent []string, fn func([]string, *LogSource)) {
	path := append(parent[:len(parent):len(parent)], s.Name)
	if s.IsLeaf() {
		fn(path, s)
		return
	}
	for _, child := range s.Sources {
		child.walk(path, fn)
	}
}

// EntryCount returns the number of entries in the whole subtree.
func (s *LogSource) EntryCount() int {
	n := 0
	s.Walk(func(_ []string, leaf *LogSource) {
		n += len(leaf.Entries)
	})
	return n
}

// JoinPath renders a source path the way consumers display it.
func JoinPath(path []string) string {
	return strings.Join(path, "/")
}
