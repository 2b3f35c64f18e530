package model

import (
	"errors"
	"time"
)

// ErrFileNotFound is returned by stores for an unknown file id.
var ErrFileNotFound = errors.New("file not found")

// FileInfo describes one ingested parse result.
type FileInfo struct {
	ID       string
	Name     string
	Path     string
	ParsedAt time.Time
	Entries  int64
}

// SourceInfo describes one leaf source of an ingested file.
type SourceInfo struct {
	FileID   string
	SourceID uint32
	Name     string
	Entries  int64
}

// EntryQuery selects stored entries. Empty fields match everything.
type EntryQuery struct {
	FileID        string
	SourceID      *uint32
	Levels        []LogLevel
	Search        string
	CaseSensitive bool
	Limit         int
}

// StoredEntry is an entry read back from storage with its origin.
type StoredEntry struct {
	FileID   string
	SourceID uint32
	Source   string
	Seq      int64
	Entry    LogEntry
}

// TreeWriter persists parsed log trees.
type TreeWriter interface {
	InsertTree(path string, root *LogSource) (string, error)
}

// EntryQuerier provides read-only queries over stored entries.
type EntryQuerier interface {
	ListFiles() ([]FileInfo, error)
	ListSources(fileID string) ([]SourceInfo, error)
	SeverityCounts(fileID string) (map[string]int64, error)
	QueryEntries(q EntryQuery) ([]StoredEntry, error)
}

// LogStore is the unified storage contract used by the HTTP API and CLI.
type LogStore interface {
	TreeWriter
	EntryQuerier
}
