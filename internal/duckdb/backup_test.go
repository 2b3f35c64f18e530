package duckdb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotTo(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sherlog.duckdb")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	insertSample(t, s)

	dst := filepath.Join(t.TempDir(), "backups", "snapshot.duckdb")
	if err := s.SnapshotTo(dst); err != nil {
		t.Fatalf("SnapshotTo: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat snapshot: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("snapshot is empty")
	}
	if _, err := os.Stat(dst + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestSnapshotToInMemory(t *testing.T) {
	s := newTestStore(t)
	err := s.SnapshotTo(filepath.Join(t.TempDir(), "snapshot.duckdb"))
	if !errors.Is(err, ErrInMemoryStore) {
		t.Fatalf("err = %v, want ErrInMemoryStore", err)
	}
}
