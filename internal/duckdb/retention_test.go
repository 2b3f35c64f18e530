package duckdb

import (
	"testing"
	"time"
)

func TestRetentionCleanerDisabled(t *testing.T) {
	s := newTestStore(t)
	if NewRetentionCleaner(s, RetentionConfig{}) != nil {
		t.Error("expected nil cleaner when MaxAge is zero")
	}
}

func TestRetentionCleanerRemovesExpired(t *testing.T) {
	s := newTestStore(t)
	insertSample(t, s)

	// Everything parsed so far is older than a nanosecond by the time the
	// startup cleanup runs.
	time.Sleep(time.Millisecond)
	rc := NewRetentionCleaner(s, RetentionConfig{MaxAge: time.Nanosecond, Interval: time.Hour})
	if rc == nil {
		t.Fatal("expected cleaner")
	}
	defer rc.Stop()

	files, err := s.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %d, want 0", len(files))
	}
}

func TestRetentionCleanerStopIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	rc := NewRetentionCleaner(s, RetentionConfig{MaxAge: 24 * time.Hour})
	if rc == nil {
		t.Fatal("expected cleaner")
	}
	rc.Stop()
	rc.Stop()
}
