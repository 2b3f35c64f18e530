package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tinytelemetry/sherlog/internal/model"
)

// InsertTree stores a parsed tree as one file and returns its id. Leaves are
// numbered in tree order starting at 0 and entries get a file-wide sequence
// number, so reads can restore the original order of equal timestamps.
func (s *Store) InsertTree(path string, root *model.LogSource) (string, error) {
	if root == nil {
		return "", fmt.Errorf("duckdb: nil log tree for %s", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	name := root.Name
	if name == "" {
		name = filepath.Base(path)
	}
	if err := s.insertTreeTx(id, name, path, root); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) insertTreeTx(fileID, name, path string, root *model.LogSource) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (id, name, path, parsed_at) VALUES (?, ?, ?, ?)`,
		fileID, name, path, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	srcStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (file_id, source_id, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare source insert: %w", err)
	}
	defer srcStmt.Close()

	entryStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (file_id, source_id, seq, timestamp, level, level_num, message, session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer entryStmt.Close()

	var (
		sourceID uint32
		seq      int64
		walkErr  error
	)
	root.Walk(func(path []string, leaf *model.LogSource) {
		if walkErr != nil {
			return
		}
		if _, err := srcStmt.ExecContext(ctx, fileID, sourceID, model.JoinPath(path)); err != nil {
			walkErr = fmt.Errorf("insert source %s: %w", model.JoinPath(path), err)
			return
		}
		for i := range leaf.Entries {
			e := &leaf.Entries[i]
			var session sql.NullInt64
			if id, ok := e.SessionID(); ok {
				session = sql.NullInt64{Int64: int64(id), Valid: true}
			}
			if _, err := entryStmt.ExecContext(ctx,
				fileID, sourceID, seq, e.Timestamp.UTC(),
				e.Severity.String(), int32(e.Severity), e.Message, session,
			); err != nil {
				walkErr = fmt.Errorf("insert entry %d: %w", seq, err)
				return
			}
			seq++
		}
		sourceID++
	})
	if walkErr != nil {
		return walkErr
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
