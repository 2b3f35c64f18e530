package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/tinytelemetry/sherlog/internal/model"
)

// ErrFileNotFound is returned when a file id is not in the store.
var ErrFileNotFound = model.ErrFileNotFound

// maxQueryRows caps ExecuteQuery results.
const maxQueryRows = 1000

// dangerousKeywordPattern matches write and admin keywords at word boundaries
// so "RESET" does not match "SET".
var dangerousKeywordPattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|COPY|ATTACH|DETACH|LOAD|EXPORT|IMPORT|INSTALL|CALL|EXECUTE|PRAGMA|SET|CHECKPOINT)\b`,
)

var blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)

func stripSQLComments(query string) string {
	cleaned := blockCommentPattern.ReplaceAllString(query, " ")
	var b strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

const fileSelect = `
	SELECT f.id, f.name, f.path, f.parsed_at, COALESCE(c.n, 0)
	FROM files f
	LEFT JOIN (SELECT file_id, COUNT(*) AS n FROM entries GROUP BY file_id) c ON c.file_id = f.id`

// ListFiles returns every stored file, most recently parsed first.
func (s *Store) ListFiles() ([]model.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, fileSelect+` ORDER BY f.parsed_at DESC, f.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []model.FileInfo{}
	for rows.Next() {
		var f model.FileInfo
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &f.ParsedAt, &f.Entries); err != nil {
			log.Printf("duckdb scan error (ListFiles): %v", err)
			continue
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetFile returns one stored file or ErrFileNotFound.
func (s *Store) GetFile(fileID string) (model.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var f model.FileInfo
	err := s.db.QueryRowContext(ctx, fileSelect+` WHERE f.id = ?`, fileID).
		Scan(&f.ID, &f.Name, &f.Path, &f.ParsedAt, &f.Entries)
	if errors.Is(err, sql.ErrNoRows) {
		return f, ErrFileNotFound
	}
	return f, err
}

// ListSources returns the leaf sources of a file in tree order.
func (s *Store) ListSources(fileID string) ([]model.SourceInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.file_id, s.source_id, s.name, COUNT(e.seq)
		FROM sources s
		LEFT JOIN entries e ON e.file_id = s.file_id AND e.source_id = s.source_id
		WHERE s.file_id = ?
		GROUP BY s.file_id, s.source_id, s.name
		ORDER BY s.source_id`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := []model.SourceInfo{}
	for rows.Next() {
		var src model.SourceInfo
		if err := rows.Scan(&src.FileID, &src.SourceID, &src.Name, &src.Entries); err != nil {
			log.Printf("duckdb scan error (ListSources): %v", err)
			continue
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// SeverityCounts returns the entry count per level name. An empty fileID
// counts across all files.
func (s *Store) SeverityCounts(fileID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	query := `SELECT level, COUNT(*) FROM entries`
	var args []any
	if fileID != "" {
		query += ` WHERE file_id = ?`
		args = append(args, fileID)
	}
	query += ` GROUP BY level`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			log.Printf("duckdb scan error (SeverityCounts): %v", err)
			continue
		}
		result[level] = count
	}
	return result, rows.Err()
}

// QueryEntries returns stored entries matching q in timestamp order; equal
// timestamps keep their parse order.
func (s *Store) QueryEntries(q model.EntryQuery) ([]model.StoredEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var conditions []string
	var args []any

	if q.FileID != "" {
		conditions = append(conditions, "e.file_id = ?")
		args = append(args, q.FileID)
	}
	if q.SourceID != nil {
		conditions = append(conditions, "e.source_id = ?")
		args = append(args, *q.SourceID)
	}
	if len(q.Levels) > 0 {
		placeholders := make([]string, len(q.Levels))
		for i, lvl := range q.Levels {
			placeholders[i] = "?"
			args = append(args, int32(lvl))
		}
		conditions = append(conditions, "e.level_num IN ("+strings.Join(placeholders, ", ")+")")
	}
	if q.Search != "" {
		if q.CaseSensitive {
			conditions = append(conditions, "contains(e.message, ?)")
		} else {
			conditions = append(conditions, "contains(lower(e.message), lower(?))")
		}
		args = append(args, q.Search)
	}

	query := `
		SELECT e.file_id, e.source_id, s.name, e.seq, e.timestamp, e.level_num, e.message, e.session_id
		FROM entries e
		JOIN sources s ON s.file_id = e.file_id AND s.source_id = e.source_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = model.DefaultQueryLimit
	}
	query += " ORDER BY e.timestamp, e.file_id, e.seq LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.StoredEntry{}
	for rows.Next() {
		var (
			r        model.StoredEntry
			levelNum int32
			session  sql.NullInt64
		)
		r.Entry = model.NewLogEntry()
		if err := rows.Scan(&r.FileID, &r.SourceID, &r.Source, &r.Seq,
			&r.Entry.Timestamp, &levelNum, &r.Entry.Message, &session); err != nil {
			log.Printf("duckdb scan error (QueryEntries): %v", err)
			continue
		}
		r.Entry.Timestamp = r.Entry.Timestamp.UTC()
		r.Entry.Severity = model.LogLevel(levelNum)
		if session.Valid {
			r.Entry.SetField(model.FieldSessionID, model.UInt32Field(session.Int64))
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ShiftSource moves every entry of one source by delta and returns the number
// of entries changed. Storage keeps microsecond precision.
func (s *Store) ShiftSource(fileID string, sourceID uint32, delta time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET timestamp = timestamp + to_microseconds(?) WHERE file_id = ? AND source_id = ?`,
		delta.Microseconds(), fileID, sourceID)
	if err != nil {
		return 0, fmt.Errorf("shift source: %w", err)
	}
	return res.RowsAffected()
}

// DeleteFile removes a file with its sources and entries.
func (s *Store) DeleteFile(fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM entries WHERE file_id = ?`,
		`DELETE FROM sources WHERE file_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, fileID); err != nil {
			return fmt.Errorf("delete file %s: %w", fileID, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFileNotFound
	}
	return tx.Commit()
}

// DeleteParsedBefore removes files parsed before cutoff and returns how many
// were removed.
func (s *Store) DeleteParsedBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	expired := `SELECT id FROM files WHERE parsed_at < ?`
	for _, stmt := range []string{
		`DELETE FROM entries WHERE file_id IN (` + expired + `)`,
		`DELETE FROM sources WHERE file_id IN (` + expired + `)`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, cutoff.UTC()); err != nil {
			return 0, fmt.Errorf("delete expired: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE parsed_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// ExecuteQuery runs a read-only SQL query and returns at most 1000 rows as
// maps. Only a single SELECT or WITH statement is accepted.
func (s *Store) ExecuteQuery(query string) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(query)
	if strings.Contains(trimmed, ";") {
		return nil, fmt.Errorf("query must not contain semicolons")
	}

	stripped := strings.TrimSpace(stripSQLComments(trimmed))
	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, fmt.Errorf("only SELECT/WITH queries are allowed")
	}
	if match := dangerousKeywordPattern.FindString(stripped); match != "" {
		return nil, fmt.Errorf("query contains disallowed keyword: %s", strings.ToUpper(match))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := []map[string]any{}
	for rows.Next() && len(results) < maxQueryRows {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			log.Printf("duckdb scan error (ExecuteQuery): %v", err)
			continue
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// SchemaDescription describes the queryable tables.
func (s *Store) SchemaDescription() string {
	return `Table 'files': id (VARCHAR), name (VARCHAR), path (VARCHAR), parsed_at (TIMESTAMP). ` +
		`Table 'sources': file_id (VARCHAR), source_id (UINTEGER), name (VARCHAR: slash-joined source path). ` +
		`Table 'entries': file_id (VARCHAR), source_id (UINTEGER), seq (BIGINT), timestamp (TIMESTAMP), ` +
		`level (VARCHAR: TRACE/DEBUG/INFO/WARNING/ERROR/CRITICAL), level_num (INTEGER 0-5), ` +
		`message (VARCHAR), session_id (UINTEGER, nullable).`
}

// TableRowCounts returns the row count of each data table.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	tables := []string{"files", "sources", "entries"}
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		// Table names come from the fixed list above.
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
