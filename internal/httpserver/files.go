package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/sherlog/internal/logparse"
	"github.com/tinytelemetry/sherlog/internal/model"
	"github.com/tinytelemetry/sherlog/internal/parse"
	"github.com/tinytelemetry/sherlog/internal/timeshift"
)

type fileJSON struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	ParsedAt time.Time `json:"parsed_at"`
	Entries  int64     `json:"entries"`
}

func toFileJSON(f model.FileInfo) fileJSON {
	return fileJSON{ID: f.ID, Name: f.Name, Path: f.Path, ParsedAt: f.ParsedAt, Entries: f.Entries}
}

type sourceJSON struct {
	ID      uint32 `json:"id"`
	Name    string `json:"name"`
	Entries int64  `json:"entries"`
}

type entryJSON struct {
	FileID    string    `json:"file_id"`
	SourceID  uint32    `json:"source_id"`
	Source    string    `json:"source"`
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	SessionID *uint32   `json:"session_id,omitempty"`
}

// parseStatus maps dispatcher errors to HTTP status codes.
func parseStatus(err error) int {
	var extErr *parse.UnrecognizedExtensionError
	var fileErr *parse.UnrecognizedLogFileError
	switch {
	case errors.Is(err, parse.ErrNoFileExtension), errors.As(err, &extErr):
		return http.StatusBadRequest
	case errors.As(err, &fileErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleIngest(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing path field"})
		return
	}

	root, err := s.parser.ParseFile(req.Path)
	if err != nil {
		c.JSON(parseStatus(err), gin.H{"error": err.Error()})
		return
	}

	id, err := s.store.InsertTree(req.Path, root)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store parse result"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":      id,
		"name":    root.Name,
		"entries": root.EntryCount(),
	})
}

func (s *Server) handleListFiles(c *gin.Context) {
	files, err := s.store.ListFiles()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}
	out := make([]fileJSON, 0, len(files))
	for _, f := range files {
		out = append(out, toFileJSON(f))
	}
	c.JSON(http.StatusOK, gin.H{"files": out})
}

// requireFile writes a 404 or 500 and returns false when the file in the
// path cannot be loaded.
func (s *Server) requireFile(c *gin.Context) (model.FileInfo, bool) {
	f, err := s.store.GetFile(c.Param("id"))
	if err != nil {
		if errors.Is(err, model.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load file"})
		}
		return f, false
	}
	return f, true
}

func (s *Server) handleGetFile(c *gin.Context) {
	f, ok := s.requireFile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toFileJSON(f))
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	if err := s.store.DeleteFile(c.Param("id")); err != nil {
		if errors.Is(err, model.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete file"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListSources(c *gin.Context) {
	f, ok := s.requireFile(c)
	if !ok {
		return
	}
	sources, err := s.store.ListSources(f.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sources"})
		return
	}
	out := make([]sourceJSON, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourceJSON{ID: src.SourceID, Name: src.Name, Entries: src.Entries})
	}
	c.JSON(http.StatusOK, gin.H{"file_id": f.ID, "sources": out})
}

func (s *Server) handleSeverity(c *gin.Context) {
	f, ok := s.requireFile(c)
	if !ok {
		return
	}
	counts, err := s.store.SeverityCounts(f.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count severities"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_id": f.ID, "counts": counts})
}

func (s *Server) handleShift(c *gin.Context) {
	var req struct {
		Source *uint32 `json:"source" binding:"required"`
		Shift  string  `json:"shift" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing source/shift field"})
		return
	}
	delta, err := timeshift.ParseDuration(req.Shift)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, ok := s.requireFile(c)
	if !ok {
		return
	}
	n, err := s.store.ShiftSource(f.ID, *req.Source, delta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to shift source"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file_id":  f.ID,
		"source":   *req.Source,
		"shift":    timeshift.FormatDuration(delta),
		"affected": n,
	})
}

func (s *Server) handleEntries(c *gin.Context) {
	q := model.EntryQuery{
		FileID:        c.Query("file"),
		Search:        c.Query("q"),
		CaseSensitive: c.Query("case") == "true" || c.Query("case") == "1",
	}

	if raw := c.Query("source"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source must be a non-negative integer"})
			return
		}
		sid := uint32(id)
		q.SourceID = &sid
	}
	if raw := c.Query("level"); raw != "" {
		levels, err := logparse.ParseLevels(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.Levels = levels
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		q.Limit = n
	}

	entries, err := s.store.QueryEntries(q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query entries"})
		return
	}
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		j := entryJSON{
			FileID:    e.FileID,
			SourceID:  e.SourceID,
			Source:    e.Source,
			Seq:       e.Seq,
			Timestamp: e.Entry.Timestamp,
			Severity:  e.Entry.Severity.String(),
			Message:   e.Entry.Message,
		}
		if id, ok := e.Entry.SessionID(); ok {
			j.SessionID = &id
		}
		out = append(out, j)
	}
	c.JSON(http.StatusOK, gin.H{"entries": out, "count": len(out)})
}
