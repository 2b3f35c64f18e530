// Package httpserver exposes stored parse results over a JSON API and lets
// clients parse and ingest files that are visible to the server.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/sherlog/internal/model"
	"github.com/tinytelemetry/sherlog/internal/parse"
)

// DefaultAddr is used when NewServer gets an empty address.
const DefaultAddr = "127.0.0.1:3000"

// Store is the storage contract the API needs. GetFile and DeleteFile
// report unknown ids with model.ErrFileNotFound.
type Store interface {
	model.LogStore
	GetFile(fileID string) (model.FileInfo, error)
	DeleteFile(fileID string) error
	ShiftSource(fileID string, sourceID uint32, delta time.Duration) (int64, error)
	ExecuteQuery(query string) ([]map[string]any, error)
	SchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// FileParser turns a path into a log tree. *parse.Dispatcher implements it.
type FileParser interface {
	ParseFile(path string) (*model.LogSource, error)
}

// Config holds optional server settings.
type Config struct {
	Parser FileParser
}

// Server serves the HTTP API.
type Server struct {
	addr      string
	store     Store
	parser    FileParser
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a server. Without a configured parser, files are parsed
// by a default parse.Dispatcher.
func NewServer(addr string, store Store, conf ...Config) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	var c Config
	if len(conf) > 0 {
		c = conf[0]
	}
	if c.Parser == nil {
		c.Parser = &parse.Dispatcher{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		store:     store,
		parser:    c.Parser,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/schema", s.handleSchema)
	api.POST("/query", s.handleQuery)

	api.GET("/files", s.handleListFiles)
	api.POST("/files", s.handleIngest)
	api.GET("/files/:id", s.handleGetFile)
	api.DELETE("/files/:id", s.handleDeleteFile)
	api.GET("/files/:id/sources", s.handleListSources)
	api.GET("/files/:id/severity", s.handleSeverity)
	api.POST("/files/:id/shift", s.handleShift)

	api.GET("/entries", s.handleEntries)
	return r
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("httpserver: serve error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listen address; after Start it is the bound address.
func (s *Server) Addr() string { return s.addr }

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	counts, err := s.store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"uptime":      time.Since(s.startTime).String(),
		"file_count":  counts["files"],
		"entry_count": counts["entries"],
	})
}

func (s *Server) handleSchema(c *gin.Context) {
	columns, err := s.store.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range columns {
		table := fmt.Sprintf("%v", row["table_name"])
		schema[table] = append(schema[table], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": s.store.SchemaDescription(),
		"tables":      schema,
		"row_counts":  counts,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	results, err := s.store.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	columns := []string{}
	if len(results) > 0 {
		for col := range results[0] {
			columns = append(columns, col)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}
