package model

import "time"

// Shared defaults used by the CLI and the HTTP server.
const (
	DefaultConcurrency  = 4
	DefaultQueryLimit   = 1000
	DefaultQueryTimeout = 30 * time.Second
	DefaultServiceName  = "sherlog"
)
