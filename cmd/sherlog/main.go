// Command sherlog parses controller, sensor and test-runner logs, stores
// them in DuckDB and serves or exports them.
package main

import (
	"fmt"
	"os"
)

// Build variables, set by ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
