package robotlog

import (
	"os"
	"path/filepath"

	"github.com/tinytelemetry/sherlog/internal/model"
)

// FromFile parses a Robot log file into a leaf named after the file.
func FromFile(path string, conf ...Config) (*model.LogSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path), conf...)
}
