package glog

import (
	"os"
	"path/filepath"

	"github.com/tinytelemetry/sherlog/internal/model"
)

// FromFile parses a GLOG file and applies sensor timestamp corrections. The
// root is named after the file. Only opening the file can fail.
func FromFile(path string, conf ...Config) (*model.LogSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root := Parse(f, model.NewLogSource(filepath.Base(path)), conf...)
	return AdjustSensorTimestamps(root, conf...), nil
}
