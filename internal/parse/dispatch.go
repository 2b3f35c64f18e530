// Package parse picks a parser for a log file and runs it.
package parse

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tinytelemetry/sherlog/internal/diag"
	"github.com/tinytelemetry/sherlog/internal/glog"
	"github.com/tinytelemetry/sherlog/internal/model"
	"github.com/tinytelemetry/sherlog/internal/robotlog"
)

// SFileParser parses the binary sfile/lfile formats. It lives outside this
// module; a Dispatcher without one rejects those extensions.
type SFileParser interface {
	FromFile(path string) (*model.LogSource, error)
}

// Dispatcher routes files to parsers by extension. The zero value is usable.
type Dispatcher struct {
	SFile SFileParser
	Sink  diag.Sink
}

// ParseFile parses path with the default Dispatcher.
func ParseFile(path string) (*model.LogSource, error) {
	var d Dispatcher
	return d.ParseFile(path)
}

// ParseFile routes path by its case-insensitive extension:
//
//	.glog           GLOG parser plus sensor timestamp correction
//	.sfile, .lfile  SFile parser
//	.txt            Robot log, when the content sniff agrees
//
// Errors are one of *IOError, *UnrecognizedExtensionError,
// ErrNoFileExtension or *UnrecognizedLogFileError.
func (d *Dispatcher) ParseFile(path string) (*model.LogSource, error) {
	ext, ok := extension(path)
	if !ok {
		return nil, ErrNoFileExtension
	}

	switch strings.ToLower(ext) {
	case "glog":
		src, err := glog.FromFile(path, glog.Config{Sink: d.Sink})
		if err != nil {
			return nil, &IOError{Err: err}
		}
		return src, nil

	case "sfile", "lfile":
		if d.SFile == nil {
			return nil, &UnrecognizedExtensionError{Ext: ext}
		}
		src, err := d.SFile.FromFile(path)
		if err != nil {
			return nil, &IOError{Err: err}
		}
		return src, nil

	case "txt":
		return d.parseText(path)

	default:
		return nil, &UnrecognizedExtensionError{Ext: ext}
	}
}

func (d *Dispatcher) parseText(path string) (*model.LogSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Err: err}
	}
	defer f.Close()

	if !robotlog.LooksLikeRobotLog(f) {
		return nil, &UnrecognizedLogFileError{Path: path}
	}
	src, err := robotlog.Parse(f, filepath.Base(path), robotlog.Config{Sink: d.Sink})
	if err != nil {
		return nil, &IOError{Err: err}
	}
	return src, nil
}

// extension returns the text after the last '.' of the file name. Names
// without a dot, or whose only dot is the first byte, have none.
func extension(path string) (string, bool) {
	name := filepath.Base(path)
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return "", false
	}
	return name[i+1:], true
}
