package parse

import (
	"errors"
	"fmt"
)

// ErrNoFileExtension is returned for paths without an extension.
var ErrNoFileExtension = errors.New("no file extension")

// IOError wraps a failure to read a log file.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// UnrecognizedExtensionError is returned when no parser handles an extension.
type UnrecognizedExtensionError struct {
	Ext string
}

func (e *UnrecognizedExtensionError) Error() string {
	return fmt.Sprintf("unrecognized file extension: %s", e.Ext)
}

// UnrecognizedLogFileError is returned when a file's content does not match
// the format its extension allows.
type UnrecognizedLogFileError struct {
	Path string
}

func (e *UnrecognizedLogFileError) Error() string {
	return fmt.Sprintf("file '%s' is not a known log file", e.Path)
}
