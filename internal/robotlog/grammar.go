// Package robotlog reads the plain-text debug logs written by Robot Framework
// test runs:
//
//	2025-12-18 22:50:36.585690 - INFO - Selecting tracker 10.62.33.92
//
// Lines that do not start with a timestamp continue the previous entry, and
// lines made only of '=', '-' or '~' are kept as separator entries.
package robotlog

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	lineRe      = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2}\.\d{6}) - (\w+) - (.*)$`)
	separatorRe = regexp.MustCompile(`^[=\-~]+$`)
)

// timeLayout parses the date and time captures joined by a space.
const timeLayout = "2006-01-02 15:04:05.000000"

// line is one matched log line.
type line struct {
	date, clock string
	level       string
	message     string
}

func matchLine(s string) (line, bool) {
	m := lineRe.FindStringSubmatch(s)
	if m == nil {
		return line{}, false
	}
	return line{date: m[1], clock: m[2], level: m[3], message: m[4]}, true
}

func isSeparator(s string) bool {
	return separatorRe.MatchString(s)
}

// lineReader yields lines without their "\n" or "\r\n" terminator. Invalid
// UTF-8 is replaced rather than rejected.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// next returns io.EOF once every line has been returned. A final line without
// a terminator is still returned.
func (l *lineReader) next() (string, error) {
	b, err := l.r.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if len(b) == 0 {
		return "", io.EOF
	}
	s := strings.TrimSuffix(string(b), "\n")
	s = strings.TrimSuffix(s, "\r")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return s, nil
}
