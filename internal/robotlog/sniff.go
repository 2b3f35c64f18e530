package robotlog

import (
	"io"
	"strings"
)

// sniffThreshold is how many timestamped lines make a file a Robot log.
const sniffThreshold = 3

// LooksLikeRobotLog reports whether the first meaningful lines of rs follow
// the Robot log grammar. Separator and blank lines are skipped; the first
// other line that does not match ends the check. The read position of rs is
// restored before returning.
func LooksLikeRobotLog(rs io.ReadSeeker) bool {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return false
	}
	defer rs.Seek(start, io.SeekStart) //nolint:errcheck

	lines := newLineReader(rs)
	matched := 0
	for {
		s, err := lines.next()
		if err != nil {
			return false
		}
		if isSeparator(s) {
			continue
		}
		if _, ok := matchLine(s); ok {
			matched++
			if matched >= sniffThreshold {
				return true
			}
			continue
		}
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
}
