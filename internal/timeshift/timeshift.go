// Package timeshift reads and writes the signed duration text used to shift
// a source's timestamps, e.g. "+0D 01:30:00.000".
package timeshift

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/sherlog/internal/diag"
)

// ErrInvalidDuration is returned for text that does not follow the grammar.
var ErrInvalidDuration = errors.New("timeshift: invalid duration")

var durationRe = regexp.MustCompile(`^([+-])?\s*(?:(\d+)D\s*)?(?:(\d{1,2}):)?(?:(\d{1,2}):)?(\d{1,2})(?:\.(\d{1,3}))?$`)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour

	// Largest day count whose millisecond total still fits a time.Duration.
	maxDays = int64(time.Duration(1<<63-1) / time.Millisecond / msPerDay)
)

// ParseDuration accepts "[+|-][<days>D ][[hh:]mm:]ss[.fff]". Every part but
// the seconds is optional; a single "a:b" pair is minutes and seconds. The
// fraction is milliseconds, right-padded, so ".5" is 500ms.
func ParseDuration(s string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, ErrInvalidDuration
	}

	days := atoi(m[2])
	hours, minutes := atoi(m[3]), atoi(m[4])
	if m[3] != "" && m[4] == "" {
		hours, minutes = 0, hours
	}
	seconds := atoi(m[5])
	millis := int64(0)
	if m[6] != "" {
		millis = atoi(m[6] + strings.Repeat("0", 3-len(m[6])))
	}
	if days > maxDays {
		return 0, ErrInvalidDuration
	}

	total := days*msPerDay + hours*msPerHour + minutes*msPerMinute + seconds*msPerSecond + millis
	if total < 0 || total > int64(time.Duration(1<<63-1)/time.Millisecond) {
		return 0, ErrInvalidDuration
	}
	d := time.Duration(total) * time.Millisecond
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

func atoi(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatDuration renders d as "±<days>D hh:mm:ss.mmm", truncated to
// milliseconds.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	sign := '+'
	if ms < 0 {
		sign = '-'
		ms = -ms
	}
	days := ms / msPerDay
	ms -= days * msPerDay
	hours := ms / msPerHour
	ms -= hours * msPerHour
	minutes := ms / msPerMinute
	ms -= minutes * msPerMinute
	seconds := ms / msPerSecond
	ms -= seconds * msPerSecond
	return fmt.Sprintf("%c%dD %02d:%02d:%02d.%03d", sign, days, hours, minutes, seconds, ms)
}

// Tracker turns successive absolute shift texts into the relative shifts to
// apply, the way a shift text field is edited over time.
type Tracker struct {
	sink diag.Sink
	last time.Duration
}

// NewTracker returns a Tracker starting at no shift.
func NewTracker(sink diag.Sink) *Tracker {
	return &Tracker{sink: diag.OrNop(sink)}
}

// Update parses text as the new total shift. It returns the change relative
// to the previous total and the canonical text for the new total. Invalid
// text counts as no shift.
func (t *Tracker) Update(text string) (time.Duration, string) {
	total, err := ParseDuration(text)
	if err != nil {
		t.sink.Infof("timeshift: invalid shift %q, using zero", text)
		total = 0
	}
	delta := total - t.last
	t.last = total
	return delta, FormatDuration(total)
}

// Total returns the current absolute shift.
func (t *Tracker) Total() time.Duration { return t.last }
