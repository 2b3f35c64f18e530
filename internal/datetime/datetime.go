// Package datetime converts firmware time representations into UTC instants.
package datetime

import (
	"errors"
	"math"
	"time"
)

// ErrOutOfRange is returned when a value cannot be represented as a timestamp.
var ErrOutOfRange = errors.New("datetime: value out of range")

var (
	minTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(9999, time.December, 31, 23, 59, 59, 999_999_999, time.UTC)

	// Largest value of each unit that still lands at or before maxTime.
	maxMillis = uint64(maxTime.Unix())*1000 + 999
	maxTicks  = uint64(maxTime.Unix())*10_000_000 + 9_999_999
)

// TicksPerSecond is the number of 100ns ticks in one second.
const TicksPerSecond = 10_000_000

// FromTimestampMs converts milliseconds since the Unix epoch.
func FromTimestampMs(ms uint64) (time.Time, error) {
	if ms > maxMillis {
		return time.Time{}, ErrOutOfRange
	}
	sec := int64(ms / 1000)
	nsec := int64(ms%1000) * int64(time.Millisecond)
	return time.Unix(sec, nsec).UTC(), nil
}

// From100ns converts 100ns ticks since the Unix epoch.
func From100ns(ticks uint64) (time.Time, error) {
	if ticks > maxTicks {
		return time.Time{}, ErrOutOfRange
	}
	sec := int64(ticks / TicksPerSecond)
	nsec := int64(ticks%TicksPerSecond) * 100
	return time.Unix(sec, nsec).UTC(), nil
}

// AddOffset100ns shifts t by a signed number of 100ns ticks.
func AddOffset100ns(t time.Time, ticks int64) (time.Time, error) {
	if ticks > math.MaxInt64/100 || ticks < math.MinInt64/100 {
		return time.Time{}, ErrOutOfRange
	}
	out := t.Add(time.Duration(ticks * 100))
	// time.Add saturates silently on overflow; check the direction moved.
	if (ticks > 0 && !out.After(t)) || (ticks < 0 && !out.Before(t)) {
		return time.Time{}, ErrOutOfRange
	}
	if out.Before(minTime) || out.After(maxTime) {
		return time.Time{}, ErrOutOfRange
	}
	return out, nil
}
