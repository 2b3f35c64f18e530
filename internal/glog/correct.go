package glog

import (
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/sherlog/internal/datetime"
	"github.com/tinytelemetry/sherlog/internal/diag"
	"github.com/tinytelemetry/sherlog/internal/model"
)

// CorrectionAnchor separates relative device ticks from wall-clock time. No
// device predates it, so earlier timestamps have not been corrected yet.
var CorrectionAnchor = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	markerPrefix  = "Setting EtherCAT time [delta = "
	markerSuffix  = " ns]"
	markerSuffix2 = " ns]."
	markerToken   = 5
)

type correction struct {
	sessionID uint32
	delta     int64 // nanoseconds
}

// AdjustSensorTimestamps applies EtherCAT time corrections to every leaf of
// the tree, in place, and returns root.
//
// Sensors log with a relative clock until the bus hands them wall-clock time,
// at which point they log the offset ("Setting EtherCAT time [delta = N ns]").
// Each leaf is scanned newest to oldest so a marker can be applied to the
// entries of its session that were logged before it. A session change, or an
// entry without a session id, ends the marker's validity.
func AdjustSensorTimestamps(root *model.LogSource, conf ...Config) *model.LogSource {
	var sink diag.Sink
	if len(conf) > 0 {
		sink = conf[0].Sink
	}
	if root != nil {
		adjust(root, diag.OrNop(sink))
	}
	return root
}

func adjust(src *model.LogSource, sink diag.Sink) {
	if !src.IsLeaf() {
		for _, child := range src.Sources {
			adjust(child, sink)
		}
		return
	}

	sink.Infof("glog: adjust sensor timestamps: %s", src.Name)

	var active *correction
	for i := len(src.Entries) - 1; i >= 0; i-- {
		entry := &src.Entries[i]

		sessionID, ok := entry.SessionID()
		if !ok {
			sink.Warnf("glog: no session id found for sensor log entry: %s", entry.Message)
			active = nil
			continue
		}

		if isCorrectionMarker(entry.Message) {
			active = readMarker(entry.Message, sessionID, active, sink)
			continue
		}

		if active == nil {
			// Either the entry is already corrected and its marker is older,
			// or the bus never connected.
			continue
		}
		if active.sessionID != sessionID {
			active = nil
			continue
		}
		if !entry.Timestamp.Before(CorrectionAnchor) {
			continue
		}
		// delta is in ns; timestamps shift in 100ns ticks.
		corrected, err := datetime.AddOffset100ns(entry.Timestamp, active.delta/100)
		if err != nil {
			sink.Warnf("glog: could not correct timestamp with offset: %d", active.delta)
			continue
		}
		entry.Timestamp = corrected
	}
}

func isCorrectionMarker(message string) bool {
	return strings.HasPrefix(message, markerPrefix) &&
		(strings.HasSuffix(message, markerSuffix) || strings.HasSuffix(message, markerSuffix2))
}

// readMarker returns the correction a marker establishes, or nil when its
// delta cannot be parsed.
func readMarker(message string, sessionID uint32, previous *correction, sink diag.Sink) *correction {
	tokens := strings.Split(message, " ")
	if len(tokens) <= markerToken {
		sink.Warnf("glog: could not parse EtherCAT timestamp in %q", message)
		return nil
	}
	delta, err := strconv.ParseInt(tokens[markerToken], 10, 64)
	if err != nil {
		sink.Warnf("glog: could not parse EtherCAT timestamp %s", tokens[markerToken])
		return nil
	}

	next := &correction{sessionID: sessionID, delta: delta}
	switch {
	case previous == nil:
	case *previous == *next:
		sink.Warnf("glog: overwriting EtherCAT time with same content: session %d, delta %d", sessionID, delta)
	case previous.sessionID == sessionID:
		sink.Warnf("glog: overwriting EtherCAT time: session %d, old delta %d, new delta %d",
			sessionID, previous.delta, delta)
	}
	return next
}
