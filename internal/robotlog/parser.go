package robotlog

import (
	"errors"
	"io"
	"time"

	"github.com/tinytelemetry/sherlog/internal/diag"
	"github.com/tinytelemetry/sherlog/internal/logparse"
	"github.com/tinytelemetry/sherlog/internal/model"
)

// Config holds optional parser settings.
type Config struct {
	Sink diag.Sink
}

type parser struct {
	sink diag.Sink

	entries    []model.LogEntry
	current    *model.LogEntry
	last       time.Time
	hasLast    bool
	separators []string
}

// Parse reads every line of r into a leaf named name. Only read errors are
// returned; lines that cannot be understood are skipped or folded into the
// previous entry.
func Parse(r io.Reader, name string, conf ...Config) (*model.LogSource, error) {
	var sink diag.Sink
	if len(conf) > 0 {
		sink = conf[0].Sink
	}
	p := &parser{sink: diag.OrNop(sink)}

	lines := newLineReader(r)
	for {
		s, err := lines.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		p.line(s)
	}
	p.finish()

	src := model.NewLogSource(name)
	entries := p.entries
	if entries == nil {
		entries = []model.LogEntry{}
	}
	src.SetEntries(entries)
	return src, nil
}

func (p *parser) line(s string) {
	if m, ok := matchLine(s); ok {
		p.open(m)
		return
	}
	if isSeparator(s) {
		p.separators = append(p.separators, s)
		return
	}
	if p.current != nil {
		p.current.Message += "\n" + s
	}
	// Anything before the first timestamped line is preamble.
}

func (p *parser) open(m line) {
	p.flushCurrent()

	raw := m.date + " " + m.clock
	ts, err := time.ParseInLocation(timeLayout, raw, time.UTC)
	if err != nil {
		p.sink.Warnf("robotlog: failed to parse timestamp: %s", raw)
		return
	}

	if p.hasLast {
		p.flushSeparators(p.last)
	} else {
		p.flushSeparators(ts)
	}
	p.last, p.hasLast = ts, true

	severity, ok := logparse.RobotLevel(m.level)
	if !ok {
		p.sink.Warnf("robotlog: unknown log level: %s", m.level)
	}

	entry := model.NewLogEntry()
	entry.Timestamp = ts
	entry.Severity = severity
	entry.Message = m.message
	p.current = &entry
}

func (p *parser) flushCurrent() {
	if p.current == nil {
		return
	}
	p.entries = append(p.entries, *p.current)
	p.current = nil
}

// flushSeparators emits pending separator lines as standalone entries at ts.
func (p *parser) flushSeparators(ts time.Time) {
	for _, sep := range p.separators {
		entry := model.NewLogEntry()
		entry.Timestamp = ts
		entry.Message = sep
		p.entries = append(p.entries, entry)
	}
	p.separators = p.separators[:0]
}

func (p *parser) finish() {
	p.flushCurrent()
	if p.hasLast {
		p.flushSeparators(p.last)
	} else if len(p.separators) > 0 {
		p.sink.Warnf("robotlog: dropping %d separator lines without a timestamp", len(p.separators))
		p.separators = nil
	}
}
