// Package glog parses the bracketed key-value GLOG format written by
// controller and sensor firmware:
//
//	[tq|1700000000000]:[s|2]:[i|7]:[m|Motor: starting up]\r\n
//
// Each line is one entry made of [tag|value] sections joined by ':'.
package glog

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tinytelemetry/sherlog/internal/datetime"
	"github.com/tinytelemetry/sherlog/internal/diag"
	"github.com/tinytelemetry/sherlog/internal/model"
)

const (
	// DefaultBufferSize is the initial capacity of the section buffer.
	DefaultBufferSize = 512

	// UnknownSourceNone names the leaf holding entries without a sub-source
	// when other entries do have one.
	UnknownSourceNone = "Unknown (None)"

	readChunkSize = 32 * 1024
)

// ErrFinished is returned when bytes are written after Finish.
var ErrFinished = errors.New("glog: parser already finished")

// Config holds optional parser settings.
type Config struct {
	Sink       diag.Sink
	BufferSize int
}

// Parser is a byte-at-a-time GLOG state machine. It is not safe for
// concurrent use; each parse owns its own Parser.
type Parser struct {
	sink  diag.Sink
	state state
	buf   []byte

	entry     model.LogEntry
	subSource int32
	hasSub    bool

	entries     []model.LogEntry
	sources     []*model.LogSource
	sourceIndex map[string]int

	invalidBytes int
	root         *model.LogSource
	finished     bool
}

// NewParser creates a parser that will attach its results to root.
func NewParser(root *model.LogSource, conf ...Config) *Parser {
	var sink diag.Sink
	bufferSize := DefaultBufferSize
	if len(conf) > 0 {
		sink = conf[0].Sink
		if conf[0].BufferSize > 0 {
			bufferSize = conf[0].BufferSize
		}
	}
	if root == nil {
		root = model.NewLogSource("")
	}
	return &Parser{
		sink:        diag.OrNop(sink),
		buf:         make([]byte, 0, bufferSize),
		entry:       model.NewLogEntry(),
		sourceIndex: make(map[string]int),
		root:        root,
	}
}

// Parse reads r to the end and returns root populated with the parsed
// entries. It never fails: read errors end the parse early and are reported
// to the sink.
func Parse(r io.Reader, root *model.LogSource, conf ...Config) *model.LogSource {
	p := NewParser(root, conf...)
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			_, _ = p.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			p.sink.Warnf("glog: read error, finishing with what was read: %v", err)
			break
		}
	}
	return p.Finish()
}

// Write feeds bytes to the state machine. Results do not depend on how the
// stream is split into writes.
func (p *Parser) Write(b []byte) (int, error) {
	if p.finished {
		return 0, ErrFinished
	}
	for _, c := range b {
		p.step(c)
	}
	return len(b), nil
}

// WriteByte feeds a single byte.
func (p *Parser) WriteByte(c byte) error {
	if p.finished {
		return ErrFinished
	}
	p.step(c)
	return nil
}

func (p *Parser) step(c byte) {
	next, eff := transition(p.state, c)
	switch eff {
	case effInvalid:
		p.invalidBytes++
	case effPush:
		p.buf = append(p.buf, c)
	case effClassify:
		next.kind = p.classify()
		p.buf = p.buf[:0]
	case effCommit:
		p.buf = append(p.buf, c)
		p.commit(p.state)
		p.buf = p.buf[:0]
	}
	p.state = next
}

func (p *Parser) classify() sectionKind {
	if !utf8.Valid(p.buf) {
		p.sink.Warnf("glog: malformed UTF-8 in section kind: %s", lossy(p.buf))
		return kindUnknown
	}
	kind, ok := sectionTags[string(p.buf)]
	if !ok {
		p.sink.Warnf("glog: unrecognized section kind: %s", p.buf)
		return kindUnknown
	}
	return kind
}

// commit applies the buffered value of a finished section and, when the
// section ended the line, files the entry.
func (p *Parser) commit(s state) {
	raw := p.buf[:len(p.buf)-s.cutoff]
	value := lossy(raw)

	switch s.kind {
	case kindTimestampMs:
		ms, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			p.sink.Warnf("glog: malformed ms timestamp value: %s", value)
			break
		}
		ts, err := datetime.FromTimestampMs(ms)
		if err != nil {
			p.sink.Warnf("glog: malformed ms timestamp: %d", ms)
			break
		}
		p.entry.Timestamp = ts

	case kindSeverity:
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			p.sink.Warnf("glog: malformed severity: %s", value)
			break
		}
		sev, ok := severityFromUint(uint32(v))
		if !ok {
			p.sink.Warnf("glog: invalid severity: %s", value)
			break
		}
		p.entry.Severity = normalizeSeverity(sev)

	case kindLogSource:
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			p.sink.Warnf("glog: malformed sub-source: %s", value)
			break
		}
		p.subSource = int32(v)
		p.hasSub = true

	case kindMessage:
		if !utf8.Valid(raw) {
			p.sink.Warnf("glog: malformed UTF-8 in message: %s", value)
		}
		p.entry.Message = value

	case kindTimestamp100ns:
		ticks, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			p.sink.Warnf("glog: malformed 100ns value: %s", value)
			break
		}
		ts, err := datetime.From100ns(ticks)
		if err != nil {
			p.sink.Warnf("glog: malformed 100ns timestamp: %d", ticks)
			break
		}
		p.entry.Timestamp = ts

	case kindErrorCode:
		// Not part of the entry model yet.

	case kindSessionID:
		id, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			p.sink.Warnf("glog: malformed session id: %s", value)
			break
		}
		p.entry.SetField(model.FieldSessionID, model.UInt32Field(id))
	}

	if s.done {
		p.finishEntry()
	}
}

// finishEntry files the entry under construction and starts a fresh one.
func (p *Parser) finishEntry() {
	entry := p.entry
	p.entry = model.NewLogEntry()

	if !p.hasSub {
		p.entries = append(p.entries, entry)
		return
	}

	name := subSourceName(entry.Message, p.subSource)
	if i, ok := p.sourceIndex[name]; ok {
		p.sources[i].Entries = append(p.sources[i].Entries, entry)
	} else {
		src := model.NewLogSource(name)
		src.SetEntries([]model.LogEntry{entry})
		p.sourceIndex[name] = len(p.sources)
		p.sources = append(p.sources, src)
	}
	p.hasSub = false
}

// subSourceName uses the message prefix before ": " as the source name. The
// numeric tag is only used when there is no usable prefix.
func subSourceName(message string, tag int32) string {
	if i := strings.Index(message, ": "); i > 0 {
		return message[:i]
	}
	return fmt.Sprintf("Unknown (%d)", tag)
}

// Finish flushes a trailing entry, attaches the results to the root and
// returns it. The parser accepts no more input afterwards.
func (p *Parser) Finish() *model.LogSource {
	if p.finished {
		return p.root
	}
	if p.invalidBytes > 0 {
		p.sink.Warnf("glog: invalid bytes encountered, count: %d", p.invalidBytes)
	}

	// End of stream acts as a line break followed by the next section's '['.
	switch p.state.id {
	case statePreSection:
	case stateSectionKind:
		p.sink.Warnf("glog: cut off last log message (kind)")
	case stateSectionValue:
		p.sink.Warnf("glog: cut off last log message (value)")
	case stateValuePost1, stateValuePost2:
		p.step('\n')
		p.step('[')
	case stateValuePost3:
		if !p.state.done {
			p.sink.Warnf("glog: cut off last log message (dangling section separator)")
		}
		p.step('[')
	}

	p.finished = true
	p.assemble()
	return p.root
}

func (p *Parser) assemble() {
	if len(p.sources) == 0 {
		entries := p.entries
		if entries == nil {
			entries = []model.LogEntry{}
		}
		p.root.SetEntries(entries)
		return
	}

	children := make([]*model.LogSource, 0, len(p.sources)+1)
	children = append(children, p.sources...)
	if len(p.entries) > 0 {
		unknown := model.NewLogSource(UnknownSourceNone)
		unknown.SetEntries(p.entries)
		children = append(children, unknown)
	}
	sortSources(children)
	p.root.SetSources(children)
}

// sortSources orders sources by case-insensitive name, keeping insertion
// order for names that fold to the same key.
func sortSources(sources []*model.LogSource) {
	lower := cases.Lower(language.Und)
	keys := make(map[*model.LogSource]string, len(sources))
	for _, s := range sources {
		keys[s] = lower.String(s.Name)
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return keys[sources[i]] < keys[sources[j]]
	})
}

func lossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
