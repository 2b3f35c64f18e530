package model

import (
	"regexp"
	"strings"
)

// Filter is the predicate contract consumers apply to parsed entries.
// Zero-valued parts match everything.
type Filter struct {
	Search        string
	CaseSensitive bool
	Levels        []LogLevel // empty = all severities
	SourceIDs     []uint32   // empty = all sources
}

// Matcher is a compiled Filter.
type Matcher struct {
	search        string
	caseSensitive bool
	re            *regexp.Regexp
	levels        map[LogLevel]struct{}
	sources       map[uint32]struct{}
}

// Compile prepares the filter for repeated evaluation.
func (f Filter) Compile() *Matcher {
	m := &Matcher{
		search:        f.Search,
		caseSensitive: f.CaseSensitive,
	}
	if f.Search != "" && !f.CaseSensitive {
		m.re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(f.Search))
	}
	if len(f.Levels) > 0 {
		m.levels = make(map[LogLevel]struct{}, len(f.Levels))
		for _, l := range f.Levels {
			m.levels[l] = struct{}{}
		}
	}
	if len(f.SourceIDs) > 0 {
		m.sources = make(map[uint32]struct{}, len(f.SourceIDs))
		for _, id := range f.SourceIDs {
			m.sources[id] = struct{}{}
		}
	}
	return m
}

// Match reports whether an entry from the given source passes the filter.
func (m *Matcher) Match(sourceID uint32, e *LogEntry) bool {
	if m.levels != nil {
		if _, ok := m.levels[e.Severity]; !ok {
			return false
		}
	}
	if m.sources != nil {
		if _, ok := m.sources[sourceID]; !ok {
			return false
		}
	}
	switch {
	case m.search == "":
		return true
	case m.caseSensitive:
		return strings.Contains(e.Message, m.search)
	default:
		return m.re.MatchString(e.Message)
	}
}
