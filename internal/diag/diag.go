// Package diag is the diagnostics side channel parsers report to. Nothing
// written here affects parse results.
package diag

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Sink receives diagnostic messages.
type Sink interface {
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
}

// Nop returns a sink that discards everything.
func Nop() Sink { return nopSink{} }

type nopSink struct{}

func (nopSink) Warnf(string, ...any) {}
func (nopSink) Infof(string, ...any) {}

// OrNop returns s, or a no-op sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop()
	}
	return s
}

// Zerolog adapts a zerolog.Logger.
type Zerolog struct {
	logger zerolog.Logger
}

// NewZerolog wraps logger as a Sink.
func NewZerolog(logger zerolog.Logger) *Zerolog {
	return &Zerolog{logger: logger}
}

func (z *Zerolog) Warnf(format string, args ...any) {
	z.logger.Warn().Msgf(format, args...)
}

func (z *Zerolog) Infof(format string, args ...any) {
	z.logger.Info().Msgf(format, args...)
}

// Message is one recorded diagnostic.
type Message struct {
	Level string // "warn" or "info"
	Text  string
}

// Recorder keeps every message in memory. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Warnf(format string, args ...any) {
	r.add("warn", fmt.Sprintf(format, args...))
}

func (r *Recorder) Infof(format string, args ...any) {
	r.add("info", fmt.Sprintf(format, args...))
}

func (r *Recorder) add(level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: text})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Warnings returns the text of every warning.
func (r *Recorder) Warnings() []string {
	var out []string
	for _, m := range r.Messages() {
		if m.Level == "warn" {
			out = append(out, m.Text)
		}
	}
	return out
}
