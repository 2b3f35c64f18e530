// Package output renders parse results for the command line.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/sherlog/internal/logstore"
	"github.com/tinytelemetry/sherlog/internal/model"
)

// TimeLayout is the timestamp format of text output.
const TimeLayout = "2006-01-02 15:04:05.000000"

var (
	ColorRed    = lipgloss.Color("196")
	ColorPink   = lipgloss.Color("201")
	ColorOrange = lipgloss.Color("208")
	ColorBlue   = lipgloss.Color("39")
	ColorGray   = lipgloss.Color("244")
	ColorDim    = lipgloss.Color("240")
)

// severityColor returns the color for a severity level.
func severityColor(level model.LogLevel) lipgloss.Color {
	switch level {
	case model.LevelCritical:
		return ColorPink
	case model.LevelError:
		return ColorRed
	case model.LevelWarning:
		return ColorOrange
	case model.LevelInfo:
		return ColorBlue
	case model.LevelDebug:
		return ColorGray
	default:
		return ColorDim
	}
}

// WriteText writes one line per row:
//
//	2025-12-18 22:50:36.585690 INFO     debug.txt  Selecting tracker
//
// Continuation lines of multi-line messages are indented under the message.
func WriteText(w io.Writer, rows []logstore.Row, color bool) error {
	sourceWidth := 0
	for _, r := range rows {
		sourceWidth = max(sourceWidth, len(r.SourcePath))
	}

	dim := lipgloss.NewStyle().Foreground(ColorDim)
	for _, r := range rows {
		ts := r.Entry.Timestamp.Format(TimeLayout)
		level := fmt.Sprintf("%-8s", r.Entry.Severity)
		source := fmt.Sprintf("%-*s", sourceWidth, r.SourcePath)
		if color {
			ts = dim.Render(ts)
			level = lipgloss.NewStyle().Foreground(severityColor(r.Entry.Severity)).Bold(true).Render(level)
			source = dim.Render(source)
		}

		indent := strings.Repeat(" ", len(TimeLayout)+1+8+1+sourceWidth+2)
		message := strings.ReplaceAll(r.Entry.Message, "\n", "\n"+indent)

		if _, err := fmt.Fprintf(w, "%s %s %s  %s\n", ts, level, source, message); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes per-source entry and severity counts for a tree.
func WriteSummary(w io.Writer, root *model.LogSource, color bool) error {
	bold := lipgloss.NewStyle().Bold(true)
	header := root.Name
	if color {
		header = bold.Render(header)
	}
	if _, err := fmt.Fprintf(w, "%s  %d entries\n", header, root.EntryCount()); err != nil {
		return err
	}

	var err error
	root.Walk(func(path []string, leaf *model.LogSource) {
		if err != nil {
			return
		}
		counts := make(map[model.LogLevel]int)
		for _, e := range leaf.Entries {
			counts[e.Severity]++
		}
		var parts []string
		for _, level := range model.AllLevels {
			n := counts[level]
			if n == 0 {
				continue
			}
			part := fmt.Sprintf("%s=%d", level, n)
			if color {
				part = lipgloss.NewStyle().Foreground(severityColor(level)).Render(part)
			}
			parts = append(parts, part)
		}
		_, err = fmt.Fprintf(w, "  %s  %d  %s\n", model.JoinPath(path), len(leaf.Entries), strings.Join(parts, " "))
	})
	return err
}
