package robotlog

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLooksLikeRobotLog(t *testing.T) {
	ts := "2025-12-18 22:50:36.585690 - INFO - step\n"
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"three lines", ts + ts + ts, true},
		{"separators and blanks skipped", "=====\n\n" + ts + "-----\n" + ts + "   \n" + ts, true},
		{"stops at threshold", ts + ts + ts + "not a log line\n", true},
		{"two lines then eof", ts + ts, false},
		{"empty", "", false},
		{"continuation before threshold", ts + "some continuation\n" + ts + ts, false},
		{"foreign first line", "hello world\n" + ts + ts + ts, false},
		{"crlf", strings.ReplaceAll(ts+ts+ts, "\n", "\r\n"), true},
		{"five-digit fraction", "2025-12-18 22:50:36.58569 - INFO - x\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeRobotLog(strings.NewReader(tt.input)); got != tt.want {
				t.Errorf("LooksLikeRobotLog = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLooksLikeRobotLog_RestoresPosition(t *testing.T) {
	ts := "2025-12-18 22:50:36.585690 - INFO - step\n"
	for _, input := range []string{
		"xx" + ts + ts + ts,
		"xx" + "garbage\n" + ts,
		"xx" + ts,
	} {
		r := strings.NewReader(input)
		if _, err := r.Seek(2, io.SeekStart); err != nil {
			t.Fatal(err)
		}
		LooksLikeRobotLog(r)
		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			t.Fatal(err)
		}
		if pos != 2 {
			t.Errorf("position after sniff = %d, want 2", pos)
		}
	}
}

type brokenSeeker struct{ io.Reader }

func (brokenSeeker) Seek(int64, int) (int64, error) { return 0, errors.New("not seekable") }

func TestLooksLikeRobotLog_SeekFailure(t *testing.T) {
	ts := "2025-12-18 22:50:36.585690 - INFO - step\n"
	if LooksLikeRobotLog(brokenSeeker{strings.NewReader(ts + ts + ts)}) {
		t.Error("unseekable stream should not be sniffed")
	}
}
