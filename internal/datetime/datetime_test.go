package datetime

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestFromTimestampMs(t *testing.T) {
	tests := []struct {
		name string
		in   uint64
		want time.Time
	}{
		{"epoch", 0, time.Unix(0, 0).UTC()},
		{"modern", 1700000000000, time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)},
		{"millis kept", 1700000000123, time.Date(2023, time.November, 14, 22, 13, 20, 123_000_000, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromTimestampMs(tt.in)
			if err != nil {
				t.Fatalf("FromTimestampMs(%d) error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("FromTimestampMs(%d) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestFromTimestampMs_OutOfRange(t *testing.T) {
	if _, err := FromTimestampMs(math.MaxUint64); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	if _, err := FromTimestampMs(maxMillis); err != nil {
		t.Fatalf("max millis should convert, got %v", err)
	}
	if _, err := FromTimestampMs(maxMillis + 1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("max+1 err = %v, want ErrOutOfRange", err)
	}
}

func TestFrom100ns(t *testing.T) {
	got, err := From100ns(15_620_600_321_009_541)
	if err != nil {
		t.Fatalf("From100ns error: %v", err)
	}
	want := time.Unix(1_562_060_032, 100_954_100).UTC()
	if !got.Equal(want) {
		t.Errorf("From100ns = %v, want %v", got, want)
	}

	if _, err := From100ns(math.MaxUint64); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}
}

func TestAddOffset100ns(t *testing.T) {
	base := time.Unix(10, 0).UTC()

	got, err := AddOffset100ns(base, 1_000_000)
	if err != nil {
		t.Fatalf("AddOffset100ns error: %v", err)
	}
	if want := base.Add(100 * time.Millisecond); !got.Equal(want) {
		t.Errorf("AddOffset100ns = %v, want %v", got, want)
	}

	got, err = AddOffset100ns(base, -50_000_000)
	if err != nil {
		t.Fatalf("negative offset error: %v", err)
	}
	if want := base.Add(-5 * time.Second); !got.Equal(want) {
		t.Errorf("negative offset = %v, want %v", got, want)
	}
}

func TestAddOffset100ns_Overflow(t *testing.T) {
	base := time.Unix(0, 0).UTC()
	tests := []struct {
		name  string
		base  time.Time
		ticks int64
	}{
		{"duration overflow", base, math.MaxInt64},
		{"negative duration overflow", base, math.MinInt64},
		{"past max year", maxTime, 1},
		{"before min year", minTime, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := AddOffset100ns(tt.base, tt.ticks); !errors.Is(err, ErrOutOfRange) {
				t.Errorf("err = %v, want ErrOutOfRange", err)
			}
		})
	}
}
