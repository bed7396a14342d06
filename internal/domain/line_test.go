package domain

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestHumanReadableTime(t *testing.T) {
	tests := []struct {
		name   string
		millis int64
		want   string
	}{
		{name: "epoch plus one second", millis: 1000, want: "1970-01-01-12-00-01AM"},
		{name: "afternoon hour is not padded", millis: 1709989507250, want: "2024-03-09-1-05-07PM"},
		{name: "noon", millis: 1709985600000, want: "2024-03-09-12-00-00PM"},
		{name: "before noon", millis: 1709982000000, want: "2024-03-09-11-00-00AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HumanReadableTime(tt.millis, time.UTC); got != tt.want {
				t.Errorf("HumanReadableTime(%d) = %q, want %q", tt.millis, got, tt.want)
			}
		})
	}
}

func TestHumanReadableTime_Zone(t *testing.T) {
	zone := time.FixedZone("UTC+8", 8*60*60)
	if got := HumanReadableTime(1000, zone); got != "1970-01-01-8-00-01AM" {
		t.Errorf("got %q, want %q", got, "1970-01-01-8-00-01AM")
	}
}

func TestFormatLux(t *testing.T) {
	tests := []struct {
		lux  float32
		want string
	}{
		{lux: 10.5, want: "10.5"},
		{lux: 0, want: "0.0"},
		{lux: float32(math.Copysign(0, -1)), want: "-0.0"},
		{lux: 1200.3, want: "1200.3"},
		{lux: 40000, want: "40000.0"},
		{lux: 0.001, want: "0.001"},
		{lux: 9999999, want: "9999999.0"},
		{lux: 1e7, want: "1.0E7"},
		{lux: 12345678, want: "1.2345678E7"},
		{lux: 1e-4, want: "1.0E-4"},
		{lux: 1.5e-5, want: "1.5E-5"},
		{lux: -3.25, want: "-3.25"},
		{lux: float32(math.NaN()), want: "NaN"},
		{lux: float32(math.Inf(1)), want: "Infinity"},
		{lux: float32(math.Inf(-1)), want: "-Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatLux(tt.lux); got != tt.want {
				t.Errorf("FormatLux(%v) = %q, want %q", tt.lux, got, tt.want)
			}
		})
	}
}

func TestFormatLine(t *testing.T) {
	readings := []Reading{
		{Sequence: 1, TimestampMillis: 1000, Lux: 10.5},
		{Sequence: 2, TimestampMillis: 2000, Lux: 0.0},
		{Sequence: 3, TimestampMillis: 3000, Lux: 1200.3},
	}
	want := []string{
		"1,1000,1970-01-01-12-00-01AM,10.5",
		"2,2000,1970-01-01-12-00-02AM,0.0",
		"3,3000,1970-01-01-12-00-03AM,1200.3",
	}

	for i, r := range readings {
		if got := FormatLine(r, time.UTC); got != want[i] {
			t.Errorf("FormatLine(%+v) = %q, want %q", r, got, want[i])
		}
	}
}

func TestParseLine(t *testing.T) {
	got, err := ParseLine("3,3000,1970-01-01-12-00-03AM,1200.3\n")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}

	want := Reading{Sequence: 3, TimestampMillis: 3000, Lux: 1200.3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseLine mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLine_Malformed(t *testing.T) {
	lines := []string{
		"",
		"1,1000,1970-01-01-12-00-01AM",
		"1,1000,1970-01-01-12-00-01AM,10.5,extra",
		"-1,1000,1970-01-01-12-00-01AM,10.5",
		"1,soon,1970-01-01-12-00-01AM,10.5",
		"1,1000,,10.5",
		"1,1000,1970-01-01-12-00-01AM,bright",
	}

	for _, line := range lines {
		if _, err := ParseLine(line); !errors.Is(err, ErrMalformedLine) {
			t.Errorf("ParseLine(%q): expected ErrMalformedLine, got %v", line, err)
		}
	}
}

func TestFormatParse_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4222))

	for i := 0; i < 5000; i++ {
		lux := math.Float32frombits(rng.Uint32())
		if lux != lux {
			continue // NaN payloads are not preserved
		}
		want := Reading{
			Sequence:        rng.Uint64(),
			TimestampMillis: rng.Int63(),
			Lux:             lux,
		}

		got, err := ParseLine(FormatLine(want, time.UTC))
		if err != nil {
			t.Fatalf("ParseLine(FormatLine(%+v)) failed: %v", want, err)
		}
		if got.Sequence != want.Sequence || got.TimestampMillis != want.TimestampMillis {
			t.Fatalf("round trip changed identity: want %+v, got %+v", want, got)
		}
		if math.Float32bits(got.Lux) != math.Float32bits(want.Lux) {
			t.Fatalf("round trip changed lux: want %v (%s), got %v", want.Lux, FormatLux(want.Lux), got.Lux)
		}
	}
}
