package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// HumanTimeLayout renders yyyy-MM-dd-h-mm-ssa, e.g. 2024-03-09-1-05-07PM.
// Go layouts are locale independent, so the AM/PM marker is always English.
const HumanTimeLayout = "2006-01-02-3-04-05PM"

const lineFields = 4

// HumanReadableTime formats epoch milliseconds with HumanTimeLayout in loc.
func HumanReadableTime(millis int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(millis).In(loc).Format(HumanTimeLayout)
}

// FormatLine renders a reading as one log line, without the terminator:
//
//	<seq>,<epochMillis>,<yyyy-MM-dd-h-mm-ssa>,<lux>
func FormatLine(r Reading, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(r.Sequence, 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(r.TimestampMillis, 10))
	b.WriteByte(',')
	b.WriteString(HumanReadableTime(r.TimestampMillis, loc))
	b.WriteByte(',')
	b.WriteString(FormatLux(r.Lux))
	return b.String()
}

// FormatLux renders lux as the shortest decimal that round-trips through a
// float32. Plain notation always carries a fractional digit (0.0, 10.5);
// magnitudes outside [1e-3, 1e7) use the E form (1.0E-4, 1.25E7).
func FormatLux(lux float32) string {
	v := float64(lux)
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}

	abs := math.Abs(v)
	if abs == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(v, 'f', -1, 32)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	s := strconv.FormatFloat(v, 'E', -1, 32)
	mantissa, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	n, err := strconv.Atoi(exp)
	if err != nil {
		// FormatFloat always emits a signed decimal exponent
		return s
	}
	return mantissa + "E" + strconv.Itoa(n)
}

// ParseLine recovers the sequence number, timestamp and lux value of a
// logged line. The human-readable column is derived data and is only
// checked for presence.
func ParseLine(line string) (Reading, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, ",")
	if len(fields) != lineFields {
		return Reading{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedLine, lineFields, len(fields))
	}

	seq, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: sequence: %v", ErrMalformedLine, err)
	}

	millis, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedLine, err)
	}

	if fields[2] == "" {
		return Reading{}, fmt.Errorf("%w: empty human readable time", ErrMalformedLine)
	}

	lux, err := strconv.ParseFloat(fields[3], 32)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: lux: %v", ErrMalformedLine, err)
	}

	return Reading{
		Sequence:        seq,
		TimestampMillis: millis,
		Lux:             float32(lux),
	}, nil
}
