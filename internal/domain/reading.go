package domain

import (
	"time"
)

// Reading is a single light measurement as it flows through the logging
// pipeline. It is never stored as an entity; the CSV line is the record.
type Reading struct {
	Sequence        uint64
	TimestampMillis int64
	Lux             float32
}

// NewReading builds a reading stamped with the given capture time.
// Callers pass the wall-clock time the event was received, not the
// sensor's uptime-based timestamp.
func NewReading(seq uint64, capturedAt time.Time, lux float32) Reading {
	return Reading{
		Sequence:        seq,
		TimestampMillis: capturedAt.UnixMilli(),
		Lux:             lux,
	}
}

// IsLowLight returns true if reading indicates low light conditions
// Business logic: < 200 lux is considered low light
func (r Reading) IsLowLight() bool {
	return r.Lux < 200
}

// IsMediumLight returns true if reading indicates medium light
// Business logic: 200-2500 lux is medium light
func (r Reading) IsMediumLight() bool {
	return r.Lux >= 200 && r.Lux < 2500
}

// IsHighLight returns true if reading indicates high light
func (r Reading) IsHighLight() bool {
	return r.Lux >= 2500
}

// LightCategory returns human-readable category
func (r Reading) LightCategory() string {
	switch {
	case r.IsLowLight():
		return "Low Light"
	case r.IsMediumLight():
		return "Medium Light"
	default:
		return "High Light"
	}
}

// LightCategory classifies a raw lux value.
func LightCategory(lux float32) string {
	return Reading{Lux: lux}.LightCategory()
}
