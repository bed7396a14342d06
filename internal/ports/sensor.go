package ports

import (
	"fmt"
	"strings"
	"time"
)

// SensorKind identifies the type of a sensor and of the events it emits.
type SensorKind int

const (
	KindUnknown SensorKind = iota
	KindLight
	KindProximity
	KindAccelerometer
)

func (k SensorKind) String() string {
	switch k {
	case KindLight:
		return "light"
	case KindProximity:
		return "proximity"
	case KindAccelerometer:
		return "accelerometer"
	default:
		return "unknown"
	}
}

// ParseSensorKind maps a kind name back to its SensorKind.
func ParseSensorKind(s string) (SensorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light":
		return KindLight, nil
	case "proximity":
		return KindProximity, nil
	case "accelerometer":
		return KindAccelerometer, nil
	default:
		return KindUnknown, fmt.Errorf("unknown sensor kind %q", s)
	}
}

// Cadence is a delivery rate hint. Sources may deliver faster or slower.
type Cadence int

const (
	CadenceNormal Cadence = iota
	CadenceUI
	CadenceFastest
)

// Interval returns the nominal delay between two events.
func (c Cadence) Interval() time.Duration {
	switch c {
	case CadenceUI:
		return 60 * time.Millisecond
	case CadenceFastest:
		return 0
	default:
		return 200 * time.Millisecond
	}
}

// Sensor describes a sensor resolved from a source.
type Sensor struct {
	Kind SensorKind
	Name string
}

// Event is one delivered sample. UptimeNanos is the source's own
// monotonic timestamp; the logging pipeline ignores it.
type Event struct {
	Kind        SensorKind
	UptimeNanos int64
	Values      []float32
}

// EventHandler receives events. A source never runs two invocations of
// the same subscription's handler concurrently.
type EventHandler func(Event)

// Subscription is a live registration with a sensor source.
type Subscription interface {
	// Unsubscribe stops delivery. When it returns, no handler call for
	// this subscription is running or will run.
	Unsubscribe() error
}

// SensorSource defines how to reach sensors and register for their events
// This is a PORT - adapters (MQTT, Mock) will implement it
type SensorSource interface {
	// DefaultSensor resolves the sensor of the given kind, if present
	DefaultSensor(kind SensorKind) (Sensor, bool)

	// Subscribe registers handler for events from sensor
	Subscribe(sensor Sensor, cadence Cadence, handler EventHandler) (Subscription, error)
}
