package mock

import (
	"math/rand"
	"sync"
	"time"

	"github.com/quentinrf/light-analyzer/internal/ports"
)

// minInterval keeps CadenceFastest from spinning
const minInterval = time.Millisecond

// FakeSource simulates a sensor service with a light sensor for development
// This implements the ports.SensorSource interface
type FakeSource struct {
	baseValue float64
	variation float64
	noLight   bool
	booted    time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a FakeSource.
type Option func(*FakeSource)

// WithoutLightSensor simulates a device that has no light sensor.
func WithoutLightSensor() Option {
	return func(s *FakeSource) { s.noLight = true }
}

// NewFakeSource creates a source whose light sensor returns realistic values
// baseValue: average lux (e.g., 500 for indoor lighting)
// variation: +/- range (e.g., 100 means 400-600)
func NewFakeSource(baseValue, variation float64, opts ...Option) *FakeSource {
	s := &FakeSource{
		baseValue: baseValue,
		variation: variation,
		booted:    time.Now(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultSensor resolves the simulated light sensor.
func (s *FakeSource) DefaultSensor(kind ports.SensorKind) (ports.Sensor, bool) {
	if kind != ports.KindLight || s.noLight {
		return ports.Sensor{}, false
	}
	return ports.Sensor{Kind: ports.KindLight, Name: "fake light sensor"}, true
}

// Subscribe delivers a simulated event every cadence interval on a
// dedicated goroutine. The handler must not call Unsubscribe itself.
func (s *FakeSource) Subscribe(sensor ports.Sensor, cadence ports.Cadence, handler ports.EventHandler) (ports.Subscription, error) {
	interval := cadence.Interval()
	if interval < minInterval {
		interval = minInterval
	}

	sub := &fakeSubscription{
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(sub.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-sub.quit:
				return
			case <-ticker.C:
			}

			// quit wins over a tick that raced with it
			select {
			case <-sub.quit:
				return
			default:
			}

			handler(ports.Event{
				Kind:        sensor.Kind,
				UptimeNanos: time.Since(s.booted).Nanoseconds(),
				Values:      []float32{s.readLux()},
			})
		}
	}()

	return sub, nil
}

// readLux returns a simulated light reading
// Simulates realistic variance (lights flicker, clouds pass, etc.)
func (s *FakeSource) readLux() float32 {
	s.mu.Lock()
	variance := (s.rng.Float64() - 0.5) * 2 * s.variation
	s.mu.Unlock()

	lux := s.baseValue + variance
	if lux < 0 {
		lux = 0
	}
	return float32(lux)
}

type fakeSubscription struct {
	once sync.Once
	quit chan struct{}
	done chan struct{}
}

// Unsubscribe stops the delivery goroutine and waits for it to exit.
func (s *fakeSubscription) Unsubscribe() error {
	s.once.Do(func() { close(s.quit) })
	<-s.done
	return nil
}
