package ports

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/quentinrf/light-analyzer/internal/domain"
)

// ReadingLog is the durable destination of accepted readings.
type ReadingLog interface {
	Open() error
	IsOpen() bool
	Append(reading domain.Reading) error
	Close() error
	Path() string
}

// Status is a point-in-time view of a sampling session.
type Status struct {
	Active        bool
	ReadingCount  uint64
	LastLux       float32
	WriteFailures uint64
	SessionID     string
	LogPath       string
}

// Controller is the control surface offered to UI collaborators.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Status() Status
}

// Option configures a SamplingSession.
type Option func(*SamplingSession)

// WithClock sets the clock used to stamp readings.
func WithClock(c clock.Clock) Option {
	return func(s *SamplingSession) { s.clock = c }
}

// WithJournal records every session in repo.
func WithJournal(repo domain.SessionRepository) Option {
	return func(s *SamplingSession) { s.journal = repo }
}

// SamplingSession gates light sensor registration and drives each
// delivered event through the log and onto the display.
//
// Start, Stop and Shutdown serialize on mu. Event delivery never takes mu:
// Stop holds it while waiting for the in-flight event to finish.
type SamplingSession struct {
	source     SensorSource
	readings   ReadingLog
	dispatcher *Dispatcher
	clock      clock.Clock
	journal    domain.SessionRepository

	mu     sync.Mutex
	active bool
	sub    Subscription
	record *domain.SessionRecord

	count         atomic.Uint64
	lastLux       atomic.Uint32
	writeFailures atomic.Uint64
}

// NewSamplingSession creates an idle session.
func NewSamplingSession(source SensorSource, readings ReadingLog, dispatcher *Dispatcher, opts ...Option) *SamplingSession {
	s := &SamplingSession{
		source:     source,
		readings:   readings,
		dispatcher: dispatcher,
		clock:      clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers for light sensor events. It is a no-op while active.
// On any failure the session stays idle.
func (s *SamplingSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil
	}

	sensor, ok := s.source.DefaultSensor(KindLight)
	if !ok {
		s.reportStartFailure(domain.ErrSensorUnavailable)
		return domain.ErrSensorUnavailable
	}

	if !s.readings.IsOpen() {
		if err := s.readings.Open(); err != nil {
			s.reportStartFailure(err)
			return fmt.Errorf("open reading log: %w", err)
		}
		log.Info().Str("path", s.readings.Path()).Msg("opened reading log")
	}

	s.count.Store(0)
	s.writeFailures.Store(0)
	s.lastLux.Store(0)

	sub, err := s.source.Subscribe(sensor, CadenceNormal, s.onReading)
	if err != nil {
		s.reportStartFailure(err)
		return fmt.Errorf("subscribe to %s: %w", sensor.Name, err)
	}

	s.sub = sub
	s.active = true
	s.beginJournal(ctx)

	log.Info().
		Str("sensor", sensor.Name).
		Dur("cadence", CadenceNormal.Interval()).
		Msg("light sensor sampling started")
	s.dispatcher.PostNotice("Light sensor sampling started")
	return nil
}

// Stop unregisters from the sensor source. It is a no-op while idle.
// Once Stop returns no further readings are processed.
func (s *SamplingSession) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.stopLocked(ctx)
}

// Shutdown stops sampling and closes the reading log. Both steps always
// run; their failures are reported and returned together.
func (s *SamplingSession) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.stopLocked(ctx)

	if closeErr := s.readings.Close(); closeErr != nil {
		log.Error().Err(closeErr).Msg("unable to close reading log")
		s.dispatcher.PostNotice("Unable to close light sensor log file: " + closeErr.Error())
		err = multierr.Append(err, closeErr)
	}
	return err
}

// Status reports the current session state.
func (s *SamplingSession) Status() Status {
	s.mu.Lock()
	active := s.active
	var id string
	if s.record != nil {
		id = s.record.ID
	}
	s.mu.Unlock()

	return Status{
		Active:        active,
		ReadingCount:  s.count.Load(),
		LastLux:       math.Float32frombits(s.lastLux.Load()),
		WriteFailures: s.writeFailures.Load(),
		SessionID:     id,
		LogPath:       s.readings.Path(),
	}
}

func (s *SamplingSession) stopLocked(ctx context.Context) error {
	if !s.active {
		return nil
	}

	sub := s.sub
	s.sub = nil
	s.active = false

	var err error
	if sub != nil {
		if err = sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("unable to stop light sensor sampling")
			s.dispatcher.PostNotice("Unable to stop light sensor sampling: " + err.Error())
		}
	}

	s.endJournal(ctx)

	log.Info().
		Uint64("readings", s.count.Load()).
		Uint64("write_failures", s.writeFailures.Load()).
		Msg("light sensor sampling stopped")
	s.dispatcher.PostNotice("Light sensor sampling stopped")
	return err
}

// onReading runs on the source's delivery goroutine.
func (s *SamplingSession) onReading(ev Event) {
	// log time, not the sensor's uptime clock
	capturedAt := s.clock.Now()

	if ev.Kind != KindLight {
		return
	}
	if len(ev.Values) == 0 {
		log.Warn().Msg("light event without values, ignoring")
		return
	}

	seq := s.count.Add(1)
	lux := ev.Values[0]
	s.lastLux.Store(math.Float32bits(lux))

	reading := domain.NewReading(seq, capturedAt, lux)
	if err := s.readings.Append(reading); err != nil {
		s.writeFailures.Add(1)
		log.Error().Err(err).Uint64("seq", seq).Msg("failed to log light reading")
		s.dispatcher.PostNotice("Unable to log light reading: " + err.Error())
	} else {
		log.Debug().
			Uint64("seq", seq).
			Float32("lux", lux).
			Msg("logged light reading")
	}

	s.dispatcher.PostUpdate(seq, lux)
}

func (s *SamplingSession) reportStartFailure(err error) {
	log.Error().Err(err).Msg("unable to start light sampling")
	s.dispatcher.PostNotice("Unable to start light sampling: " + err.Error())
}

func (s *SamplingSession) beginJournal(ctx context.Context) {
	s.record = &domain.SessionRecord{
		ID:        uuid.NewString(),
		StartedAt: s.clock.Now(),
		LogPath:   s.readings.Path(),
	}
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveSession(ctx, s.record); err != nil {
		log.Warn().Err(err).Str("session", s.record.ID).Msg("failed to journal session start")
	}
}

func (s *SamplingSession) endJournal(ctx context.Context) {
	if s.record == nil {
		return
	}
	s.record.StoppedAt = s.clock.Now()
	s.record.ReadingCount = s.count.Load()
	s.record.WriteFailures = s.writeFailures.Load()
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveSession(ctx, s.record); err != nil {
		log.Warn().Err(err).Str("session", s.record.ID).Msg("failed to journal session stop")
	}
}
