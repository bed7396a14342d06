package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/light-analyzer/internal/ports"
)

const (
	defaultTimeout        = 5 * time.Second
	defaultReconnectDelay = 30 * time.Second
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt operation timed out")

// Config describes the broker connection and which topic carries which
// sensor. A kind without a topic is reported as absent.
type Config struct {
	Broker   string
	ClientID string
	Topics   map[ports.SensorKind]string
	QoS      byte
	Timeout  time.Duration

	// MaxReconnectInterval caps the backoff between reconnect attempts
	MaxReconnectInterval time.Duration
}

// Payload is the JSON body of a sensor event message.
type Payload struct {
	Kind        string    `json:"kind"`
	UptimeNanos int64     `json:"uptime_ns"`
	Values      []float32 `json:"values"`
}

// Source receives sensor events published to an MQTT broker.
// The publisher decides the delivery rate; cadence hints are not forwarded.
// Live subscriptions are replayed after every reconnect.
type Source struct {
	client  paho.Client
	topics  map[ports.SensorKind]string
	qos     byte
	timeout time.Duration

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

// NewSource connects to the broker.
func NewSource(cfg Config) (*Source, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxReconnect := cfg.MaxReconnectInterval
	if maxReconnect <= 0 {
		maxReconnect = defaultReconnectDelay
	}

	s := &Source{
		topics:  cfg.Topics,
		qos:     cfg.QoS,
		timeout: timeout,
		subs:    make(map[*subscription]struct{}),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(maxReconnect).
		SetConnectTimeout(timeout)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost")
	})
	opts.SetOnConnectHandler(func(paho.Client) {
		// the session is clean, so the broker forgot our topics
		go s.resubscribe()
	})

	s.client = paho.NewClient(opts)
	if err := wait(s.client.Connect(), timeout); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	log.Info().Str("broker", cfg.Broker).Msg("connected to mqtt broker")
	return s, nil
}

// DefaultSensor reports a sensor for every kind with a configured topic.
func (s *Source) DefaultSensor(kind ports.SensorKind) (ports.Sensor, bool) {
	topic, ok := s.topics[kind]
	if !ok || topic == "" {
		return ports.Sensor{}, false
	}
	return ports.Sensor{Kind: kind, Name: topic}, true
}

// Subscribe subscribes to the sensor's topic.
func (s *Source) Subscribe(sensor ports.Sensor, _ ports.Cadence, handler ports.EventHandler) (ports.Subscription, error) {
	topic, ok := s.topics[sensor.Kind]
	if !ok {
		return nil, fmt.Errorf("no topic configured for %s sensor", sensor.Kind)
	}

	sub := &subscription{
		source:  s,
		topic:   topic,
		handler: handler,
	}
	if err := wait(s.client.Subscribe(topic, s.qos, sub.onMessage), s.timeout); err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	log.Debug().Str("topic", topic).Msg("subscribed to sensor topic")
	return sub, nil
}

// resubscribe restores every live subscription on the current connection.
func (s *Source) resubscribe() {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if err := wait(s.client.Subscribe(sub.topic, s.qos, sub.onMessage), s.timeout); err != nil {
			log.Error().Err(err).Str("topic", sub.topic).Msg("failed to restore sensor subscription")
			continue
		}
		log.Info().Str("topic", sub.topic).Msg("restored sensor subscription")
	}
}

func (s *Source) forget(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

// Close disconnects from the broker.
func (s *Source) Close() error {
	s.client.Disconnect(250)
	return nil
}

type subscription struct {
	source  *Source
	topic   string
	handler ports.EventHandler

	once      sync.Once
	mu        sync.Mutex
	cancelled bool
	err       error
}

func (sub *subscription) onMessage(_ paho.Client, msg paho.Message) {
	ev, err := DecodeEvent(msg.Payload())
	if err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping undecodable sensor message")
		return
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.cancelled {
		return
	}
	sub.handler(ev)
}

// Unsubscribe removes the broker subscription. Messages already routed to
// this subscription are discarded once it returns, even if the broker
// did not acknowledge.
func (sub *subscription) Unsubscribe() error {
	sub.once.Do(func() {
		sub.source.forget(sub)

		if err := wait(sub.source.client.Unsubscribe(sub.topic), sub.source.timeout); err != nil {
			sub.err = fmt.Errorf("unsubscribe from %s: %w", sub.topic, err)
		}

		sub.mu.Lock()
		sub.cancelled = true
		sub.mu.Unlock()
	})
	return sub.err
}

// DecodeEvent parses a JSON payload into an event. Unknown kinds decode
// as ports.KindUnknown so the consumer can filter them.
func DecodeEvent(data []byte) (ports.Event, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return ports.Event{}, fmt.Errorf("decode sensor payload: %w", err)
	}

	kind, err := ports.ParseSensorKind(p.Kind)
	if err != nil {
		kind = ports.KindUnknown
	}

	return ports.Event{
		Kind:        kind,
		UptimeNanos: p.UptimeNanos,
		Values:      p.Values,
	}, nil
}

// EncodeEvent is the inverse of DecodeEvent, used by publishers.
func EncodeEvent(ev ports.Event) ([]byte, error) {
	return json.Marshal(Payload{
		Kind:        ev.Kind.String(),
		UptimeNanos: ev.UptimeNanos,
		Values:      ev.Values,
	})
}

func wait(token paho.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}
