package ports

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Display is the consumer of session output.
// Implementations are only ever called from a Dispatcher goroutine.
type Display interface {
	// OnUpdate shows the running count and the latest lux value
	OnUpdate(count uint64, lux float32)

	// OnNotice shows a short user-facing message
	OnNotice(message string)
}

// Displays fans every call out to each display in order.
type Displays []Display

func (ds Displays) OnUpdate(count uint64, lux float32) {
	for _, d := range ds {
		d.OnUpdate(count, lux)
	}
}

func (ds Displays) OnNotice(message string) {
	for _, d := range ds {
		d.OnNotice(message)
	}
}

type displayItem struct {
	notice  bool
	count   uint64
	lux     float32
	message string
}

// Dispatcher marshals display calls onto a single goroutine. Posting never
// blocks on the display; items are delivered in the order they were posted.
type Dispatcher struct {
	display Display

	mu      sync.Mutex
	queue   []displayItem
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// NewDispatcher starts the consumer goroutine for display.
func NewDispatcher(display Display) *Dispatcher {
	d := &Dispatcher{
		display: display,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go d.run()
	return d
}

// PostUpdate queues a reading update.
func (d *Dispatcher) PostUpdate(count uint64, lux float32) {
	d.post(displayItem{count: count, lux: lux})
}

// PostNotice queues a notice.
func (d *Dispatcher) PostNotice(message string) {
	d.post(displayItem{notice: true, message: message})
}

func (d *Dispatcher) post(item displayItem) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Debug().Msg("display dispatcher closed, dropping item")
		return
	}
	d.queue = append(d.queue, item)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Close delivers everything already queued, then stops the consumer.
// Items posted after Close are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.stopped
		return
	}
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.stopped
}

func (d *Dispatcher) run() {
	defer close(d.stopped)

	for range d.wake {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, item := range batch {
			d.deliver(item)
		}

		if closed {
			return
		}
	}
}

// deliver isolates the dispatcher from a misbehaving display.
func (d *Dispatcher) deliver(item displayItem) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("display update failed")
		}
	}()

	if item.notice {
		d.display.OnNotice(item.message)
		return
	}
	d.display.OnUpdate(item.count, item.lux)
}
