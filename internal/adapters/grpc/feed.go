package grpc

import (
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"
)

// watchBuffer bounds how far a slow watcher may fall behind before
// messages to it are dropped.
const watchBuffer = 64

// Feed is a ports.Display that fans updates out to WatchReadings streams.
type Feed struct {
	mu       sync.Mutex
	watchers map[chan *structpb.Struct]struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFeed creates a feed with no watchers.
func NewFeed() *Feed {
	return &Feed{
		watchers: make(map[chan *structpb.Struct]struct{}),
		closed:   make(chan struct{}),
	}
}

// OnUpdate forwards a reading update to all watchers
func (f *Feed) OnUpdate(count uint64, lux float32) {
	f.broadcast(updateToProto(count, lux))
}

// OnNotice forwards a notice to all watchers
func (f *Feed) OnNotice(message string) {
	f.broadcast(noticeToProto(message))
}

// Close ends every open stream so the server can stop gracefully.
func (f *Feed) Close() {
	f.closeOnce.Do(func() { close(f.closed) })
}

func (f *Feed) broadcast(msg *structpb.Struct) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.watchers {
		select {
		case ch <- msg:
		default:
			log.Warn().Msg("watcher too slow, dropping feed message")
		}
	}
}

func (f *Feed) attach() chan *structpb.Struct {
	ch := make(chan *structpb.Struct, watchBuffer)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchers[ch] = struct{}{}
	return ch
}

func (f *Feed) detach(ch chan *structpb.Struct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.watchers, ch)
}

func (f *Feed) watcherCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}
