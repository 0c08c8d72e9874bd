package sink

import (
	"sync/atomic"

	"github.com/bnema/waymon/internal/devicemodel"
)

// DefaultQueueCapacity matches spec.md §6.3's sink.queue_capacity default.
const DefaultQueueCapacity = 256

// ChannelSink forwards entries to a bounded channel read by an external
// injector (out of scope here). It never blocks: a full channel yields
// Backpressured immediately.
type ChannelSink struct {
	entries chan Entry
	closed  atomic.Bool
}

// NewChannelSink creates a ChannelSink with the given bounded capacity.
// A non-positive capacity falls back to DefaultQueueCapacity.
func NewChannelSink(capacity int) *ChannelSink {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &ChannelSink{entries: make(chan Entry, capacity)}
}

// Entries exposes the read side for the external injector to consume.
func (s *ChannelSink) Entries() <-chan Entry { return s.entries }

func (s *ChannelSink) Deliver(sessionID string, event devicemodel.InputEvent) Result {
	if s.closed.Load() {
		return Rejected
	}
	select {
	case s.entries <- Entry{SessionID: sessionID, Event: event}:
		return Accepted
	default:
		return Backpressured
	}
}

// Close marks the sink as no longer accepting deliveries and closes the
// channel so the downstream consumer observes end-of-stream. Idempotent.
func (s *ChannelSink) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.entries)
	}
}
