package sink

import (
	"sync"

	"github.com/bnema/waymon/internal/devicemodel"
)

// NullSink records every delivered entry in order, for use in tests that
// assert on ordering or content rather than exercising real
// backpressure.
type NullSink struct {
	mu      sync.Mutex
	entries []Entry
	reject  bool
}

func NewNullSink() *NullSink { return &NullSink{} }

func (s *NullSink) Deliver(sessionID string, event devicemodel.InputEvent) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return Rejected
	}
	s.entries = append(s.entries, Entry{SessionID: sessionID, Event: event})
	return Accepted
}

// Entries returns a copy of everything delivered so far, in order.
func (s *NullSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SetReject makes subsequent Deliver calls report Rejected, simulating a
// closed downstream.
func (s *NullSink) SetReject(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = reject
}
