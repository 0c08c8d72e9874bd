package capture

import "sync/atomic"

var nextStreamID atomic.Uint32

// allocStreamID hands out process-unique stream identifiers, mirroring
// the teacher's per-connection sequential id allocation in
// internal/network (session/stream ids are never reused within a
// process lifetime).
func allocStreamID() uint32 {
	return nextStreamID.Add(1)
}

// simpleHandle is shared by every built-in tier: it owns the allocated
// stream ids and a teardown closure supplied by the tier that created
// it (releasing bus subscriptions, fds, or buffers specific to that
// tier).
type simpleHandle struct {
	streamIDs []uint32
	teardown  func() error
	released  atomic.Bool
}

func newHandle(streamIDs []uint32, teardown func() error) *simpleHandle {
	return &simpleHandle{streamIDs: streamIDs, teardown: teardown}
}

func (h *simpleHandle) StreamIDs() []uint32 { return h.streamIDs }

func (h *simpleHandle) Release() error {
	if h.released.Swap(true) {
		return nil
	}
	if h.teardown != nil {
		return h.teardown()
	}
	return nil
}
