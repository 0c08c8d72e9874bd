// Package sink defines the outbound boundary between the session manager
// and the external compositor-side input injector: a single deliver
// operation plus two implementations (a bounded channel sink for
// production and a recording null sink for tests).
package sink

import (
	"github.com/bnema/waymon/internal/devicemodel"
)

// Result classifies the outcome of a Deliver call.
type Result int

const (
	Accepted Result = iota
	Backpressured
	Rejected
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Backpressured:
		return "backpressured"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Entry pairs a session id with the event delivered for it, preserving
// per-session submission order end to end.
type Entry struct {
	SessionID string
	Event     devicemodel.InputEvent
}

// Sink is the single abstraction the session manager forwards
// authorized, validated input events to. Deliver must never block the
// caller: a full downstream queue is reported as Backpressured, not
// awaited. sessionID is the session's string identity, not a session.ID
// handle, so this package has no dependency on the session package.
type Sink interface {
	Deliver(sessionID string, event devicemodel.InputEvent) Result
}
