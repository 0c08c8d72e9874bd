package session

import (
	"sync/atomic"
	"time"

	"github.com/bnema/waymon/internal/capture"
	"github.com/bnema/waymon/internal/devicemodel"
)

// State is the session's monotonic lifecycle state. Transitions only
// move forward: Created → DevicesSelected → Started → Closed, with
// Closed reachable directly from any earlier state.
type State int

const (
	Created State = iota
	DevicesSelected
	Started
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case DevicesSelected:
		return "devices-selected"
	case Started:
		return "started"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Mode is derived once at Start and immutable thereafter.
type Mode int

const (
	ModeNone Mode = iota
	ModeFull
	ModeViewOnly
	ModeInputOnly
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeViewOnly:
		return "view-only"
	case ModeInputOnly:
		return "input-only"
	default:
		return "none"
	}
}

// DeriveMode implements spec.md §4.7 step 4: the mode is a pure function
// of what was authorized and whether a capture tier was prepared.
func DeriveMode(authorized devicemodel.DeviceType, capturePrepared bool) Mode {
	switch {
	case !authorized.Empty() && capturePrepared:
		return ModeFull
	case authorized.Empty() && capturePrepared:
		return ModeViewOnly
	case !authorized.Empty() && !capturePrepared:
		return ModeInputOnly
	default:
		return ModeNone
	}
}

// Session is owned exclusively by the Manager; nothing outside this
// package holds a *Session, matching spec.md §9's "no cyclic
// references" note — capture handles look sessions up by ID rather than
// holding a pointer.
type Session struct {
	id        ID
	appID     string
	createdAt time.Time
	startedAt time.Time

	state State

	requestedDevices  devicemodel.DeviceType
	authorizedDevices devicemodel.DeviceType

	mode        Mode
	captureTier capture.Tier
	captureHandle capture.Handle
	streamIDs   []uint32

	unauthorizedDrops atomic.Int64
	rateLimitedDrops  atomic.Int64
}

// Snapshot is a read-only, point-in-time view of a Session for
// diagnostics; it is a copy and safe to retain past Manager operations.
type Snapshot struct {
	ID                string
	AppID             string
	State             State
	RequestedDevices  devicemodel.DeviceType
	AuthorizedDevices devicemodel.DeviceType
	Mode              Mode
	StreamIDs         []uint32
	CreatedAt         time.Time
	StartedAt         time.Time
	UnauthorizedDrops int64
	RateLimitedDrops  int64
}

func (s *Session) snapshot() Snapshot {
	streamIDs := make([]uint32, len(s.streamIDs))
	copy(streamIDs, s.streamIDs)
	return Snapshot{
		ID:                s.id.String(),
		AppID:             s.appID,
		State:             s.state,
		RequestedDevices:  s.requestedDevices,
		AuthorizedDevices: s.authorizedDevices,
		Mode:              s.mode,
		StreamIDs:         streamIDs,
		CreatedAt:         s.createdAt,
		StartedAt:         s.startedAt,
		UnauthorizedDrops: s.unauthorizedDrops.Load(),
		RateLimitedDrops:  s.rateLimitedDrops.Load(),
	}
}
