// Package capture defines the capture-tier contract: the abstract
// interface and per-tier metadata that the portal uses to pick a screen
// capture strategy. Pixel streaming itself is out of scope — a Handle is
// an opaque token bound to a session that surrenders stream ids, never
// a decoder.
package capture

import (
	"context"
	"errors"
	"fmt"
)

// Kind names a capture strategy, ordered from highest to lowest
// priority when multiple are available.
type Kind int

const (
	PipeWire Kind = iota
	Dmabuf
	Shm
	Cpu
)

func (k Kind) String() string {
	switch k {
	case PipeWire:
		return "pipewire"
	case Dmabuf:
		return "dmabuf"
	case Shm:
		return "shm"
	case Cpu:
		return "cpu"
	default:
		return "unknown"
	}
}

// Cost is a coarse, three-value classification used for latency and CPU
// cost, per spec.md §3.
type Cost int

const (
	Low Cost = iota
	Medium
	High
)

// Info is a tier's static metadata, independent of any session.
type Info struct {
	Kind         Kind
	LatencyClass Cost
	CPUCost      Cost
	WorksInVM    bool
	RequiresGPU  bool
}

// Handle is the opaque, session-bound result of a successful Prepare.
// Destroying it (Release) must free every tier-specific resource (bus
// subscriptions, file descriptors, buffers). It holds no reference back
// to the session beyond the id used to create it, avoiding the back-edge
// spec.md §9 calls out.
type Handle interface {
	StreamIDs() []uint32
	Release() error
}

// ErrUnavailable is returned by Prepare when the tier cannot operate in
// the current environment (e.g. a GPU tier asked to run in a VM).
var ErrUnavailable = errors.New("capture tier unavailable")

// Tier is the per-strategy contract: describe, and attempt to prepare
// for a given session. prepare failing is an ordinary, expected outcome
// (Select tries the next tier), not exceptional.
type Tier interface {
	Describe() Info
	Prepare(ctx context.Context, sessionID string) (Handle, error)
}

// Environment is the subset of the capability fingerprint (internal
// /capability) that tier selection needs. Defined here, rather than
// imported from capability, so this package has no dependency on the
// discovery engine — capability.Fingerprint is converted to Environment
// at the call site.
type Environment struct {
	IsVirtualized     bool
	GPUPresent        bool
	DmabufVersion     int
	HasPipeWireSocket bool
	HasPortalBusName  bool
	HasWlShm          bool
	HasScreencopy     bool
	HasCPUFramebuffer bool
}

// RequiredDmabufVersion is the minimum linux-dmabuf protocol version the
// Dmabuf tier requires to operate.
const RequiredDmabufVersion = 4

// Select tries tiers in priority order and returns the first whose
// Prepare succeeds, per spec.md §4.6. Callers are expected to pass
// tiers already ordered PipeWire, Dmabuf, Shm, Cpu (NewDefaultTiers does
// this). If every tier fails, Select returns a nil Tier/Handle and the
// last error seen, leaving mode derivation (InputOnly/None) to the
// caller.
func Select(ctx context.Context, tiers []Tier, sessionID string) (Tier, Handle, error) {
	var lastErr error
	for _, tier := range tiers {
		handle, err := tier.Prepare(ctx, sessionID)
		if err == nil {
			return tier, handle, nil
		}
		lastErr = fmt.Errorf("%s: %w", tier.Describe().Kind, err)
	}
	if lastErr == nil {
		lastErr = ErrUnavailable
	}
	return nil, nil, lastErr
}

// NewDefaultTiers builds the priority-ordered tier list for env,
// applying tierOverride (empty string or "auto" means no override).
func NewDefaultTiers(env Environment, tierOverride string) []Tier {
	all := []Tier{
		NewPipeWireTier(env),
		NewDmabufTier(env),
		NewShmTier(env),
		NewCPUTier(env),
	}
	switch tierOverride {
	case "", "auto":
		return all
	case "pipewire":
		return []Tier{NewPipeWireTier(env)}
	case "dmabuf":
		return []Tier{NewDmabufTier(env)}
	case "shm":
		return []Tier{NewShmTier(env)}
	case "cpu":
		return []Tier{NewCPUTier(env)}
	case "none":
		return nil
	default:
		return all
	}
}
