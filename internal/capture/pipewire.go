package capture

import (
	"context"
	"fmt"
)

// PipeWireTier captures via the xdg-desktop-portal ScreenCast/PipeWire
// path: lowest latency, works in VMs (no GPU needed — PipeWire just
// needs the compositor's own screencast support and a running
// pipewire-session-manager), and is always tried first.
type PipeWireTier struct {
	env Environment
}

func NewPipeWireTier(env Environment) *PipeWireTier { return &PipeWireTier{env: env} }

func (t *PipeWireTier) Describe() Info {
	return Info{Kind: PipeWire, LatencyClass: Low, CPUCost: Low, WorksInVM: true, RequiresGPU: false}
}

func (t *PipeWireTier) Prepare(_ context.Context, sessionID string) (Handle, error) {
	if !t.env.HasPipeWireSocket || !t.env.HasPortalBusName {
		return nil, fmt.Errorf("%w: no pipewire socket or portal bus name advertised", ErrUnavailable)
	}
	streamID := allocStreamID()
	return newHandle([]uint32{streamID}, func() error {
		// Releasing a PipeWire stream means closing the node the
		// compositor opened for sessionID; the actual pw_stream
		// lifecycle is owned by the out-of-scope pixel transport.
		_ = sessionID
		return nil
	}), nil
}
