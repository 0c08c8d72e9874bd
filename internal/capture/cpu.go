package capture

import (
	"context"
	"fmt"
)

// CPUTier is the last-resort fallback: a CPU-side framebuffer copy with
// no compositor protocol support required beyond whatever the
// environment probe found (e.g. a legacy X11 fallback path or a
// debug/headless framebuffer). Highest CPU cost, highest latency.
type CPUTier struct {
	env Environment
}

func NewCPUTier(env Environment) *CPUTier { return &CPUTier{env: env} }

func (t *CPUTier) Describe() Info {
	return Info{Kind: Cpu, LatencyClass: High, CPUCost: High, WorksInVM: true, RequiresGPU: false}
}

func (t *CPUTier) Prepare(_ context.Context, sessionID string) (Handle, error) {
	if !t.env.HasCPUFramebuffer {
		return nil, fmt.Errorf("%w: no framebuffer fallback access available", ErrUnavailable)
	}
	streamID := allocStreamID()
	return newHandle([]uint32{streamID}, func() error {
		_ = sessionID
		return nil
	}), nil
}
