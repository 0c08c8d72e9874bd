package capture

import (
	"context"
	"fmt"
)

// ShmTier captures via wl_shm + wlr-screencopy: works without a GPU
// (software-only framebuffer copy into shared memory), so it works in
// VMs, at a higher CPU cost than the hardware tiers.
type ShmTier struct {
	env Environment
}

func NewShmTier(env Environment) *ShmTier { return &ShmTier{env: env} }

func (t *ShmTier) Describe() Info {
	return Info{Kind: Shm, LatencyClass: Medium, CPUCost: Medium, WorksInVM: true, RequiresGPU: false}
}

func (t *ShmTier) Prepare(_ context.Context, sessionID string) (Handle, error) {
	if !t.env.HasWlShm || !t.env.HasScreencopy {
		return nil, fmt.Errorf("%w: wl_shm or screencopy protocol not available", ErrUnavailable)
	}
	streamID := allocStreamID()
	return newHandle([]uint32{streamID}, func() error {
		_ = sessionID
		return nil
	}), nil
}
