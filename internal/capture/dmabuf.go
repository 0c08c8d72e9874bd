package capture

import (
	"context"
	"fmt"
)

// DmabufTier captures via GPU buffer sharing (linux-dmabuf /
// wlr-export-dmabuf). It requires a real GPU and therefore refuses to
// prepare under virtualization, per spec.md §4.6's "a tier that cannot
// [operate in VMs] MUST refuse to prepare".
type DmabufTier struct {
	env Environment
}

func NewDmabufTier(env Environment) *DmabufTier { return &DmabufTier{env: env} }

func (t *DmabufTier) Describe() Info {
	return Info{Kind: Dmabuf, LatencyClass: Low, CPUCost: Low, WorksInVM: false, RequiresGPU: true}
}

func (t *DmabufTier) Prepare(_ context.Context, sessionID string) (Handle, error) {
	if t.env.IsVirtualized {
		return nil, fmt.Errorf("%w: dmabuf requires real GPU hardware, environment is virtualized", ErrUnavailable)
	}
	if !t.env.GPUPresent {
		return nil, fmt.Errorf("%w: no GPU device node detected", ErrUnavailable)
	}
	if t.env.DmabufVersion < RequiredDmabufVersion {
		return nil, fmt.Errorf("%w: linux-dmabuf version %d below required %d", ErrUnavailable, t.env.DmabufVersion, RequiredDmabufVersion)
	}
	streamID := allocStreamID()
	return newHandle([]uint32{streamID}, func() error {
		_ = sessionID
		return nil
	}), nil
}
