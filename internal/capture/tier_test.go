package capture

import (
	"context"
	"errors"
	"testing"
)

func TestSelectPrefersHighestPriorityAvailable(t *testing.T) {
	env := Environment{
		HasPipeWireSocket: true,
		HasPortalBusName:  true,
		GPUPresent:        true,
		DmabufVersion:     RequiredDmabufVersion,
		HasWlShm:          true,
		HasScreencopy:     true,
		HasCPUFramebuffer: true,
	}
	tiers := NewDefaultTiers(env, "auto")

	tier, handle, err := Select(context.Background(), tiers, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier.Describe().Kind != PipeWire {
		t.Errorf("expected PipeWire chosen first, got %v", tier.Describe().Kind)
	}
	if len(handle.StreamIDs()) == 0 {
		t.Error("expected at least one stream id")
	}
}

func TestSelectFallsBackWhenPipeWireUnavailable(t *testing.T) {
	env := Environment{
		IsVirtualized:     true,
		HasWlShm:          true,
		HasScreencopy:     true,
		HasCPUFramebuffer: true,
	}
	tiers := NewDefaultTiers(env, "auto")

	tier, _, err := Select(context.Background(), tiers, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier.Describe().Kind != Shm {
		t.Errorf("expected fallback to Shm (dmabuf refuses in VM), got %v", tier.Describe().Kind)
	}
}

func TestSelectReturnsErrorWhenNothingAvailable(t *testing.T) {
	tiers := NewDefaultTiers(Environment{}, "auto")
	tier, handle, err := Select(context.Background(), tiers, "s1")
	if err == nil {
		t.Fatal("expected an error when no tier can prepare")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable in chain, got %v", err)
	}
	if tier != nil || handle != nil {
		t.Error("expected nil tier and handle on failure")
	}
}

func TestDmabufRefusesInVM(t *testing.T) {
	tier := NewDmabufTier(Environment{IsVirtualized: true, GPUPresent: true, DmabufVersion: RequiredDmabufVersion})
	_, err := tier.Prepare(context.Background(), "s1")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for dmabuf in VM, got %v", err)
	}
}

func TestTierOverrideRestrictsSelection(t *testing.T) {
	env := Environment{HasWlShm: true, HasScreencopy: true, HasCPUFramebuffer: true}
	tiers := NewDefaultTiers(env, "cpu")
	tier, _, err := Select(context.Background(), tiers, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier.Describe().Kind != Cpu {
		t.Errorf("expected override to force Cpu tier, got %v", tier.Describe().Kind)
	}
}

func TestHandleReleaseIsIdempotent(t *testing.T) {
	calls := 0
	h := newHandle([]uint32{1}, func() error {
		calls++
		return nil
	})
	if err := h.Release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("unexpected error on second release: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected teardown called exactly once, got %d", calls)
	}
}
