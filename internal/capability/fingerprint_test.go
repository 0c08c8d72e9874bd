package capability

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/waymon/internal/capture"
	"github.com/bnema/waymon/internal/devicemodel"
)

func fakeProbes(fp Fingerprint) Probes {
	return Probes{
		DisplayServer:  func() DisplayServer { return fp.DisplayServer },
		Virtualized:    func() bool { return fp.IsVirtualized },
		GPUVendor:      func() string { return fp.GPUVendor },
		PipeWireSocket: func() bool { return fp.HasPipeWireSocket },
		PortalBusName:  func(ctx context.Context) bool { return fp.HasPortalBusName },
		WaylandProtocols: func(ctx context.Context) (map[string]bool, bool) {
			return fp.SupportedWaylandProtocols, fp.HeuristicProtocolSet
		},
	}
}

func TestBestCaptureTierPrefersPipeWire(t *testing.T) {
	d := NewWithProbes(50*time.Millisecond, fakeProbes(Fingerprint{
		DisplayServer:             DisplayServerWayland,
		HasPipeWireSocket:         true,
		HasPortalBusName:          true,
		SupportedWaylandProtocols: map[string]bool{"linux-dmabuf-v1": true},
	}))
	d.Refresh(context.Background())

	kind, ok := d.BestCaptureTier()
	if !ok || kind != capture.PipeWire {
		t.Fatalf("expected PipeWire, got kind=%v ok=%v", kind, ok)
	}
}

func TestBestCaptureTierFallsBackToShmInVM(t *testing.T) {
	d := NewWithProbes(50*time.Millisecond, fakeProbes(Fingerprint{
		DisplayServer:             DisplayServerWayland,
		IsVirtualized:             true,
		SupportedWaylandProtocols: map[string]bool{"wlr-screencopy-unstable-v1": true},
	}))
	d.Refresh(context.Background())

	kind, ok := d.BestCaptureTier()
	if !ok || kind != capture.Shm {
		t.Fatalf("expected Shm, got kind=%v ok=%v", kind, ok)
	}
}

func TestBestCaptureTierNoneWhenNothingAvailable(t *testing.T) {
	d := NewWithProbes(50*time.Millisecond, fakeProbes(Fingerprint{
		DisplayServer: DisplayServerNone,
	}))
	d.Refresh(context.Background())

	_, ok := d.BestCaptureTier()
	if ok {
		t.Fatal("expected no tier available")
	}
}

func TestSupportsVirtualInputPermitsInputOnly(t *testing.T) {
	d := NewWithProbes(50*time.Millisecond, fakeProbes(Fingerprint{
		DisplayServer:             DisplayServerWayland,
		SupportedWaylandProtocols: map[string]bool{"virtual-pointer": true},
	}))
	d.Refresh(context.Background())

	if !d.Supports(devicemodel.Pointer) {
		t.Error("expected pointer support via virtual-pointer protocol")
	}
}

func TestFingerprintIsIdempotentWithoutRefresh(t *testing.T) {
	d := NewWithProbes(50*time.Millisecond, fakeProbes(Fingerprint{
		DisplayServer:             DisplayServerWayland,
		GPUVendor:                 "intel",
		SupportedWaylandProtocols: map[string]bool{"linux-dmabuf-v1": true},
	}))
	d.Refresh(context.Background())

	a := d.Fingerprint()
	b := d.Fingerprint()
	if a.DisplayServer != b.DisplayServer || a.GPUVendor != b.GPUVendor || len(a.SupportedWaylandProtocols) != len(b.SupportedWaylandProtocols) {
		t.Error("expected two successive Fingerprint() calls to be identical without an intervening Refresh")
	}
}

func TestAvailableDeviceTypesReflectsCapabilityNotGrants(t *testing.T) {
	d := NewWithProbes(50*time.Millisecond, fakeProbes(Fingerprint{
		DisplayServer: DisplayServerWayland,
		SupportedWaylandProtocols: map[string]bool{
			"virtual-keyboard": true,
			"virtual-pointer":  true,
		},
	}))
	d.Refresh(context.Background())

	got := d.AvailableDeviceTypes()
	want := devicemodel.Keyboard | devicemodel.Pointer
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}
