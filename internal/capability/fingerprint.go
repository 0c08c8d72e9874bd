// Package capability performs the portal's one-time (and
// explicit-refresh) environment probing: display server, virtualization,
// GPU vendor, PipeWire socket, portal bus name and Wayland protocol set.
// It owns the resulting fingerprint behind a read-mostly lock and
// translates it into the capture package's Environment for tier
// selection, without capture importing this package back.
package capability

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/waymon/internal/capture"
	"github.com/bnema/waymon/internal/devicemodel"
	"github.com/bnema/waymon/internal/obs"
)

// DisplayServer classifies which display protocol the probe found.
type DisplayServer int

const (
	DisplayServerNone DisplayServer = iota
	DisplayServerWayland
	DisplayServerX11
)

func (d DisplayServer) String() string {
	switch d {
	case DisplayServerWayland:
		return "wayland"
	case DisplayServerX11:
		return "x11"
	default:
		return "none"
	}
}

// DefaultProbeBudget matches spec.md §6.3's probe.budget_ms default.
const DefaultProbeBudget = 500 * time.Millisecond

// Fingerprint is the immutable snapshot produced by a probe run. Two
// successive Fingerprint() calls without an intervening Refresh return
// byte-identical values (spec.md §8 invariant 8), since Fingerprint
// returns the same stored value rather than re-probing.
type Fingerprint struct {
	DisplayServer            DisplayServer
	IsVirtualized             bool
	GPUVendor                 string
	HasPipeWireSocket         bool
	HasPortalBusName          bool
	SupportedWaylandProtocols map[string]bool
	HeuristicProtocolSet      bool // true when protocols were inferred, not live-queried
	ProbedAt                  time.Time
}

func (f Fingerprint) protocolSet() map[string]bool {
	out := make(map[string]bool, len(f.SupportedWaylandProtocols))
	for k, v := range f.SupportedWaylandProtocols {
		out[k] = v
	}
	return out
}

// Discovery owns the fingerprint and the probes that produce it.
type Discovery struct {
	mu          sync.RWMutex
	fingerprint Fingerprint

	probeBudget time.Duration
	probes      Probes
}

// Probes is the set of probe functions Discovery calls; swappable for
// tests so probing doesn't depend on the real filesystem or a real bus.
type Probes struct {
	DisplayServer     func() DisplayServer
	Virtualized       func() bool
	GPUVendor         func() string
	PipeWireSocket    func() bool
	PortalBusName     func(ctx context.Context) bool
	WaylandProtocols  func(ctx context.Context) (protocols map[string]bool, heuristic bool)
}

// New constructs a Discovery with the real, filesystem/bus-backed
// probes. probeBudget <= 0 falls back to DefaultProbeBudget.
func New(probeBudget time.Duration) *Discovery {
	if probeBudget <= 0 {
		probeBudget = DefaultProbeBudget
	}
	return &Discovery{
		probeBudget: probeBudget,
		probes:      defaultProbes(),
	}
}

// NewWithProbes is used by tests to inject fake probes.
func NewWithProbes(probeBudget time.Duration, probes Probes) *Discovery {
	if probeBudget <= 0 {
		probeBudget = DefaultProbeBudget
	}
	return &Discovery{probeBudget: probeBudget, probes: probes}
}

// Refresh re-runs every probe and atomically swaps in the new
// fingerprint. The portal bus-name and Wayland-protocol probes run under
// the configured probe budget; one that does not complete in time
// degrades to false (bus name) or an empty, heuristic-flagged protocol
// set rather than blocking the caller or returning an error. The
// display-server, virtualization, GPU-vendor and PipeWire probes are
// local environment/filesystem reads and run without that bound.
func (d *Discovery) Refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, d.probeBudget)
	defer cancel()

	fp := Fingerprint{
		DisplayServer:     d.probes.DisplayServer(),
		IsVirtualized:     d.probes.Virtualized(),
		GPUVendor:         d.probes.GPUVendor(),
		HasPipeWireSocket: d.probes.PipeWireSocket(),
		ProbedAt:          time.Now(),
	}

	fp.HasPortalBusName = d.boundedBusProbe(ctx)
	protocols, heuristic := d.boundedProtocolProbe(ctx)
	fp.SupportedWaylandProtocols = protocols
	fp.HeuristicProtocolSet = heuristic

	d.mu.Lock()
	d.fingerprint = fp
	d.mu.Unlock()

	obs.Debugf("capability: refreshed fingerprint display=%s virtualized=%v gpu=%q pipewire=%v portal=%v heuristic_protocols=%v",
		fp.DisplayServer, fp.IsVirtualized, fp.GPUVendor, fp.HasPipeWireSocket, fp.HasPortalBusName, fp.HeuristicProtocolSet)
}

func (d *Discovery) boundedBusProbe(ctx context.Context) bool {
	type result struct{ ok bool }
	ch := make(chan result, 1)
	go func() { ch <- result{d.probes.PortalBusName(ctx)} }()
	select {
	case r := <-ch:
		return r.ok
	case <-ctx.Done():
		return false
	}
}

func (d *Discovery) boundedProtocolProbe(ctx context.Context) (map[string]bool, bool) {
	type result struct {
		protocols map[string]bool
		heuristic bool
	}
	ch := make(chan result, 1)
	go func() {
		p, h := d.probes.WaylandProtocols(ctx)
		ch <- result{p, h}
	}()
	select {
	case r := <-ch:
		return r.protocols, r.heuristic
	case <-ctx.Done():
		return map[string]bool{}, true
	}
}

// Fingerprint returns the current snapshot. It does not probe.
func (d *Discovery) Fingerprint() Fingerprint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fp := d.fingerprint
	fp.SupportedWaylandProtocols = fp.protocolSet()
	return fp
}

// BestCaptureTier implements spec.md §4.5's best_capture_tier query: the
// highest-priority tier kind whose preconditions the fingerprint
// satisfies, or ok=false if none do (the returned Kind is then the zero
// value and carries no meaning).
func (d *Discovery) BestCaptureTier() (capture.Kind, bool) {
	fp := d.Fingerprint()
	env := fp.ToCaptureEnvironment()

	switch {
	case env.HasPipeWireSocket && env.HasPortalBusName:
		return capture.PipeWire, true
	case env.GPUPresent && env.DmabufVersion >= capture.RequiredDmabufVersion && !env.IsVirtualized:
		return capture.Dmabuf, true
	case env.HasWlShm && env.HasScreencopy:
		return capture.Shm, true
	case env.HasCPUFramebuffer:
		return capture.Cpu, true
	default:
		return 0, false
	}
}

// Supports reports whether the environment can deliver the given device
// class to the compositor at all, independent of capture — it is
// typically true whenever a virtual-input protocol is present, which
// permits InputOnly sessions even when BestCaptureTier found nothing.
// virtual-keyboard covers Keyboard, virtual-pointer covers Pointer, and
// the generic virtual-input key covers all three classes.
func (d *Discovery) Supports(device devicemodel.DeviceType) bool {
	fp := d.Fingerprint()
	if fp.DisplayServer == DisplayServerNone {
		return false
	}
	var supported devicemodel.DeviceType
	if fp.SupportedWaylandProtocols["virtual-input"] {
		supported = devicemodel.AllDevices
	}
	if fp.SupportedWaylandProtocols["virtual-keyboard"] {
		supported |= devicemodel.Keyboard
	}
	if fp.SupportedWaylandProtocols["virtual-pointer"] {
		supported |= devicemodel.Pointer
	}
	return !supported.Empty() && device.Subset(supported)
}

// AvailableDeviceTypes derives the portal's AvailableDeviceTypes bus
// property from compositor capability rather than any session's live
// grants (an explicit, deliberate Open Question resolution: see
// DESIGN.md).
func (d *Discovery) AvailableDeviceTypes() devicemodel.DeviceType {
	var out devicemodel.DeviceType
	if d.Supports(devicemodel.Keyboard) {
		out |= devicemodel.Keyboard
	}
	if d.Supports(devicemodel.Pointer) {
		out |= devicemodel.Pointer
	}
	if d.Supports(devicemodel.Touchscreen) {
		out |= devicemodel.Touchscreen
	}
	return out
}

// ToCaptureEnvironment converts a Fingerprint into the self-contained
// capture.Environment the tier contract consumes, keeping capture free
// of any dependency on this package.
func (f Fingerprint) ToCaptureEnvironment() capture.Environment {
	dmabufVersion := 0
	if f.SupportedWaylandProtocols["linux-dmabuf-v1"] {
		dmabufVersion = capture.RequiredDmabufVersion
	}
	return capture.Environment{
		IsVirtualized:     f.IsVirtualized,
		GPUPresent:        f.GPUVendor != "" && f.GPUVendor != "virtio",
		DmabufVersion:     dmabufVersion,
		HasPipeWireSocket: f.HasPipeWireSocket,
		HasPortalBusName:  f.HasPortalBusName,
		HasWlShm:          f.DisplayServer == DisplayServerWayland,
		HasScreencopy:     f.SupportedWaylandProtocols["wlr-screencopy-unstable-v1"] || f.SupportedWaylandProtocols["ext-screencopy-image-v1"],
		HasCPUFramebuffer: f.SupportedWaylandProtocols["cpu-framebuffer-fallback"] || f.DisplayServer != DisplayServerNone,
	}
}
