package capability

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/bnema/waymon/internal/obs"
)

// defaultProbes wires the real, environment/bus-backed probe functions.
func defaultProbes() Probes {
	return Probes{
		DisplayServer:    probeDisplayServer,
		Virtualized:      probeVirtualized,
		GPUVendor:        probeGPUVendor,
		PipeWireSocket:   probePipeWireSocket,
		PortalBusName:    probePortalBusName,
		WaylandProtocols: probeWaylandProtocols,
	}
}

// probeDisplayServer checks the Wayland display hint first (this
// service's native compositor), falling back to the X11 hint.
func probeDisplayServer() DisplayServer {
	if v := os.Getenv("WAYLAND_DISPLAY"); v != "" {
		return DisplayServerWayland
	}
	if v := os.Getenv("DISPLAY"); v != "" {
		return DisplayServerX11
	}
	return DisplayServerNone
}

// probeVirtualized looks for hypervisor signatures in /proc/cpuinfo and
// the absence of any GPU vendor device node, matching spec.md §4.5 step
// 2's two-signal heuristic.
func probeVirtualized() bool {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		obs.Debugf("capability: cannot read /proc/cpuinfo: %v", err)
		return probeGPUVendor() == ""
	}
	content := strings.ToLower(string(data))
	if strings.Contains(content, "hypervisor") {
		return true
	}
	return probeGPUVendor() == ""
}

var gpuVendorNodes = map[string]string{
	"i915":       "intel",
	"amdgpu":     "amd",
	"radeon":     "amd",
	"nvidia":     "nvidia",
	"nouveau":    "nvidia",
	"virtio_gpu": "virtio",
	"virtio-gpu": "virtio",
}

// probeGPUVendor scans for vendor-tagged device nodes under
// /sys/class/drm, returning the short vendor tag or "" if none are
// present (which probeVirtualized treats as a virtualization signal).
func probeGPUVendor() string {
	entries, err := os.ReadDir("/sys/class/drm")
	if err != nil {
		obs.Debugf("capability: cannot read /sys/class/drm: %v", err)
		return ""
	}
	for _, entry := range entries {
		driverLink := filepath.Join("/sys/class/drm", entry.Name(), "device", "driver")
		target, err := os.Readlink(driverLink)
		if err != nil {
			continue
		}
		driver := filepath.Base(target)
		if vendor, ok := gpuVendorNodes[driver]; ok {
			return vendor
		}
	}
	return ""
}

// probePipeWireSocket checks for the pipewire-0 socket in the user
// runtime directory.
func probePipeWireSocket() bool {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, "pipewire-0"))
	return err == nil && info.Mode()&os.ModeSocket != 0
}

// probePortalBusName asks the session bus whether
// org.freedesktop.portal.Desktop has an owner. Any failure to connect or
// query degrades to false rather than propagating an error, per spec.md
// §4.5's "unknown/unresolved probes MUST degrade to false/None".
func probePortalBusName(ctx context.Context) bool {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		obs.Debugf("capability: session bus unavailable: %v", err)
		return false
	}
	defer conn.Close()

	var owned bool
	err = conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, "org.freedesktop.portal.Desktop").Store(&owned)
	if err != nil {
		obs.Debugf("capability: NameHasOwner probe failed: %v", err)
		return false
	}
	return owned
}

// probeWaylandProtocols enumerates the compositor's advertised Wayland
// globals via the registry when a live connection is possible; where it
// is not (no compositor to connect to, e.g. headless CI), it falls back
// to the documented heuristic: infer dmabuf/screencopy support from
// display-server presence and GPU vendor, recording the result as
// lower-confidence via the heuristic return value.
func probeWaylandProtocols(ctx context.Context) (map[string]bool, bool) {
	protocols, err := probeWaylandRegistry(ctx)
	if err == nil {
		return protocols, false
	}
	obs.Debugf("capability: live Wayland registry probe unavailable, falling back to heuristics: %v", err)
	return heuristicWaylandProtocols(), true
}

// heuristicWaylandProtocols infers a plausible protocol set from the
// signals already collected. Without a Wayland display it returns an
// empty set. On Wayland it assumes the virtual-input protocols for
// synthesized input, wlr-screencopy and the CPU framebuffer fallback;
// linux-dmabuf is added only for a non-virtualized session with a
// detected GPU vendor.
func heuristicWaylandProtocols() map[string]bool {
	out := map[string]bool{}
	if probeDisplayServer() != DisplayServerWayland {
		return out
	}
	out["virtual-input"] = true
	out["virtual-keyboard"] = true
	out["virtual-pointer"] = true
	out["cpu-framebuffer-fallback"] = true
	if !probeVirtualized() && probeGPUVendor() != "" {
		out["linux-dmabuf-v1"] = true
	}
	out["wlr-screencopy-unstable-v1"] = true
	return out
}
