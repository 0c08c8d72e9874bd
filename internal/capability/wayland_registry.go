package capability

import (
	"context"
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// interestingGlobals maps the Wayland global interface names this
// service cares about to the protocol keys used elsewhere in this
// package (capture tier gating, virtual-input support).
var interestingGlobals = map[string]string{
	"zwp_linux_dmabuf_v1":                  "linux-dmabuf-v1",
	"zwlr_screencopy_manager_v1":           "wlr-screencopy-unstable-v1",
	"ext_image_copy_capture_manager_v1":    "ext-screencopy-image-v1",
	"zwp_virtual_keyboard_manager_v1":      "virtual-keyboard",
	"zwlr_virtual_pointer_manager_v1":      "virtual-pointer",
	"zwp_pointer_constraints_v1":           "virtual-input",
	"wl_shm":                               "wl-shm",
}

// probeWaylandRegistry connects to the real compositor and enumerates
// its advertised globals by listening for one roundtrip of
// wl_registry::global events. It returns an error (rather than a
// degraded result) when no compositor is reachable at all, so the
// caller can fall back to heuristics and record the lower-confidence
// flag.
func probeWaylandRegistry(ctx context.Context) (map[string]bool, error) {
	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("connect to wayland display: %w", err)
	}
	defer display.Context().Close()

	registry, err := display.GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("get wayland registry: %w", err)
	}

	found := map[string]bool{}
	registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		if key, ok := interestingGlobals[e.Interface]; ok {
			found[key] = true
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- display.Context().RoundTrip()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("wayland registry roundtrip: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("wayland registry roundtrip: %w", ctx.Err())
	}

	return found, nil
}
