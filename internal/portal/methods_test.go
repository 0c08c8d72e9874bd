package portal

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/bnema/waymon/internal/config"
	"github.com/bnema/waymon/internal/consent"
	"github.com/bnema/waymon/internal/devicemodel"
	"github.com/bnema/waymon/internal/ratelimit"
	"github.com/bnema/waymon/internal/session"
	"github.com/bnema/waymon/internal/sink"
)

func newTestEngine(t *testing.T, provider consent.Provider) (*Engine, *sink.NullSink) {
	t.Helper()
	snk := sink.NewNullSink()
	mgr := session.NewManager(session.DefaultMaxSessions, ratelimit.New(ratelimit.DefaultConfig), snk)
	cfg := config.DefaultConfig
	return New(mgr, provider, nil, &cfg), snk
}

func TestHappyPathInputOnlyOverBus(t *testing.T) {
	programmatic := consent.NewProgrammaticProvider()
	programmatic.Enqueue(consent.Result{Outcome: consent.Granted, GrantedDevices: devicemodel.Keyboard | devicemodel.Pointer})

	e, snk := newTestEngine(t, programmatic)
	sessionPath := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/s1")

	code, _, derr := e.CreateSession("/request/1", sessionPath, "test.app", nil)
	if derr != nil || code != ResponseSuccess {
		t.Fatalf("CreateSession: code=%d err=%v", code, derr)
	}

	code, _, derr = e.SelectDevices("/request/1", sessionPath, "test.app", uint32(devicemodel.Keyboard|devicemodel.Pointer), nil)
	if derr != nil || code != ResponseSuccess {
		t.Fatalf("SelectDevices: code=%d err=%v", code, derr)
	}

	code, results, derr := e.Start("/request/1", sessionPath, "test.app", "", nil)
	if derr != nil || code != ResponseSuccess {
		t.Fatalf("Start: code=%d err=%v", code, derr)
	}
	if mode := results["mode"].Value().(string); mode != "input-only" {
		t.Errorf("expected input-only mode (no discovery wired, no tier), got %q", mode)
	}

	derr = e.NotifyPointerMotion(sessionPath, nil, 0.5, -1.25)
	if derr != nil {
		t.Fatalf("NotifyPointerMotion returned error: %v", derr)
	}
	entries := snk.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(entries))
	}
}

func TestStartWithProgrammaticDenyIsCancelled(t *testing.T) {
	programmatic := consent.NewProgrammaticProvider()
	programmatic.Enqueue(consent.Result{Outcome: consent.Denied})

	e, _ := newTestEngine(t, programmatic)
	sessionPath := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/s7")

	if code, _, _ := e.CreateSession("/request/7", sessionPath, "test.app", nil); code != ResponseSuccess {
		t.Fatalf("expected CreateSession success, got %d", code)
	}
	if code, _, _ := e.SelectDevices("/request/7", sessionPath, "test.app", uint32(devicemodel.Pointer), nil); code != ResponseSuccess {
		t.Fatalf("expected SelectDevices success, got %d", code)
	}

	code, _, _ := e.Start("/request/7", sessionPath, "test.app", "", nil)
	if code != ResponseCancelled {
		t.Fatalf("expected ResponseCancelled on deny, got %d", code)
	}

	state, ok := e.sessions.State(string(sessionPath))
	if !ok || state != session.DevicesSelected {
		t.Fatalf("expected session to remain in DevicesSelected, got %v (ok=%v)", state, ok)
	}

	if derr := e.Close(sessionPath); derr != nil {
		t.Fatalf("Close: %v", derr)
	}
}

func TestOutOfRangeKeycodeReturnsInvalidArgument(t *testing.T) {
	programmatic := consent.NewProgrammaticProvider()
	programmatic.Enqueue(consent.Result{Outcome: consent.Granted, GrantedDevices: devicemodel.Keyboard})

	e, snk := newTestEngine(t, programmatic)
	sessionPath := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/s6")

	e.CreateSession("/request/6", sessionPath, "test.app", nil)
	e.SelectDevices("/request/6", sessionPath, "test.app", uint32(devicemodel.Keyboard), nil)
	e.Start("/request/6", sessionPath, "test.app", "", nil)

	derr := e.NotifyKeyboardKeycode(sessionPath, nil, 999, 1)
	if derr == nil || derr.Name != "org.freedesktop.portal.Error.InvalidArgument" {
		t.Fatalf("expected InvalidArgument error, got %v", derr)
	}
	if len(snk.Entries()) != 0 {
		t.Error("expected no event delivered for invalid keycode")
	}

	derr = e.NotifyKeyboardKeycode(sessionPath, nil, 28, 1)
	if derr != nil {
		t.Fatalf("expected valid keycode to succeed, got %v", derr)
	}
	if len(snk.Entries()) != 1 {
		t.Error("expected exactly one delivered event after recovery")
	}
}
