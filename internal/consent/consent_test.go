package consent

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/waymon/internal/devicemodel"
)

func TestAutoApproverGrantsRequested(t *testing.T) {
	req := Request{SessionID: "s1", RequestedDevices: devicemodel.Keyboard | devicemodel.Pointer}
	result := AutoApprover{}.RequestConsent(context.Background(), req)

	if result.Outcome != Granted {
		t.Fatalf("expected Granted, got %v", result.Outcome)
	}
	if result.GrantedDevices != req.RequestedDevices {
		t.Errorf("expected all requested devices granted, got %v", result.GrantedDevices)
	}
}

func TestProgrammaticProviderDeniesWhenEmpty(t *testing.T) {
	p := NewProgrammaticProvider()
	result := p.RequestConsent(context.Background(), Request{SessionID: "s1"})
	if result.Outcome != Denied {
		t.Errorf("expected Denied on empty queue, got %v", result.Outcome)
	}
}

func TestProgrammaticProviderFIFO(t *testing.T) {
	p := NewProgrammaticProvider()
	p.Enqueue(Result{Outcome: Granted, GrantedDevices: devicemodel.Pointer})
	p.Enqueue(Result{Outcome: Denied})

	req := Request{SessionID: "s1", RequestedDevices: devicemodel.Keyboard | devicemodel.Pointer}

	first := p.RequestConsent(context.Background(), req)
	if first.Outcome != Granted || first.GrantedDevices != devicemodel.Pointer {
		t.Errorf("unexpected first result: %+v", first)
	}

	second := p.RequestConsent(context.Background(), req)
	if second.Outcome != Denied {
		t.Errorf("unexpected second result: %+v", second)
	}
}

func TestProgrammaticProviderClampsGrantedToRequested(t *testing.T) {
	p := NewProgrammaticProvider()
	p.Enqueue(Result{Outcome: Granted, GrantedDevices: devicemodel.Keyboard | devicemodel.Pointer | devicemodel.Touchscreen})

	req := Request{SessionID: "s1", RequestedDevices: devicemodel.Pointer}
	result := p.RequestConsent(context.Background(), req)

	if result.GrantedDevices != devicemodel.Pointer {
		t.Errorf("expected granted clamped to %v, got %v", devicemodel.Pointer, result.GrantedDevices)
	}
}

func TestProgrammaticProviderPinnedBySession(t *testing.T) {
	p := NewProgrammaticProvider()
	p.Enqueue(Result{Outcome: Denied})
	p.EnqueueFor("s1", Result{Outcome: Granted, GrantedDevices: devicemodel.Keyboard})

	req := Request{SessionID: "s1", RequestedDevices: devicemodel.Keyboard}
	result := p.RequestConsent(context.Background(), req)

	if result.Outcome != Granted {
		t.Errorf("expected pinned session answer to take priority, got %v", result.Outcome)
	}
}

type blockingPrompter struct{ done chan struct{} }

func (b blockingPrompter) Prompt(Request) (devicemodel.DeviceType, bool) {
	<-b.done
	return devicemodel.Pointer, true
}

func TestInteractiveProviderTimesOut(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	provider := NewInteractiveProvider(blockingPrompter{done: done})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := provider.RequestConsent(ctx, Request{SessionID: "s1", RequestedDevices: devicemodel.Pointer})
	if result.Outcome != TimedOut {
		t.Errorf("expected TimedOut, got %v", result.Outcome)
	}
}

type immediatePrompter struct {
	granted devicemodel.DeviceType
	ok      bool
}

func (p immediatePrompter) Prompt(Request) (devicemodel.DeviceType, bool) { return p.granted, p.ok }

func TestInteractiveProviderGrantResolves(t *testing.T) {
	provider := NewInteractiveProvider(immediatePrompter{granted: devicemodel.Keyboard, ok: true})
	result := provider.RequestConsent(context.Background(), Request{SessionID: "s1", RequestedDevices: devicemodel.Keyboard | devicemodel.Pointer})

	if result.Outcome != Granted || result.GrantedDevices != devicemodel.Keyboard {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestInteractiveProviderDenyResolves(t *testing.T) {
	provider := NewInteractiveProvider(immediatePrompter{ok: false})
	result := provider.RequestConsent(context.Background(), Request{SessionID: "s1"})
	if result.Outcome != Denied {
		t.Errorf("expected Denied, got %v", result.Outcome)
	}
}
