package consent

import (
	"context"

	"github.com/charmbracelet/huh"

	"github.com/bnema/waymon/internal/devicemodel"
	"github.com/bnema/waymon/internal/obs"
)

// Prompter is the out-of-band boundary InteractiveProvider sends a
// request across. The core never talks to a UI toolkit directly — only
// to this interface — so a caller can swap in any prompt surface (TTY,
// desktop dialog, remote UI) without touching the consent package.
// Implementations may block; InteractiveProvider is responsible for
// racing the call against the timeout.
type Prompter interface {
	Prompt(req Request) (devicemodel.DeviceType, bool)
}

// InteractiveProvider drives an out-of-band prompt and resolves with the
// user's choice, or TimedOut once the context deadline passes. It holds
// no per-session state across calls: each RequestConsent spins up its
// own one-shot goroutine, mirroring the teacher's per-connection
// pendingAuth-channel pattern generalized to a single round trip.
type InteractiveProvider struct {
	prompter Prompter
}

// NewInteractiveProvider wires a Prompter; pass NewHuhPrompter() for the
// built-in terminal form.
func NewInteractiveProvider(prompter Prompter) *InteractiveProvider {
	return &InteractiveProvider{prompter: prompter}
}

// RequestConsent implements Provider.
func (p *InteractiveProvider) RequestConsent(ctx context.Context, req Request) Result {
	resultCh := make(chan Result, 1)

	go func() {
		granted, ok := p.prompter.Prompt(req)
		if !ok {
			resultCh <- Result{Outcome: Denied}
			return
		}
		resultCh <- Result{Outcome: Granted, GrantedDevices: clampToRequested(granted, req.RequestedDevices)}
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		obs.Warnf("consent request for session %s timed out waiting on interactive prompt", req.SessionID)
		return Result{Outcome: TimedOut}
	}
}

// HuhPrompter renders the consent request as a terminal form: a confirm
// dialog followed by a device multi-select, using the same form library
// the teacher's setup wizard (cmd/setup.go) already depends on.
type HuhPrompter struct{}

// NewHuhPrompter returns the built-in terminal Prompter.
func NewHuhPrompter() HuhPrompter { return HuhPrompter{} }

// Prompt implements Prompter.
func (HuhPrompter) Prompt(req Request) (devicemodel.DeviceType, bool) {
	var approve bool
	var selected []string

	options := deviceOptions(req.RequestedDevices)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Allow remote control?").
				Description(req.AppID+" is requesting remote input control").
				Affirmative("Allow").
				Negative("Deny").
				Value(&approve),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Devices to authorize").
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		obs.Errorf("consent prompt failed: %v", err)
		return 0, false
	}
	if !approve {
		return 0, false
	}
	return parseSelectedDevices(selected), true
}

func deviceOptions(requested devicemodel.DeviceType) []huh.Option[string] {
	var opts []huh.Option[string]
	if requested.Has(devicemodel.Keyboard) {
		opts = append(opts, huh.NewOption("Keyboard", "keyboard").Selected(true))
	}
	if requested.Has(devicemodel.Pointer) {
		opts = append(opts, huh.NewOption("Pointer", "pointer").Selected(true))
	}
	if requested.Has(devicemodel.Touchscreen) {
		opts = append(opts, huh.NewOption("Touchscreen", "touchscreen").Selected(true))
	}
	return opts
}

func parseSelectedDevices(selected []string) devicemodel.DeviceType {
	var d devicemodel.DeviceType
	for _, s := range selected {
		switch s {
		case "keyboard":
			d |= devicemodel.Keyboard
		case "pointer":
			d |= devicemodel.Pointer
		case "touchscreen":
			d |= devicemodel.Touchscreen
		}
	}
	return d
}
