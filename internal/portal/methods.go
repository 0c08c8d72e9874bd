package portal

import (
	"context"
	"errors"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bnema/waymon/internal/capture"
	"github.com/bnema/waymon/internal/consent"
	"github.com/bnema/waymon/internal/devicemodel"
	"github.com/bnema/waymon/internal/obs"
	"github.com/bnema/waymon/internal/session"
)

const defaultConsentTimeout = 30 * time.Second

// CreateSession implements the portal's session-creation method.
// handle is the request object path (unused beyond the calling
// convention); sessionHandle identifies the session itself and is used
// verbatim as the session manager's session id.
func (e *Engine) CreateSession(handle, sessionHandle dbus.ObjectPath, appID string, _ map[string]dbus.Variant) (uint32, map[string]dbus.Variant, *dbus.Error) {
	sessionID := string(sessionHandle)
	obs.NotifyActivity("METHOD", "CreateSession "+sessionID)
	if sessionID == "" || appID == "" {
		return ResponseCancelled, map[string]dbus.Variant{}, nil
	}

	err := e.sessions.Create(sessionID, appID)
	switch {
	case err == nil:
		obs.Infof("portal: session %s created for %s", sessionID, appID)
		return ResponseSuccess, map[string]dbus.Variant{}, nil
	case errors.Is(err, session.ErrCapacityExceeded):
		return ResponseFailed, map[string]dbus.Variant{}, nil
	default:
		return ResponseCancelled, map[string]dbus.Variant{}, nil
	}
}

// SelectDevices stores the requested device mask and transitions
// Created→DevicesSelected. It does not prompt consent.
func (e *Engine) SelectDevices(handle, sessionHandle dbus.ObjectPath, appID string, devices uint32, _ map[string]dbus.Variant) (uint32, map[string]dbus.Variant, *dbus.Error) {
	sessionID := string(sessionHandle)
	obs.NotifyActivity("METHOD", "SelectDevices "+sessionID)
	lock := e.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	err := e.sessions.SelectDevices(sessionID, devicemodel.DeviceType(devices))
	switch {
	case err == nil:
		return ResponseSuccess, map[string]dbus.Variant{}, nil
	case errors.Is(err, session.ErrNotFound):
		return ResponseFailed, map[string]dbus.Variant{}, nil
	default:
		return ResponseCancelled, map[string]dbus.Variant{}, nil
	}
}

// Start runs the full consent → authorize → tier-selection sequence
// described by spec.md §4.7 and transitions the session to Started.
func (e *Engine) Start(handle, sessionHandle dbus.ObjectPath, appID, parentWindow string, _ map[string]dbus.Variant) (uint32, map[string]dbus.Variant, *dbus.Error) {
	sessionID := string(sessionHandle)
	obs.NotifyActivity("METHOD", "Start "+sessionID)
	lock := e.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	snap, ok := e.sessions.Snapshot(sessionID)
	if !ok {
		return ResponseFailed, map[string]dbus.Variant{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.consentTimeout())
	e.registerCancel(sessionID, cancel)
	defer e.clearCancel(sessionID)
	defer cancel()

	result := e.consentSrc.RequestConsent(ctx, consent.Request{
		SessionID:        sessionID,
		AppID:            appID,
		RequestedDevices: snap.RequestedDevices,
		IncludeCapture:   true,
		ParentWindow:     parentWindow,
	})
	if result.Outcome != consent.Granted {
		obs.Infof("portal: session %s consent %v, start cancelled", sessionID, result.Outcome)
		return ResponseCancelled, map[string]dbus.Variant{}, nil
	}

	granted := result.GrantedDevices & snap.RequestedDevices

	var (
		handleResult capture.Handle
		tier         capture.Tier
	)
	tiers := e.captureTiers()
	if len(tiers) > 0 {
		selected, h, err := capture.Select(ctx, tiers, sessionID)
		if err == nil {
			tier, handleResult = selected, h
		} else {
			obs.Debugf("portal: session %s found no capture tier: %v", sessionID, err)
		}
	}

	if err := e.sessions.Authorize(sessionID, granted, tier, handleResult); err != nil {
		if handleResult != nil {
			_ = handleResult.Release()
		}
		return ResponseFailed, map[string]dbus.Variant{}, nil
	}

	final, _ := e.sessions.Snapshot(sessionID)

	streams := make([]dbus.Variant, 0, len(final.StreamIDs))
	for _, id := range final.StreamIDs {
		streams = append(streams, dbus.MakeVariant(map[string]dbus.Variant{
			"stream_id": dbus.MakeVariant(id),
		}))
	}

	return ResponseSuccess, map[string]dbus.Variant{
		"devices":           dbus.MakeVariant(uint32(final.AuthorizedDevices)),
		"streams":           dbus.MakeVariant(streams),
		"mode":              dbus.MakeVariant(final.Mode.String()),
		"clipboard_enabled": dbus.MakeVariant(false),
	}, nil
}

func (e *Engine) consentTimeout() time.Duration {
	if e.cfg == nil || e.cfg.Consent.TimeoutSeconds <= 0 {
		return defaultConsentTimeout
	}
	return e.cfg.Consent.Timeout()
}

// Close implements the standard session interface's Close method. It
// first interrupts any consent wait a concurrent Start is blocked on, so
// it never has to wait out Start's full timeout budget behind the
// per-session lock.
func (e *Engine) Close(sessionHandle dbus.ObjectPath) *dbus.Error {
	sessionID := string(sessionHandle)
	obs.NotifyActivity("METHOD", "Close "+sessionID)
	e.cancelPending(sessionID)

	lock := e.lockFor(sessionID)
	lock.Lock()
	e.sessions.Close(sessionID)
	lock.Unlock()
	e.forgetLock(sessionID)
	return nil
}
