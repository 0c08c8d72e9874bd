// Package portal implements the bus-exposed RemoteDesktop portal
// contract: the single entry point that binds the event/device model,
// rate limiter, consent provider, session manager, and capability/tier
// selection to the freedesktop impl.portal.RemoteDesktop interface.
package portal

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/bnema/waymon/internal/capability"
	"github.com/bnema/waymon/internal/capture"
	"github.com/bnema/waymon/internal/config"
	"github.com/bnema/waymon/internal/consent"
	"github.com/bnema/waymon/internal/devicemodel"
	"github.com/bnema/waymon/internal/obs"
	"github.com/bnema/waymon/internal/session"
)

// InterfaceName and ObjectPath are normative per spec.md §6.1.
const (
	InterfaceName = "org.freedesktop.impl.portal.RemoteDesktop"
	ObjectPath    = dbus.ObjectPath("/org/freedesktop/portal/desktop")

	// Version is this document's portal contract version.
	Version uint32 = 2
)

// Response codes follow the freedesktop portal request convention.
const (
	ResponseSuccess   uint32 = 0
	ResponseCancelled uint32 = 1
	ResponseFailed    uint32 = 2
)

// Engine is the portal's single exported bus object. It is a normal
// value constructed with its dependencies; there is no global mutable
// state (spec.md §9).
type Engine struct {
	sessions   *session.Manager
	consentSrc consent.Provider
	discovery  *capability.Discovery
	cfg        *config.Config

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
	cancels      map[string]context.CancelFunc
}

// New constructs an Engine from its dependencies. The caller remains
// responsible for wiring a Sink into sessions.
func New(sessions *session.Manager, consentSrc consent.Provider, discovery *capability.Discovery, cfg *config.Config) *Engine {
	return &Engine{
		sessions:     sessions,
		consentSrc:   consentSrc,
		discovery:    discovery,
		cfg:          cfg,
		sessionLocks: make(map[string]*sync.Mutex),
		cancels:      make(map[string]context.CancelFunc),
	}
}

// lockFor returns (creating if needed) the per-session serialization
// lock spec.md §4.7 requires: concurrent calls on distinct sessions
// proceed in parallel, but a single session's state transitions are
// linearizable.
func (e *Engine) lockFor(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.sessionLocks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.sessionLocks[sessionID] = l
	}
	return l
}

func (e *Engine) forgetLock(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessionLocks, sessionID)
}

// registerCancel records the cancel func for a session's in-flight
// consent wait so Close can interrupt it without waiting on the
// per-session lock Start holds for the whole RPC.
func (e *Engine) registerCancel(sessionID string, cancel context.CancelFunc) {
	e.mu.Lock()
	e.cancels[sessionID] = cancel
	e.mu.Unlock()
}

func (e *Engine) clearCancel(sessionID string) {
	e.mu.Lock()
	delete(e.cancels, sessionID)
	e.mu.Unlock()
}

// cancelPending cancels a session's in-flight consent wait, if any. A
// cancelled context resolves RequestConsent as non-Granted (TimedOut or
// Denied depending on the provider), which is exactly what Close needs:
// spec.md §5 requires pending consent to resolve as Denied when the
// session is closed out from under it, rather than blocking Close until
// the consent timeout elapses naturally.
func (e *Engine) cancelPending(sessionID string) {
	e.mu.Lock()
	cancel := e.cancels[sessionID]
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Export registers the engine's methods and properties on conn and
// introspects them. It does not take ownership of conn.
func (e *Engine) Export(conn *dbus.Conn) error {
	if err := conn.Export(e, ObjectPath, InterfaceName); err != nil {
		return fmt.Errorf("export %s: %w", InterfaceName, err)
	}

	props := map[string]map[string]*prop.Prop{
		InterfaceName: {
			"AvailableDeviceTypes": {
				Value:    uint32(e.availableDeviceTypes()),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"Version": {
				Value:    Version,
				Writable: false,
				Emit:     prop.EmitConst,
			},
		},
	}
	exportedProps, err := prop.Export(conn, ObjectPath, props)
	if err != nil {
		return fmt.Errorf("export properties: %w", err)
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       InterfaceName,
				Methods:    introspect.Methods(e),
				Properties: exportedProps.Introspection(InterfaceName),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspectable: %w", err)
	}
	return nil
}

func (e *Engine) availableDeviceTypes() devicemodel.DeviceType {
	if e.discovery == nil {
		return devicemodel.AllDevices
	}
	return e.discovery.AvailableDeviceTypes()
}

// Refresh re-runs capability discovery. Exposed for an explicit refresh
// request path (e.g. a CLI subcommand), never run per-session.
func (e *Engine) Refresh(ctx context.Context) {
	if e.discovery != nil {
		e.discovery.Refresh(ctx)
	}
}

// Shutdown closes every live session. It does not stop the engine from
// serving further method calls: a CreateSession after Shutdown is still
// accepted. The bus disconnect / process exit itself is the external
// runtime's job.
func (e *Engine) Shutdown() {
	e.sessions.CloseAll()
	obs.Warn("portal: shutdown, all sessions closed")
}

// captureTiers builds the tier list for a Start call from the current
// fingerprint, honoring the configured override.
func (e *Engine) captureTiers() []capture.Tier {
	env := capture.Environment{}
	override := "auto"
	if e.cfg != nil {
		override = e.cfg.Capture.TierOverride
	}
	if e.discovery != nil {
		env = e.discovery.Fingerprint().ToCaptureEnvironment()
	}
	return capture.NewDefaultTiers(env, override)
}
