package portal

import (
	"errors"

	"github.com/godbus/dbus/v5"

	"github.com/bnema/waymon/internal/devicemodel"
	"github.com/bnema/waymon/internal/obs"
	"github.com/bnema/waymon/internal/session"
)

// notify dispatches event through the session manager and translates
// the result per spec.md §7's propagation policy: the Notify family
// always returns Success to the client (so a buggy or malicious client
// cannot discover filtering by timing or error probing), except for
// validation failures, which surface as InvalidArgument via a non-nil
// *dbus.Error. NotFound and WrongState are logged at debug level;
// Unauthorized and RateLimited are only counted by the session manager.
// None of these is returned.
func (e *Engine) notify(sessionHandle dbus.ObjectPath, event devicemodel.InputEvent) *dbus.Error {
	sessionID := string(sessionHandle)
	err := e.sessions.NotifyInput(sessionID, event)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, session.ErrInvalid):
		return dbus.NewError("org.freedesktop.portal.Error.InvalidArgument", []interface{}{err.Error()})
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrWrongState):
		obs.Debugf("portal: notify on %s: %v", sessionID, err)
		return nil
	default:
		// Unauthorized and RateLimited: dropped silently, counted by
		// the session manager already.
		return nil
	}
}

func (e *Engine) NotifyPointerMotion(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, dx, dy float64) *dbus.Error {
	return e.notify(sessionHandle, devicemodel.PointerMotion{Dx: dx, Dy: dy})
}

func (e *Engine) NotifyPointerMotionAbsolute(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, stream uint32, x, y float64) *dbus.Error {
	return e.notify(sessionHandle, devicemodel.PointerMotionAbsolute{StreamID: stream, X: x, Y: y})
}

func (e *Engine) NotifyPointerButton(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, button int32, state uint32) *dbus.Error {
	return e.notify(sessionHandle, devicemodel.PointerButton{Button: button, Pressed: state != 0})
}

func (e *Engine) NotifyPointerAxis(sessionHandle dbus.ObjectPath, options map[string]dbus.Variant, dx, dy float64) *dbus.Error {
	finish, _ := options["finish"].Value().(bool)
	_ = finish
	return e.notify(sessionHandle, devicemodel.PointerAxis{Dx: dx, Dy: dy, Discrete: false})
}

func (e *Engine) NotifyPointerAxisDiscrete(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, axis uint32, steps int32) *dbus.Error {
	dx, dy := 0.0, 0.0
	if axis == 0 {
		dx = float64(steps)
	} else {
		dy = float64(steps)
	}
	return e.notify(sessionHandle, devicemodel.PointerAxis{Dx: dx, Dy: dy, Discrete: true})
}

func (e *Engine) NotifyKeyboardKeycode(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, keycode int32, state uint32) *dbus.Error {
	return e.notify(sessionHandle, devicemodel.KeyboardKeycode{Keycode: keycode, Pressed: state != 0})
}

func (e *Engine) NotifyKeyboardKeysym(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, keysym int32, state uint32) *dbus.Error {
	return e.notify(sessionHandle, devicemodel.KeyboardKeysym{Keysym: uint32(keysym), Pressed: state != 0})
}

func (e *Engine) NotifyTouchDown(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, stream, slot uint32, x, y float64) *dbus.Error {
	return e.notify(sessionHandle, devicemodel.NewTouchDown(slot, x, y))
}

func (e *Engine) NotifyTouchMotion(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, stream, slot uint32, x, y float64) *dbus.Error {
	return e.notify(sessionHandle, devicemodel.NewTouchMotion(slot, x, y))
}

func (e *Engine) NotifyTouchUp(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, slot uint32) *dbus.Error {
	return e.notify(sessionHandle, devicemodel.TouchUp{Slot: slot})
}
