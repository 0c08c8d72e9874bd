package devicemodel

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel validation errors. Callers should use errors.Is against these.
var (
	ErrOutOfRange   = errors.New("value out of range")
	ErrNonFinite    = errors.New("value is not finite")
	ErrUnknownEvent = errors.New("unknown event variant")
)

// MaxTouchSlot bounds the touch slot id accepted by Validate. The portal
// does not track more concurrent touch contacts than this.
const MaxTouchSlot = 63

// InputEvent is the closed sum type over everything NotifyX can submit.
// Each variant implements the unexported marker so the set can never be
// extended from outside this package, and DeviceClass() so the session
// manager can authorize without a type switch of its own.
type InputEvent interface {
	isInputEvent()
	// DeviceClass reports which device bit this event requires.
	DeviceClass() DeviceType
	// Validate range-checks the event's payload.
	Validate() error
}

type PointerMotion struct{ Dx, Dy float64 }

func (PointerMotion) isInputEvent()             {}
func (PointerMotion) DeviceClass() DeviceType   { return Pointer }
func (e PointerMotion) Validate() error {
	if !finite(e.Dx) || !finite(e.Dy) {
		return fmt.Errorf("pointer motion: %w", ErrNonFinite)
	}
	return nil
}

type PointerMotionAbsolute struct {
	StreamID uint32
	X, Y     float64
}

func (PointerMotionAbsolute) isInputEvent()           {}
func (PointerMotionAbsolute) DeviceClass() DeviceType { return Pointer }
func (e PointerMotionAbsolute) Validate() error {
	if !finite(e.X) || !finite(e.Y) {
		return fmt.Errorf("pointer motion absolute: %w", ErrNonFinite)
	}
	return nil
}

// PointerButton uses Linux evcode convention for Button (e.g. BTN_LEFT).
type PointerButton struct {
	Button  int32
	Pressed bool
}

func (PointerButton) isInputEvent()           {}
func (PointerButton) DeviceClass() DeviceType { return Pointer }
func (e PointerButton) Validate() error {
	if e.Button < 0 {
		return fmt.Errorf("pointer button %d: %w", e.Button, ErrOutOfRange)
	}
	return nil
}

type PointerAxis struct {
	Dx, Dy   float64
	Discrete bool
}

func (PointerAxis) isInputEvent()           {}
func (PointerAxis) DeviceClass() DeviceType { return Pointer }
func (e PointerAxis) Validate() error {
	if !finite(e.Dx) || !finite(e.Dy) {
		return fmt.Errorf("pointer axis: %w", ErrNonFinite)
	}
	return nil
}

// KeyboardKeycode carries a hardware keycode in [0,255].
type KeyboardKeycode struct {
	Keycode int32
	Pressed bool
}

func (KeyboardKeycode) isInputEvent()           {}
func (KeyboardKeycode) DeviceClass() DeviceType { return Keyboard }
func (e KeyboardKeycode) Validate() error {
	if e.Keycode < 0 || e.Keycode > 255 {
		return fmt.Errorf("keycode %d: %w", e.Keycode, ErrOutOfRange)
	}
	return nil
}

// KeyboardKeysym carries an XKB symbol rather than a hardware keycode.
type KeyboardKeysym struct {
	Keysym  uint32
	Pressed bool
}

func (KeyboardKeysym) isInputEvent()           {}
func (KeyboardKeysym) DeviceClass() DeviceType { return Keyboard }
func (KeyboardKeysym) Validate() error         { return nil }

type touchBase struct {
	Slot uint32
	X, Y float64
}

func (t touchBase) validate(kind string) error {
	if t.Slot > MaxTouchSlot {
		return fmt.Errorf("%s slot %d: %w", kind, t.Slot, ErrOutOfRange)
	}
	if !finite(t.X) || !finite(t.Y) {
		return fmt.Errorf("%s: %w", kind, ErrNonFinite)
	}
	return nil
}

type TouchDown struct{ touchBase }

func (TouchDown) isInputEvent()           {}
func (TouchDown) DeviceClass() DeviceType { return Touchscreen }
func (e TouchDown) Validate() error       { return e.touchBase.validate("touch down") }

type TouchMotion struct{ touchBase }

func (TouchMotion) isInputEvent()           {}
func (TouchMotion) DeviceClass() DeviceType { return Touchscreen }
func (e TouchMotion) Validate() error       { return e.touchBase.validate("touch motion") }

type TouchUp struct{ Slot uint32 }

func (TouchUp) isInputEvent()           {}
func (TouchUp) DeviceClass() DeviceType { return Touchscreen }
func (e TouchUp) Validate() error {
	if e.Slot > MaxTouchSlot {
		return fmt.Errorf("touch up slot %d: %w", e.Slot, ErrOutOfRange)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// NewTouchDown, NewTouchMotion construct touch events with shared fields.
func NewTouchDown(slot uint32, x, y float64) TouchDown {
	return TouchDown{touchBase{Slot: slot, X: x, Y: y}}
}

func NewTouchMotion(slot uint32, x, y float64) TouchMotion {
	return TouchMotion{touchBase{Slot: slot, X: x, Y: y}}
}
