// Package devicemodel defines the portal's input event and device-type
// vocabulary: the typed event union, the device-class bitset, and the
// range checks every event must pass before it reaches a sink.
package devicemodel

// DeviceType is a bitset over the three device classes the RemoteDesktop
// portal contract recognizes. The numeric values match the bus property
// AvailableDeviceTypes (KEYBOARD=1, POINTER=2, TOUCHSCREEN=4).
type DeviceType uint8

const (
	Keyboard    DeviceType = 1 << 0
	Pointer     DeviceType = 1 << 1
	Touchscreen DeviceType = 1 << 2
)

const AllDevices = Keyboard | Pointer | Touchscreen

// Has reports whether d contains every bit set in other.
func (d DeviceType) Has(other DeviceType) bool {
	return d&other == other
}

// Subset reports whether d is a subset of other (d ⊆ other).
func (d DeviceType) Subset(other DeviceType) bool {
	return d&^other == 0
}

// Empty reports whether the set has no members.
func (d DeviceType) Empty() bool {
	return d == 0
}

// String renders the set using the bus convention for debugging/logs.
func (d DeviceType) String() string {
	if d == 0 {
		return "none"
	}
	s := ""
	if d.Has(Keyboard) {
		s += "keyboard,"
	}
	if d.Has(Pointer) {
		s += "pointer,"
	}
	if d.Has(Touchscreen) {
		s += "touchscreen,"
	}
	return s[:len(s)-1]
}
