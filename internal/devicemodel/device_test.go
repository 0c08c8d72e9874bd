package devicemodel

import "testing"

func TestDeviceTypeSubset(t *testing.T) {
	cases := []struct {
		name     string
		requestedDevices DeviceType
		granted  DeviceType
		want     bool
	}{
		{"empty subset of anything", 0, Keyboard | Pointer, true},
		{"exact match", Pointer, Pointer, true},
		{"proper subset", Pointer, Keyboard | Pointer, true},
		{"not a subset", Keyboard, Pointer, false},
		{"full set not subset of partial", Keyboard | Pointer, Pointer, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.requestedDevices.Subset(tc.granted); got != tc.want {
				t.Errorf("Subset() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeviceTypeHas(t *testing.T) {
	d := Keyboard | Touchscreen
	if !d.Has(Keyboard) {
		t.Error("expected Keyboard bit set")
	}
	if d.Has(Pointer) {
		t.Error("did not expect Pointer bit set")
	}
	if !d.Has(Keyboard | Touchscreen) {
		t.Error("expected both bits set")
	}
}

func TestDeviceTypeEmpty(t *testing.T) {
	if !DeviceType(0).Empty() {
		t.Error("expected zero value to be empty")
	}
	if Pointer.Empty() {
		t.Error("did not expect Pointer to be empty")
	}
}
