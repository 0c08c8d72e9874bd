// Package consent implements the deny-by-default authorization gate the
// portal consults before a session may start: a pluggable Provider plus
// three built-in implementations (auto, interactive, programmatic).
package consent

import (
	"context"
	"errors"

	"github.com/bnema/waymon/internal/devicemodel"
)

// Outcome classifies how a consent request resolved.
type Outcome int

const (
	Granted Outcome = iota
	Denied
	TimedOut
)

// Request describes what a session is asking permission for.
type Request struct {
	SessionID         string
	AppID             string
	RequestedDevices  devicemodel.DeviceType
	IncludeCapture    bool
	ParentWindow      string
}

// Result is what a Provider resolves a Request to. GrantedDevices is only
// meaningful when Outcome == Granted, and must be a subset of the
// request's RequestedDevices.
type Result struct {
	Outcome        Outcome
	GrantedDevices devicemodel.DeviceType
}

// ErrDenied is returned by providers that fail closed; Provider
// implementations are not required to return it (resolving to a Denied
// Result is sufficient) but may use it to wrap an underlying cause.
var ErrDenied = errors.New("consent denied")

// Provider is the single-method trait every consent backend implements.
// RequestConsent must be deny-by-default: any internal error resolves to
// Denied rather than propagating, and must respect ctx's deadline,
// returning TimedOut (not an error) when the budget expires before the
// user responds. Implementations must be safe for concurrent use and
// must hold no state across calls beyond what is needed to service
// in-flight requests.
type Provider interface {
	RequestConsent(ctx context.Context, req Request) Result
}

// clampToRequested guards the invariant that Granted ⊆ RequestedDevices
// even if a provider implementation misbehaves.
func clampToRequested(granted, requested devicemodel.DeviceType) devicemodel.DeviceType {
	return granted & requested
}
