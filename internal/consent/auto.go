package consent

import "context"

// AutoApprover grants every requested device immediately. It is meant for
// development and headless tests only — a production deployment must
// configure InteractiveProvider or an equivalent real gate.
type AutoApprover struct{}

// RequestConsent implements Provider.
func (AutoApprover) RequestConsent(_ context.Context, req Request) Result {
	return Result{Outcome: Granted, GrantedDevices: req.RequestedDevices}
}
