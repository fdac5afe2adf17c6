// Package telephony wraps the masked-call provider. The provider bridges a
// caller and a target through an intermediary number so neither side sees
// the other's real one; the gateway only learns a provider call ID and,
// later, an asynchronous terminal status.
package telephony

import "context"

// Gateway places a masked call between two real numbers and returns the
// provider-assigned call identifier. Implementations must respect the
// context deadline; the relay maps any error to a provider-unavailable
// failure.
type Gateway interface {
	InitiateCall(ctx context.Context, callerPhone, targetPhone string) (callID string, err error)
}
