package relay

import "errors"

// Gateway failure taxonomy. Handlers map these to HTTP statuses and
// plain-language messages; provider internals never ride along.
var (
	ErrInvalidSignature    = errors.New("invalid or missing signature")
	ErrVehicleUnreachable  = errors.New("vehicle not found, not verified, or expired")
	ErrCommModeDisallowed  = errors.New("communication mode disallows this channel")
	ErrInvalidInput        = errors.New("invalid input")
	ErrCallerRateLimited   = errors.New("too many call attempts to this vehicle, try again later")
	ErrVehicleRateLimited  = errors.New("this vehicle has reached its daily call limit")
	ErrCallerBlocked       = errors.New("caller is blocked")
	ErrProviderUnavailable = errors.New("call service temporarily unavailable")
	ErrTokenInvalidOrUsed  = errors.New("fallback token invalid or already used")
	ErrTokenExpired        = errors.New("fallback token expired")
	ErrNotFound            = errors.New("not found")
)
