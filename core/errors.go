package core

import "errors"

// Closed error taxonomy for the OTP flow. Adapters map these to HTTP shapes;
// anything not in this list is treated as an operator fault and must not
// reach the end user verbatim.
var (
	// User-correctable input errors.
	ErrValidation = errors.New("validation failed")

	// Verification-flow errors, each with a distinct user-facing message.
	ErrNoActiveCode     = errors.New("no code found, request a new one")
	ErrCodeExpired      = errors.New("code has expired, request a new one")
	ErrCodeMismatch     = errors.New("invalid code")
	ErrCodeAlreadyUsed  = errors.New("code has already been used")
	ErrTooManyAttempts  = errors.New("too many failed attempts, request a new code")
	ErrResendCooldown   = errors.New("please wait before requesting another code")
	ErrSignupTokenStale = errors.New("signup session expired, verify again")

	// Delivery-channel errors.
	ErrUnverifiedDestination    = errors.New("destination is not verified with the SMS provider")
	ErrInvalidDestination       = errors.New("invalid destination format")
	ErrUndeliverableDestination = errors.New("destination cannot receive messages on this channel")
	ErrProviderUnavailable      = errors.New("delivery provider unavailable")

	// Operator faults. Never surfaced verbatim; adapters present a generic
	// "please try again later".
	ErrProviderConfig = errors.New("delivery provider not configured")
	ErrStorage        = errors.New("storage unavailable")
	ErrReconciliation = errors.New("identity backend unavailable")
)

// IsUserFacing reports whether err carries a message safe to show end users.
func IsUserFacing(err error) bool {
	for _, e := range []error{
		ErrValidation, ErrNoActiveCode, ErrCodeExpired, ErrCodeMismatch,
		ErrCodeAlreadyUsed, ErrTooManyAttempts, ErrResendCooldown,
		ErrSignupTokenStale, ErrUnverifiedDestination, ErrInvalidDestination,
		ErrUndeliverableDestination, ErrProviderUnavailable,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
