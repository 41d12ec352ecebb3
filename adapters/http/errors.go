package authhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/servxpert/authcore/core"
)

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendErr(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errResp{Error: code})
}

func badRequest(w http.ResponseWriter, code string)   { sendErr(w, http.StatusBadRequest, code) }
func unauthorized(w http.ResponseWriter, code string) { sendErr(w, http.StatusUnauthorized, code) }
func forbidden(w http.ResponseWriter, code string)    { sendErr(w, http.StatusForbidden, code) }
func tooMany(w http.ResponseWriter)                   { sendErr(w, http.StatusTooManyRequests, "rate_limited") }
func serverErr(w http.ResponseWriter, code string)    { sendErr(w, http.StatusInternalServerError, code) }
func notFound(w http.ResponseWriter, code string)     { sendErr(w, http.StatusNotFound, code) }

// sendCoreErr maps the core error taxonomy onto HTTP shapes. Operator faults
// (storage, provider config, reconciliation backend) collapse to a generic
// try-again so internals never leak.
func sendCoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrResendCooldown):
		sendErr(w, http.StatusTooManyRequests, "resend_cooldown")
	case errors.Is(err, core.ErrNoActiveCode):
		badRequest(w, "no_active_code")
	case errors.Is(err, core.ErrCodeExpired):
		badRequest(w, "code_expired")
	case errors.Is(err, core.ErrCodeMismatch):
		badRequest(w, "code_mismatch")
	case errors.Is(err, core.ErrCodeAlreadyUsed):
		badRequest(w, "code_already_used")
	case errors.Is(err, core.ErrTooManyAttempts):
		badRequest(w, "too_many_attempts")
	case errors.Is(err, core.ErrSignupTokenStale):
		badRequest(w, "signup_token_stale")
	case errors.Is(err, core.ErrInvalidDestination):
		badRequest(w, "invalid_destination")
	case errors.Is(err, core.ErrUnverifiedDestination):
		badRequest(w, "unverified_destination")
	case errors.Is(err, core.ErrUndeliverableDestination):
		badRequest(w, "undeliverable_destination")
	case errors.Is(err, core.ErrValidation):
		badRequest(w, "validation_error")
	case errors.Is(err, core.ErrProviderUnavailable):
		serverErr(w, "delivery_failed")
	default:
		// ErrStorage, ErrReconciliation, ErrProviderConfig, and anything
		// unclassified.
		serverErr(w, "try_again_later")
	}
}
