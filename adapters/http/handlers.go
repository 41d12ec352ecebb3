package authhttp

import (
	"net/http"

	"github.com/servxpert/authcore/core"
	jwtkit "github.com/servxpert/authcore/jwt"
)

// JWKSHandler returns a handler for GET /.well-known/jwks.json.
func (s *Service) JWKSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set, err := s.svc.JWKS()
		if err != nil {
			serverErr(w, "jwks_unavailable")
			return
		}
		jwtkit.ServeJWKS(w, r, set)
	})
}

// APIHandler returns a handler that serves the JSON API routes. It is
// intended to be mounted under the host's mux/router at any prefix.
func (s *Service) APIHandler() http.Handler {
	if s == nil || s.svc == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { serverErr(w, "authcore_not_initialized") })
	}
	if !core.IsDevEnvironment() {
		if s.svc.EphemeralMode() != core.EphemeralRedis {
			panic("authcore: redis-compatible ephemeral store is required in production")
		}
	}

	mux := http.NewServeMux()

	// OTP flow
	mux.Handle("POST /auth/otp/issue", http.HandlerFunc(s.handleOTPIssuePOST))
	mux.Handle("POST /auth/otp/verify", http.HandlerFunc(s.handleOTPVerifyPOST))
	mux.Handle("POST /auth/signup/complete", http.HandlerFunc(s.handleSignupCompletePOST))

	// Sessions
	mux.Handle("POST /auth/token", http.HandlerFunc(s.handleAuthTokenPOST))

	required := Required(s.svc)
	mux.Handle("DELETE /auth/logout", required(http.HandlerFunc(s.handleLogoutDELETE)))
	mux.Handle("GET /auth/me", required(http.HandlerFunc(s.handleUserMeGET)))

	admin := func(h http.Handler) http.Handler { return required(RequireRole(core.RoleAdmin)(h)) }
	worker := func(h http.Handler) http.Handler { return required(RequireRole(core.RoleWorker)(h)) }
	mux.Handle("POST /auth/admin/users/{user_id}/role", admin(http.HandlerFunc(s.handleAdminRolePOST)))

	// Marketplace
	if s.market != nil {
		mux.Handle("GET /services", http.HandlerFunc(s.handleServicesGET))
		mux.Handle("POST /bookings", required(http.HandlerFunc(s.handleBookingCreatePOST)))
		mux.Handle("GET /bookings", required(http.HandlerFunc(s.handleBookingsGET)))
		mux.Handle("POST /bookings/{id}/assign", admin(http.HandlerFunc(s.handleBookingAssignPOST)))
		mux.Handle("POST /bookings/{id}/status", worker(http.HandlerFunc(s.handleBookingStatusPOST)))
		mux.Handle("POST /workers/location", worker(http.HandlerFunc(s.handleWorkerLocationPOST)))
		mux.Handle("GET /workers/{id}/location", required(http.HandlerFunc(s.handleWorkerLocationGET)))
		if s.feed != nil {
			mux.Handle("GET /workers/{id}/location/stream", required(http.HandlerFunc(s.handleWorkerLocationStreamGET)))
		}
	}

	return CORSOpen(mux)
}
