package authhttp

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/servxpert/authcore/core"
	jwtkit "github.com/servxpert/authcore/jwt"
	memorystore "github.com/servxpert/authcore/storage/memory"
)

var reCode = regexp.MustCompile(`\b(\d{6})\b`)

type captureSMS struct{ last string }

func (c *captureSMS) Send(ctx context.Context, phone, message string) error {
	c.last = message
	return nil
}

func (c *captureSMS) code(t *testing.T) string {
	t.Helper()
	m := reCode.FindStringSubmatch(c.last)
	require.NotNil(t, m, "no code in %q", c.last)
	return m[1]
}

func newTestService(t *testing.T) (*Service, *captureSMS) {
	t.Helper()
	signer, err := jwtkit.NewRSASigner(2048, "test-kid")
	require.NoError(t, err)
	ks := core.Keyset{Active: signer, PublicKeys: map[string]*rsa.PublicKey{"test-kid": signer.PublicKey()}}
	opts := core.Options{
		Issuer:              "https://example.com",
		IssuedAudiences:     []string{"test-app"},
		ExpectedAudiences:   []string{"test-app"},
		AccessTokenDuration: time.Hour,
	}
	sms := &captureSMS{}
	svc := core.NewService(opts, ks).
		WithSMSSender(sms).
		WithOTPStore(memorystore.NewOTPStore()).
		WithIdentityStore(memorystore.NewIdentityStore()).
		WithSessionStore(memorystore.NewSessionStore()).
		WithEphemeralStore(memorystore.NewKV(), core.EphemeralMemory)
	s := &Service{svc: svc, clientIP: DefaultClientIP()}
	return s, sms
}

func doJSON(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestIssueVerifySignupRoundTrip(t *testing.T) {
	s, sms := newTestService(t)
	h := s.APIHandler()

	w := doJSON(t, h, http.MethodPost, "/auth/otp/issue", `{"destination":"9876543210"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	require.EqualValues(t, 300, body["expiresIn"])

	code := sms.code(t)
	w = doJSON(t, h, http.MethodPost, "/auth/otp/verify",
		fmt.Sprintf(`{"destination":"9876543210","code":"%s"}`, code), "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	require.Equal(t, true, body["isNewUser"])
	signupToken, _ := body["signupToken"].(string)
	require.NotEmpty(t, signupToken)
	_, hasSession := body["session"]
	require.False(t, hasSession, "new user must not receive a session before signup completes")

	w = doJSON(t, h, http.MethodPost, "/auth/signup/complete",
		fmt.Sprintf(`{"signupToken":"%s","name":"Asha","role":"customer"}`, signupToken), "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	session, ok := body["session"].(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, session["accessToken"])
	require.NotEmpty(t, session["refreshToken"])
}

func TestVerifyReturningUserGetsSession(t *testing.T) {
	s, sms := newTestService(t)
	h := s.APIHandler()

	completeSignup(t, h, sms, "9876543210", "worker")

	doJSON(t, h, http.MethodPost, "/auth/otp/issue", `{"destination":"9876543210"}`, "")
	w := doJSON(t, h, http.MethodPost, "/auth/otp/verify",
		fmt.Sprintf(`{"destination":"9876543210","code":"%s"}`, sms.code(t)), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, false, body["isNewUser"])
	session, ok := body["session"].(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, session["accessToken"])
	_, hasToken := body["signupToken"]
	require.False(t, hasToken)
}

// completeSignup drives a destination through the full first-login flow and
// returns the session object.
func completeSignup(t *testing.T, h http.Handler, sms *captureSMS, destination, role string) map[string]any {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/auth/otp/issue", fmt.Sprintf(`{"destination":"%s"}`, destination), "")
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, h, http.MethodPost, "/auth/otp/verify",
		fmt.Sprintf(`{"destination":"%s","code":"%s"}`, destination, sms.code(t)), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	signupToken, _ := body["signupToken"].(string)
	require.NotEmpty(t, signupToken)
	w = doJSON(t, h, http.MethodPost, "/auth/signup/complete",
		fmt.Sprintf(`{"signupToken":"%s","name":"Test User","role":"%s"}`, signupToken, role), "")
	require.Equal(t, http.StatusOK, w.Code)
	session, _ := decodeBody(t, w)["session"].(map[string]any)
	require.NotNil(t, session)
	return session
}

func TestIssueRejectsMalformedDestination(t *testing.T) {
	s, _ := newTestService(t)
	h := s.APIHandler()

	for _, dest := range []string{"12345", "512345678", "not-a-phone"} {
		w := doJSON(t, h, http.MethodPost, "/auth/otp/issue", fmt.Sprintf(`{"destination":"%s"}`, dest), "")
		require.Equal(t, http.StatusBadRequest, w.Code, "destination %q", dest)
		require.Contains(t, w.Body.String(), "validation_error")
	}
}

func TestVerifyErrorShapes(t *testing.T) {
	s, sms := newTestService(t)
	h := s.APIHandler()

	// No code ever issued.
	w := doJSON(t, h, http.MethodPost, "/auth/otp/verify", `{"destination":"9876543210","code":"123456"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "no_active_code")

	// Wrong code.
	doJSON(t, h, http.MethodPost, "/auth/otp/issue", `{"destination":"9876543210"}`, "")
	right := sms.code(t)
	wrong := "000000"
	if wrong == right {
		wrong = "000001"
	}
	w = doJSON(t, h, http.MethodPost, "/auth/otp/verify",
		fmt.Sprintf(`{"destination":"9876543210","code":"%s"}`, wrong), "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "code_mismatch")

	// Right code still works, then cannot be replayed.
	w = doJSON(t, h, http.MethodPost, "/auth/otp/verify",
		fmt.Sprintf(`{"destination":"9876543210","code":"%s"}`, right), "")
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, h, http.MethodPost, "/auth/otp/verify",
		fmt.Sprintf(`{"destination":"9876543210","code":"%s"}`, right), "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "code_already_used")
}

func TestResendCooldown(t *testing.T) {
	s, _ := newTestService(t)
	svc, err := core.NewFromConfig(core.Config{
		Issuer:          "https://example.com",
		IssuedAudiences: []string{"test-app"},
	})
	require.NoError(t, err)
	s.svc = svc.
		WithSMSSender(&captureSMS{}).
		WithOTPStore(memorystore.NewOTPStore()).
		WithIdentityStore(memorystore.NewIdentityStore()).
		WithEphemeralStore(memorystore.NewKV(), core.EphemeralMemory)
	h := s.APIHandler()

	w := doJSON(t, h, http.MethodPost, "/auth/otp/issue", `{"destination":"9876543210"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, h, http.MethodPost, "/auth/otp/issue", `{"destination":"9876543210"}`, "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), "resend_cooldown")
}

func TestSignupTokenSingleUse(t *testing.T) {
	s, sms := newTestService(t)
	h := s.APIHandler()

	doJSON(t, h, http.MethodPost, "/auth/otp/issue", `{"destination":"9876543210"}`, "")
	w := doJSON(t, h, http.MethodPost, "/auth/otp/verify",
		fmt.Sprintf(`{"destination":"9876543210","code":"%s"}`, sms.code(t)), "")
	signupToken, _ := decodeBody(t, w)["signupToken"].(string)

	payload := fmt.Sprintf(`{"signupToken":"%s","name":"Asha","role":"customer"}`, signupToken)
	w = doJSON(t, h, http.MethodPost, "/auth/signup/complete", payload, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, h, http.MethodPost, "/auth/signup/complete", payload, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "signup_token_stale")
}

func TestRefreshTokenExchangeAndLogout(t *testing.T) {
	s, sms := newTestService(t)
	h := s.APIHandler()

	session := completeSignup(t, h, sms, "9876543210", "customer")
	refresh, _ := session["refreshToken"].(string)
	require.NotEmpty(t, refresh)

	w := doJSON(t, h, http.MethodPost, "/auth/token",
		fmt.Sprintf(`{"grant_type":"refresh_token","refresh_token":"%s"}`, refresh), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	access, _ := body["access_token"].(string)
	newRefresh, _ := body["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, newRefresh)
	require.NotEqual(t, refresh, newRefresh)

	// The rotated-out token is dead, and reusing it kills the session.
	w = doJSON(t, h, http.MethodPost, "/auth/token",
		fmt.Sprintf(`{"grant_type":"refresh_token","refresh_token":"%s"}`, refresh), "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, h, http.MethodPost, "/auth/token",
		fmt.Sprintf(`{"grant_type":"refresh_token","refresh_token":"%s"}`, newRefresh), "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Logout with the rotated access token's sid.
	session2 := completeSignup(t, h, sms, "9123456780", "customer")
	access2, _ := session2["accessToken"].(string)
	w = doJSON(t, h, http.MethodDelete, "/auth/logout", "", access2)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUserMeAndRoleGate(t *testing.T) {
	s, sms := newTestService(t)
	h := s.APIHandler()

	session := completeSignup(t, h, sms, "9876543210", "customer")
	access, _ := session["accessToken"].(string)

	w := doJSON(t, h, http.MethodGet, "/auth/me", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, "customer", body["role"])
	require.Equal(t, "+919876543210", body["phone"])

	// Customers cannot switch roles.
	w = doJSON(t, h, http.MethodPost, "/auth/admin/users/someone/role", `{"role":"worker"}`, access)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Unauthenticated.
	w = doJSON(t, h, http.MethodGet, "/auth/me", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "missing_token")
}

func TestJWKSServesKeys(t *testing.T) {
	s, _ := newTestService(t)
	h := s.JWKSHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	keys, ok := body["keys"].([]any)
	require.True(t, ok)
	require.Len(t, keys, 1)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestService(t)
	h := s.APIHandler()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/auth/otp/issue", nil)
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
