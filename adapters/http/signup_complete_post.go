package authhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/servxpert/authcore/core"
)

func sessionView(t *core.SessionTokens) sessionResponse {
	resp := sessionResponse{
		AccessToken:  t.AccessToken,
		ExpiresAt:    t.ExpiresAt.Format(time.RFC3339),
		SessionID:    t.SessionID,
		RefreshToken: t.RefreshToken,
	}
	if t.RefreshExpiresAt != nil {
		v := t.RefreshExpiresAt.Format(time.RFC3339)
		resp.RefreshExpiresAt = &v
	}
	return resp
}

func (s *Service) handleSignupCompletePOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLSignupComplete) {
		tooMany(w)
		return
	}

	var req struct {
		SignupToken string `json:"signupToken"`
		Name        string `json:"name"`
		Role        string `json:"role"`
		Email       string `json:"email,omitempty"`
		Phone       string `json:"phone,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	if strings.TrimSpace(req.SignupToken) == "" {
		badRequest(w, "validation_error")
		return
	}

	profile := core.SignupProfile{
		Name:           strings.TrimSpace(req.Name),
		Role:           core.Role(strings.ToLower(strings.TrimSpace(req.Role))),
		SecondaryEmail: strings.TrimSpace(req.Email),
		SecondaryPhone: strings.TrimSpace(req.Phone),
	}
	identity, tokens, err := s.svc.CompleteSignup(r.Context(), req.SignupToken, profile)
	if err != nil {
		sendCoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userId":  identity.ID,
		"session": sessionView(tokens),
	})
}
