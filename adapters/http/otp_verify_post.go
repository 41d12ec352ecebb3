package authhttp

import (
	"net/http"
	"strings"
)

type sessionResponse struct {
	AccessToken      string  `json:"accessToken"`
	ExpiresAt        string  `json:"expiresAt"`
	SessionID        string  `json:"sessionId,omitempty"`
	RefreshToken     string  `json:"refreshToken,omitempty"`
	RefreshExpiresAt *string `json:"refreshExpiresAt,omitempty"`
}

func (s *Service) handleOTPVerifyPOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLOTPVerify) {
		tooMany(w)
		return
	}

	var req struct {
		Destination string `json:"destination"`
		Code        string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	dest := strings.TrimSpace(req.Destination)
	code := strings.TrimSpace(req.Code)
	if dest == "" || code == "" {
		badRequest(w, "validation_error")
		return
	}

	res, err := s.svc.VerifyCode(r.Context(), dest, code)
	if err != nil {
		sendCoreErr(w, err)
		return
	}

	body := map[string]any{
		"success":   true,
		"userId":    res.IdentityID,
		"isNewUser": res.IsNewUser,
	}
	if res.Session != nil {
		body["session"] = sessionView(res.Session)
	}
	if res.SignupToken != "" {
		body["signupToken"] = res.SignupToken
	}
	writeJSON(w, http.StatusOK, body)
}
