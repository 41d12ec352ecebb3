package authhttp

import (
	"net/http"
	"strings"

	"github.com/servxpert/authcore/core"
)

func (s *Service) handleOTPIssuePOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLOTPIssue) {
		tooMany(w)
		return
	}

	var req struct {
		Destination string `json:"destination"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		badRequest(w, "validation_error")
		return
	}

	method := core.MethodForDestination(dest)
	res, err := s.svc.IssueCode(r.Context(), dest, method)
	if err != nil {
		sendCoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Verification code sent",
		"expiresIn": res.ExpiresIn,
	})
}
