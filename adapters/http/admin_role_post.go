package authhttp

import (
	"net/http"
	"strings"

	"github.com/servxpert/authcore/core"
)

func (s *Service) handleAdminRolePOST(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLAdminRole) {
		tooMany(w)
		return
	}

	targetID := strings.TrimSpace(r.PathValue("user_id"))
	if targetID == "" {
		badRequest(w, "missing_user_id")
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}

	role := core.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if err := s.svc.AdminSwitchRole(r.Context(), targetID, role); err != nil {
		sendCoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
