package authhttp

import (
	"net/http"
	"time"

	"github.com/servxpert/authcore/roles"
)

type userMeResponse struct {
	ID        string  `json:"id"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Name      *string `json:"name"`
	Role      *string `json:"role"`
	RoleID    *string `json:"roleId,omitempty"`
	IsActive  bool    `json:"isActive"`
	CreatedAt string  `json:"createdAt"`
	LastLogin *string `json:"lastLogin,omitempty"`
}

func (s *Service) handleUserMeGET(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r, RLUserMe) {
		tooMany(w)
		return
	}
	cl, ok := ClaimsFromContext(r.Context())
	if !ok || cl.UserID == "" {
		unauthorized(w, "unauthorized")
		return
	}

	identity, err := s.svc.GetIdentity(r.Context(), cl.UserID)
	if err != nil || identity == nil {
		serverErr(w, "user_lookup_failed")
		return
	}

	resp := userMeResponse{
		ID:        identity.ID,
		Phone:     identity.Phone,
		Email:     identity.Email,
		Name:      identity.Name,
		IsActive:  identity.IsActive,
		CreatedAt: identity.CreatedAt.Format(time.RFC3339),
	}
	if identity.Role != nil {
		role := string(*identity.Role)
		roleID := roles.IDForRole(role).String()
		resp.Role = &role
		resp.RoleID = &roleID
	}
	if identity.LastLogin != nil {
		v := identity.LastLogin.Format(time.RFC3339)
		resp.LastLogin = &v
	}
	writeJSON(w, http.StatusOK, resp)
}
