package core

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Resolution is the reconciler's answer for a verified destination.
type Resolution struct {
	IdentityID string
	IsNewUser  bool
	// Session is set for returning (provisioned) identities.
	Session *SessionTokens
	// SignupToken is set for new or still-unprovisioned identities. It is
	// single-use, short-lived, and scoped solely to completing signup; no
	// session exists until CompleteSignup.
	SignupToken string
}

// Resolve finds or creates the identity for a verified destination.
//
// A destination seen for the first time gets an identity shell (destination
// recorded, role pending) and a signup token rather than a session: an
// identity with no role is not routable and must not hold a credential that
// dashboards would honor.
func (s *Service) Resolve(ctx context.Context, destination string, method Method) (*Resolution, error) {
	if s.identities == nil {
		return nil, fmt.Errorf("%w: identity store not configured", ErrReconciliation)
	}

	id, err := s.identities.FindByDestination(ctx, destination, method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconciliation, err)
	}

	if id != nil && id.Provisioned() {
		tokens, err := s.mintSession(ctx, id.ID)
		if err != nil {
			return nil, err
		}
		_ = s.identities.TouchLastLogin(ctx, id.ID)
		return &Resolution{IdentityID: id.ID, IsNewUser: false, Session: tokens}, nil
	}

	isNew := id == nil
	if isNew {
		id, err = s.identities.CreateShell(ctx, destination, method)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliation, err)
		}
	}

	token := newSignupToken()
	if err := s.storeSignupToken(ctx, sha256Hex(token), id.ID, destination, method, s.opts.SignupTokenTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconciliation, err)
	}
	return &Resolution{IdentityID: id.ID, IsNewUser: true, SignupToken: token}, nil
}

// CompleteSignup consumes a signup token, provisions the identity with name
// and role, and only then mints the first session.
func (s *Service) CompleteSignup(ctx context.Context, signupToken string, profile SignupProfile) (*Identity, *SessionTokens, error) {
	if !ValidRole(profile.Role) {
		return nil, nil, fmt.Errorf("%w: role must be one of customer, worker, admin", ErrValidation)
	}
	if profile.Name == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if profile.SecondaryEmail != "" {
		email, err := normalizeEmail(profile.SecondaryEmail)
		if err != nil {
			return nil, nil, err
		}
		profile.SecondaryEmail = email
	}
	if profile.SecondaryPhone != "" {
		phone, err := normalizePhone(profile.SecondaryPhone)
		if err != nil {
			return nil, nil, err
		}
		profile.SecondaryPhone = phone
	}

	data, err := s.consumeSignupToken(ctx, sha256Hex(signupToken))
	if err != nil {
		return nil, nil, err
	}

	id, err := s.identities.Provision(ctx, data.UserID, profile)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrReconciliation, err)
	}
	tokens, err := s.mintSession(ctx, id.ID)
	if err != nil {
		return nil, nil, err
	}
	_ = s.identities.TouchLastLogin(ctx, id.ID)
	return id, tokens, nil
}

// AdminSwitchRole changes the active role of a provisioned identity. This is
// an administrative capability, gated by the adapter on the caller's admin
// role; it replaces any client-side role toggle.
func (s *Service) AdminSwitchRole(ctx context.Context, targetID string, role Role) error {
	if !ValidRole(role) {
		return fmt.Errorf("%w: role must be one of customer, worker, admin", ErrValidation)
	}
	target, err := s.identities.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReconciliation, err)
	}
	if target == nil || !target.Provisioned() {
		return fmt.Errorf("%w: identity is not provisioned", ErrValidation)
	}
	if err := s.identities.SetRole(ctx, targetID, role); err != nil {
		return fmt.Errorf("%w: %v", ErrReconciliation, err)
	}
	return nil
}

// GetIdentity exposes identity lookup to adapters.
func (s *Service) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	if s.identities == nil {
		return nil, fmt.Errorf("%w: identity store not configured", ErrReconciliation)
	}
	identity, err := s.identities.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconciliation, err)
	}
	return identity, nil
}

func (s *Service) mintSession(ctx context.Context, userID string) (*SessionTokens, error) {
	access, expiresAt, err := s.IssueAccessToken(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconciliation, err)
	}
	tokens := &SessionTokens{AccessToken: access, ExpiresAt: expiresAt}
	if s.sessions != nil {
		sid, refresh, refreshExp, err := s.IssueRefreshSession(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliation, err)
		}
		tokens.SessionID = sid
		tokens.RefreshToken = refresh
		tokens.RefreshExpiresAt = refreshExp
	}
	return tokens, nil
}

// newSignupToken returns an opaque 32-byte token, base58-encoded so it stays
// URL- and copy-paste-safe.
func newSignupToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base58.Encode(b)
}
