package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SessionTokens is the credential bundle handed to the client after a
// successful verification (returning user) or signup completion (new user).
type SessionTokens struct {
	AccessToken      string
	ExpiresAt        time.Time
	SessionID        string
	RefreshToken     string
	RefreshExpiresAt *time.Time
}

// Session is a sanitized session view (no tokens).
type Session struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  *time.Time
	RevokedAt  *time.Time
}

// SessionStore persists refresh sessions. Tokens are stored hashed; rotation
// keeps the previous hash so reuse of a rotated-out token is detectable.
type SessionStore interface {
	// Create inserts a session and returns its id.
	Create(ctx context.Context, userID, issuer, tokenHash string, expiresAt *time.Time) (string, error)

	// FindByCurrentHash returns the live session whose current token hash
	// matches, or (nil, nil).
	FindByCurrentHash(ctx context.Context, issuer, tokenHash string) (*Session, error)

	// FindByPreviousHash detects reuse of a rotated-out token.
	FindByPreviousHash(ctx context.Context, issuer, tokenHash string) (*Session, error)

	// Rotate moves current->previous and installs the new hash.
	Rotate(ctx context.Context, id, newTokenHash string) error

	Revoke(ctx context.Context, id string) error

	// RevokeOldest trims the user's live sessions down to keep. Eviction is
	// always evict-oldest.
	RevokeOldest(ctx context.Context, userID, issuer string, keep int) error
}

var errInvalidRefresh = errors.New("invalid refresh token")

// IssueRefreshSession creates a session row and returns a new refresh token.
func (s *Service) IssueRefreshSession(ctx context.Context, userID string) (sessionID, refreshToken string, expiresAt *time.Time, err error) {
	if s.sessions == nil {
		return "", "", nil, errors.New("session store not configured")
	}
	if s.opts.SessionMaxPerUser > 0 {
		if err := s.sessions.RevokeOldest(ctx, userID, s.opts.Issuer, s.opts.SessionMaxPerUser-1); err != nil {
			return "", "", nil, err
		}
	}
	rt := randB64(32)
	var expPtr *time.Time
	if s.opts.RefreshTokenDuration > 0 {
		exp := s.now().Add(s.opts.RefreshTokenDuration)
		expPtr = &exp
	}
	sid, err := s.sessions.Create(ctx, userID, s.opts.Issuer, sha256Hex(rt), expPtr)
	if err != nil {
		return "", "", nil, err
	}
	return sid, rt, expPtr, nil
}

// ExchangeRefreshToken rotates a refresh token and mints a fresh access
// token. Reuse of a rotated-out token revokes the session.
func (s *Service) ExchangeRefreshToken(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, newRefresh string, err error) {
	if s.sessions == nil {
		return "", time.Time{}, "", errors.New("session store not configured")
	}
	h := sha256Hex(refreshToken)
	sess, err := s.sessions.FindByCurrentHash(ctx, s.opts.Issuer, h)
	if err != nil {
		return "", time.Time{}, "", err
	}
	if sess == nil {
		if prev, e2 := s.sessions.FindByPreviousHash(ctx, s.opts.Issuer, h); e2 == nil && prev != nil {
			_ = s.sessions.Revoke(ctx, prev.ID)
			return "", time.Time{}, "", fmt.Errorf("%w: reuse detected", errInvalidRefresh)
		}
		return "", time.Time{}, "", errInvalidRefresh
	}
	if sess.ExpiresAt != nil && s.now().After(*sess.ExpiresAt) {
		return "", time.Time{}, "", errInvalidRefresh
	}

	newTok := randB64(32)
	if err := s.sessions.Rotate(ctx, sess.ID, sha256Hex(newTok)); err != nil {
		return "", time.Time{}, "", err
	}
	access, exp, err := s.IssueAccessToken(ctx, sess.UserID, map[string]any{"sid": sess.ID})
	if err != nil {
		return "", time.Time{}, "", err
	}
	return access, exp, newTok, nil
}

// RevokeSessionByID revokes a single session (logout).
func (s *Service) RevokeSessionByID(ctx context.Context, sessionID string) error {
	if s.sessions == nil {
		return errors.New("session store not configured")
	}
	return s.sessions.Revoke(ctx, sessionID)
}
