package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type EphemeralMode string

const (
	EphemeralMemory EphemeralMode = "memory"
	EphemeralRedis  EphemeralMode = "redis"
)

// EphemeralStore is a minimal key-value interface used for short-lived auth
// state (signup tokens, resend cooldowns). Implementations honor TTL on Set
// and treat missing keys as (found=false, err=nil).
type EphemeralStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

const (
	keySignupToken    = "auth:signup:token:"
	keySignupByDest   = "auth:signup:dest:"
	keyResendCooldown = "auth:otp:cooldown:"
)

type signupTokenData struct {
	UserID      string `json:"user_id"`
	Destination string `json:"destination"`
	Method      Method `json:"method"`
}

func (s *Service) useEphemeralStore() bool {
	return s != nil && s.ephemeralStore != nil
}

func (s *Service) ephemSetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.useEphemeralStore() {
		return fmt.Errorf("ephemeral store unavailable")
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.ephemeralStore.Set(ctx, key, b, ttl)
}

func (s *Service) ephemGetJSON(ctx context.Context, key string, out any) (bool, error) {
	if !s.useEphemeralStore() {
		return false, fmt.Errorf("ephemeral store unavailable")
	}
	b, ok, err := s.ephemeralStore.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return true, json.Unmarshal(b, out)
}

func (s *Service) ephemSetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if !s.useEphemeralStore() {
		return fmt.Errorf("ephemeral store unavailable")
	}
	return s.ephemeralStore.Set(ctx, key, []byte(value), ttl)
}

func (s *Service) ephemGetString(ctx context.Context, key string) (string, bool, error) {
	if !s.useEphemeralStore() {
		return "", false, fmt.Errorf("ephemeral store unavailable")
	}
	b, ok, err := s.ephemeralStore.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(b), true, nil
}

func (s *Service) ephemDel(ctx context.Context, key string) error {
	if !s.useEphemeralStore() {
		return fmt.Errorf("ephemeral store unavailable")
	}
	return s.ephemeralStore.Del(ctx, key)
}

// storeSignupToken saves a pending-signup token, superseding any prior token
// for the same destination so only the newest one can complete signup.
func (s *Service) storeSignupToken(ctx context.Context, tokenHash, userID, destination string, method Method, ttl time.Duration) error {
	destKey := keySignupByDest + destination
	if old, ok, _ := s.ephemGetString(ctx, destKey); ok && old != "" && old != tokenHash {
		_ = s.ephemDel(ctx, keySignupToken+old)
	}
	data := signupTokenData{UserID: userID, Destination: destination, Method: method}
	if err := s.ephemSetJSON(ctx, keySignupToken+tokenHash, data, ttl); err != nil {
		return err
	}
	_ = s.ephemSetString(ctx, destKey, tokenHash, ttl)
	return nil
}

// consumeSignupToken loads and deletes a pending-signup token. Single use.
func (s *Service) consumeSignupToken(ctx context.Context, tokenHash string) (*signupTokenData, error) {
	var data signupTokenData
	ok, err := s.ephemGetJSON(ctx, keySignupToken+tokenHash, &data)
	if err != nil || !ok {
		return nil, ErrSignupTokenStale
	}
	_ = s.ephemDel(ctx, keySignupToken+tokenHash)
	_ = s.ephemDel(ctx, keySignupByDest+data.Destination)
	return &data, nil
}

// underResendCooldown reports whether destination requested a code too
// recently. Fails open when the ephemeral store is down: the cooldown is a
// UX guard, not a correctness invariant.
func (s *Service) underResendCooldown(ctx context.Context, destination string) bool {
	if !s.useEphemeralStore() || s.opts.ResendCooldown <= 0 {
		return false
	}
	_, ok, err := s.ephemeralStore.Get(ctx, keyResendCooldown+destination)
	return err == nil && ok
}

func (s *Service) startResendCooldown(ctx context.Context, destination string) {
	if !s.useEphemeralStore() || s.opts.ResendCooldown <= 0 {
		return
	}
	_ = s.ephemSetString(ctx, keyResendCooldown+destination, "1", s.opts.ResendCooldown)
}
