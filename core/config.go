package core

import (
	"fmt"
	"strings"
	"time"

	jwtkit "github.com/servxpert/authcore/jwt"
)

// Config is the high-level entry point: provide issuer, durations, and keys;
// everything else has sane defaults.
type Config struct {
	Issuer            string
	IssuedAudiences   []string
	ExpectedAudiences []string

	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	SessionMaxPerUser    int // 0 = default 3; eviction is always evict-oldest

	CodeTTL           time.Duration // default 5m
	MaxVerifyAttempts int           // default 5
	ResendCooldown    time.Duration // default 30s; negative disables
	SignupTokenTTL    time.Duration // default 15m

	// Keys can be nil - keys are then auto-discovered from environment
	// variables or generated for development.
	Keys jwtkit.KeySource
}

// NewFromConfig creates a Service from Config, auto-discovering JWT keys
// when none are provided.
func NewFromConfig(cfg Config) (*Service, error) {
	keySource := cfg.Keys
	if keySource == nil {
		var err error
		keySource, err = jwtkit.NewAutoKeySource()
		if err != nil {
			return nil, fmt.Errorf("authcore: failed to discover JWT keys: %w", err)
		}
	}
	ks := Keyset{Active: keySource.ActiveSigner(), PublicKeys: keySource.PublicKeys()}

	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("authcore: Issuer is required (e.g. \"https://servxpert.app\")")
	}
	if len(cfg.IssuedAudiences) == 0 {
		return nil, fmt.Errorf("authcore: IssuedAudiences is required (e.g. []string{\"servxpert\"})")
	}
	expected := cfg.ExpectedAudiences
	if len(expected) == 0 {
		expected = cfg.IssuedAudiences
	}

	cooldown := cfg.ResendCooldown
	if cooldown == 0 {
		cooldown = 30 * time.Second
	} else if cooldown < 0 {
		cooldown = 0
	}

	opts := Options{
		Issuer:               cfg.Issuer,
		IssuedAudiences:      cfg.IssuedAudiences,
		ExpectedAudiences:    expected,
		AccessTokenDuration:  cfg.AccessTokenDuration,
		RefreshTokenDuration: cfg.RefreshTokenDuration,
		SessionMaxPerUser:    cfg.SessionMaxPerUser,
		CodeTTL:              cfg.CodeTTL,
		MaxVerifyAttempts:    cfg.MaxVerifyAttempts,
		ResendCooldown:       cooldown,
		SignupTokenTTL:       cfg.SignupTokenTTL,
	}
	return NewService(opts, ks), nil
}
