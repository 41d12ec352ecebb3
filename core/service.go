package core

import (
	"context"
	"crypto/rsa"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	jwtkit "github.com/servxpert/authcore/jwt"
)

// Options configures issued tokens and flow timing.
type Options struct {
	Issuer          string
	IssuedAudiences []string
	// ExpectedAudiences enforces that verified access tokens contain at
	// least one of these audiences.
	ExpectedAudiences    []string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	SessionMaxPerUser    int

	// CodeTTL is the absolute expiry offset for one-time codes.
	CodeTTL time.Duration
	// MaxVerifyAttempts bounds mismatched submissions per record; exceeding
	// it consumes the record.
	MaxVerifyAttempts int
	// ResendCooldown is the minimum gap between issue calls per destination.
	// Zero disables the cooldown.
	ResendCooldown time.Duration
	// SignupTokenTTL bounds how long a new user has to complete signup.
	SignupTokenTTL time.Duration
}

// Keyset holds the active signer and the public keys exposed via JWKS.
type Keyset struct {
	Active     jwtkit.Signer
	PublicKeys map[string]*rsa.PublicKey // kid -> pub
}

// SMSSender delivers a rendered message to a phone number.
// Implementations make exactly one delivery attempt per call; retry policy
// belongs to the caller.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// EmailSender delivers a rendered message to an email address.
type EmailSender interface {
	Send(ctx context.Context, email, subject, body string) error
}

// Service is the auth core used by the HTTP adapter: OTP issuance and
// verification, identity reconciliation, and session minting. Collaborators
// are injected, never reached for globally.
type Service struct {
	opts           Options
	keys           Keyset
	sms            SMSSender
	email          EmailSender
	otp            OTPStore
	identities     IdentityStore
	sessions       SessionStore
	ephemeralStore EphemeralStore
	ephemeralMode  EphemeralMode

	// now is swapped in tests to drive expiry.
	now func() time.Time
}

func NewService(opts Options, keys Keyset) *Service {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 5 * time.Minute
	}
	if opts.MaxVerifyAttempts <= 0 {
		opts.MaxVerifyAttempts = 5
	}
	if opts.SignupTokenTTL <= 0 {
		opts.SignupTokenTTL = 15 * time.Minute
	}
	if opts.AccessTokenDuration <= 0 {
		opts.AccessTokenDuration = time.Hour
	}
	if opts.SessionMaxPerUser == 0 {
		opts.SessionMaxPerUser = 3
	}
	return &Service{opts: opts, keys: keys, ephemeralMode: EphemeralMemory, now: time.Now}
}

func (s *Service) WithSMSSender(sender SMSSender) *Service     { s.sms = sender; return s }
func (s *Service) WithEmailSender(sender EmailSender) *Service { s.email = sender; return s }
func (s *Service) WithOTPStore(store OTPStore) *Service        { s.otp = store; return s }
func (s *Service) WithIdentityStore(store IdentityStore) *Service {
	s.identities = store
	return s
}
func (s *Service) WithSessionStore(store SessionStore) *Service { s.sessions = store; return s }

func (s *Service) WithEphemeralStore(store EphemeralStore, mode EphemeralMode) *Service {
	if mode == "" {
		mode = EphemeralMemory
	}
	s.ephemeralStore = store
	s.ephemeralMode = mode
	return s
}

func (s *Service) EphemeralMode() EphemeralMode {
	if s == nil || s.ephemeralMode == "" {
		return EphemeralMemory
	}
	return s.ephemeralMode
}

func (s *Service) HasSMSSender() bool   { return s.sms != nil }
func (s *Service) HasEmailSender() bool { return s.email != nil }

// Options exposes immutable configuration for callers that validate claims.
func (s *Service) Options() Options { return s.opts }

// JWKS returns the deterministic, kid-sorted key set for the JWKS endpoint.
func (s *Service) JWKS() (jwk.Set, error) {
	kids := make([]string, 0, len(s.keys.PublicKeys))
	for kid := range s.keys.PublicKeys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)
	set := jwk.NewSet()
	for _, kid := range kids {
		key, err := jwtkit.RSAPublicToJWK(s.keys.PublicKeys[kid], kid)
		if err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Keyfunc looks up a public key by KID, falling back to the active key.
func (s *Service) Keyfunc() func(token *jwt.Token) (any, error) {
	return func(token *jwt.Token) (any, error) {
		if kid, _ := token.Header["kid"].(string); kid != "" {
			if pub, ok := s.keys.PublicKeys[kid]; ok {
				return pub, nil
			}
		}
		if rsaSigner, ok := s.keys.Active.(*jwtkit.RSASigner); ok {
			return rsaSigner.PublicKey(), nil
		}
		return nil, jwt.ErrTokenUnverifiable
	}
}

// IssueAccessToken builds and signs an access token for the given identity,
// snapshotting role and contact fields into the claims. Extra claims (e.g.
// sid) are merged into the body.
func (s *Service) IssueAccessToken(ctx context.Context, userID string, extra map[string]any) (token string, expiresAt time.Time, err error) {
	now := s.now()
	expiresAt = now.Add(s.opts.AccessTokenDuration)
	claims := map[string]any{
		"iss": s.opts.Issuer,
		"sub": userID,
		"aud": s.opts.IssuedAudiences,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	if s.identities != nil {
		if id, idErr := s.identities.FindByID(ctx, userID); idErr == nil && id != nil {
			if id.Role != nil {
				claims["role"] = string(*id.Role)
			}
			if id.Phone != nil {
				claims["phone"] = *id.Phone
			}
			if id.Email != nil {
				claims["email"] = *id.Email
			}
			if id.Name != nil {
				claims["name"] = *id.Name
			}
		}
	}
	for k, v := range extra {
		claims[k] = v
	}
	tok, err := s.keys.Active.Sign(ctx, claims)
	return tok, expiresAt, err
}

func isDevEnvironment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "dev", "development", "local", "test":
		return true
	}
	return false
}

func getEnvironment() string {
	for _, k := range []string{"ENV", "APP_ENV", "ENVIRONMENT"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// IsDevEnvironment reports whether ENV/APP_ENV/ENVIRONMENT is non-production.
func IsDevEnvironment() bool { return isDevEnvironment(getEnvironment()) }

func devLogCode(channel, destination, code string) {
	stdlog.Printf("[authcore/dev-%s] verification destination=%s code=%s", channel, destination, code)
}
