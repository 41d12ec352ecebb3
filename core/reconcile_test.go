package core

import (
	"context"
	"errors"
	"testing"
)

func TestCompleteSignupProvisionsAndMints(t *testing.T) {
	env := newTestEnv(t, Options{})
	res, err := env.svc.Resolve(context.Background(), "+919876543210", MethodPhone)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.IsNewUser || res.SignupToken == "" {
		t.Fatal("unseen destination must resolve to a new user with a signup token")
	}

	id, tokens, err := env.svc.CompleteSignup(context.Background(), res.SignupToken, SignupProfile{
		Name:           "Asha",
		Role:           RoleWorker,
		SecondaryEmail: "asha@example.com",
	})
	if err != nil {
		t.Fatalf("CompleteSignup failed: %v", err)
	}
	if id.Role == nil || *id.Role != RoleWorker {
		t.Fatalf("expected worker role, got %v", id.Role)
	}
	if id.Email == nil || *id.Email != "asha@example.com" {
		t.Fatal("secondary email not recorded")
	}
	if tokens == nil || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected a full session after signup")
	}
}

func TestSignupTokenSingleUse(t *testing.T) {
	env := newTestEnv(t, Options{})
	res, err := env.svc.Resolve(context.Background(), "+919876543210", MethodPhone)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	profile := SignupProfile{Name: "Asha", Role: RoleCustomer}
	if _, _, err := env.svc.CompleteSignup(context.Background(), res.SignupToken, profile); err != nil {
		t.Fatalf("first CompleteSignup failed: %v", err)
	}
	if _, _, err := env.svc.CompleteSignup(context.Background(), res.SignupToken, profile); !errors.Is(err, ErrSignupTokenStale) {
		t.Fatalf("expected ErrSignupTokenStale on reuse, got %v", err)
	}
}

func TestSignupTokenSupersededByReverify(t *testing.T) {
	env := newTestEnv(t, Options{})
	first, err := env.svc.Resolve(context.Background(), "+919876543210", MethodPhone)
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	second, err := env.svc.Resolve(context.Background(), "+919876543210", MethodPhone)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if second.IdentityID != first.IdentityID {
		t.Fatal("re-verifying before signup must reuse the shell identity")
	}

	profile := SignupProfile{Name: "Asha", Role: RoleCustomer}
	if _, _, err := env.svc.CompleteSignup(context.Background(), first.SignupToken, profile); !errors.Is(err, ErrSignupTokenStale) {
		t.Fatalf("expected the older token to be superseded, got %v", err)
	}
	if _, _, err := env.svc.CompleteSignup(context.Background(), second.SignupToken, profile); err != nil {
		t.Fatalf("newest token rejected: %v", err)
	}
}

func TestCompleteSignupValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	res, err := env.svc.Resolve(context.Background(), "+919876543210", MethodPhone)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	cases := []struct {
		name    string
		profile SignupProfile
	}{
		{"missing name", SignupProfile{Role: RoleCustomer}},
		{"bad role", SignupProfile{Name: "Asha", Role: Role("root")}},
		{"bad secondary email", SignupProfile{Name: "Asha", Role: RoleCustomer, SecondaryEmail: "nope"}},
		{"bad secondary phone", SignupProfile{Name: "Asha", Role: RoleCustomer, SecondaryPhone: "12345"}},
	}
	for _, tc := range cases {
		if _, _, err := env.svc.CompleteSignup(context.Background(), res.SignupToken, tc.profile); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}

	// Validation failures must not consume the token.
	if _, _, err := env.svc.CompleteSignup(context.Background(), res.SignupToken, SignupProfile{
		Name: "Asha", Role: RoleCustomer,
	}); err != nil {
		t.Fatalf("token consumed by a rejected profile: %v", err)
	}
}

func TestAdminSwitchRole(t *testing.T) {
	env := newTestEnv(t, Options{})
	res, err := env.svc.Resolve(context.Background(), "+919876543210", MethodPhone)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// A shell identity has no role yet and cannot be switched.
	if err := env.svc.AdminSwitchRole(context.Background(), res.IdentityID, RoleWorker); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for an unprovisioned target, got %v", err)
	}

	if _, _, err := env.svc.CompleteSignup(context.Background(), res.SignupToken, SignupProfile{
		Name: "Asha", Role: RoleCustomer,
	}); err != nil {
		t.Fatalf("CompleteSignup failed: %v", err)
	}
	if err := env.svc.AdminSwitchRole(context.Background(), res.IdentityID, RoleWorker); err != nil {
		t.Fatalf("AdminSwitchRole failed: %v", err)
	}
	id, err := env.svc.GetIdentity(context.Background(), res.IdentityID)
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if id.Role == nil || *id.Role != RoleWorker {
		t.Fatalf("role not switched, got %v", id.Role)
	}

	if err := env.svc.AdminSwitchRole(context.Background(), res.IdentityID, Role("root")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for an unknown role, got %v", err)
	}
}

func TestSessionCapEvictsOldest(t *testing.T) {
	env := newTestEnv(t, Options{SessionMaxPerUser: 2})
	res, err := env.svc.Resolve(context.Background(), "+919876543210", MethodPhone)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, _, err := env.svc.CompleteSignup(context.Background(), res.SignupToken, SignupProfile{
		Name: "Asha", Role: RoleCustomer,
	}); err != nil {
		t.Fatalf("CompleteSignup failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, _, err := env.svc.IssueRefreshSession(context.Background(), res.IdentityID); err != nil {
			t.Fatalf("IssueRefreshSession %d failed: %v", i, err)
		}
	}
	if n := env.sessions.LiveCount(res.IdentityID); n != 2 {
		t.Fatalf("expected 2 live sessions after eviction, got %d", n)
	}
}
