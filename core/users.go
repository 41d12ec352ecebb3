package core

import (
	"context"
	"time"
)

// Role is the closed set of marketplace roles. An Identity created by the
// reconciler has no role until signup completes; dashboards must treat a
// role-less identity as not-yet-routable.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleWorker   Role = "worker"
	RoleAdmin    Role = "admin"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleCustomer, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

// Identity is an account keyed by a verified destination. Exactly one
// Identity exists per destination.
type Identity struct {
	ID        string
	Phone     *string
	Email     *string
	Name      *string
	Role      *Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	LastLogin *time.Time
}

// Provisioned reports whether the identity finished signup.
func (id *Identity) Provisioned() bool { return id != nil && id.Role != nil }

// SignupProfile carries the fields collected on the signup-details step.
type SignupProfile struct {
	Name string
	Role Role
	// Optional secondary contact: email for phone signups, phone for email
	// signups.
	SecondaryEmail string
	SecondaryPhone string
}

// IdentityStore persists identities. The Postgres implementation lives in
// storage/postgres; storage/memory is for tests and the devserver.
type IdentityStore interface {
	// FindByDestination does an exact-match lookup on phone or email
	// depending on method. Returns (nil, nil) when absent.
	FindByDestination(ctx context.Context, destination string, method Method) (*Identity, error)

	FindByID(ctx context.Context, id string) (*Identity, error)

	// CreateShell records a destination with no role or name. The identity
	// exists but is incomplete until Provision.
	CreateShell(ctx context.Context, destination string, method Method) (*Identity, error)

	// Provision sets name, role and optional secondary contact on a shell.
	Provision(ctx context.Context, id string, profile SignupProfile) (*Identity, error)

	// SetRole updates the role of an already provisioned identity.
	SetRole(ctx context.Context, id string, role Role) error

	TouchLastLogin(ctx context.Context, id string) error
}
