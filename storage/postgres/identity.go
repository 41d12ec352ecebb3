package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servxpert/authcore/core"
)

// IdentityStore persists identities in profiles.users. Role is nullable; a
// NULL role marks a shell created at first verification that has not finished
// signup.
type IdentityStore struct {
	pg *pgxpool.Pool
}

func NewIdentityStore(pg *pgxpool.Pool) *IdentityStore {
	return &IdentityStore{pg: pg}
}

const identityCols = `id::text, phone, email, name, role, is_active, created_at, updated_at, last_login`

func (s *IdentityStore) FindByDestination(ctx context.Context, destination string, method core.Method) (*core.Identity, error) {
	col := "phone"
	if method == core.MethodEmail {
		col = "email"
	}
	row := s.pg.QueryRow(ctx, `SELECT `+identityCols+` FROM profiles.users WHERE `+col+`=$1`, destination)
	return scanIdentity(row)
}

func (s *IdentityStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+identityCols+` FROM profiles.users WHERE id=$1`, id)
	return scanIdentity(row)
}

func (s *IdentityStore) CreateShell(ctx context.Context, destination string, method core.Method) (*core.Identity, error) {
	col := "phone"
	if method == core.MethodEmail {
		col = "email"
	}
	row := s.pg.QueryRow(ctx, `INSERT INTO profiles.users (`+col+`) VALUES ($1) RETURNING `+identityCols, destination)
	return scanIdentity(row)
}

func (s *IdentityStore) Provision(ctx context.Context, id string, profile core.SignupProfile) (*core.Identity, error) {
	row := s.pg.QueryRow(ctx, `UPDATE profiles.users
          SET name=$2, role=$3,
              email=COALESCE(email, NULLIF($4,'')),
              phone=COALESCE(phone, NULLIF($5,'')),
              updated_at=now()
          WHERE id=$1
          RETURNING `+identityCols,
		id, profile.Name, string(profile.Role), profile.SecondaryEmail, profile.SecondaryPhone)
	identity, err := scanIdentity(row)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, errors.New("identity not found")
	}
	return identity, nil
}

func (s *IdentityStore) SetRole(ctx context.Context, id string, role core.Role) error {
	tag, err := s.pg.Exec(ctx, `UPDATE profiles.users SET role=$2, updated_at=now() WHERE id=$1`, id, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("identity not found")
	}
	return nil
}

func (s *IdentityStore) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.pg.Exec(ctx, `UPDATE profiles.users SET last_login=now() WHERE id=$1`, id)
	return err
}

func scanIdentity(row pgx.Row) (*core.Identity, error) {
	identity := &core.Identity{}
	var role *string
	err := row.Scan(&identity.ID, &identity.Phone, &identity.Email, &identity.Name, &role,
		&identity.IsActive, &identity.CreatedAt, &identity.UpdatedAt, &identity.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if role != nil {
		r := core.Role(*role)
		identity.Role = &r
	}
	return identity, nil
}
