package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servxpert/authcore/core"
)

// SessionStore persists refresh sessions in profiles.refresh_sessions.
// Rotation keeps the previous token hash so reuse of a rotated-out token is
// detectable.
type SessionStore struct {
	pg *pgxpool.Pool
}

func NewSessionStore(pg *pgxpool.Pool) *SessionStore {
	return &SessionStore{pg: pg}
}

func (s *SessionStore) Create(ctx context.Context, userID, issuer, tokenHash string, expiresAt *time.Time) (string, error) {
	var sid string
	err := s.pg.QueryRow(ctx, `INSERT INTO profiles.refresh_sessions (user_id, issuer, current_token_hash, expires_at)
          VALUES ($1,$2,$3,$4)
          RETURNING id::text`, userID, issuer, tokenHash, expiresAt).Scan(&sid)
	return sid, err
}

func (s *SessionStore) FindByCurrentHash(ctx context.Context, issuer, tokenHash string) (*core.Session, error) {
	row := s.pg.QueryRow(ctx, `SELECT id::text, user_id::text, created_at, last_used_at, expires_at, revoked_at
          FROM profiles.refresh_sessions
          WHERE current_token_hash=$1 AND issuer=$2 AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at>now())`,
		tokenHash, issuer)
	return scanSession(row)
}

func (s *SessionStore) FindByPreviousHash(ctx context.Context, issuer, tokenHash string) (*core.Session, error) {
	row := s.pg.QueryRow(ctx, `SELECT id::text, user_id::text, created_at, last_used_at, expires_at, revoked_at
          FROM profiles.refresh_sessions
          WHERE previous_token_hash=$1 AND issuer=$2 AND revoked_at IS NULL`,
		tokenHash, issuer)
	return scanSession(row)
}

func (s *SessionStore) Rotate(ctx context.Context, id, newTokenHash string) error {
	_, err := s.pg.Exec(ctx, `UPDATE profiles.refresh_sessions
          SET previous_token_hash=current_token_hash, current_token_hash=$1, last_used_at=now()
          WHERE id=$2 AND revoked_at IS NULL`, newTokenHash, id)
	return err
}

func (s *SessionStore) Revoke(ctx context.Context, id string) error {
	_, err := s.pg.Exec(ctx, `UPDATE profiles.refresh_sessions SET revoked_at=now() WHERE id=$1 AND revoked_at IS NULL`, id)
	return err
}

func (s *SessionStore) RevokeOldest(ctx context.Context, userID, issuer string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := s.pg.Exec(ctx, `UPDATE profiles.refresh_sessions SET revoked_at=now()
          WHERE id IN (
              SELECT id FROM profiles.refresh_sessions
              WHERE user_id=$1 AND issuer=$2 AND revoked_at IS NULL AND (expires_at IS NULL OR expires_at>now())
              ORDER BY created_at DESC
              OFFSET $3
          )`, userID, issuer, keep)
	return err
}

func scanSession(row pgx.Row) (*core.Session, error) {
	sess := &core.Session{}
	err := row.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.LastUsedAt, &sess.ExpiresAt, &sess.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}
