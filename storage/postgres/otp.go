package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servxpert/authcore/core"
)

// OTPStore persists one-time codes in profiles.otp_codes.
//
// Expected schema:
//
//	CREATE TABLE profiles.otp_codes (
//	    id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
//	    destination text NOT NULL,
//	    code_hash   text NOT NULL,
//	    expires_at  timestamptz NOT NULL,
//	    used        boolean NOT NULL DEFAULT false,
//	    attempts    int NOT NULL DEFAULT 0,
//	    created_at  timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE UNIQUE INDEX otp_codes_one_live
//	    ON profiles.otp_codes (destination) WHERE NOT used;
type OTPStore struct {
	pg *pgxpool.Pool
}

func NewOTPStore(pg *pgxpool.Pool) *OTPStore {
	return &OTPStore{pg: pg}
}

func (s *OTPStore) Put(ctx context.Context, destination, codeHash string, expiresAt time.Time) (*core.OTPRecord, error) {
	// Delete-then-insert in one transaction so at most one unused row exists
	// per destination. The partial unique index backstops a lost race.
	tx, err := s.pg.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM profiles.otp_codes WHERE destination=$1 AND NOT used`, destination); err != nil {
		return nil, err
	}
	rec := &core.OTPRecord{Destination: destination, CodeHash: codeHash, ExpiresAt: expiresAt}
	err = tx.QueryRow(ctx, `INSERT INTO profiles.otp_codes (destination, code_hash, expires_at)
          VALUES ($1,$2,$3)
          RETURNING id::text, created_at`, destination, codeHash, expiresAt).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *OTPStore) FindLatest(ctx context.Context, destination string) (*core.OTPRecord, error) {
	rec := &core.OTPRecord{}
	err := s.pg.QueryRow(ctx, `SELECT id::text, destination, code_hash, expires_at, used, attempts, created_at
          FROM profiles.otp_codes
          WHERE destination=$1
          ORDER BY created_at DESC
          LIMIT 1`, destination).
		Scan(&rec.ID, &rec.Destination, &rec.CodeHash, &rec.ExpiresAt, &rec.Used, &rec.Attempts, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *OTPStore) Consume(ctx context.Context, id string) (bool, error) {
	// Compare-and-set: the NOT used guard means exactly one of any set of
	// concurrent consumers updates a row.
	tag, err := s.pg.Exec(ctx, `UPDATE profiles.otp_codes SET used=true WHERE id=$1 AND NOT used`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *OTPStore) Delete(ctx context.Context, id string) error {
	_, err := s.pg.Exec(ctx, `DELETE FROM profiles.otp_codes WHERE id=$1`, id)
	return err
}

func (s *OTPStore) RecordAttempt(ctx context.Context, id string) (int, error) {
	var n int
	err := s.pg.QueryRow(ctx, `UPDATE profiles.otp_codes SET attempts=attempts+1 WHERE id=$1 RETURNING attempts`, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (s *OTPStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pg.Exec(ctx, `DELETE FROM profiles.otp_codes WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
