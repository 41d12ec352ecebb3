package core

import (
	"context"
	"fmt"
)

// VerifyResult is the outcome of a successful verification. Returning users
// get Session; new users get SignupToken instead and must complete signup
// before a session is minted.
type VerifyResult struct {
	IdentityID  string
	IsNewUser   bool
	Session     *SessionTokens
	SignupToken string
}

// VerifyCode checks submitted against the latest code for destination and,
// on a match, consumes the record and reconciles the destination to an
// identity.
//
// The record is consumed before reconciliation is trusted, and consumption
// is compare-and-set, so a replay or a concurrent verify of the same code can
// never re-grant access. A mismatch does not consume the record until the
// attempt cap is reached.
func (s *Service) VerifyCode(ctx context.Context, destination, submitted string) (*VerifyResult, error) {
	method := MethodForDestination(destination)
	dest, err := NormalizeDestination(destination, method)
	if err != nil {
		return nil, err
	}
	if s.otp == nil {
		return nil, fmt.Errorf("%w: otp store not configured", ErrStorage)
	}

	rec, err := s.otp.FindLatest(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if rec == nil {
		return nil, ErrNoActiveCode
	}
	match := rec.CodeHash == sha256Hex(submitted)
	if rec.Used {
		if match {
			return nil, ErrCodeAlreadyUsed
		}
		return nil, ErrNoActiveCode
	}
	if s.now().After(rec.ExpiresAt) {
		// Stale, not consumed: a fresh issue is required, never an extension.
		return nil, ErrCodeExpired
	}
	if !match {
		attempts, aerr := s.otp.RecordAttempt(ctx, rec.ID)
		if aerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, aerr)
		}
		if attempts >= s.opts.MaxVerifyAttempts {
			// Burn the record so the remaining keyspace cannot be walked.
			// Delete rather than consume: later submissions, right code or
			// wrong, see no active code and must request a fresh one.
			if err := s.otp.Delete(ctx, rec.ID); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStorage, err)
			}
			return nil, ErrTooManyAttempts
		}
		return nil, ErrCodeMismatch
	}

	consumed, err := s.otp.Consume(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !consumed {
		// Lost the race to a concurrent verify of the same code.
		return nil, ErrCodeAlreadyUsed
	}

	res, err := s.Resolve(ctx, dest, method)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		IdentityID:  res.IdentityID,
		IsNewUser:   res.IsNewUser,
		Session:     res.Session,
		SignupToken: res.SignupToken,
	}, nil
}
