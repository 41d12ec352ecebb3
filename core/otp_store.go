package core

import (
	"context"
	"time"
)

// OTPRecord is one issued code for a destination. The plaintext code is never
// stored; only its sha256 hex digest.
type OTPRecord struct {
	ID          string
	Destination string
	CodeHash    string
	ExpiresAt   time.Time
	Used        bool
	Attempts    int
	CreatedAt   time.Time
}

// OTPStore persists one-time codes keyed by destination.
//
// Put must be atomic with respect to concurrent Put calls for the same
// destination: it invalidates every prior unused record before inserting the
// new one, so at most one unused record exists per destination at any time,
// even under a resend race.
type OTPStore interface {
	// Put deletes all unused records for destination and inserts a fresh one.
	Put(ctx context.Context, destination, codeHash string, expiresAt time.Time) (*OTPRecord, error)

	// FindLatest returns the most recently created record for destination,
	// used or not, or (nil, nil) when none exists.
	FindLatest(ctx context.Context, destination string) (*OTPRecord, error)

	// Consume flips used=true if and only if the record is still unused and
	// reports whether this call won. Exactly one of any set of concurrent
	// callers sees true.
	Consume(ctx context.Context, id string) (bool, error)

	// Delete removes a record outright, as when the attempt cap burns it.
	Delete(ctx context.Context, id string) error

	// RecordAttempt increments the failed-attempt counter and returns the new
	// count.
	RecordAttempt(ctx context.Context, id string) (int, error)

	// PurgeExpired removes records whose expiry is before the cutoff.
	// Storage hygiene only; correctness never depends on it.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
