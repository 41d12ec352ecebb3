package core

import (
	"context"
	"fmt"
	"time"
)

// PurgeExpiredCodes removes OTP records whose expiry is older than cutoff.
// Called by the background purge job; never required for correctness.
func (s *Service) PurgeExpiredCodes(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.otp == nil {
		return 0, fmt.Errorf("%w: otp store not configured", ErrStorage)
	}
	return s.otp.PurgeExpired(ctx, cutoff)
}
