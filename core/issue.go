package core

import (
	"context"
	"fmt"
)

// IssueResult reports the expiry window for client-side countdown display.
type IssueResult struct {
	ExpiresIn int // seconds
}

// IssueCode validates the destination, generates a fresh code, supersedes any
// prior unused code for the destination, and dispatches the rendered message
// over the channel for method.
//
// A delivery failure does not retract the stored record: a legitimate resend
// supersedes it naturally, and retracting would let a failed send erase a
// code that was in fact delivered.
func (s *Service) IssueCode(ctx context.Context, destination string, method Method) (*IssueResult, error) {
	dest, err := NormalizeDestination(destination, method)
	if err != nil {
		return nil, err
	}
	if s.otp == nil {
		return nil, fmt.Errorf("%w: otp store not configured", ErrStorage)
	}
	if s.underResendCooldown(ctx, dest) {
		return nil, ErrResendCooldown
	}

	code := generateCode()
	expiresAt := s.now().Add(s.opts.CodeTTL)

	// The atomic supersede-then-insert: after this point at most one unused
	// record exists for dest, and it carries this code.
	if _, err := s.otp.Put(ctx, dest, sha256Hex(code), expiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.startResendCooldown(ctx, dest)

	minutes := int(s.opts.CodeTTL.Minutes())
	if err := s.deliver(ctx, dest, method, code, minutes); err != nil {
		return nil, err
	}
	return &IssueResult{ExpiresIn: int(s.opts.CodeTTL.Seconds())}, nil
}

func (s *Service) deliver(ctx context.Context, dest string, method Method, code string, minutes int) error {
	switch method {
	case MethodPhone:
		if s.sms == nil {
			if !IsDevEnvironment() {
				return fmt.Errorf("%w: no SMS sender", ErrProviderConfig)
			}
			devLogCode("sms", dest, code)
			return nil
		}
		return s.sms.Send(ctx, dest, renderSMS(code, minutes))
	case MethodEmail:
		if s.email == nil {
			if !IsDevEnvironment() {
				return fmt.Errorf("%w: no email sender", ErrProviderConfig)
			}
			devLogCode("email", dest, code)
			return nil
		}
		return s.email.Send(ctx, dest, renderEmailSubject(), renderEmailBody(code, minutes))
	}
	return fmt.Errorf("%w: unknown method %q", ErrValidation, method)
}
