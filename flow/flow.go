// Package flow drives a client through the destination → code → signup-details
// steps of the login flow. State is transient and local to one end user; a
// terminal outcome hands back the session and the flow stops accepting input.
package flow

import (
	"context"
	"errors"

	"github.com/servxpert/authcore/core"
)

// Step is the current position in the login flow.
type Step string

const (
	StepInput         Step = "input"
	StepOTP           Step = "otp"
	StepSignupDetails Step = "signup-details"
	StepDone          Step = "done"
)

var (
	ErrFlowDone       = errors.New("flow already completed")
	ErrWrongStep      = errors.New("operation not valid in current step")
	ErrNothingPending = errors.New("no destination submitted yet")
)

// Outcome is the terminal result of a completed flow.
type Outcome struct {
	IdentityID string
	Session    *core.SessionTokens
}

// Flow is one user's pass through the login steps. Not safe for concurrent
// use; each end user session owns its own Flow.
type Flow struct {
	svc *core.Service

	step        Step
	method      core.Method
	destination string
	signupToken string
	outcome     *Outcome
}

func New(svc *core.Service) *Flow {
	return &Flow{svc: svc, step: StepInput}
}

func (f *Flow) Step() Step          { return f.step }
func (f *Flow) Method() core.Method { return f.method }
func (f *Flow) Outcome() *Outcome   { return f.outcome }

// SubmitDestination validates the destination, requests a code and advances
// input → otp. On error the flow stays on input.
func (f *Flow) SubmitDestination(ctx context.Context, destination string) (*core.IssueResult, error) {
	switch f.step {
	case StepInput:
	case StepDone:
		return nil, ErrFlowDone
	default:
		return nil, ErrWrongStep
	}
	method := core.MethodForDestination(destination)
	res, err := f.svc.IssueCode(ctx, destination, method)
	if err != nil {
		return nil, err
	}
	normalized, nerr := core.NormalizeDestination(destination, method)
	if nerr != nil {
		return nil, nerr
	}
	f.destination = normalized
	f.method = method
	f.step = StepOTP
	return res, nil
}

// Resend requests a fresh code for the already submitted destination without
// leaving the otp step.
func (f *Flow) Resend(ctx context.Context) (*core.IssueResult, error) {
	if f.step == StepDone {
		return nil, ErrFlowDone
	}
	if f.step != StepOTP {
		return nil, ErrWrongStep
	}
	if f.destination == "" {
		return nil, ErrNothingPending
	}
	return f.svc.IssueCode(ctx, f.destination, f.method)
}

// SubmitCode verifies the code. A returning user completes the flow; a new
// user advances otp → signup-details. On error the flow stays on otp.
func (f *Flow) SubmitCode(ctx context.Context, code string) (*core.VerifyResult, error) {
	if f.step == StepDone {
		return nil, ErrFlowDone
	}
	if f.step != StepOTP {
		return nil, ErrWrongStep
	}
	res, err := f.svc.VerifyCode(ctx, f.destination, code)
	if err != nil {
		return nil, err
	}
	if res.IsNewUser {
		f.signupToken = res.SignupToken
		f.step = StepSignupDetails
		return res, nil
	}
	f.outcome = &Outcome{IdentityID: res.IdentityID, Session: res.Session}
	f.step = StepDone
	return res, nil
}

// SubmitProfile completes signup for a new user and finishes the flow. On
// error the flow stays on signup-details.
func (f *Flow) SubmitProfile(ctx context.Context, profile core.SignupProfile) (*Outcome, error) {
	if f.step == StepDone {
		return nil, ErrFlowDone
	}
	if f.step != StepSignupDetails {
		return nil, ErrWrongStep
	}
	identity, session, err := f.svc.CompleteSignup(ctx, f.signupToken, profile)
	if err != nil {
		return nil, err
	}
	f.signupToken = ""
	f.outcome = &Outcome{IdentityID: identity.ID, Session: session}
	f.step = StepDone
	return f.outcome, nil
}

// Back steps otp → input or signup-details → otp. Going back from otp
// forgets the destination and method so both can be chosen again.
func (f *Flow) Back() error {
	switch f.step {
	case StepOTP:
		f.destination = ""
		f.method = ""
		f.step = StepInput
		return nil
	case StepSignupDetails:
		f.step = StepOTP
		return nil
	case StepDone:
		return ErrFlowDone
	default:
		return ErrWrongStep
	}
}

// Reset discards all transient state and returns to input. An issued but
// unverified code needs no cleanup; it expires on its own.
func (f *Flow) Reset() {
	f.step = StepInput
	f.method = ""
	f.destination = ""
	f.signupToken = ""
	f.outcome = nil
}
