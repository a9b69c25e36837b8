package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/loginguard/session"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureUnauthorized
	ValidateFailureSessionNotFound
	ValidateFailureUnavailable
)

// ValidateResult returns either a session or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Session *session.Session
}

// ValidateDeps captures session validation dependencies.
type ValidateDeps struct {
	Validate         func(context.Context, string) (*session.Session, error)
	Unavailable      error
	SessionNotFound  error
	ValidateDisabled error
}

// RunValidate verifies an access token and checks its session is still live.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	if deps.Validate == nil {
		return ValidateResult{Failure: ValidateFailureUnauthorized, Err: deps.ValidateDisabled}
	}
	if tokenStr == "" {
		return ValidateResult{Failure: ValidateFailureUnauthorized}
	}

	sess, err := deps.Validate(ctx, tokenStr)
	if err != nil {
		switch {
		case deps.Unavailable != nil && errors.Is(err, deps.Unavailable):
			return ValidateResult{Failure: ValidateFailureUnavailable, Err: err}
		case deps.SessionNotFound != nil && errors.Is(err, deps.SessionNotFound):
			return ValidateResult{Failure: ValidateFailureSessionNotFound, Err: err}
		default:
			return ValidateResult{Failure: ValidateFailureUnauthorized, Err: err}
		}
	}
	return ValidateResult{Session: sess}
}
