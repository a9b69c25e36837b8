package loginguard

import (
	"errors"
	"fmt"
	"time"
)

// RejectKind classifies a denied login.
type RejectKind string

const (
	RejectValidation         RejectKind = "validation_failed"
	RejectRateLimited        RejectKind = "rate_limited"
	RejectLocked             RejectKind = "locked"
	RejectInvalidCredentials RejectKind = "invalid_credentials"
	RejectUnavailable        RejectKind = "unavailable"
)

// Rejection is the error returned by [Engine.Login] for every denied attempt.
// errors.Is matches the sentinel of its kind, e.g. ErrLoginRateLimited.
type Rejection struct {
	Kind RejectKind
	// RetryAfter is set for RejectRateLimited and RejectLocked.
	RetryAfter time.Duration
	// FieldErrors is set for RejectValidation, ordered identifier then password.
	FieldErrors []FieldError

	cause error
}

func (r *Rejection) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("login rejected: %s (retry after %s)", r.Kind, r.RetryAfter.Round(time.Second))
	}
	return "login rejected: " + string(r.Kind)
}

// Unwrap returns the kind's sentinel error.
func (r *Rejection) Unwrap() error {
	switch r.Kind {
	case RejectValidation:
		return ErrValidationFailed
	case RejectRateLimited:
		return ErrLoginRateLimited
	case RejectLocked:
		return ErrAccountLocked
	case RejectInvalidCredentials:
		return ErrInvalidCredentials
	default:
		return ErrBackendUnavailable
	}
}

// Cause returns the dependency failure behind a RejectUnavailable. It is for
// operator logs and must not be shown to the caller.
func (r *Rejection) Cause() error {
	return r.cause
}

// AsRejection extracts a *Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
