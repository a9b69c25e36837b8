// Package credentials verifies identifier/password pairs against the user store
// without revealing whether an identifier exists.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/loginguard/password"
)

// Outcome classifies a verification.
type Outcome uint8

const (
	OutcomeNoMatch Outcome = iota
	OutcomeMatch
	OutcomeUserNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeUserNotFound:
		return "user_not_found"
	default:
		return "no_match"
	}
}

var (
	// ErrNotFound must be returned by a [Lookup] for unknown identifiers.
	ErrNotFound = errors.New("credential record not found")
	// ErrLookupFailed wraps every other lookup failure.
	ErrLookupFailed = errors.New("credential lookup failed")
)

// Record is the stored credential of one user.
type Record struct {
	UserID       string
	PasswordHash string
	Status       uint8
}

// Lookup fetches the credential record for identifier.
type Lookup func(ctx context.Context, identifier string) (Record, error)

// Result is the outcome of [Verifier.Verify]. Record is only set for
// OutcomeMatch and OutcomeNoMatch.
type Result struct {
	Outcome Outcome
	Record  Record
}

// Verifier compares passwords against stored argon2id hashes.
type Verifier struct {
	lookup  Lookup
	hasher  *password.Hasher
	timeout time.Duration
}

// NewVerifier creates a Verifier. timeout bounds each lookup; zero disables
// the extra bound and relies on the caller's context.
func NewVerifier(lookup Lookup, hasher *password.Hasher, timeout time.Duration) (*Verifier, error) {
	if lookup == nil {
		return nil, errors.New("credentials: nil lookup")
	}
	if hasher == nil {
		return nil, errors.New("credentials: nil hasher")
	}
	return &Verifier{lookup: lookup, hasher: hasher, timeout: timeout}, nil
}

// Verify looks up identifier and compares password in constant time.
//
// Unknown identifiers run the decoy derivation so they cost the same as a
// wrong password. A stored hash that cannot be parsed also runs the decoy and
// returns OutcomeNoMatch together with an error wrapping
// [password.ErrMalformedHash]. Lookup failures return [ErrLookupFailed].
func (v *Verifier) Verify(ctx context.Context, identifier, plaintext string) (Result, error) {
	record, err := v.find(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			v.hasher.VerifyDecoy(plaintext)
			return Result{Outcome: OutcomeUserNotFound}, nil
		}
		return Result{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	ok, err := v.hasher.Verify(plaintext, record.PasswordHash)
	if err != nil {
		v.hasher.VerifyDecoy(plaintext)
		return Result{Outcome: OutcomeNoMatch, Record: record}, err
	}
	if !ok {
		return Result{Outcome: OutcomeNoMatch, Record: record}, nil
	}
	return Result{Outcome: OutcomeMatch, Record: record}, nil
}

func (v *Verifier) find(ctx context.Context, identifier string) (Record, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	return v.lookup(ctx, identifier)
}

// Hasher returns the password hasher used for comparisons.
func (v *Verifier) Hasher() *password.Hasher {
	return v.hasher
}
