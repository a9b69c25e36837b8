package loginguard

import (
	"context"

	"github.com/MrEthical07/loginguard/session"
	"github.com/MrEthical07/loginguard/validation"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive accounts may log in.
	AccountActive AccountStatus = iota
	AccountPendingVerification
	AccountDisabled
	AccountLocked
	AccountDeleted
)

func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "active"
	case AccountPendingVerification:
		return "pending_verification"
	case AccountDisabled:
		return "disabled"
	case AccountLocked:
		return "locked"
	case AccountDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// CredentialRecord is what a [UserStore] returns for an identifier.
type CredentialRecord struct {
	UserID       string
	PasswordHash string
	Status       AccountStatus
}

// UserStore looks up credentials. It is read-only from the engine's point of
// view and may be slow; each call is bounded by UserStore.LookupTimeout.
type UserStore interface {
	// FindByIdentifier returns ErrUserNotFound for unknown identifiers.
	FindByIdentifier(ctx context.Context, identifier string) (CredentialRecord, error)
}

// PasswordHashUpdater is optionally implemented by a [UserStore] to accept
// rehashed passwords after a successful login.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// SessionToken is the credential handed out on successful login.
type SessionToken = session.Token

// Session is a live session as seen by [Engine.ValidateSession].
type Session = session.Session

// SessionIssuer creates sessions for authenticated users.
type SessionIssuer interface {
	IssueSession(ctx context.Context, userID string) (SessionToken, error)
}

// SessionValidator is optionally implemented by a [SessionIssuer].
type SessionValidator interface {
	Validate(ctx context.Context, accessToken string) (*Session, error)
}

// SessionRevoker is optionally implemented by a [SessionIssuer].
type SessionRevoker interface {
	Revoke(ctx context.Context, accessToken string) (*Session, error)
	RevokeAll(ctx context.Context, userID string) (int, error)
}

// FieldError describes one invalid input field.
type FieldError = validation.FieldError

// LoginResult is returned by a successful [Engine.Login].
type LoginResult struct {
	UserID string
	Token  SessionToken
}
