package session

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/loginguard/jwt"
	"github.com/google/uuid"
)

// ErrSessionRevoked is returned when a token verifies but its session is gone.
var ErrSessionRevoked = errors.New("session revoked")

// Issuer binds signed access tokens to sessions held in a [Store].
type Issuer struct {
	store  *Store
	tokens *jwt.Manager
	now    func() time.Time
}

// NewIssuer creates an [Issuer]. Session lifetime equals the token TTL.
func NewIssuer(store *Store, tokens *jwt.Manager) *Issuer {
	return &Issuer{store: store, tokens: tokens, now: time.Now}
}

// IssueSession creates a session for userID and returns its access token.
func (i *Issuer) IssueSession(ctx context.Context, userID string) (Token, error) {
	if userID == "" {
		return Token{}, errors.New("user id is required")
	}

	now := i.now()
	id := uuid.NewString()

	access, expiresAt, err := i.tokens.Issue(userID, id, now)
	if err != nil {
		return Token{}, err
	}

	sess := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}
	if err := i.store.Save(ctx, sess, i.tokens.TTL()); err != nil {
		return Token{}, err
	}

	return Token{
		SessionID:   id,
		UserID:      userID,
		AccessToken: access,
		ExpiresAt:   expiresAt,
	}, nil
}

// Validate verifies an access token and checks its session is still live.
func (i *Issuer) Validate(ctx context.Context, accessToken string) (*Session, error) {
	claims, err := i.tokens.Parse(accessToken)
	if err != nil {
		return nil, err
	}

	sess, err := i.store.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}
	if sess.UserID != claims.UserID() {
		return nil, ErrSessionRevoked
	}
	return sess, nil
}

// Revoke deletes the session behind accessToken. The token must still verify.
func (i *Issuer) Revoke(ctx context.Context, accessToken string) (*Session, error) {
	claims, err := i.tokens.Parse(accessToken)
	if err != nil {
		return nil, err
	}
	if err := i.store.Delete(ctx, claims.UserID(), claims.SID); err != nil {
		return nil, err
	}
	return &Session{ID: claims.SID, UserID: claims.UserID()}, nil
}

// RevokeAll deletes every session of userID and returns how many were live.
func (i *Issuer) RevokeAll(ctx context.Context, userID string) (int, error) {
	return i.store.DeleteAllForUser(ctx, userID)
}

// Ping checks the backing store.
func (i *Issuer) Ping(ctx context.Context) (time.Duration, error) {
	return i.store.Ping(ctx)
}

// ActiveSessionCount returns the number of live sessions for userID.
func (i *Issuer) ActiveSessionCount(ctx context.Context, userID string) (int, error) {
	return i.store.ActiveSessionCount(ctx, userID)
}
