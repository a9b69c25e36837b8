package session

import "time"

// Session is the persisted record behind an access token.
type Session struct {
	ID        string
	UserID    string
	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the session has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}

// Token is what a successful login hands to the caller.
type Token struct {
	SessionID   string
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}
