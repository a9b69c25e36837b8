package flows

import (
	"context"

	"github.com/MrEthical07/loginguard/session"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Revoke    func(context.Context, string) (*session.Session, error)
	RevokeAll func(context.Context, string) (int, error)
	// Unsupported is returned when the session issuer cannot revoke.
	Unsupported error
}

// LogoutByAccessResult reports which session an access-token logout removed.
type LogoutByAccessResult struct {
	UserID    string
	SessionID string
	Err       error
}

// RunLogoutByAccessToken revokes the session bound to tokenStr.
func RunLogoutByAccessToken(ctx context.Context, tokenStr string, deps LogoutDeps) LogoutByAccessResult {
	if deps.Revoke == nil {
		return LogoutByAccessResult{Err: deps.Unsupported}
	}
	sess, err := deps.Revoke(ctx, tokenStr)
	if err != nil {
		return LogoutByAccessResult{Err: err}
	}
	return LogoutByAccessResult{UserID: sess.UserID, SessionID: sess.ID}
}

// RunLogoutAll revokes every session of userID.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) (int, error) {
	if deps.RevokeAll == nil {
		return 0, deps.Unsupported
	}
	return deps.RevokeAll(ctx, userID)
}
