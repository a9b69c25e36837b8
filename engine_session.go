package loginguard

import (
	"context"
	"errors"

	"github.com/MrEthical07/loginguard/internal/flows"
	"github.com/MrEthical07/loginguard/jwt"
	"github.com/MrEthical07/loginguard/session"
)

// ValidateSession verifies an access token issued by Login and returns its
// session. It returns ErrUnauthorized for tokens that do not verify,
// ErrSessionNotFound for revoked or expired sessions and ErrBackendUnavailable
// when the session store cannot be reached.
func (e *Engine) ValidateSession(ctx context.Context, accessToken string) (*Session, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Validate(ctx, accessToken)
	switch res.Failure {
	case flows.ValidateFailureNone:
		e.metricInc(MetricSessionValidated)
		return res.Session, nil
	case flows.ValidateFailureSessionNotFound:
		e.metricInc(MetricSessionRejected)
		return nil, ErrSessionNotFound
	case flows.ValidateFailureUnavailable:
		e.metricInc(MetricSessionRejected)
		return nil, errors.Join(ErrBackendUnavailable, res.Err)
	default:
		e.metricInc(MetricSessionRejected)
		if errors.Is(res.Err, ErrSessionOpsUnsupported) {
			return nil, ErrSessionOpsUnsupported
		}
		return nil, ErrUnauthorized
	}
}

// Logout revokes the session bound to accessToken.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}

	res := e.flows.LogoutByAccessToken(ctx, accessToken)
	if res.Err != nil {
		err := sessionError(res.Err)
		e.emitAudit(ctx, auditEventLogoutSession, false, "", "", err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, res.UserID, "", nil, func() map[string]string {
		return map[string]string{"session_id": res.SessionID}
	})
	return nil
}

// LogoutAll revokes every session of userID and returns how many were live.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if e == nil || !e.flows.Initialized() {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrUserNotFound
	}

	n, err := e.flows.LogoutAll(ctx, userID)
	if err != nil {
		err = sessionError(err)
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", err, nil)
		return 0, err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", nil, nil)
	return n, nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, ErrSessionOpsUnsupported):
		return ErrSessionOpsUnsupported
	case errors.Is(err, jwt.ErrInvalidToken):
		return ErrUnauthorized
	case errors.Is(err, session.ErrSessionRevoked), errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrRedisUnavailable):
		return errors.Join(ErrBackendUnavailable, err)
	default:
		return err
	}
}
