package loginguard

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/loginguard/internal/credentials"
	"github.com/MrEthical07/loginguard/internal/rate"
	"github.com/MrEthical07/loginguard/internal/stores"
	"github.com/MrEthical07/loginguard/session"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventLoginLocked      = "login_locked"
	auditEventLoginUnavailable = "login_unavailable"
	auditEventLockoutTriggered = "lockout_triggered"
	auditEventAdminLock        = "identifier_locked"
	auditEventAdminUnlock      = "identifier_unlocked"
	auditEventLogoutSession    = "logout_session"
	auditEventLogoutAll        = "logout_all"
)

// AuditErrorCode is the machine-readable error class stored in
// [AuditEvent.Error]. Raw error strings are never recorded.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	identifier string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		UserID:     userID,
		Identifier: identifier,
		IP:         ClientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if sid, ok := metadata["session_id"]; ok {
		event.SessionID = sid
		delete(metadata, "session_id")
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, rate.ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, session.ErrSessionRevoked):
		return auditErrSessionNotFound
	case errors.Is(err, ErrBackendUnavailable),
		errors.Is(err, stores.ErrUnavailable),
		errors.Is(err, credentials.ErrLookupFailed),
		errors.Is(err, session.ErrRedisUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
