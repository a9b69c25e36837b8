package loginguard

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/loginguard/internal/limiters"
)

// LockStatus reports the lockout state of an identifier.
type LockStatus = limiters.LockStatus

// LockIdentifier places an administrative lock on identifier for d. It
// returns false when the identifier is already locked or lockout is
// disabled. The failure counter is left untouched.
func (e *Engine) LockIdentifier(ctx context.Context, identifier string, d time.Duration) (bool, error) {
	if e == nil || e.lockout == nil {
		return false, ErrEngineNotReady
	}
	if strings.TrimSpace(identifier) == "" {
		return false, ErrInvalidIdentifier
	}
	if d <= 0 {
		d = e.config.Lockout.BaseDuration
	}

	placed, err := e.lockout.Lock(ctx, identifier, d)
	if err != nil {
		return false, err
	}
	if placed {
		e.metricInc(MetricAdminLock)
		e.emitAudit(ctx, auditEventAdminLock, true, "", normalizeIdentifier(identifier), nil, func() map[string]string {
			return map[string]string{"duration": d.String()}
		})
	}
	return placed, nil
}

// UnlockIdentifier clears the lock and failure history of identifier.
func (e *Engine) UnlockIdentifier(ctx context.Context, identifier string) error {
	if e == nil || e.lockout == nil {
		return ErrEngineNotReady
	}
	if strings.TrimSpace(identifier) == "" {
		return ErrInvalidIdentifier
	}

	if err := e.lockout.RecordSuccess(ctx, identifier); err != nil {
		return err
	}
	e.metricInc(MetricAdminUnlock)
	e.emitAudit(ctx, auditEventAdminUnlock, true, "", normalizeIdentifier(identifier), nil, nil)
	return nil
}

// LockStatus returns the current lockout state of identifier.
func (e *Engine) LockStatus(ctx context.Context, identifier string) (LockStatus, error) {
	if e == nil || e.lockout == nil {
		return LockStatus{}, ErrEngineNotReady
	}
	if strings.TrimSpace(identifier) == "" {
		return LockStatus{}, ErrInvalidIdentifier
	}
	return e.lockout.Status(ctx, identifier)
}

func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
