package loginguard

import (
	"context"
	"time"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// Health pings the attempt store.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.counters == nil {
		return HealthStatus{}
	}
	latency, err := e.counters.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

// GetActiveSessionCount returns the number of live sessions for userID. It
// requires the built-in session issuer or one that counts sessions.
func (e *Engine) GetActiveSessionCount(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessionOps == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrUserNotFound
	}

	counter, ok := e.sessionOps.(interface {
		ActiveSessionCount(context.Context, string) (int, error)
	})
	if !ok {
		return 0, ErrSessionOpsUnsupported
	}
	return counter.ActiveSessionCount(ctx, userID)
}
