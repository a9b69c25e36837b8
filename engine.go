package loginguard

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/loginguard/internal/audit"
	"github.com/MrEthical07/loginguard/internal/credentials"
	"github.com/MrEthical07/loginguard/internal/flows"
	"github.com/MrEthical07/loginguard/internal/limiters"
	"github.com/MrEthical07/loginguard/internal/rate"
	"github.com/MrEthical07/loginguard/internal/stores"
	"github.com/MrEthical07/loginguard/jwt"
	"github.com/MrEthical07/loginguard/password"
	"github.com/MrEthical07/loginguard/session"
	"github.com/MrEthical07/loginguard/validation"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Engine runs the login pipeline. It is safe for concurrent use; all shared
// attempt state lives in Redis.
type Engine struct {
	config    Config
	redis     redis.UniversalClient
	ownsRedis bool
	storeTLS  bool

	counters  *stores.CounterStore
	limiter   *rate.Limiter
	lockout   *limiters.LockoutManager
	validator *validation.Service
	hasher    *password.Hasher
	verifier  *credentials.Verifier

	userStore   UserStore
	hashUpdater PasswordHashUpdater
	sessionOps  SessionIssuer
	jwtManager  *jwt.Manager

	flows   flows.Service
	logger  zerolog.Logger
	audit   *internalaudit.Dispatcher
	metrics *Metrics
}

// Close drains the audit dispatcher and closes the Redis client if the
// Engine created it.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownsRedis && e.redis != nil {
		if err := e.redis.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("closing redis client")
		}
	}
}

// AuditDropped returns how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login authenticates raw {identifier, password} input.
//
// The pipeline is fixed: validate, rate-limit, lockout check, verify
// credentials, then issue a session. Every denial is returned as a
// *[Rejection]; errors.Is matches ErrValidationFailed, ErrLoginRateLimited,
// ErrAccountLocked, ErrInvalidCredentials or ErrBackendUnavailable. Store or
// user-store failures never yield a session.
func (e *Engine) Login(ctx context.Context, raw map[string]any) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	out := e.flows.Login(ctx, raw)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}

	switch out.Verdict {
	case flows.VerdictAccepted:
		return &LoginResult{UserID: out.UserID, Token: out.Token}, nil
	case flows.VerdictInvalidInput:
		return nil, &Rejection{Kind: RejectValidation, FieldErrors: out.FieldErrors}
	case flows.VerdictRateLimited:
		return nil, &Rejection{Kind: RejectRateLimited, RetryAfter: out.RetryAfter}
	case flows.VerdictLocked:
		return nil, &Rejection{Kind: RejectLocked, RetryAfter: out.RetryAfter}
	case flows.VerdictInvalidCredentials:
		return nil, &Rejection{Kind: RejectInvalidCredentials}
	default:
		return nil, &Rejection{Kind: RejectUnavailable, cause: out.Err}
	}
}

// LoginWithCredentials is Login for callers that already hold typed values.
func (e *Engine) LoginWithCredentials(ctx context.Context, identifier, password string) (*LoginResult, error) {
	return e.Login(ctx, map[string]any{
		validation.FieldIdentifier: identifier,
		validation.FieldPassword:   password,
	})
}

func (e *Engine) lookupCredentials(ctx context.Context, identifier string) (credentials.Record, error) {
	rec, err := e.userStore.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return credentials.Record{}, credentials.ErrNotFound
		}
		return credentials.Record{}, err
	}
	return credentials.Record{
		UserID:       rec.UserID,
		PasswordHash: rec.PasswordHash,
		Status:       uint8(rec.Status),
	}, nil
}

func (e *Engine) rehashPassword(ctx context.Context, userID, plaintext, storedHash string) (bool, error) {
	needs, err := e.hasher.NeedsRehash(storedHash)
	if err != nil || !needs {
		return false, err
	}
	upgraded, err := e.hasher.Hash(plaintext)
	if err != nil {
		return false, err
	}

	if timeout := e.config.UserStore.LookupTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := e.hashUpdater.UpdatePasswordHash(ctx, userID, upgraded); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) logFault(_ context.Context, stage flows.Stage, identifier string, err error) {
	ev := e.logger.Error()
	if errors.Is(err, password.ErrMalformedHash) {
		ev = e.logger.Warn()
	}
	ev.Err(err).
		Str("stage", string(stage)).
		Str("identifier", identifier).
		Msg("login dependency fault")
}

func (e *Engine) flowDeps() flows.Deps {
	login := flows.LoginDeps{
		ClientIPFromContext: ClientIPFromContext,

		Validate:      e.validator.ValidateLogin,
		CheckRate:     e.limiter.CheckAndRecord,
		ResetRate:     e.limiter.ResetIdentifier,
		LockStatus:    e.lockout.Status,
		RecordFailure: e.lockout.RecordFailure,
		RecordSuccess: e.lockout.RecordSuccess,
		Verify:        e.verifier.Verify,
		AccountActive: func(status uint8) bool { return AccountStatus(status) == AccountActive },
		IssueSession:  e.sessionOps.IssueSession,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		LogFault:  e.logFault,

		Metrics: flows.LoginMetrics{
			LoginSuccess:          int(MetricLoginSuccess),
			LoginFailure:          int(MetricLoginFailure),
			LoginValidationFailed: int(MetricLoginValidationFailed),
			LoginRateLimited:      int(MetricLoginRateLimited),
			LoginLocked:           int(MetricLoginLocked),
			LoginUnavailable:      int(MetricLoginUnavailable),
			LockoutTriggered:      int(MetricLockoutTriggered),
			SessionCreated:        int(MetricSessionCreated),
			PasswordRehashed:      int(MetricPasswordRehashed),
			MalformedHash:         int(MetricMalformedHash),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
			LoginLocked:      auditEventLoginLocked,
			LoginUnavailable: auditEventLoginUnavailable,
			LockoutTriggered: auditEventLockoutTriggered,
		},
	}
	if e.config.Password.UpgradeOnLogin && e.hashUpdater != nil {
		login.RehashPassword = e.rehashPassword
	}

	validate := flows.ValidateDeps{
		Unavailable:      session.ErrRedisUnavailable,
		SessionNotFound:  session.ErrSessionRevoked,
		ValidateDisabled: ErrSessionOpsUnsupported,
	}
	if v, ok := e.sessionOps.(SessionValidator); ok {
		validate.Validate = v.Validate
	}

	logout := flows.LogoutDeps{Unsupported: ErrSessionOpsUnsupported}
	if r, ok := e.sessionOps.(SessionRevoker); ok {
		logout.Revoke = r.Revoke
		logout.RevokeAll = r.RevokeAll
	}

	return flows.Deps{
		Login:    login,
		Validate: validate,
		Logout:   logout,
	}
}
