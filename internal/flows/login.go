package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/loginguard/internal/credentials"
	"github.com/MrEthical07/loginguard/internal/limiters"
	"github.com/MrEthical07/loginguard/internal/rate"
	"github.com/MrEthical07/loginguard/password"
	"github.com/MrEthical07/loginguard/session"
	"github.com/MrEthical07/loginguard/validation"
)

// Verdict is the terminal state of one login attempt.
type Verdict uint8

const (
	VerdictAccepted Verdict = iota
	VerdictInvalidInput
	VerdictRateLimited
	VerdictLocked
	VerdictInvalidCredentials
	VerdictUnavailable
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictInvalidInput:
		return "validation_failed"
	case VerdictRateLimited:
		return "rate_limited"
	case VerdictLocked:
		return "locked"
	case VerdictInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unavailable"
	}
}

// Stage names the pipeline step that produced a dependency failure.
type Stage string

const (
	StageRateLimit Stage = "rate_limit"
	StageLockout   Stage = "lockout"
	StageVerify    Stage = "verify"
	StageSession   Stage = "session"
)

// LoginOutcome is the flow-local result of [RunLogin]. Exactly one verdict is
// set; the other fields are populated only where they apply.
type LoginOutcome struct {
	Verdict     Verdict
	Identifier  string
	UserID      string
	Token       session.Token
	RetryAfter  time.Duration
	FieldErrors []validation.FieldError
	// Stage and Err describe the dependency failure behind VerdictUnavailable.
	Stage Stage
	Err   error
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess          int
	LoginFailure          int
	LoginValidationFailed int
	LoginRateLimited      int
	LoginLocked           int
	LoginUnavailable      int
	LockoutTriggered      int
	SessionCreated        int
	PasswordRehashed      int
	MalformedHash         int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	LoginLocked      string
	LoginUnavailable string
	LockoutTriggered string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string

	Validate      func(map[string]any) validation.Result[validation.LoginInput]
	CheckRate     func(context.Context, rate.Attempt) (rate.Decision, error)
	ResetRate     func(context.Context, rate.Attempt) error
	LockStatus    func(context.Context, string) (limiters.LockStatus, error)
	RecordFailure func(context.Context, string) (limiters.Escalation, error)
	RecordSuccess func(context.Context, string) error
	Verify        func(context.Context, string, string) (credentials.Result, error)
	AccountActive func(status uint8) bool
	IssueSession  func(context.Context, string) (session.Token, error)
	// RehashPassword is optional. It runs after a successful login and must not
	// fail the login.
	RehashPassword func(ctx context.Context, userID, plaintext, storedHash string) (bool, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, identifier string, err error, meta func() map[string]string)
	LogFault  func(ctx context.Context, stage Stage, identifier string, err error)

	Metrics LoginMetrics
	Events  LoginEvents
}

var errLoginNotReady = errors.New("login flow dependencies are incomplete")

// RunLogin executes the login pipeline: validate, rate-limit, lockout check,
// verify, then either issue a session or record the failure.
//
// Every attempt that passes validation is counted by the rate limiter exactly
// once. Store and user-store failures end the attempt with VerdictUnavailable.
func RunLogin(ctx context.Context, raw map[string]any, deps LoginDeps) LoginOutcome {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.LogFault == nil {
		deps.LogFault = func(context.Context, Stage, string, error) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.AccountActive == nil {
		deps.AccountActive = func(uint8) bool { return true }
	}
	if deps.Validate == nil ||
		deps.CheckRate == nil ||
		deps.ResetRate == nil ||
		deps.LockStatus == nil ||
		deps.RecordFailure == nil ||
		deps.RecordSuccess == nil ||
		deps.Verify == nil ||
		deps.IssueSession == nil {
		return LoginOutcome{Verdict: VerdictUnavailable, Err: errLoginNotReady}
	}

	validated := deps.Validate(raw)
	if !validated.Valid {
		deps.MetricInc(deps.Metrics.LoginValidationFailed)
		return LoginOutcome{Verdict: VerdictInvalidInput, FieldErrors: validated.Errors}
	}

	input := validated.Data
	identifier := rate.NormalizeIdentifier(input.Identifier)
	ip := deps.ClientIPFromContext(ctx)
	attempt := rate.Attempt{IP: ip, Identifier: identifier}

	unavailable := func(stage Stage, err error) LoginOutcome {
		deps.MetricInc(deps.Metrics.LoginUnavailable)
		deps.LogFault(ctx, stage, identifier, err)
		deps.EmitAudit(ctx, deps.Events.LoginUnavailable, false, "", identifier, err, func() map[string]string {
			return map[string]string{"stage": string(stage), "ip": ip}
		})
		return LoginOutcome{Verdict: VerdictUnavailable, Identifier: identifier, Stage: stage, Err: err}
	}

	decision, err := deps.CheckRate(ctx, attempt)
	if err != nil {
		return unavailable(StageRateLimit, err)
	}
	if !decision.Allowed {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", identifier, decision.Err(), func() map[string]string {
			return map[string]string{"ip": ip, "scope": string(decision.Scope)}
		})
		return LoginOutcome{Verdict: VerdictRateLimited, Identifier: identifier, RetryAfter: decision.RetryAfter}
	}

	status, err := deps.LockStatus(ctx, identifier)
	if err != nil {
		return unavailable(StageLockout, err)
	}
	if status.Locked {
		deps.MetricInc(deps.Metrics.LoginLocked)
		deps.EmitAudit(ctx, deps.Events.LoginLocked, false, "", identifier, nil, func() map[string]string {
			return map[string]string{"ip": ip}
		})
		return LoginOutcome{Verdict: VerdictLocked, Identifier: identifier, RetryAfter: status.Remaining}
	}

	result, err := deps.Verify(ctx, input.Identifier, input.Password)
	if err != nil {
		if !errors.Is(err, password.ErrMalformedHash) {
			return unavailable(StageVerify, err)
		}
		deps.MetricInc(deps.Metrics.MalformedHash)
		deps.LogFault(ctx, StageVerify, identifier, err)
	}

	if result.Outcome == credentials.OutcomeMatch {
		if !deps.AccountActive(result.Record.Status) {
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, result.Record.UserID, identifier, nil, func() map[string]string {
				return map[string]string{"ip": ip, "reason": "account_inactive"}
			})
			return LoginOutcome{Verdict: VerdictInvalidCredentials, Identifier: identifier}
		}
		return completeLogin(ctx, deps, attempt, result.Record, input.Password, unavailable)
	}

	esc, err := deps.RecordFailure(ctx, identifier)
	if err != nil {
		return unavailable(StageLockout, err)
	}

	userID := result.Record.UserID
	reason := "password_mismatch"
	if result.Outcome == credentials.OutcomeUserNotFound {
		reason = "user_not_found"
	}
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, identifier, nil, func() map[string]string {
		return map[string]string{"ip": ip, "reason": reason}
	})

	if esc.Locked {
		deps.MetricInc(deps.Metrics.LockoutTriggered)
		deps.EmitAudit(ctx, deps.Events.LockoutTriggered, false, userID, identifier, nil, func() map[string]string {
			return map[string]string{
				"ip":         ip,
				"failures":   strconv.FormatInt(esc.Failures, 10),
				"locked_for": esc.LockedFor.String(),
			}
		})
		return LoginOutcome{Verdict: VerdictLocked, Identifier: identifier, RetryAfter: esc.LockedFor}
	}

	return LoginOutcome{Verdict: VerdictInvalidCredentials, Identifier: identifier}
}

func completeLogin(
	ctx context.Context,
	deps LoginDeps,
	attempt rate.Attempt,
	record credentials.Record,
	plaintext string,
	unavailable func(Stage, error) LoginOutcome,
) LoginOutcome {
	if err := deps.RecordSuccess(ctx, attempt.Identifier); err != nil {
		return unavailable(StageLockout, err)
	}
	if err := deps.ResetRate(ctx, attempt); err != nil {
		return unavailable(StageRateLimit, err)
	}

	token, err := deps.IssueSession(ctx, record.UserID)
	if err != nil {
		return unavailable(StageSession, err)
	}
	deps.MetricInc(deps.Metrics.SessionCreated)

	if deps.RehashPassword != nil {
		upgraded, err := deps.RehashPassword(ctx, record.UserID, plaintext, record.PasswordHash)
		if err != nil {
			deps.LogFault(ctx, StageVerify, attempt.Identifier, err)
		} else if upgraded {
			deps.MetricInc(deps.Metrics.PasswordRehashed)
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, record.UserID, attempt.Identifier, nil, func() map[string]string {
		return map[string]string{"ip": attempt.IP, "session_id": token.SessionID}
	})

	return LoginOutcome{
		Verdict:    VerdictAccepted,
		Identifier: attempt.Identifier,
		UserID:     record.UserID,
		Token:      token,
	}
}
