package loginguard

import "errors"

var (
	// ErrValidationFailed is matched by rejections of malformed login input.
	ErrValidationFailed = errors.New("validation failed")
	// ErrLoginRateLimited is matched by rejections from the attempt limiter.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrAccountLocked is matched by rejections of locked identifiers.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidCredentials is matched by every credential failure. It never
	// reveals whether the identifier exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBackendUnavailable is matched when a dependency failed and the attempt
	// was denied fail-closed.
	ErrBackendUnavailable = errors.New("authentication backend unavailable")

	// ErrUserNotFound must be returned by [UserStore.FindByIdentifier] for
	// unknown identifiers.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthorized is returned for access tokens that do not verify.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionNotFound is returned for verified tokens whose session was
	// revoked or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionOpsUnsupported is returned when the configured [SessionIssuer]
	// cannot validate or revoke sessions.
	ErrSessionOpsUnsupported = errors.New("session issuer does not support this operation")

	// ErrStoreNotConfigured is returned by Build when neither a Redis client
	// nor store connection settings were provided.
	ErrStoreNotConfigured = errors.New("store connection not configured")
	// ErrStoreTimeoutNotEnforced is returned by Build when an injected redis
	// client has ContextTimeoutEnabled off.
	ErrStoreTimeoutNotEnforced = errors.New("redis client must set ContextTimeoutEnabled")
	// ErrUserStoreRequired is returned by Build without a user store.
	ErrUserStoreRequired = errors.New("user store required")
	// ErrInvalidIdentifier is returned by administrative calls with an empty
	// identifier.
	ErrInvalidIdentifier = errors.New("identifier is required")
	// ErrEngineNotReady is returned by calls on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
