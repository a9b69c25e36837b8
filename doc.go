// Package loginguard is a login security pipeline: it decides whether a
// single authentication attempt may proceed and, when it may, issues a
// session.
//
// Every attempt runs the same fixed sequence: input validation, attempt rate
// limiting, account lockout, argon2id credential verification and session
// issuance. Denials are returned as a *[Rejection] whose kind matches one of
// ErrValidationFailed, ErrLoginRateLimited, ErrAccountLocked,
// ErrInvalidCredentials or ErrBackendUnavailable.
//
// # Shared state
//
// Rate-limit and lockout counters live in Redis so every instance of a
// horizontally scaled service enforces the same budget. Counter updates are
// single-round-trip Lua scripts. When Redis or the [UserStore] cannot be
// reached the attempt is denied; the pipeline never fails open.
//
// # Construction
//
// Build an [Engine] once with [New] and [Builder.Build]. Engine methods are
// safe for concurrent use.
//
//	engine, err := loginguard.New().
//		WithConfig(cfg).
//		WithUserStore(users).
//		WithLogger(logger).
//		Build()
//
// # Enumeration resistance
//
// Unknown identifiers, wrong passwords and inactive accounts produce the same
// rejection and take the same time: a decoy argon2id derivation runs when no
// stored hash exists.
package loginguard
