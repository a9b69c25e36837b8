// Package flows contains pure-function orchestrators for Engine operations.
//
// Each flow function (RunLogin, RunLogout, RunValidate) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. This design enables exhaustive unit testing with fake
// dependencies and keeps the Engine type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the validator, rate limiter, lockout
// manager, credential verifier, session issuer, audit dispatcher and metrics.
// They do NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import loginguard (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
