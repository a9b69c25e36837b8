// Package limiters provides the login lockout manager built on the shared counter
// store.
//
// # Lockout state machine
//
// Per normalized identifier: Clear -> Locked(until T) -> Clear. The lock is set
// when the failure count reaches the threshold and every further failure computes
// base * 2^(failures-threshold), capped, extending the lock when that ends later
// than the current one. lockedUntil therefore never moves backwards while failures
// continue. A success deletes both the failure counter and the lock.
//
// Key prefixes (after the configured namespace):
//   - lo:f:  failure counter
//   - lo:l:  lock marker, its PTTL is the remaining lock
//
// All methods are nil-safe: a nil or disabled manager never locks.
//
// # What this package must NOT do
//
//   - Key lockouts by IP; one address must not be able to lock out unrelated users.
//   - Import loginguard or any sibling internal package except internal/stores.
package limiters
