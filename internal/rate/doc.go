// Package rate implements the fixed-window login rate limiter on top of the shared
// counter store.
//
// # Window semantics
//
// Fixed-window counters: one atomic INCR + PEXPIRE-on-first-hit per key per
// attempt, all keys of an attempt in one round trip. The window starts at the first
// attempt and the key disappears when it ends. Key prefixes (after the configured
// namespace):
//   - rl:ip:   login per client IP
//   - rl:id:   login per normalized identifier
//   - rl:pair: login per (IP, identifier) pair
//
// # Keying
//
// [Keying] selects which keys an attempt touches. With [KeyingIndependent] both the
// IP and the identifier key are counted and the most restrictive result wins.
//
// # What this package must NOT do
//
//   - Decide what happens after a denial (flows do that).
//   - Reset per-IP counters on a successful login.
//   - Be imported outside the loginguard module.
package rate
