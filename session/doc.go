// Package session issues, persists and revokes login sessions.
//
// # Binary encoding
//
// Sessions are stored in Redis as a compact, versioned binary record (see
// [Encode]). Decoding rejects unknown versions and truncated input.
//
// # Tokens
//
// [Issuer] creates a session record keyed by a random UUID and returns a signed
// access token bound to it. A token is only accepted while its session record
// exists, so [Issuer.Revoke] takes effect before the token expires.
//
// # What this package must NOT do
//
//   - Import loginguard (no upward imports).
//   - Make authentication decisions; callers issue sessions only after a login
//     has been accepted.
//   - Store plaintext secrets in [Session] fields.
package session
