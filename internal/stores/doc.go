// Package stores provides the shared counter store that backs login rate limiting
// and lockout escalation.
//
// # Design
//
// Every mutation is a single Redis round trip. Increment-with-expiry and lockout
// escalation run as Lua scripts so concurrent requests from any number of server
// instances observe serialized counter updates. Reads and deletes are plain
// commands.
//
// Each call is bounded by the store's operation timeout. Transport errors,
// timeouts and cancelled contexts are all reported as [ErrUnavailable] so callers
// can fail closed.
//
// # Architecture boundaries
//
// This package owns key-level atomicity. It does NOT compose keys, choose limits or
// decide what a denial means; those live in internal/rate and internal/limiters.
//
// # What this package must NOT do
//
//   - Import loginguard or any sibling internal package.
//   - Cache counter values in process memory.
package stores
