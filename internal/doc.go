// Package internal groups the pieces of the login pipeline that are private to
// loginguard. It holds no code itself.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - credentials: constant-shape password verification over the user store
//   - flows: pure-function orchestrators for login, session validation and logout
//   - limiters: identifier lockout escalation
//   - rate: fixed-window login rate limiting and key composition
//   - stores: the Redis counter store with Lua-backed atomic updates
//
// # What this package must NOT do
//
//   - Export types that appear in the public loginguard API.
//   - Be imported by any package outside the loginguard module.
package internal
