// Package middleware adapts the loginguard engine to net/http.
//
//   - [ClientInfo] records the caller address and User-Agent in the request
//     context so the engine can key rate limits and audit events.
//   - [RequireSession] validates a bearer access token and stores the
//     session in the request context.
//
// Authentication decisions are made by the engine; this package only maps
// them onto HTTP status codes.
package middleware
