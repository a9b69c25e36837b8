// Package httpapi exposes the loginguard engine over HTTP with chi.
//
// Routes:
//
//	POST /v1/auth/login    {identifier, password} -> access token
//	POST /v1/auth/logout   bearer token -> 204
//	GET  /v1/auth/session  bearer token -> session
//	GET  /healthz          store availability
//	GET  /metrics          Prometheus exposition, when a gatherer is set
//
// Rejections map to 400, 401, 423, 429 and 503. Rate-limited and locked
// replies carry a Retry-After header in whole seconds.
package httpapi
