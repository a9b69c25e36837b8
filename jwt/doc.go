// Package jwt signs and verifies the access tokens handed out for login sessions.
//
// Tokens carry the user id as subject and the session id as "sid". Verification
// pins the configured algorithm, issuer and audience; the session store decides
// whether a verified token's session is still live.
package jwt
