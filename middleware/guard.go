package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/loginguard"
)

type sessionContextKey struct{}

// SessionValidator is satisfied by *loginguard.Engine.
type SessionValidator interface {
	ValidateSession(ctx context.Context, accessToken string) (*loginguard.Session, error)
}

// SessionFromContext returns the session stored by [RequireSession].
func SessionFromContext(ctx context.Context) (*loginguard.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*loginguard.Session)
	return sess, ok
}

// RequireSession rejects requests without a live session. A store outage
// answers 503 so clients do not discard a token that may still be valid.
func RequireSession(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				if errors.Is(err, loginguard.ErrBackendUnavailable) {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
