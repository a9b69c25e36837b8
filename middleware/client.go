package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/loginguard"
)

// ClientInfo copies the caller's address and User-Agent into the request
// context for rate limiting and audit events. Mount it after chi's RealIP
// when the service sits behind a trusted proxy; RemoteAddr is used as is.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := loginguard.WithClientIP(r.Context(), remoteIP(r.RemoteAddr))
		if ua := r.UserAgent(); ua != "" {
			ctx = loginguard.WithUserAgent(ctx, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func remoteIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
