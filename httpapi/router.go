package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/middleware"
	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const defaultMaxBodyBytes = 4 << 10

type RouterConfig struct {
	Engine *loginguard.Engine
	Log    zerolog.Logger
	// TrustProxy enables chi's RealIP so X-Forwarded-For sets the client IP.
	// Leave it off unless a trusted proxy rewrites those headers.
	TrustProxy bool
	// Gatherer serves /metrics when set.
	Gatherer     prometheus.Gatherer
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{engine: cfg.Engine, maxBody: cfg.MaxBodyBytes}
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	if cfg.TrustProxy {
		r.Use(chimid.RealIP)
	}
	r.Use(hlog.NewHandler(cfg.Log))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimid.Recoverer)
	r.Use(middleware.ClientInfo)

	r.Get("/healthz", h.health)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.With(chimid.AllowContentType("application/json")).Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.With(middleware.RequireSession(cfg.Engine)).Get("/session", h.session)
	})

	return r
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimid.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
