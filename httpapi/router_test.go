package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/loginguard"
	lgprom "github.com/MrEthical07/loginguard/metrics/export/prometheus"
	"github.com/MrEthical07/loginguard/password"
	"github.com/MrEthical07/loginguard/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-password-123"

type fixture struct {
	handler http.Handler
	mr      *miniredis.Miniredis
}

func newFixture(t *testing.T, mutate func(*loginguard.Config)) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), ContextTimeoutEnabled: true})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := loginguard.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	if mutate != nil {
		mutate(&cfg)
	}

	hasher, err := password.New(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	require.NoError(t, err)
	users := userstore.NewMemory()
	require.NoError(t, users.AddPassword(hasher, "alice@example.com", "u1", testPassword))

	engine, err := loginguard.New().WithConfig(cfg).WithRedis(rdb).WithUserStore(users).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(lgprom.NewCollector(engine)))

	return &fixture{
		handler: NewRouter(RouterConfig{Engine: engine, Log: zerolog.Nop(), Gatherer: reg}),
		mr:      mr,
	}
}

func (f *fixture) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = "203.0.113.50:40000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func loginBody(identifier, pw string) string {
	b, _ := json.Marshal(map[string]string{"identifier": identifier, "password": pw})
	return string(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLoginSuccessAndSession(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/auth/login", loginBody("alice@example.com", testPassword), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[loginResponse](t, rec)
	assert.Equal(t, "u1", login.UserID)
	assert.Equal(t, "Bearer", login.TokenType)
	assert.NotEmpty(t, login.AccessToken)

	rec = f.do(t, http.MethodGet, "/v1/auth/session", "", login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[sessionResponse](t, rec)
	assert.Equal(t, login.SessionID, sess.SessionID)

	rec = f.do(t, http.MethodPost, "/v1/auth/logout", "", login.AccessToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/auth/session", "", login.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/auth/login", loginBody("alice@example.com", "wrong-password"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, "/v1/auth/login", loginBody("", ""), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "validation_failed", resp.Error)
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, "identifier", resp.Fields[0].Field)

	rec = f.do(t, http.MethodPost, "/v1/auth/login", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", decode[errorResponse](t, rec).Error)
}

func TestLoginRateLimitedSetsRetryAfter(t *testing.T) {
	f := newFixture(t, func(c *loginguard.Config) {
		c.RateLimit.MaxAttempts = 2
		c.Lockout.Enabled = false
	})

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/v1/auth/login", loginBody("alice@example.com", "wrong-password"), "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/v1/auth/login", loginBody("alice@example.com", testPassword), "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decode[errorResponse](t, rec).Error)
}

func TestLoginLocked(t *testing.T) {
	f := newFixture(t, func(c *loginguard.Config) {
		c.Lockout.Threshold = 1
		c.Lockout.BaseDuration = 30 * time.Second
	})

	rec := f.do(t, http.MethodPost, "/v1/auth/login", loginBody("alice@example.com", "wrong-password"), "")
	require.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	rec = f.do(t, http.MethodPost, "/v1/auth/login", loginBody("alice@example.com", testPassword), "")
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestLoginStoreDown(t *testing.T) {
	f := newFixture(t, nil)
	f.mr.Close()

	rec := f.do(t, http.MethodPost, "/v1/auth/login", loginBody("alice@example.com", testPassword), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[healthResponse](t, rec).RedisAvailable)

	f.do(t, http.MethodPost, "/v1/auth/login", loginBody("alice@example.com", testPassword), "")

	rec = f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loginguard_login_success_total 1")
	assert.Contains(t, rec.Body.String(), "loginguard_login_latency_seconds_count 1")
}

func TestSessionRequiresBearer(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/auth/session", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/auth/session", "", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/v1/auth/logout", "", "").Code)
}
