package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/middleware"
	"github.com/rs/zerolog/hlog"
)

type handlers struct {
	engine  *loginguard.Engine
	maxBody int64
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
}

type errorResponse struct {
	Error        string                  `json:"error"`
	RetryAfterMs int64                   `json:"retry_after_ms,omitempty"`
	Fields       []loginguard.FieldError `json:"fields,omitempty"`
}

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type healthResponse struct {
	Status         string `json:"status"`
	RedisAvailable bool   `json:"redis_available"`
	RedisLatencyMs int64  `json:"redis_latency_ms"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(body).Decode(&raw); err != nil || raw == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body"})
		return
	}

	res, err := h.engine.Login(r.Context(), raw)
	if err != nil {
		h.writeRejection(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.Token.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   res.Token.ExpiresAt.UTC(),
		SessionID:   res.Token.SessionID,
		UserID:      res.UserID,
	})
}

func (h *handlers) writeRejection(w http.ResponseWriter, r *http.Request, err error) {
	rej, ok := loginguard.AsRejection(err)
	if !ok {
		hlog.FromRequest(r).Error().Err(err).Msg("login failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: string(loginguard.RejectUnavailable)})
		return
	}

	resp := errorResponse{Error: string(rej.Kind)}
	switch rej.Kind {
	case loginguard.RejectValidation:
		resp.Fields = rej.FieldErrors
		writeJSON(w, http.StatusBadRequest, resp)
	case loginguard.RejectRateLimited:
		setRetryAfter(w, &resp, rej.RetryAfter)
		writeJSON(w, http.StatusTooManyRequests, resp)
	case loginguard.RejectLocked:
		setRetryAfter(w, &resp, rej.RetryAfter)
		writeJSON(w, http.StatusLocked, resp)
	case loginguard.RejectInvalidCredentials:
		writeJSON(w, http.StatusUnauthorized, resp)
	default:
		hlog.FromRequest(r).Error().Err(rej.Cause()).Msg("login backend unavailable")
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	err := h.engine.Logout(r.Context(), token)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, loginguard.ErrBackendUnavailable):
		hlog.FromRequest(r).Error().Err(err).Msg("logout backend unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: string(loginguard.RejectUnavailable)})
	case errors.Is(err, loginguard.ErrSessionOpsUnsupported):
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "unsupported"})
	default:
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	}
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		CreatedAt: time.Unix(sess.CreatedAt, 0).UTC(),
		ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC(),
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Health(r.Context())
	resp := healthResponse{
		Status:         "ok",
		RedisAvailable: status.RedisAvailable,
		RedisLatencyMs: status.RedisLatency.Milliseconds(),
	}
	code := http.StatusOK
	if !status.RedisAvailable {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func setRetryAfter(w http.ResponseWriter, resp *errorResponse, d time.Duration) {
	if d <= 0 {
		return
	}
	secs := int64(math.Ceil(d.Seconds()))
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	resp.RetryAfterMs = d.Milliseconds()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
