package loginguard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValidateSessionAfterLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := clientCtx("192.0.2.1")

	res, err := env.engine.LoginWithCredentials(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	sess, err := env.engine.ValidateSession(ctx, res.Token.AccessToken)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if sess.ID != res.Token.SessionID || sess.UserID != "u1" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if env.engine.MetricsSnapshot().Counters[MetricSessionValidated] != 1 {
		t.Fatal("expected validated counter to increment")
	}
}

func TestValidateSessionRejectsGarbage(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, tok := range []string{"", "not.a.jwt", "eyJhbGciOiJub25lIn0.e30."} {
		if _, err := env.engine.ValidateSession(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("token %q: expected ErrUnauthorized, got %v", tok, err)
		}
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := clientCtx("192.0.2.2")

	res, err := env.engine.LoginWithCredentials(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := env.engine.Logout(ctx, res.Token.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := env.engine.ValidateSession(ctx, res.Token.AccessToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
	if err := env.engine.Logout(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad token, got %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := clientCtx("192.0.2.3")

	var tokens []string
	for i := 0; i < 3; i++ {
		res, err := env.engine.LoginWithCredentials(ctx, "alice", testPassword)
		if err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
		tokens = append(tokens, res.Token.AccessToken)
	}

	count, err := env.engine.GetActiveSessionCount(ctx, "u1")
	if err != nil || count != 3 {
		t.Fatalf("expected 3 active sessions, got %d (%v)", count, err)
	}

	n, err := env.engine.LogoutAll(ctx, "u1")
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked sessions, got %d", n)
	}
	for _, tok := range tokens {
		if _, err := env.engine.ValidateSession(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected revoked session, got %v", err)
		}
	}
	if _, err := env.engine.LogoutAll(ctx, ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for empty user, got %v", err)
	}
}

func TestValidateSessionStoreDown(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := clientCtx("192.0.2.4")

	res, err := env.engine.LoginWithCredentials(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	env.mr.Close()

	if _, err := env.engine.ValidateSession(ctx, res.Token.AccessToken); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

type staticIssuer struct {
	calls int
}

func (s *staticIssuer) IssueSession(_ context.Context, userID string) (SessionToken, error) {
	s.calls++
	return SessionToken{
		SessionID:   "static",
		UserID:      userID,
		AccessToken: "opaque-" + userID,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func TestCustomSessionIssuer(t *testing.T) {
	issuer := &staticIssuer{}
	env := newTestEnv(t, nil, func(b *Builder) { b.WithSessionIssuer(issuer) })

	res, err := env.engine.LoginWithCredentials(clientCtx("192.0.2.5"), "alice", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token.AccessToken != "opaque-u1" || issuer.calls != 1 {
		t.Fatalf("expected custom issuer token, got %+v (calls %d)", res.Token, issuer.calls)
	}

	if _, err := env.engine.ValidateSession(context.Background(), res.Token.AccessToken); !errors.Is(err, ErrSessionOpsUnsupported) {
		t.Fatalf("expected ErrSessionOpsUnsupported, got %v", err)
	}
	if err := env.engine.Logout(context.Background(), res.Token.AccessToken); !errors.Is(err, ErrSessionOpsUnsupported) {
		t.Fatalf("expected ErrSessionOpsUnsupported, got %v", err)
	}
}
