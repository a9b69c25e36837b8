package loginguard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAdminLockAndUnlock(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := clientCtx("192.0.2.20")

	placed, err := env.engine.LockIdentifier(context.Background(), "Alice", 5*time.Minute)
	if err != nil || !placed {
		t.Fatalf("expected lock to be placed, got %v (%v)", placed, err)
	}
	placed, err = env.engine.LockIdentifier(context.Background(), "alice", time.Minute)
	if err != nil || placed {
		t.Fatalf("expected second lock to be refused, got %v (%v)", placed, err)
	}

	_, err = env.engine.LoginWithCredentials(ctx, "alice", testPassword)
	rej := mustReject(t, err, RejectLocked)
	if rej.RetryAfter <= 4*time.Minute {
		t.Fatalf("expected the original 5m lock to stand, got %v", rej.RetryAfter)
	}

	if err := env.engine.UnlockIdentifier(context.Background(), "alice"); err != nil {
		t.Fatalf("UnlockIdentifier failed: %v", err)
	}
	if _, err := env.engine.LoginWithCredentials(ctx, "alice", testPassword); err != nil {
		t.Fatalf("expected login after unlock, got %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricAdminLock] != 1 || snap.Counters[MetricAdminUnlock] != 1 {
		t.Fatalf("unexpected admin counters: %+v", snap.Counters)
	}
}

func TestAdminRejectsEmptyIdentifier(t *testing.T) {
	env := newTestEnv(t, nil)

	if _, err := env.engine.LockIdentifier(context.Background(), "  ", time.Minute); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
	if err := env.engine.UnlockIdentifier(context.Background(), ""); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
	if _, err := env.engine.LockStatus(context.Background(), ""); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestHealthReportsStore(t *testing.T) {
	env := newTestEnv(t, nil)

	if h := env.engine.Health(context.Background()); !h.RedisAvailable {
		t.Fatalf("expected store available, got %+v", h)
	}
	env.mr.Close()
	if h := env.engine.Health(context.Background()); h.RedisAvailable {
		t.Fatalf("expected store unavailable, got %+v", h)
	}
}

func TestSecurityReportReflectsConfig(t *testing.T) {
	env := newTestEnv(t, nil)

	r := env.engine.SecurityReport()
	if r.SigningAlgorithm != "HS256" {
		t.Fatalf("expected HS256, got %q", r.SigningAlgorithm)
	}
	if r.RateLimit.MaxAttempts != env.cfg.RateLimit.MaxAttempts || r.RateLimit.Keying != "ip" {
		t.Fatalf("unexpected rate limit report %+v", r.RateLimit)
	}
	if r.CustomSessionIssuer || !r.PasswordUpgradeOnLogin {
		t.Fatalf("unexpected report flags %+v", r)
	}
}
