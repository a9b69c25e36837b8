package rate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/loginguard/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*miniredis.Miniredis, *Limiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), PoolSize: 64, ContextTimeoutEnabled: true})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	if cfg.Prefix == "" {
		cfg.Prefix = "t:"
	}
	l, err := New(stores.NewCounterStore(rdb, 2*time.Second), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return mr, l
}

func TestLimitThenDenyWithRetryAfter(t *testing.T) {
	_, l := newTestLimiter(t, Config{MaxAttempts: 10, Window: time.Minute})
	ctx := context.Background()
	attempt := Attempt{IP: "10.0.0.1", Identifier: "user@example.com"}

	for i := 1; i <= 10; i++ {
		d, err := l.CheckAndRecord(ctx, attempt)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("attempt %d should be allowed: %+v", i, d)
		}
		if d.Remaining != 10-i {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i, 10-i, d.Remaining)
		}
	}

	d, err := l.CheckAndRecord(ctx, attempt)
	if err != nil {
		t.Fatalf("attempt 11: %v", err)
	}
	if d.Allowed {
		t.Fatal("attempt 11 should be denied")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("expected retryAfter within the window, got %v", d.RetryAfter)
	}
	if d.Scope != ScopeIP {
		t.Fatalf("expected ip scope, got %q", d.Scope)
	}
	if !errors.Is(d.Err(), ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", d.Err())
	}
}

func TestWindowResetAllowsAgain(t *testing.T) {
	mr, l := newTestLimiter(t, Config{MaxAttempts: 2, Window: 30 * time.Second})
	ctx := context.Background()
	attempt := Attempt{IP: "10.0.0.2"}

	for i := 0; i < 3; i++ {
		if _, err := l.CheckAndRecord(ctx, attempt); err != nil {
			t.Fatalf("CheckAndRecord: %v", err)
		}
	}
	d, _ := l.CheckAndRecord(ctx, attempt)
	if d.Allowed {
		t.Fatal("expected denial inside the window")
	}

	mr.FastForward(31 * time.Second)

	d, err := l.CheckAndRecord(ctx, attempt)
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected key to be allowed after the window, got %+v", d)
	}
}

func TestConcurrentAttemptsAllowExactlyLimit(t *testing.T) {
	const (
		limit = 10
		n     = 64
	)
	_, l := newTestLimiter(t, Config{MaxAttempts: limit, Window: time.Minute})
	attempt := Attempt{IP: "192.0.2.7", Identifier: "victim@example.com"}

	start := make(chan struct{})
	results := make(chan Decision, n)
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, err := l.CheckAndRecord(context.Background(), attempt)
			if err != nil {
				errs <- err
				return
			}
			results <- d
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	allowed, denied := 0, 0
	for d := range results {
		if d.Allowed {
			allowed++
		} else {
			denied++
		}
	}
	if allowed != limit || denied != n-limit {
		t.Fatalf("expected %d allowed / %d denied, got %d / %d", limit, n-limit, allowed, denied)
	}
}

func TestIndependentKeyingMostRestrictiveWins(t *testing.T) {
	_, l := newTestLimiter(t, Config{
		Keying:        KeyingIndependent,
		MaxAttempts:   2,
		IPMaxAttempts: 5,
		Window:        time.Minute,
	})
	ctx := context.Background()

	// Same identifier from rotating IPs: the identifier budget trips first.
	for i, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		d, err := l.CheckAndRecord(ctx, Attempt{IP: ip, Identifier: "User@Example.com"})
		if err != nil || !d.Allowed {
			t.Fatalf("attempt %d: expected allowed, got %+v err=%v", i, d, err)
		}
	}
	d, err := l.CheckAndRecord(ctx, Attempt{IP: "10.0.0.3", Identifier: "user@example.com"})
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if d.Allowed || d.Scope != ScopeIdentifier {
		t.Fatalf("expected identifier-scoped denial, got %+v", d)
	}

	// One IP spraying many identifiers: the IP budget trips after 5.
	for i := 0; i < 5; i++ {
		d, err := l.CheckAndRecord(ctx, Attempt{IP: "203.0.113.9", Identifier: string(rune('a'+i)) + "@example.com"})
		if err != nil || !d.Allowed {
			t.Fatalf("spray %d: expected allowed, got %+v err=%v", i, d, err)
		}
	}
	d, err = l.CheckAndRecord(ctx, Attempt{IP: "203.0.113.9", Identifier: "z@example.com"})
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if d.Allowed || d.Scope != ScopeIP {
		t.Fatalf("expected ip-scoped denial, got %+v", d)
	}
}

func TestCombinedKeyingIsolatesPairs(t *testing.T) {
	_, l := newTestLimiter(t, Config{Keying: KeyingCombined, MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	if d, _ := l.CheckAndRecord(ctx, Attempt{IP: "10.0.0.1", Identifier: "a"}); !d.Allowed {
		t.Fatal("first pair attempt should be allowed")
	}
	if d, _ := l.CheckAndRecord(ctx, Attempt{IP: "10.0.0.1", Identifier: "b"}); !d.Allowed {
		t.Fatal("different identifier on the same IP should be allowed")
	}
	d, _ := l.CheckAndRecord(ctx, Attempt{IP: "10.0.0.1", Identifier: "a"})
	if d.Allowed || d.Scope != ScopePair {
		t.Fatalf("expected pair-scoped denial, got %+v", d)
	}
}

func TestIPKeyingFallsBackToIdentifier(t *testing.T) {
	mr, l := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})

	if _, err := l.CheckAndRecord(context.Background(), Attempt{Identifier: " Someone "}); err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if !mr.Exists("t:rl:id:someone") {
		t.Fatalf("expected identifier key, have %v", mr.Keys())
	}
}

func TestAttemptWithoutKeyIsRejected(t *testing.T) {
	_, l := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})

	if _, err := l.CheckAndRecord(context.Background(), Attempt{}); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
}

func TestResetIdentifierKeepsIPCounter(t *testing.T) {
	mr, l := newTestLimiter(t, Config{Keying: KeyingIndependent, MaxAttempts: 5, Window: time.Minute})
	ctx := context.Background()
	attempt := Attempt{IP: "10.1.1.1", Identifier: "user@example.com"}

	if _, err := l.CheckAndRecord(ctx, attempt); err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if err := l.ResetIdentifier(ctx, attempt); err != nil {
		t.Fatalf("ResetIdentifier: %v", err)
	}

	if mr.Exists("t:rl:id:user@example.com") {
		t.Fatal("identifier counter should be cleared")
	}
	if !mr.Exists("t:rl:ip:10.1.1.1") {
		t.Fatal("ip counter must survive a reset")
	}
}

func TestStoreFailureSurfacesUnavailable(t *testing.T) {
	mr, l := newTestLimiter(t, Config{MaxAttempts: 5, Window: time.Minute})
	mr.Close()

	_, err := l.CheckAndRecord(context.Background(), Attempt{IP: "10.0.0.1"})
	if !errors.Is(err, stores.ErrUnavailable) {
		t.Fatalf("expected stores.ErrUnavailable, got %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	store := stores.NewCounterStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", ContextTimeoutEnabled: true}), time.Second)

	cases := []Config{
		{MaxAttempts: 0, Window: time.Minute},
		{MaxAttempts: 1, Window: 0},
		{MaxAttempts: 1, Window: time.Minute, IPMaxAttempts: -1},
		{MaxAttempts: 1, Window: time.Minute, Keying: Keying(42)},
	}
	for i, cfg := range cases {
		if _, err := New(store, cfg); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, cfg)
		}
	}
}
