package loginguard

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/loginguard/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct-password-123"

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), ContextTimeoutEnabled: true})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// silentRedisAddr returns an address that accepts connections and never
// replies.
func silentRedisAddr(t testing.TB) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

// hangingUserStore blocks every lookup until the caller gives up.
type hangingUserStore struct{}

func (hangingUserStore) FindByIdentifier(ctx context.Context, _ string) (CredentialRecord, error) {
	<-ctx.Done()
	return CredentialRecord{}, ctx.Err()
}

// testConfig keeps argon2 cheap so the suite stays fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Issuer = "loginguard-test"
	return cfg
}

func newTestHasher(t testing.TB, cfg PasswordConfig) *password.Hasher {
	t.Helper()

	h, err := password.New(password.Params{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}
	return h
}

type memoryUserStore struct {
	mu      sync.Mutex
	records map[string]CredentialRecord
	updates map[string]string
	err     error
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{
		records: make(map[string]CredentialRecord),
		updates: make(map[string]string),
	}
}

func (s *memoryUserStore) add(identifier string, rec CredentialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[strings.ToLower(identifier)] = rec
}

func (s *memoryUserStore) FindByIdentifier(_ context.Context, identifier string) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return CredentialRecord{}, s.err
	}
	rec, ok := s.records[strings.ToLower(identifier)]
	if !ok {
		return CredentialRecord{}, ErrUserNotFound
	}
	return rec, nil
}

func (s *memoryUserStore) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[userID] = hash
	return nil
}

func (s *memoryUserStore) updatedHash(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.updates[userID]
	return h, ok
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	users  *memoryUserStore
	cfg    Config
}

// newTestEnv builds an engine with one active user "alice" (u1) whose
// password is testPassword. mutate may adjust the config before Build.
func newTestEnv(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	users := newMemoryUserStore()
	hash, err := newTestHasher(t, testConfig().Password).Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	users.add("alice", CredentialRecord{UserID: "u1", PasswordHash: hash, Status: AccountActive})

	b := New().WithConfig(cfg).WithRedis(rdb).WithUserStore(users)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, users: users, cfg: cfg}
}

func clientCtx(ip string) context.Context {
	return WithClientIP(context.Background(), ip)
}

func mustReject(t *testing.T, err error, kind RejectKind) *Rejection {
	t.Helper()

	rej, ok := AsRejection(err)
	if !ok {
		t.Fatalf("expected *Rejection of kind %s, got %v", kind, err)
	}
	if rej.Kind != kind {
		t.Fatalf("expected rejection kind %s, got %s (%v)", kind, rej.Kind, err)
	}
	return rej
}
