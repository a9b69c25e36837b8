package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/password"
	"github.com/MrEthical07/loginguard/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const loadPassword = "load-test-password-1"

func main() {
	var (
		users       = flag.Int("users", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "operations per phase (login + validate)")
		attempts    = flag.Int("attempts", 500, "wrong-password attempts from one client IP in the throttle phase")
		maxAttempts = flag.Int("max-attempts", 10, "rate limit attempts per window")
		argonMemory = flag.Uint("argon-memory", 8*1024, "argon2id memory in KB")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lgload:", "counter and session key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *attempts <= 0 || *maxAttempts <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops, attempts, and max-attempts must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:                 []string{addr},
			ContextTimeoutEnabled: true,
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:                 []string{addr},
			ContextTimeoutEnabled: true,
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := loginguard.DefaultConfig()
	cfg.Store.KeyPrefix = *prefix
	cfg.Session.RedisPrefix = *prefix
	cfg.RateLimit.MaxAttempts = *maxAttempts
	cfg.Password.Memory = uint32(*argonMemory)
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = make([]byte, 32)
	if _, err := rand.Read(cfg.JWT.PrivateKey); err != nil {
		fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
		os.Exit(1)
	}

	store, err := seedUsers(cfg.Password, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	engine, err := loginguard.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(store).
		WithLogger(zerolog.Nop()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	loginStats, tokens := runLoginPhase(ctx, engine, *users, *ops, *concurrency)
	validateStats := runValidatePhase(ctx, engine, tokens, *ops, *concurrency)
	throttle := runThrottlePhase(ctx, engine, *attempts, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("validate", validateStats)
	printStats("throttle", throttle.stats)
	fmt.Printf("throttle: allowed=%d rate_limited=%d other=%d\n", throttle.allowed, throttle.limited, throttle.other)

	want := int64(*attempts - *maxAttempts)
	if want < 0 {
		want = 0
	}
	if throttle.limited != want {
		fmt.Fprintf(os.Stderr, "rate limiter admitted the wrong number of attempts: limited=%d want=%d\n", throttle.limited, want)
		os.Exit(1)
	}
}

// seedUsers hashes once and shares the hash; per-account hashing would
// dominate startup at realistic argon2 parameters.
func seedUsers(pc loginguard.PasswordConfig, n int) (*userstore.Memory, error) {
	h, err := password.New(password.Params{
		Memory:      pc.Memory,
		Time:        pc.Time,
		Parallelism: pc.Parallelism,
		SaltLength:  pc.SaltLength,
		KeyLength:   pc.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	hash, err := h.Hash(loadPassword)
	if err != nil {
		return nil, err
	}

	store := userstore.NewMemory()
	fmt.Printf("seeding %d users...\n", n)
	for i := 0; i < n; i++ {
		rec := loginguard.CredentialRecord{
			UserID:       fmt.Sprintf("u%d", i),
			PasswordHash: hash,
			Status:       loginguard.AccountActive,
		}
		if err := store.Add(identifierFor(i), rec); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// runLoginPhase gives every attempt its own client IP so the limiter never
// trips and the phase measures the full credential path.
func runLoginPhase(ctx context.Context, engine *loginguard.Engine, users, ops, concurrency int) (phaseStats, []string) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		tokens    = make([]string, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				attemptCtx := loginguard.WithClientIP(ctx, ipFor(i))
				t0 := time.Now()
				res, err := engine.LoginWithCredentials(attemptCtx, identifierFor(r.Intn(users)), loadPassword)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				if err == nil {
					tokens = append(tokens, res.Token.AccessToken)
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), tokens
}

func runValidatePhase(ctx context.Context, engine *loginguard.Engine, tokens []string, ops, concurrency int) phaseStats {
	if len(tokens) == 0 {
		return phaseStats{}
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := engine.ValidateSession(ctx, tokens[r.Intn(len(tokens))])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type throttleResult struct {
	stats   phaseStats
	allowed int64
	limited int64
	other   int64
}

// runThrottlePhase hammers the limiter from one IP. Each attempt uses a fresh
// unknown identifier so lockout never engages and only rate limiting denies.
func runThrottlePhase(ctx context.Context, engine *loginguard.Engine, attempts, concurrency int) throttleResult {
	var (
		wg        sync.WaitGroup
		cursor    int64
		res       throttleResult
		latencies = make([]time.Duration, 0, attempts)
		mu        sync.Mutex
	)

	attemptCtx := loginguard.WithClientIP(ctx, "198.51.100.7")
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= attempts {
					return
				}
				t0 := time.Now()
				_, err := engine.LoginWithCredentials(attemptCtx, fmt.Sprintf("ghost%d@example.com", i), "wrong-password-123")
				d := time.Since(t0)

				var rej *loginguard.Rejection
				switch {
				case errors.As(err, &rej) && rej.Kind == loginguard.RejectRateLimited:
					atomic.AddInt64(&res.limited, 1)
				case errors.As(err, &rej) && rej.Kind == loginguard.RejectInvalidCredentials:
					atomic.AddInt64(&res.allowed, 1)
				default:
					atomic.AddInt64(&res.other, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	res.stats = computeStats(time.Since(start), latencies, res.other)
	return res
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func identifierFor(i int) string {
	return fmt.Sprintf("load%d@example.com", i)
}

func ipFor(i int) string {
	return fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xFF, (i>>8)&0xFF, i&0xFF)
}
