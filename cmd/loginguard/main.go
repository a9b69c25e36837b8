// Command loginguard serves the login pipeline over HTTP.
//
// Production mode reads Redis and Postgres settings from LOGINGUARD_*
// environment variables. With -dev it runs against an in-process Redis and an
// in-memory user store seeded with a single account.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/httpapi"
	lgprom "github.com/MrEthical07/loginguard/metrics/export/prometheus"
	"github.com/MrEthical07/loginguard/password"
	"github.com/MrEthical07/loginguard/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	dev := flag.Bool("dev", false, "run with in-process redis and an in-memory user store")
	devUser := flag.String("dev-user", "demo@example.com", "identifier seeded in -dev mode")
	devPassword := flag.String("dev-password", "correct-horse-battery", "password seeded in -dev mode")
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, devOptions{enabled: *dev, user: *devUser, password: *devPassword}); err != nil {
		log.Fatal().Err(err).Msg("loginguard exited")
	}
}

type devOptions struct {
	enabled  bool
	user     string
	password string
}

func run(ctx context.Context, cfg serverConfig, log zerolog.Logger, dev devOptions) error {
	builder := loginguard.New().
		WithLogger(log).
		WithAuditSink(loginguard.NewZerologSink(log.With().Str("component", "audit").Logger()))

	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	if dev.enabled {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start dev redis: %w", err)
		}
		cleanup = append(cleanup, mr.Close)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), ContextTimeoutEnabled: true})
		cleanup = append(cleanup, func() { _ = rdb.Close() })
		builder.WithRedis(rdb)

		if len(cfg.Engine.JWT.PrivateKey) == 0 && cfg.Engine.JWT.SigningMethod != "hs256" {
			_, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return fmt.Errorf("generate dev signing key: %w", err)
			}
			cfg.Engine.JWT.PrivateKey = priv
		}

		users, err := seedDevUsers(cfg.Engine.Password, dev.user, dev.password)
		if err != nil {
			return err
		}
		builder.WithUserStore(users)
		log.Warn().Str("identifier", dev.user).Str("redis", mr.Addr()).Msg("dev mode: in-memory state, not for production")
	} else {
		if cfg.DatabaseURL == "" {
			return errors.New("LOGINGUARD_DATABASE_URL is required outside -dev")
		}
		pool, err := userstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, pool.Close)
		users := userstore.NewPostgres(pool)
		if err := users.EnsureSchema(ctx); err != nil {
			return err
		}
		builder.WithUserStore(users)
	}

	engine, err := builder.WithConfig(cfg.Engine).Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	cleanup = append(cleanup, engine.Close)

	report := engine.SecurityReport()
	log.Info().
		Bool("production_mode", report.ProductionMode).
		Str("signing_alg", report.SigningAlgorithm).
		Str("rate_keying", report.RateLimit.Keying).
		Int("rate_max_attempts", report.RateLimit.MaxAttempts).
		Dur("rate_window", report.RateLimit.Window).
		Bool("lockout_enabled", report.Lockout.Enabled).
		Int("lockout_threshold", report.Lockout.Threshold).
		Bool("store_tls", report.StoreTLS).
		Msg("security posture")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		lgprom.NewCollector(engine),
	)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.NewRouter(httpapi.RouterConfig{
			Engine:     engine,
			Log:        log,
			TrustProxy: cfg.TrustProxy,
			Gatherer:   reg,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func seedDevUsers(pc loginguard.PasswordConfig, identifier, plaintext string) (*userstore.Memory, error) {
	h, err := password.New(password.Params{
		Memory:      pc.Memory,
		Time:        pc.Time,
		Parallelism: pc.Parallelism,
		SaltLength:  pc.SaltLength,
		KeyLength:   pc.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("dev hasher: %w", err)
	}
	users := userstore.NewMemory()
	if err := users.AddPassword(h, identifier, "dev-user-1", plaintext); err != nil {
		return nil, fmt.Errorf("seed dev user: %w", err)
	}
	return users, nil
}

func newLogger(cfg serverConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Str("service", "loginguard").Logger()
}
