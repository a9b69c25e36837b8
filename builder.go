package loginguard

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/loginguard/internal/credentials"
	"github.com/MrEthical07/loginguard/internal/flows"
	"github.com/MrEthical07/loginguard/internal/limiters"
	"github.com/MrEthical07/loginguard/internal/rate"
	"github.com/MrEthical07/loginguard/internal/stores"
	"github.com/MrEthical07/loginguard/jwt"
	"github.com/MrEthical07/loginguard/password"
	"github.com/MrEthical07/loginguard/session"
	"github.com/MrEthical07/loginguard/validation"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userStore UserStore
	issuer    SessionIssuer
	auditSink AuditSink
	logger    zerolog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis injects an existing client. It takes precedence over
// Config.Store connection settings and is not closed by [Engine.Close].
// The client must be built with ContextTimeoutEnabled so Store
// OperationTimeout can interrupt a stalled read; Build rejects one that is not.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithSessionIssuer replaces the default JWT + Redis session issuer.
func (b *Builder) WithSessionIssuer(issuer SessionIssuer) *Builder {
	b.issuer = issuer
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, resolves the store connection and wires
// every pipeline component. All configuration and programmer errors surface
// here rather than per request.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userStore == nil {
		return nil, ErrUserStoreRequired
	}
	if b.redis != nil {
		if err := checkContextTimeouts(b.redis, b.logger); err != nil {
			return nil, err
		}
	}

	// -------- STORE --------
	client := b.redis
	ownsClient := false
	storeTLS := false
	if client == nil {
		opts, err := cfg.Store.Resolve()
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opts)
		ownsClient = true
		storeTLS = opts.TLSConfig != nil
	}
	counters := stores.NewCounterStore(client, cfg.Store.OperationTimeout)

	var engine *Engine
	closeOnErr := func(err error) (*Engine, error) {
		if engine != nil {
			engine.audit.Close()
		}
		if ownsClient {
			_ = client.Close()
		}
		return nil, err
	}

	// -------- PIPELINE --------
	limiter, err := rate.New(counters, rate.Config{
		Prefix:        cfg.Store.KeyPrefix,
		Keying:        cfg.RateLimit.Keying,
		MaxAttempts:   cfg.RateLimit.MaxAttempts,
		IPMaxAttempts: cfg.RateLimit.IPMaxAttempts,
		Window:        cfg.RateLimit.Window,
	})
	if err != nil {
		return closeOnErr(err)
	}

	lockout, err := limiters.NewLockoutManager(counters, limiters.LockoutConfig{
		Enabled:       cfg.Lockout.Enabled,
		Prefix:        cfg.Store.KeyPrefix,
		Threshold:     cfg.Lockout.Threshold,
		BaseDuration:  cfg.Lockout.BaseDuration,
		MaxDuration:   cfg.Lockout.MaxDuration,
		FailureWindow: cfg.Lockout.FailureWindow,
	})
	if err != nil {
		return closeOnErr(err)
	}

	validator, err := validation.New(cfg.Validation)
	if err != nil {
		return closeOnErr(err)
	}

	hasher, err := password.New(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return closeOnErr(err)
	}

	engine = &Engine{
		config:     cfg,
		redis:      client,
		ownsRedis:  ownsClient,
		storeTLS:   storeTLS,
		counters:   counters,
		limiter:    limiter,
		lockout:    lockout,
		validator:  validator,
		hasher:     hasher,
		userStore:  b.userStore,
		logger:     b.logger.With().Str("component", "loginguard").Logger(),
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
		sessionOps: b.issuer,
	}
	if updater, ok := b.userStore.(PasswordHashUpdater); ok {
		engine.hashUpdater = updater
	}

	verifier, err := credentials.NewVerifier(engine.lookupCredentials, hasher, cfg.UserStore.LookupTimeout)
	if err != nil {
		return closeOnErr(err)
	}
	engine.verifier = verifier

	// -------- SESSIONS --------
	if engine.sessionOps == nil {
		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.JWT.AccessTTL,
			SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.PublicKey),
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			KeyID:         cfg.JWT.KeyID,
		})
		if err != nil {
			return closeOnErr(err)
		}
		engine.jwtManager = jm
		engine.sessionOps = session.NewIssuer(session.NewStore(client, cfg.Session.RedisPrefix, cfg.Store.OperationTimeout), jm)
	}

	engine.flows = flows.New(engine.flowDeps())
	b.built = true

	return engine, nil
}

// checkContextTimeouts rejects injected clients whose reads would ignore the
// per-call deadline and fall back to the client's ReadTimeout.
func checkContextTimeouts(client redis.UniversalClient, logger zerolog.Logger) error {
	switch c := client.(type) {
	case *redis.Client:
		if !c.Options().ContextTimeoutEnabled {
			return ErrStoreTimeoutNotEnforced
		}
	case *redis.ClusterClient:
		if !c.Options().ContextTimeoutEnabled {
			return ErrStoreTimeoutNotEnforced
		}
	default:
		logger.Warn().
			Str("client", fmt.Sprintf("%T", client)).
			Msg("cannot verify ContextTimeoutEnabled on injected redis client; store timeouts may not apply")
	}
	return nil
}
