package loginguard

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/loginguard/internal/rate"
	"github.com/MrEthical07/loginguard/password"
	"github.com/MrEthical07/loginguard/validation"
	"github.com/redis/go-redis/v9"
)

// Config is the complete engine configuration. Start from [DefaultConfig]
// and override fields; [Builder.Build] validates it once.
type Config struct {
	Store      StoreConfig
	RateLimit  RateLimitConfig
	Lockout    LockoutConfig
	Validation ValidationConfig
	Password   PasswordConfig
	UserStore  UserStoreConfig
	JWT        JWTConfig
	Session    SessionConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Security   SecurityConfig
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig describes the shared Redis counter store.
//
// Either URL (redis:// or rediss://) or the discrete Host/Port fields must be
// set. URL takes precedence when both are present.
type StoreConfig struct {
	URL      string
	Host     string
	Port     int
	Username string
	Password string
	DB       int
	TLS      bool
	// TLSServerName overrides the SNI name; defaults to Host.
	TLSServerName string

	// KeyPrefix namespaces every rate-limit and lockout key.
	KeyPrefix string
	// OperationTimeout bounds each store round trip.
	OperationTimeout time.Duration
	DialTimeout      time.Duration
	PoolSize         int
}

// maxPasswordRunes is the longest password Validate allows, measured so the
// UTF-8 encoding never exceeds [password.MaxPasswordBytes].
const maxPasswordRunes = password.MaxPasswordBytes / 4

// Configured reports whether either connection form is present.
func (c StoreConfig) Configured() bool {
	return strings.TrimSpace(c.URL) != "" || strings.TrimSpace(c.Host) != ""
}

// Resolve normalizes the connection settings into go-redis options.
func (c StoreConfig) Resolve() (*redis.Options, error) {
	var opts *redis.Options

	switch {
	case strings.TrimSpace(c.URL) != "":
		parsed, err := redis.ParseURL(strings.TrimSpace(c.URL))
		if err != nil {
			return nil, fmt.Errorf("Store URL is invalid: %w", err)
		}
		opts = parsed
	case strings.TrimSpace(c.Host) != "":
		port := c.Port
		if port == 0 {
			port = 6379
		}
		if port < 0 || port > 65535 {
			return nil, errors.New("Store Port must be within 1..65535")
		}
		host := strings.TrimSpace(c.Host)
		opts = &redis.Options{
			Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
			Username: c.Username,
			Password: c.Password,
			DB:       c.DB,
		}
		if c.TLS {
			serverName := c.TLSServerName
			if serverName == "" {
				serverName = host
			}
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: serverName,
			}
		}
	default:
		return nil, ErrStoreNotConfigured
	}

	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	if c.OperationTimeout > 0 {
		opts.ReadTimeout = c.OperationTimeout
		opts.WriteTimeout = c.OperationTimeout
	}
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	opts.ContextTimeoutEnabled = true
	return opts, nil
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateKeying selects which attempt attributes the rate limiter counts by.
type RateKeying = rate.Keying

const (
	// KeyingIP counts per client IP and falls back to the identifier when
	// the IP is unknown.
	KeyingIP = rate.KeyingIP
	// KeyingIdentifier counts per normalized identifier.
	KeyingIdentifier = rate.KeyingIdentifier
	// KeyingIndependent counts per IP and per identifier; the most
	// restrictive key decides.
	KeyingIndependent = rate.KeyingIndependent
	// KeyingCombined counts per (IP, identifier) pair.
	KeyingCombined = rate.KeyingCombined
)

// RateLimitConfig tunes the fixed-window login limiter.
type RateLimitConfig struct {
	Keying      RateKeying
	MaxAttempts int
	// IPMaxAttempts overrides MaxAttempts for per-IP keys under
	// KeyingIndependent. Zero uses MaxAttempts.
	IPMaxAttempts int
	Window        time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig tunes identifier lockout escalation.
type LockoutConfig struct {
	Enabled      bool
	Threshold    int
	BaseDuration time.Duration
	MaxDuration  time.Duration
	// FailureWindow is how long failures keep accumulating after the last
	// one, or after the current lock ends.
	FailureWindow time.Duration
}

// ValidationConfig bounds accepted login input.
type ValidationConfig = validation.Config

// PasswordConfig holds the argon2id parameters used for new hashes.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// UpgradeOnLogin rehashes on successful login when the stored parameters
	// differ and the user store implements [PasswordHashUpdater].
	UpgradeOnLogin bool
}

// UserStoreConfig bounds calls to the user store.
type UserStoreConfig struct {
	LookupTimeout time.Duration
}

/*
====================================
JWT / SESSION CONFIG
====================================
*/

// JWTConfig configures the default session issuer's access tokens. It is
// ignored when a custom [SessionIssuer] is supplied.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

// SessionConfig configures the default Redis-backed session store.
type SessionConfig struct {
	RedisPrefix string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// SinkTimeout bounds each delivery to the sink. Zero disables the bound.
	SinkTimeout time.Duration
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig holds posture toggles checked at startup.
type SecurityConfig struct {
	// ProductionMode enforces the stricter floors checked in [Config.Validate].
	ProductionMode bool
}

// DefaultConfig returns the baseline configuration: 10 attempts per minute
// per IP, lockout after 5 failures for 1m doubling up to 1h, argon2id with
// 64 MiB memory.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			KeyPrefix:        "lg:",
			OperationTimeout: 250 * time.Millisecond,
			DialTimeout:      2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Keying:      KeyingIP,
			MaxAttempts: 10,
			Window:      time.Minute,
		},
		Lockout: LockoutConfig{
			Enabled:       true,
			Threshold:     5,
			BaseDuration:  time.Minute,
			MaxDuration:   time.Hour,
			FailureWindow: 15 * time.Minute,
		},
		Validation: validation.DefaultConfig(),
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		UserStore: UserStoreConfig{
			LookupTimeout: 2 * time.Second,
		},
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "loginguard",
		},
		Session: SessionConfig{
			RedisPrefix: "lg:",
		},
		Audit: AuditConfig{
			Enabled:     false,
			BufferSize:  1024,
			DropIfFull:  true,
			SinkTimeout: time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency. Store connectivity and signing keys
// are resolved later by [Builder.Build].
func (c *Config) Validate() error {
	// Store
	if c.Store.OperationTimeout <= 0 {
		return errors.New("Store OperationTimeout must be > 0")
	}
	if c.Store.OperationTimeout > 10*time.Second {
		return errors.New("Store OperationTimeout must be <= 10s")
	}
	if c.Store.DialTimeout < 0 {
		return errors.New("Store DialTimeout must be >= 0")
	}
	if c.Store.PoolSize < 0 {
		return errors.New("Store PoolSize must be >= 0")
	}
	if c.Store.DB < 0 {
		return errors.New("Store DB must be >= 0")
	}

	// Rate limit
	switch c.RateLimit.Keying {
	case KeyingIP, KeyingIdentifier, KeyingIndependent, KeyingCombined:
	default:
		return errors.New("RateLimit Keying is invalid")
	}
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RateLimit MaxAttempts must be > 0")
	}
	if c.RateLimit.IPMaxAttempts < 0 {
		return errors.New("RateLimit IPMaxAttempts must be >= 0")
	}
	if c.RateLimit.Window < time.Second {
		return errors.New("RateLimit Window must be >= 1s")
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.Threshold <= 0 {
			return errors.New("Lockout Threshold must be > 0")
		}
		if c.Lockout.BaseDuration < time.Second {
			return errors.New("Lockout BaseDuration must be >= 1s")
		}
		if c.Lockout.MaxDuration < c.Lockout.BaseDuration {
			return errors.New("Lockout MaxDuration must be >= BaseDuration")
		}
		if c.Lockout.FailureWindow < 0 {
			return errors.New("Lockout FailureWindow must be >= 0")
		}
	}

	// Validation
	switch c.Validation.IdentifierFormat {
	case validation.FormatEither, validation.FormatEmail, validation.FormatUsername:
	default:
		return errors.New("Validation IdentifierFormat must be 'either', 'email' or 'username'")
	}
	if c.Validation.MaxIdentifierLength <= 0 {
		return errors.New("Validation MaxIdentifierLength must be > 0")
	}
	if c.Validation.MinPasswordLength < 1 {
		return errors.New("Validation MinPasswordLength must be >= 1")
	}
	if c.Validation.MaxPasswordLength < c.Validation.MinPasswordLength {
		return errors.New("Validation MaxPasswordLength must be >= MinPasswordLength")
	}
	// Length is counted in runes; four bytes each must still fit the hasher's cap.
	if c.Validation.MaxPasswordLength > maxPasswordRunes {
		return fmt.Errorf("Validation MaxPasswordLength must be <= %d", maxPasswordRunes)
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// User store
	if c.UserStore.LookupTimeout < 0 {
		return errors.New("UserStore LookupTimeout must be >= 0")
	}

	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within 0..2m")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.SinkTimeout < 0 {
		return errors.New("Audit SinkTimeout must be >= 0")
	}

	if c.Security.ProductionMode {
		if !c.Lockout.Enabled {
			return errors.New("ProductionMode requires Lockout Enabled")
		}
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.Password.Memory < 65536 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
	}

	return nil
}
