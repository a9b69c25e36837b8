package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/loginguard"
	"github.com/MrEthical07/loginguard/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// serverConfig is everything the binary reads from the environment. Keys map
// to LOGINGUARD_* variables with dots replaced by underscores, e.g.
// rate_limit.max_attempts is LOGINGUARD_RATE_LIMIT_MAX_ATTEMPTS.
type serverConfig struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	TrustProxy      bool
	DatabaseURL     string
	ShutdownTimeout time.Duration

	Engine loginguard.Config
}

const envPrefix = "LOGINGUARD"

func loadConfig() (serverConfig, error) {
	// Missing .env files are normal outside local development.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return serverConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	def := loginguard.DefaultConfig()

	v.SetDefault("addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("database_url", "")
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("store.url", "")
	v.SetDefault("store.host", "")
	v.SetDefault("store.port", 0)
	v.SetDefault("store.username", "")
	v.SetDefault("store.password", "")
	v.SetDefault("store.db", 0)
	v.SetDefault("store.tls", false)
	v.SetDefault("store.key_prefix", def.Store.KeyPrefix)
	v.SetDefault("store.operation_timeout", def.Store.OperationTimeout)
	v.SetDefault("store.dial_timeout", def.Store.DialTimeout)
	v.SetDefault("store.pool_size", 0)

	v.SetDefault("rate_limit.keying", def.RateLimit.Keying.String())
	v.SetDefault("rate_limit.max_attempts", def.RateLimit.MaxAttempts)
	v.SetDefault("rate_limit.ip_max_attempts", 0)
	v.SetDefault("rate_limit.window", def.RateLimit.Window)

	v.SetDefault("lockout.enabled", def.Lockout.Enabled)
	v.SetDefault("lockout.threshold", def.Lockout.Threshold)
	v.SetDefault("lockout.base_duration", def.Lockout.BaseDuration)
	v.SetDefault("lockout.max_duration", def.Lockout.MaxDuration)
	v.SetDefault("lockout.failure_window", def.Lockout.FailureWindow)

	v.SetDefault("validation.identifier_format", string(def.Validation.IdentifierFormat))
	v.SetDefault("validation.max_identifier_length", def.Validation.MaxIdentifierLength)
	v.SetDefault("validation.min_password_length", def.Validation.MinPasswordLength)
	v.SetDefault("validation.max_password_length", def.Validation.MaxPasswordLength)

	v.SetDefault("password.memory", def.Password.Memory)
	v.SetDefault("password.time", def.Password.Time)
	v.SetDefault("password.parallelism", def.Password.Parallelism)
	v.SetDefault("password.upgrade_on_login", def.Password.UpgradeOnLogin)

	v.SetDefault("user_store.lookup_timeout", def.UserStore.LookupTimeout)

	v.SetDefault("jwt.access_ttl", def.JWT.AccessTTL)
	v.SetDefault("jwt.signing_method", def.JWT.SigningMethod)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.private_key_file", "")
	v.SetDefault("jwt.issuer", def.JWT.Issuer)
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.key_id", "")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", def.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", def.Audit.DropIfFull)
	v.SetDefault("audit.sink_timeout", def.Audit.SinkTimeout)

	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.latency_histograms", def.Metrics.EnableLatencyHistograms)

	v.SetDefault("production_mode", false)
}

func fromViper(v *viper.Viper) (serverConfig, error) {
	cfg := serverConfig{
		Addr:            v.GetString("addr"),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		TrustProxy:      v.GetBool("trust_proxy"),
		DatabaseURL:     v.GetString("database_url"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		Engine:          loginguard.DefaultConfig(),
	}

	e := &cfg.Engine
	e.Store.URL = v.GetString("store.url")
	e.Store.Host = v.GetString("store.host")
	e.Store.Port = v.GetInt("store.port")
	e.Store.Username = v.GetString("store.username")
	e.Store.Password = v.GetString("store.password")
	e.Store.DB = v.GetInt("store.db")
	e.Store.TLS = v.GetBool("store.tls")
	e.Store.KeyPrefix = v.GetString("store.key_prefix")
	e.Store.OperationTimeout = v.GetDuration("store.operation_timeout")
	e.Store.DialTimeout = v.GetDuration("store.dial_timeout")
	e.Store.PoolSize = v.GetInt("store.pool_size")
	e.Session.RedisPrefix = e.Store.KeyPrefix

	keying, err := parseKeying(v.GetString("rate_limit.keying"))
	if err != nil {
		return serverConfig{}, err
	}
	e.RateLimit.Keying = keying
	e.RateLimit.MaxAttempts = v.GetInt("rate_limit.max_attempts")
	e.RateLimit.IPMaxAttempts = v.GetInt("rate_limit.ip_max_attempts")
	e.RateLimit.Window = v.GetDuration("rate_limit.window")

	e.Lockout.Enabled = v.GetBool("lockout.enabled")
	e.Lockout.Threshold = v.GetInt("lockout.threshold")
	e.Lockout.BaseDuration = v.GetDuration("lockout.base_duration")
	e.Lockout.MaxDuration = v.GetDuration("lockout.max_duration")
	e.Lockout.FailureWindow = v.GetDuration("lockout.failure_window")

	e.Validation.IdentifierFormat = validation.IdentifierFormat(strings.ToLower(v.GetString("validation.identifier_format")))
	e.Validation.MaxIdentifierLength = v.GetInt("validation.max_identifier_length")
	e.Validation.MinPasswordLength = v.GetInt("validation.min_password_length")
	e.Validation.MaxPasswordLength = v.GetInt("validation.max_password_length")

	e.Password.Memory = v.GetUint32("password.memory")
	e.Password.Time = v.GetUint32("password.time")
	e.Password.Parallelism = uint8(v.GetUint("password.parallelism"))
	e.Password.UpgradeOnLogin = v.GetBool("password.upgrade_on_login")

	e.UserStore.LookupTimeout = v.GetDuration("user_store.lookup_timeout")

	e.JWT.AccessTTL = v.GetDuration("jwt.access_ttl")
	e.JWT.SigningMethod = strings.ToLower(v.GetString("jwt.signing_method"))
	e.JWT.Issuer = v.GetString("jwt.issuer")
	e.JWT.Audience = v.GetString("jwt.audience")
	e.JWT.KeyID = v.GetString("jwt.key_id")
	switch e.JWT.SigningMethod {
	case "hs256":
		e.JWT.PrivateKey = []byte(v.GetString("jwt.secret"))
	default:
		if path := v.GetString("jwt.private_key_file"); path != "" {
			pem, err := os.ReadFile(path)
			if err != nil {
				return serverConfig{}, fmt.Errorf("read jwt private key: %w", err)
			}
			e.JWT.PrivateKey = pem
		}
	}

	e.Audit.Enabled = v.GetBool("audit.enabled")
	e.Audit.BufferSize = v.GetInt("audit.buffer_size")
	e.Audit.DropIfFull = v.GetBool("audit.drop_if_full")
	e.Audit.SinkTimeout = v.GetDuration("audit.sink_timeout")

	e.Metrics.Enabled = v.GetBool("metrics.enabled")
	e.Metrics.EnableLatencyHistograms = v.GetBool("metrics.latency_histograms")

	e.Security.ProductionMode = v.GetBool("production_mode")

	return cfg, nil
}

func parseKeying(s string) (loginguard.RateKeying, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ip", "":
		return loginguard.KeyingIP, nil
	case "identifier":
		return loginguard.KeyingIdentifier, nil
	case "independent":
		return loginguard.KeyingIndependent, nil
	case "combined":
		return loginguard.KeyingCombined, nil
	default:
		return 0, fmt.Errorf("unknown rate limit keying %q", s)
	}
}
