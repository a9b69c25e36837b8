package loginguard

import "time"

// SecurityReport summarizes the protection posture of a built Engine.
type SecurityReport struct {
	ProductionMode   bool
	SigningAlgorithm string
	AccessTTL        time.Duration
	Argon2           PasswordConfigReport
	RateLimit        RateLimitReport
	Lockout          LockoutConfig
	IdentifierFormat string
	// StoreTLS reports whether the store connection resolved to TLS. It is
	// false for injected clients.
	StoreTLS               bool
	PasswordUpgradeOnLogin bool
	CustomSessionIssuer    bool
	AuditEnabled           bool
	MetricsEnabled         bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type RateLimitReport struct {
	Keying        string
	MaxAttempts   int
	IPMaxAttempts int
	Window        time.Duration
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	algorithm := ""
	if e.jwtManager != nil {
		algorithm = e.jwtManager.Algorithm()
	}

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: algorithm,
		AccessTTL:        e.config.JWT.AccessTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		RateLimit: RateLimitReport{
			Keying:        e.config.RateLimit.Keying.String(),
			MaxAttempts:   e.config.RateLimit.MaxAttempts,
			IPMaxAttempts: e.config.RateLimit.IPMaxAttempts,
			Window:        e.config.RateLimit.Window,
		},
		Lockout:                e.config.Lockout,
		IdentifierFormat:       string(e.config.Validation.IdentifierFormat),
		StoreTLS:               e.storeTLS,
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin && e.hashUpdater != nil,
		CustomSessionIssuer:    e.jwtManager == nil,
		AuditEnabled:           e.audit != nil,
		MetricsEnabled:         e.metrics.Enabled(),
	}
}
