package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/loginguard/internal/stores"
)

// Keying selects which counters a login attempt is charged against.
type Keying uint8

const (
	// KeyingIP counts per client IP, falling back to the identifier when the IP
	// is unknown.
	KeyingIP Keying = iota
	// KeyingIdentifier counts per normalized identifier.
	KeyingIdentifier
	// KeyingIndependent counts per IP and per identifier; the most restrictive wins.
	KeyingIndependent
	// KeyingCombined counts per (IP, identifier) pair.
	KeyingCombined
)

func (k Keying) String() string {
	switch k {
	case KeyingIP:
		return "ip"
	case KeyingIdentifier:
		return "identifier"
	case KeyingIndependent:
		return "independent"
	case KeyingCombined:
		return "combined"
	default:
		return "unknown"
	}
}

// Scope names the dimension a counter key belongs to.
type Scope string

const (
	ScopeIP         Scope = "ip"
	ScopeIdentifier Scope = "identifier"
	ScopePair       Scope = "pair"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix      string
	Keying      Keying
	MaxAttempts int
	// IPMaxAttempts overrides MaxAttempts for per-IP keys. Zero uses MaxAttempts.
	IPMaxAttempts int
	Window        time.Duration
}

// Attempt is the identifying context of one login attempt.
type Attempt struct {
	IP         string
	Identifier string
}

// Decision is the outcome of [Limiter.CheckAndRecord].
type Decision struct {
	Allowed bool
	// RetryAfter is the remaining window of the denying key, zero when allowed.
	RetryAfter time.Duration
	// Remaining is the smallest number of attempts left across evaluated keys.
	Remaining int
	// Scope is the dimension that denied the attempt, empty when allowed.
	Scope Scope
}

// Err returns [ErrRateLimited] for denied decisions and nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return ErrRateLimited
}

type counterStore interface {
	IncrEach(ctx context.Context, keys []string, ttl time.Duration) ([]stores.Counter, error)
	Del(ctx context.Context, keys ...string) error
}

// Limiter enforces login attempt budgets using shared fixed-window counters.
type Limiter struct {
	store  counterStore
	config Config
}

// New creates a rate [Limiter] backed by the given counter store.
func New(store counterStore, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate: nil counter store")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("rate: MaxAttempts must be > 0")
	}
	if cfg.IPMaxAttempts < 0 {
		return nil, fmt.Errorf("rate: IPMaxAttempts must be >= 0")
	}
	if cfg.Window < time.Millisecond {
		return nil, fmt.Errorf("rate: Window must be >= 1ms")
	}
	if cfg.Keying > KeyingCombined {
		return nil, fmt.Errorf("rate: unknown keying %d", cfg.Keying)
	}
	return &Limiter{store: store, config: cfg}, nil
}

type scopedKey struct {
	key   string
	scope Scope
	limit int
}

// CheckAndRecord charges the attempt against every key selected by the keying
// policy and reports whether it is within budget. Each key is incremented exactly
// once; a denied attempt still counts.
func (l *Limiter) CheckAndRecord(ctx context.Context, attempt Attempt) (Decision, error) {
	keys, err := l.keysFor(attempt)
	if err != nil {
		return Decision{}, err
	}

	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.key
	}

	counters, err := l.store.IncrEach(ctx, names, l.config.Window)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{Allowed: true, Remaining: -1}
	for i, c := range counters {
		limit := keys[i].limit
		left := limit - int(c.Count)
		if left < 0 {
			left = 0
		}
		if decision.Remaining < 0 || left < decision.Remaining {
			decision.Remaining = left
		}
		if c.Count <= int64(limit) {
			continue
		}

		retry := c.Remaining
		if retry <= 0 {
			retry = time.Millisecond
		}
		if decision.Allowed || retry > decision.RetryAfter {
			decision.RetryAfter = retry
			decision.Scope = keys[i].scope
		}
		decision.Allowed = false
	}

	return decision, nil
}

// ResetIdentifier clears identifier-scoped counters for the attempt. Per-IP
// counters are left untouched so a valid login cannot unlock throttling for
// other identifiers behind the same address.
func (l *Limiter) ResetIdentifier(ctx context.Context, attempt Attempt) error {
	id := NormalizeIdentifier(attempt.Identifier)
	if id == "" {
		return nil
	}

	keys := []string{l.identifierKey(id)}
	if attempt.IP != "" {
		keys = append(keys, l.pairKey(attempt.IP, id))
	}
	return l.store.Del(ctx, keys...)
}

// Config returns the limiter configuration.
func (l *Limiter) Config() Config {
	return l.config
}

func (l *Limiter) keysFor(attempt Attempt) ([]scopedKey, error) {
	ip := strings.TrimSpace(attempt.IP)
	id := NormalizeIdentifier(attempt.Identifier)
	if ip == "" && id == "" {
		return nil, ErrNoKey
	}

	ipLimit := l.config.MaxAttempts
	if l.config.IPMaxAttempts > 0 {
		ipLimit = l.config.IPMaxAttempts
	}
	ipKey := scopedKey{key: l.ipKey(ip), scope: ScopeIP, limit: ipLimit}
	idKey := scopedKey{key: l.identifierKey(id), scope: ScopeIdentifier, limit: l.config.MaxAttempts}

	switch l.config.Keying {
	case KeyingIdentifier:
		if id == "" {
			return []scopedKey{ipKey}, nil
		}
		return []scopedKey{idKey}, nil
	case KeyingIndependent:
		switch {
		case ip == "":
			return []scopedKey{idKey}, nil
		case id == "":
			return []scopedKey{ipKey}, nil
		}
		return []scopedKey{ipKey, idKey}, nil
	case KeyingCombined:
		switch {
		case ip == "":
			return []scopedKey{idKey}, nil
		case id == "":
			return []scopedKey{ipKey}, nil
		}
		return []scopedKey{{key: l.pairKey(ip, id), scope: ScopePair, limit: l.config.MaxAttempts}}, nil
	default:
		if ip == "" {
			return []scopedKey{idKey}, nil
		}
		return []scopedKey{ipKey}, nil
	}
}

func (l *Limiter) ipKey(ip string) string {
	return l.config.Prefix + "rl:ip:" + ip
}

func (l *Limiter) identifierKey(id string) string {
	return l.config.Prefix + "rl:id:" + id
}

func (l *Limiter) pairKey(ip, id string) string {
	return l.config.Prefix + "rl:pair:" + ip + "|" + id
}

// NormalizeIdentifier returns the case-folded, trimmed identifier used for keys.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
