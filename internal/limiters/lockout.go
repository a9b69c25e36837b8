package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/loginguard/internal/stores"
)

// LockoutConfig holds configuration for the identifier lockout manager.
type LockoutConfig struct {
	Enabled   bool
	Prefix    string
	Threshold int
	// BaseDuration is the lock applied when Threshold is reached.
	BaseDuration time.Duration
	// MaxDuration caps escalated locks.
	MaxDuration time.Duration
	// FailureWindow is how long failures keep accumulating after the last one
	// (or after the current lock ends).
	FailureWindow time.Duration
}

var (
	// ErrInvalidIdentifier indicates an empty identifier was passed.
	ErrInvalidIdentifier = errors.New("lockout identifier is empty")
)

// LockStatus is the read-only view returned by [LockoutManager.Status].
type LockStatus struct {
	Locked    bool
	Remaining time.Duration
	Failures  int64
}

// Escalation is the state after [LockoutManager.RecordFailure].
type Escalation struct {
	Failures int64
	Locked   bool
	// LockedFor is the remaining lock, zero when not locked.
	LockedFor time.Duration
	// Triggered is true when this failure created or extended the lock.
	Triggered bool
}

type lockoutStore interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
	SetIfNotLocked(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error)
	RecordFailure(ctx context.Context, failKey, lockKey string, policy stores.EscalationPolicy) (stores.Escalation, error)
}

// LockoutManager escalates repeated failures into temporary identifier locks.
type LockoutManager struct {
	store  lockoutStore
	config LockoutConfig
}

// NewLockoutManager creates a lockout manager. A disabled config yields a
// manager that never locks.
func NewLockoutManager(store lockoutStore, cfg LockoutConfig) (*LockoutManager, error) {
	if !cfg.Enabled {
		return &LockoutManager{config: cfg}, nil
	}
	if store == nil {
		return nil, fmt.Errorf("lockout: nil counter store")
	}
	if cfg.Threshold <= 0 {
		return nil, fmt.Errorf("lockout: Threshold must be > 0")
	}
	if cfg.BaseDuration < time.Millisecond {
		return nil, fmt.Errorf("lockout: BaseDuration must be >= 1ms")
	}
	if cfg.MaxDuration < cfg.BaseDuration {
		return nil, fmt.Errorf("lockout: MaxDuration must be >= BaseDuration")
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = cfg.BaseDuration
	}
	return &LockoutManager{store: store, config: cfg}, nil
}

func (l *LockoutManager) enabled() bool {
	return l != nil && l.config.Enabled && l.store != nil
}

func (l *LockoutManager) failKey(id string) string {
	return l.config.Prefix + "lo:f:" + id
}

func (l *LockoutManager) lockKey(id string) string {
	return l.config.Prefix + "lo:l:" + id
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Status reports whether identifier is currently locked and for how long.
func (l *LockoutManager) Status(ctx context.Context, identifier string) (LockStatus, error) {
	if !l.enabled() {
		return LockStatus{}, nil
	}
	id := normalize(identifier)
	if id == "" {
		return LockStatus{}, ErrInvalidIdentifier
	}

	remaining, err := l.store.TTL(ctx, l.lockKey(id))
	if err != nil {
		return LockStatus{}, err
	}
	failures, _, err := l.store.Get(ctx, l.failKey(id))
	if err != nil {
		return LockStatus{}, err
	}

	return LockStatus{
		Locked:    remaining > 0,
		Remaining: remaining,
		Failures:  failures,
	}, nil
}

// RecordFailure counts a failed attempt and applies escalation.
func (l *LockoutManager) RecordFailure(ctx context.Context, identifier string) (Escalation, error) {
	if !l.enabled() {
		return Escalation{}, nil
	}
	id := normalize(identifier)
	if id == "" {
		return Escalation{}, ErrInvalidIdentifier
	}

	esc, err := l.store.RecordFailure(ctx, l.failKey(id), l.lockKey(id), stores.EscalationPolicy{
		Threshold:     l.config.Threshold,
		BaseDuration:  l.config.BaseDuration,
		MaxDuration:   l.config.MaxDuration,
		FailureWindow: l.config.FailureWindow,
	})
	if err != nil {
		return Escalation{}, err
	}

	return Escalation{
		Failures:  esc.Failures,
		Locked:    esc.LockedFor > 0,
		LockedFor: esc.LockedFor,
		Triggered: esc.Changed,
	}, nil
}

// RecordSuccess clears the failure counter and any active lock for identifier.
// Other identifiers, including ones seen from the same address, are unaffected.
func (l *LockoutManager) RecordSuccess(ctx context.Context, identifier string) error {
	if !l.enabled() {
		return nil
	}
	id := normalize(identifier)
	if id == "" {
		return ErrInvalidIdentifier
	}
	return l.store.Del(ctx, l.failKey(id), l.lockKey(id))
}

// Lock places an administrative lock for d. It returns false when identifier
// is already locked; the existing lock is left as is.
func (l *LockoutManager) Lock(ctx context.Context, identifier string, d time.Duration) (bool, error) {
	if !l.enabled() {
		return false, nil
	}
	id := normalize(identifier)
	if id == "" {
		return false, ErrInvalidIdentifier
	}
	return l.store.SetIfNotLocked(ctx, l.lockKey(id), 0, d)
}

// Config returns the manager configuration.
func (l *LockoutManager) Config() LockoutConfig {
	if l == nil {
		return LockoutConfig{}
	}
	return l.config
}
