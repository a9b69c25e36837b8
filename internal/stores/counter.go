package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnavailable indicates the shared store could not complete the operation
	// within its deadline.
	ErrUnavailable = errors.New("counter store unavailable")
	// ErrInvalidArgument indicates a caller passed an unusable key or duration.
	ErrInvalidArgument = errors.New("counter store invalid argument")
)

// DefaultOperationTimeout bounds a store call when no timeout is configured.
const DefaultOperationTimeout = 250 * time.Millisecond

// incrWithTTLScript increments every key and arms its expiry on the first hit.
// A key that somehow lost its TTL is re-armed so a window can never become
// permanent. Returns a flat array of {count, pttl} pairs in key order.
const incrWithTTLScript = `
local ttl = tonumber(ARGV[1])
local out = {}
for i, key in ipairs(KEYS) do
  local count = redis.call("INCR", key)
  local remaining = redis.call("PTTL", key)
  if count == 1 or remaining < 0 then
    redis.call("PEXPIRE", key, ttl)
    remaining = ttl
  end
  out[#out + 1] = count
  out[#out + 1] = remaining
end
return out
`

// recordFailureScript counts a failure and locks or extends the lock when the
// escalated duration ends later than the current lock.
//
// KEYS[1] failure counter, KEYS[2] lock marker.
// ARGV: threshold, base ms, cap ms, failure window ms.
// Returns {failures, lock pttl, extended}.
const recordFailureScript = `
local threshold = tonumber(ARGV[1])
local base = tonumber(ARGV[2])
local cap = tonumber(ARGV[3])
local window = tonumber(ARGV[4])

local failures = redis.call("INCR", KEYS[1])
local remaining = redis.call("PTTL", KEYS[2])
if remaining < 0 then
  remaining = 0
end

local extended = 0
if failures >= threshold or remaining > 0 then
  local steps = failures - threshold
  local duration = base
  while steps > 0 and duration < cap do
    duration = duration * 2
    steps = steps - 1
  end
  if duration > cap then
    duration = cap
  end
  if duration > remaining then
    redis.call("SET", KEYS[2], failures, "PX", duration)
    remaining = duration
    extended = 1
  end
end

redis.call("PEXPIRE", KEYS[1], remaining + window)
return {failures, remaining, extended}
`

// Counter is the post-increment state of one key.
type Counter struct {
	Key       string
	Count     int64
	Remaining time.Duration
}

// EscalationPolicy parameterizes [CounterStore.RecordFailure].
type EscalationPolicy struct {
	Threshold     int
	BaseDuration  time.Duration
	MaxDuration   time.Duration
	FailureWindow time.Duration
}

// Escalation reports the state after a recorded failure.
type Escalation struct {
	Failures int64
	// LockedFor is the remaining lock time, zero when not locked.
	LockedFor time.Duration
	// Changed is true when this failure created or extended the lock.
	Changed bool
}

// CounterStore is the Redis-backed shared counter store.
type CounterStore struct {
	redis         redis.UniversalClient
	timeout       time.Duration
	incrScript    *redis.Script
	failureScript *redis.Script
}

// NewCounterStore creates a [CounterStore]. A non-positive timeout selects
// [DefaultOperationTimeout]. The per-call deadline only interrupts a hung
// socket read when the client was built with ContextTimeoutEnabled.
func NewCounterStore(client redis.UniversalClient, timeout time.Duration) *CounterStore {
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return &CounterStore{
		redis:         client,
		timeout:       timeout,
		incrScript:    redis.NewScript(incrWithTTLScript),
		failureScript: redis.NewScript(recordFailureScript),
	}
}

// Timeout returns the per-operation deadline.
func (s *CounterStore) Timeout() time.Duration {
	return s.timeout
}

func (s *CounterStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// IncrWithTTL atomically increments key and arms its expiry on the first hit.
func (s *CounterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (Counter, error) {
	counters, err := s.IncrEach(ctx, []string{key}, ttl)
	if err != nil {
		return Counter{}, err
	}
	return counters[0], nil
}

// IncrEach increments every key in one atomic round trip. Counters are returned
// in the order of keys.
func (s *CounterStore) IncrEach(ctx context.Context, keys []string, ttl time.Duration) ([]Counter, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrInvalidArgument)
	}
	ttlMS := ttl.Milliseconds()
	if ttlMS <= 0 {
		return nil, fmt.Errorf("%w: ttl must be at least 1ms", ErrInvalidArgument)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	raw, err := s.incrScript.Run(ctx, s.redis, keys, ttlMS).Int64Slice()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(raw) != len(keys)*2 {
		return nil, unavailable(fmt.Errorf("unexpected script reply length %d", len(raw)))
	}

	out := make([]Counter, len(keys))
	for i, key := range keys {
		out[i] = Counter{
			Key:       key,
			Count:     raw[2*i],
			Remaining: time.Duration(raw[2*i+1]) * time.Millisecond,
		}
	}
	return out, nil
}

// Get returns the integer stored at key. Missing keys report ok=false.
func (s *CounterStore) Get(ctx context.Context, key string) (int64, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	v, err := s.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, unavailable(err)
	}
	return v, true, nil
}

// SetIfNotLocked stores value with ttl only when key is absent. It returns
// false when key already holds a value.
func (s *CounterStore) SetIfNotLocked(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	if ttl < time.Millisecond {
		return false, fmt.Errorf("%w: ttl must be at least 1ms", ErrInvalidArgument)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	ok, err := s.redis.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

// Del removes keys. Missing keys are not an error.
func (s *CounterStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// TTL returns the remaining lifetime of key, zero when the key is missing or
// has no expiry.
func (s *CounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	d, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	// -1 (no expiry) and -2 (missing) come back as raw negative durations.
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// RecordFailure increments failKey and, once policy.Threshold is reached, sets
// or extends lockKey. The lock never shrinks: a new duration is applied only
// when it ends later than the remaining lock.
func (s *CounterStore) RecordFailure(ctx context.Context, failKey, lockKey string, policy EscalationPolicy) (Escalation, error) {
	if policy.Threshold <= 0 || policy.BaseDuration < time.Millisecond || policy.MaxDuration < policy.BaseDuration {
		return Escalation{}, fmt.Errorf("%w: escalation policy", ErrInvalidArgument)
	}
	window := policy.FailureWindow
	if window < time.Millisecond {
		window = policy.BaseDuration
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	raw, err := s.failureScript.Run(
		ctx,
		s.redis,
		[]string{failKey, lockKey},
		policy.Threshold,
		policy.BaseDuration.Milliseconds(),
		policy.MaxDuration.Milliseconds(),
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Escalation{}, unavailable(err)
	}
	if len(raw) != 3 {
		return Escalation{}, unavailable(fmt.Errorf("unexpected script reply length %d", len(raw)))
	}

	return Escalation{
		Failures:  raw[0],
		LockedFor: time.Duration(raw[1]) * time.Millisecond,
		Changed:   raw[2] == 1,
	}, nil
}

// Ping returns a point-in-time availability check and latency.
func (s *CounterStore) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}
