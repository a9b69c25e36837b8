package rate

import "errors"

var (
	// ErrRateLimited is returned by [Decision.Err] for denied attempts.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoKey indicates an attempt carried neither an IP nor an identifier.
	ErrNoKey = errors.New("rate limit attempt has no key")
)
