package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// MaxPasswordBytes bounds the input to key derivation.
	MaxPasswordBytes = 1024
)

var (
	// ErrMalformedHash indicates a stored hash could not be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrPasswordLength indicates a password outside 1..MaxPasswordBytes.
	ErrPasswordLength = errors.New("password length out of range")
)

// Params are the argon2id cost parameters.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns production argon2id parameters.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate rejects parameters below the supported floor.
func (p Params) Validate() error {
	if p.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if p.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if p.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if p.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if p.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}
	return nil
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	params Params
	decoy  *phc
}

// New creates a [Hasher] and derives its decoy hash.
func New(params Params) (*Hasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	h := &Hasher{params: params}

	secret := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("password: decoy secret: %w", err)
	}
	decoy, err := h.derive(secret)
	if err != nil {
		return nil, err
	}
	h.decoy = decoy

	return h, nil
}

// Params returns the parameters used for new hashes.
func (h *Hasher) Params() Params {
	return h.params
}

// Hash returns the PHC encoding of password under the current parameters.
// Password bytes are used exactly as given.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) == 0 || len(password) > MaxPasswordBytes {
		return "", ErrPasswordLength
	}
	out, err := h.derive([]byte(password))
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

func (h *Hasher) derive(secret []byte) (*phc, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("password: salt: %w", err)
	}
	return &phc{
		memory:      h.params.Memory,
		time:        h.params.Time,
		parallelism: h.params.Parallelism,
		salt:        salt,
		key:         argon2.IDKey(secret, salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength),
	}, nil
}

// Verify reports whether password matches encoded using a constant-time
// comparison. A malformed encoding returns [ErrMalformedHash].
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return parsed.matches(password), nil
}

// VerifyDecoy runs the same derivation as Verify against the decoy hash and
// always reports false.
func (h *Hasher) VerifyDecoy(password string) bool {
	_ = h.decoy.matches(password)
	return false
}

// NeedsRehash reports whether encoded was produced with weaker parameters than
// the Hasher's current ones.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return parsed.memory < h.params.Memory ||
		parsed.time < h.params.Time ||
		parsed.parallelism < h.params.Parallelism ||
		uint32(len(parsed.key)) != h.params.KeyLength, nil
}

func (p *phc) matches(password string) bool {
	// Oversized input still pays for a derivation so the reply time does not
	// depend on which check failed.
	input := []byte(password)
	if len(input) > MaxPasswordBytes {
		input = input[:MaxPasswordBytes]
		_ = argon2.IDKey(input, p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
		return false
	}
	computed := argon2.IDKey(input, p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1
}
