package password

import (
	"errors"
	"strings"
	"testing"
)

func fastParams() Params {
	return Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T, p Params) *Hasher {
	t.Helper()
	h, err := New(p)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher(t, fastParams())

	hash, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}

	ok, err = h.Verify("P@ssw0rd-ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestVerifyAcceptsPaddedEncoding(t *testing.T) {
	h := newHasher(t, fastParams())

	hash, err := h.Hash("padded-encoding")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	parts := strings.Split(hash, "$")
	for len(parts[4])%4 != 0 {
		parts[4] += "="
	}
	padded := strings.Join(parts, "$")

	ok, err := h.Verify("padded-encoding", padded)
	if err != nil || !ok {
		t.Fatalf("expected padded salt to verify, ok=%v err=%v", ok, err)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newHasher(t, fastParams())
	hash, err := weak.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong := fastParams()
	strong.Time = 2
	needs, err := newHasher(t, strong).NeedsRehash(hash)
	if err != nil {
		t.Fatalf("NeedsRehash error: %v", err)
	}
	if !needs {
		t.Fatal("expected weaker hash to need a rehash")
	}

	needs, err = weak.NeedsRehash(hash)
	if err != nil {
		t.Fatalf("NeedsRehash error: %v", err)
	}
	if needs {
		t.Fatal("expected current parameters not to need a rehash")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newHasher(t, fastParams())

	cases := []string{
		"not-a-phc-hash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5",
	}
	for _, encoded := range cases {
		if _, err := h.Verify("password", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%q: expected ErrMalformedHash, got %v", encoded, err)
		}
	}
}

func TestHashRejectsLengthOutOfRange(t *testing.T) {
	h := newHasher(t, fastParams())

	if _, err := h.Hash(""); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected ErrPasswordLength for empty password, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordLength) {
		t.Fatalf("expected ErrPasswordLength for long password, got %v", err)
	}
}

func TestVerifyDecoyNeverMatches(t *testing.T) {
	h := newHasher(t, fastParams())

	if h.VerifyDecoy("anything") {
		t.Fatal("decoy verification must never succeed")
	}
	if h.decoy == nil || h.decoy.memory != fastParams().Memory {
		t.Fatal("decoy must use the hasher's parameters")
	}
}

func TestNewRejectsWeakParams(t *testing.T) {
	p := fastParams()
	p.Memory = 1024
	if _, err := New(p); err == nil {
		t.Fatal("expected low memory to be rejected")
	}
}
