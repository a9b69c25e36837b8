package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/loginguard/jwt"
)

func newTestIssuer(t *testing.T) (*Issuer, *Store) {
	t.Helper()
	store, _ := newSessionStoreTest(t)
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           15 * time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(strings.Repeat("k", 32)),
		Issuer:        "loginguard-test",
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	return NewIssuer(store, tokens), store
}

func TestIssueAndValidate(t *testing.T) {
	issuer, store := newTestIssuer(t)
	ctx := context.Background()

	tok, err := issuer.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.AccessToken == "" || tok.SessionID == "" || tok.UserID != "user-1" {
		t.Fatalf("unexpected token %+v", tok)
	}
	if time.Until(tok.ExpiresAt) > 15*time.Minute || time.Until(tok.ExpiresAt) < 14*time.Minute {
		t.Fatalf("unexpected expiry %v", tok.ExpiresAt)
	}

	sess, err := issuer.Validate(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sess.ID != tok.SessionID || sess.UserID != "user-1" {
		t.Fatalf("unexpected session %+v", sess)
	}

	count, err := store.ActiveSessionCount(ctx, "user-1")
	if err != nil || count != 1 {
		t.Fatalf("expected one indexed session, got %d err=%v", count, err)
	}
}

func TestIssueDistinctSessionIDs(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()
	a, err := issuer.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, err := issuer.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}
	if a.SessionID == b.SessionID || a.AccessToken == b.AccessToken {
		t.Fatal("expected distinct sessions")
	}
}

func TestRevokeInvalidatesToken(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()
	tok, err := issuer.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	sess, err := issuer.Revoke(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if sess.UserID != "user-1" || sess.ID != tok.SessionID {
		t.Fatalf("unexpected revoked session %+v", sess)
	}
	if _, err := issuer.Validate(ctx, tok.AccessToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestRevokeAll(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()
	var tokens []Token
	for i := 0; i < 3; i++ {
		tok, err := issuer.IssueSession(ctx, "user-1")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		tokens = append(tokens, tok)
	}

	n, err := issuer.RevokeAll(ctx, "user-1")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 revoked, got %d err=%v", n, err)
	}
	for _, tok := range tokens {
		if _, err := issuer.Validate(ctx, tok.AccessToken); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected revoked, got %v", err)
		}
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	if _, err := issuer.Validate(context.Background(), "not-a-token"); !errors.Is(err, jwt.ErrInvalidToken) {
		t.Fatalf("expected jwt.ErrInvalidToken, got %v", err)
	}
}

func TestIssueRequiresUserID(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	if _, err := issuer.IssueSession(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}
