package validation

import (
	"errors"
	"strings"
	"testing"
)

func newService(t *testing.T, cfg Config) *Service {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestValidLoginTrimsIdentifier(t *testing.T) {
	s := newService(t, DefaultConfig())

	res := s.ValidateLogin(map[string]any{
		"identifier": "  user@example.com ",
		"password":   " secret with spaces ",
	})
	if !res.Valid {
		t.Fatalf("expected valid input, got %+v", res.Errors)
	}
	if res.Data.Identifier != "user@example.com" {
		t.Fatalf("expected trimmed identifier, got %q", res.Data.Identifier)
	}
	if res.Data.Password != " secret with spaces " {
		t.Fatal("password must be passed through untouched")
	}
}

func TestAllFieldErrorsInOnePass(t *testing.T) {
	s := newService(t, DefaultConfig())

	res := s.ValidateLogin(map[string]any{})
	if res.Valid {
		t.Fatal("expected invalid result")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", res.Errors)
	}
	if res.Errors[0].Field != FieldIdentifier || res.Errors[0].Code != CodeRequired {
		t.Fatalf("unexpected first error: %+v", res.Errors[0])
	}
	if res.Errors[1].Field != FieldPassword || res.Errors[1].Code != CodeRequired {
		t.Fatalf("unexpected second error: %+v", res.Errors[1])
	}
}

func TestWrongTypesAreFieldErrors(t *testing.T) {
	s := newService(t, DefaultConfig())

	res := s.ValidateLogin(map[string]any{
		"identifier": 42.0,
		"password":   []any{"x"},
	})
	if res.Valid || len(res.Errors) != 2 {
		t.Fatalf("expected two type errors, got %+v", res)
	}
	for _, fe := range res.Errors {
		if fe.Code != CodeInvalidType {
			t.Fatalf("expected invalid_type, got %+v", fe)
		}
	}
}

func TestIdentifierFormats(t *testing.T) {
	cases := []struct {
		format IdentifierFormat
		value  string
		valid  bool
	}{
		{FormatEither, "user@example.com", true},
		{FormatEither, "john.doe_42", true},
		{FormatEither, "no spaces allowed", false},
		{FormatEmail, "john.doe_42", false},
		{FormatEmail, "a@b.com", true},
		{FormatUsername, "a@b.com", false},
		{FormatUsername, "ab", false},
		{FormatUsername, "alice", true},
	}

	for _, tc := range cases {
		s := newService(t, Config{IdentifierFormat: tc.format})
		res := s.ValidateLogin(map[string]any{"identifier": tc.value, "password": "pw"})
		if res.Valid != tc.valid {
			t.Fatalf("format=%s value=%q: expected valid=%v, got %+v", tc.format, tc.value, tc.valid, res.Errors)
		}
		if !tc.valid && res.Errors[0].Code != CodeInvalidFormat {
			t.Fatalf("format=%s value=%q: expected invalid_format, got %+v", tc.format, tc.value, res.Errors[0])
		}
	}
}

func TestLengthBounds(t *testing.T) {
	s := newService(t, Config{MaxIdentifierLength: 20, MinPasswordLength: 8, MaxPasswordLength: 16})

	res := s.ValidateLogin(map[string]any{
		"identifier": strings.Repeat("a", 15) + "@example.com",
		"password":   "short",
	})
	if res.Valid || len(res.Errors) != 2 {
		t.Fatalf("expected two length errors, got %+v", res)
	}
	if res.Errors[0].Code != CodeTooLong {
		t.Fatalf("expected too_long identifier, got %+v", res.Errors[0])
	}
	if res.Errors[1].Code != CodeTooShort {
		t.Fatalf("expected too_short password, got %+v", res.Errors[1])
	}

	res = s.ValidateLogin(map[string]any{"identifier": "alice", "password": strings.Repeat("p", 17)})
	if res.Valid || res.Errors[0].Field != FieldPassword || res.Errors[0].Code != CodeTooLong {
		t.Fatalf("expected too_long password, got %+v", res)
	}
}

func TestNilValueTreatedAsMissing(t *testing.T) {
	s := newService(t, DefaultConfig())

	res := s.ValidateLogin(map[string]any{"identifier": nil, "password": "pw"})
	if res.Valid || res.Errors[0].Code != CodeRequired {
		t.Fatalf("expected required error, got %+v", res)
	}
}

func TestNewRejectsBrokenRules(t *testing.T) {
	if _, err := New(Config{IdentifierFormat: "phone"}); !errors.Is(err, ErrInvalidRules) {
		t.Fatalf("expected ErrInvalidRules for unknown format, got %v", err)
	}
	if _, err := New(Config{MinPasswordLength: 10, MaxPasswordLength: 5}); !errors.Is(err, ErrInvalidRules) {
		t.Fatalf("expected ErrInvalidRules for inverted bounds, got %v", err)
	}
}
