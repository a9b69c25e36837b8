package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// IdentifierFormat selects the accepted identifier shape.
type IdentifierFormat string

const (
	FormatEither   IdentifierFormat = "either"
	FormatEmail    IdentifierFormat = "email"
	FormatUsername IdentifierFormat = "username"
)

// Field names as they appear in raw input and field errors.
const (
	FieldIdentifier = "identifier"
	FieldPassword   = "password"
)

// Error codes reported in [FieldError.Code].
const (
	CodeRequired      = "required"
	CodeInvalidType   = "invalid_type"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodeInvalidFormat = "invalid_format"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)

// ErrInvalidRules indicates the configured rule set cannot be compiled.
var ErrInvalidRules = errors.New("validation: invalid rule set")

// Config bounds the accepted login input.
type Config struct {
	IdentifierFormat    IdentifierFormat
	MaxIdentifierLength int
	MinPasswordLength   int
	MaxPasswordLength   int
}

// DefaultConfig returns the default login rule bounds.
func DefaultConfig() Config {
	return Config{
		IdentifierFormat:    FormatEither,
		MaxIdentifierLength: 254,
		MinPasswordLength:   1,
		MaxPasswordLength:   128,
	}
}

// LoginInput is validated login data.
type LoginInput struct {
	Identifier string
	// Password is opaque and must never be logged.
	Password string
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of validating one input.
type Result[T any] struct {
	Valid  bool
	Data   T
	Errors []FieldError
}

type fieldRule struct {
	field string
	tag   string
}

// Service validates login input against a compiled rule set.
type Service struct {
	validate *validator.Validate
	config   Config
	rules    []fieldRule
}

// New compiles the rule set for cfg. Zero values in cfg fall back to
// [DefaultConfig].
func New(cfg Config) (*Service, error) {
	def := DefaultConfig()
	if cfg.IdentifierFormat == "" {
		cfg.IdentifierFormat = def.IdentifierFormat
	}
	if cfg.MaxIdentifierLength == 0 {
		cfg.MaxIdentifierLength = def.MaxIdentifierLength
	}
	if cfg.MinPasswordLength == 0 {
		cfg.MinPasswordLength = def.MinPasswordLength
	}
	if cfg.MaxPasswordLength == 0 {
		cfg.MaxPasswordLength = def.MaxPasswordLength
	}
	if cfg.MaxIdentifierLength < 0 || cfg.MinPasswordLength < 0 || cfg.MaxPasswordLength < cfg.MinPasswordLength {
		return nil, fmt.Errorf("%w: inconsistent length bounds", ErrInvalidRules)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	var format string
	switch cfg.IdentifierFormat {
	case FormatEmail:
		format = "email"
	case FormatUsername:
		format = "username"
	case FormatEither:
		format = "email|username"
	default:
		return nil, fmt.Errorf("%w: unknown identifier format %q", ErrInvalidRules, cfg.IdentifierFormat)
	}

	s := &Service{
		validate: v,
		config:   cfg,
		rules: []fieldRule{
			{field: FieldIdentifier, tag: fmt.Sprintf("required,max=%d,%s", cfg.MaxIdentifierLength, format)},
			{field: FieldPassword, tag: fmt.Sprintf("required,min=%d,max=%d", cfg.MinPasswordLength, cfg.MaxPasswordLength)},
		},
	}
	if err := s.dryRun(); err != nil {
		return nil, err
	}
	return s, nil
}

// dryRun runs every rule once so undefined tags fail here instead of panicking
// inside a request.
func (s *Service) dryRun() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidRules, r)
		}
	}()
	for _, rule := range s.rules {
		_ = s.validate.Var("dry-run", rule.tag)
	}
	return nil
}

// Config returns the effective rule bounds.
func (s *Service) Config() Config {
	return s.config
}

// ValidateLogin validates raw login input, typically a decoded JSON object.
func (s *Service) ValidateLogin(raw map[string]any) Result[LoginInput] {
	values := make(map[string]string, len(s.rules))
	var errs []FieldError

	for _, rule := range s.rules {
		value, present := raw[rule.field]
		str, isString := value.(string)
		switch {
		case !present || value == nil:
			str = ""
		case !isString:
			errs = append(errs, FieldError{
				Field:   rule.field,
				Code:    CodeInvalidType,
				Message: rule.field + " must be a string",
			})
			continue
		}

		if rule.field == FieldIdentifier {
			str = strings.TrimSpace(str)
		}
		values[rule.field] = str

		if err := s.validate.Var(str, rule.tag); err != nil {
			errs = append(errs, s.describe(rule.field, err))
		}
	}

	if len(errs) > 0 {
		return Result[LoginInput]{Valid: false, Errors: errs}
	}
	return Result[LoginInput]{
		Valid: true,
		Data: LoginInput{
			Identifier: values[FieldIdentifier],
			Password:   values[FieldPassword],
		},
	}
}

// describe converts the first failing tag of one field into a FieldError.
// Var stops at the first failing tag, so each field yields one error.
func (s *Service) describe(field string, err error) FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return FieldError{Field: field, Code: CodeInvalidFormat, Message: field + " is invalid"}
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return FieldError{Field: field, Code: CodeRequired, Message: field + " is required"}
	case "min":
		return FieldError{Field: field, Code: CodeTooShort, Message: field + " must be at least " + fe.Param() + " characters"}
	case "max":
		return FieldError{Field: field, Code: CodeTooLong, Message: field + " must be at most " + fe.Param() + " characters"}
	default:
		return FieldError{Field: field, Code: CodeInvalidFormat, Message: field + " must be " + s.formatHint()}
	}
}

func (s *Service) formatHint() string {
	switch s.config.IdentifierFormat {
	case FormatEmail:
		return "an email address"
	case FormatUsername:
		return "a username of 3-64 letters, digits, '.', '_' or '-'"
	default:
		return "an email address or username"
	}
}
