// Package prompt collects form values interactively, validating every answer
// before accepting it.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-formguard/pkg/validation"
)

var (
	// ErrAborted signals the user interrupted the session.
	ErrAborted = errors.New("prompt: aborted")
	// ErrTooManyAttempts is returned once a field keeps failing validation.
	ErrTooManyAttempts = errors.New("prompt: too many invalid answers")
)

// DefaultMaxAttempts bounds how often a field is asked before giving up.
const DefaultMaxAttempts = 3

// Option configures a Session.
type Option func(*Session)

// WithDriver overrides the survey driver.
func WithDriver(driver Driver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithValidator sets the validator used to check answers.
func WithValidator(v *validation.Validator) Option {
	return func(s *Session) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithMaxAttempts sets how many times a field is asked.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// Session walks a schema field by field.
type Session struct {
	driver      Driver
	validator   *validation.Validator
	maxAttempts int
}

// NewSession constructs a Session using the survey driver and a fresh
// validator unless overridden.
func NewSession(options ...Option) *Session {
	s := &Session{maxAttempts: DefaultMaxAttempts}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	return s
}

// Fill prompts for every field of schema and returns the form result. Fields
// named by a failing cross-field rule are asked again, up to the attempt
// limit.
func (s *Session) Fill(ctx context.Context, schema validation.Schema) (validation.BulkResult, error) {
	if err := schema.Validate(); err != nil {
		return validation.BulkResult{}, err
	}
	values := make(map[string]any, len(schema.Fields))
	for _, field := range schema.Fields {
		if err := s.askField(ctx, field, values); err != nil {
			return validation.BulkResult{}, err
		}
	}

	for round := 1; ; round++ {
		result := s.validator.ValidateForm(values, schema)
		if result.Valid {
			return result, nil
		}
		if round >= s.maxAttempts {
			return result, errors.Wrapf(ErrTooManyAttempts, "prompt: schema %q", schema.Name)
		}
		for _, message := range result.GlobalErrors {
			_ = s.driver.Info(ctx, message)
		}
		retried := false
		for _, field := range schema.Fields {
			messages := result.FieldErrors(field.Name)
			if len(messages) == 0 {
				continue
			}
			for _, message := range messages {
				_ = s.driver.Info(ctx, message)
			}
			if err := s.askField(ctx, field, values); err != nil {
				return result, err
			}
			retried = true
		}
		if !retried {
			return result, nil
		}
	}
}

func (s *Session) askField(ctx context.Context, field validation.FieldSpec, values map[string]any) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		answer, err := s.ask(ctx, field)
		if err != nil {
			return err
		}
		messages := s.check(answer, field)
		if len(messages) == 0 {
			if strings.TrimSpace(answer) == "" {
				delete(values, field.Name)
			} else {
				values[field.Name] = answer
			}
			return nil
		}
		for _, message := range messages {
			_ = s.driver.Info(ctx, message)
		}
	}
	return errors.Wrapf(ErrTooManyAttempts, "prompt: field %q", field.Name)
}

func (s *Session) check(answer string, field validation.FieldSpec) []string {
	var messages []string
	for _, cfg := range field.Configs {
		result := s.validator.ValidateField(answer, cfg, field.Name)
		messages = append(messages, result.Errors...)
	}
	return messages
}

func (s *Session) ask(ctx context.Context, field validation.FieldSpec) (string, error) {
	cfg := InputConfig{Message: Label(field.Name), Help: helpFor(field)}
	switch kindOf(field) {
	case kindPassword:
		return s.driver.Password(ctx, cfg)
	case kindTextArea:
		return s.driver.TextArea(ctx, cfg)
	case kindPosition:
		return s.driver.Select(ctx, SelectConfig{
			Message:  cfg.Message,
			Options:  validation.PlayerPositions,
			Help:     cfg.Help,
			PageSize: 10,
		})
	default:
		return s.driver.Input(ctx, cfg)
	}
}

type promptKind int

const (
	kindInput promptKind = iota
	kindPassword
	kindTextArea
	kindPosition
)

func kindOf(field validation.FieldSpec) promptKind {
	if strings.Contains(strings.ToLower(field.Name), "password") {
		return kindPassword
	}
	for _, cfg := range field.Configs {
		switch {
		case cfg.Rule == validation.RulePassword:
			return kindPassword
		case cfg.Rule == validation.RuleHTML:
			return kindTextArea
		case cfg.CustomName == validation.CustomPlayerPosition:
			return kindPosition
		}
	}
	return kindInput
}

func helpFor(field validation.FieldSpec) string {
	var parts []string
	for _, cfg := range field.Configs {
		if cfg.Required {
			parts = append(parts, "required")
		}
		if cfg.MinLength > 0 {
			parts = append(parts, fmt.Sprintf("min %d characters", cfg.MinLength))
		}
		if cfg.MaxLength > 0 {
			parts = append(parts, fmt.Sprintf("max %d characters", cfg.MaxLength))
		}
		if cfg.Rule != validation.RuleText && cfg.Rule != validation.RuleCustom {
			parts = append(parts, cfg.Rule.String())
		}
	}
	return strings.Join(parts, ", ")
}

// Label turns a camelCase field name into a prompt label such as
// "Date of birth".
func Label(name string) string {
	var b strings.Builder
	for idx, r := range name {
		switch {
		case idx == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		case r == '_' || r == '-':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
