package validation

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-formguard/pkg/sanitize"
)

// Rule selects the format check applied to a field.
type Rule uint8

const (
	RuleText Rule = iota
	RuleEmail
	RulePassword
	RulePhone
	RuleURL
	RuleAlphanumeric
	RuleNumeric
	RuleHTML
	RuleJSON
	RuleUUID
	RuleDate
	RuleCustom
)

var ruleNames = [...]string{
	RuleText:         "text",
	RuleEmail:        "email",
	RulePassword:     "password",
	RulePhone:        "phone",
	RuleURL:          "url",
	RuleAlphanumeric: "alphanumeric",
	RuleNumeric:      "numeric",
	RuleHTML:         "html",
	RuleJSON:         "json",
	RuleUUID:         "uuid",
	RuleDate:         "date",
	RuleCustom:       "custom",
}

// Rules lists every rule variant.
func Rules() []Rule {
	out := make([]Rule, len(ruleNames))
	for idx := range ruleNames {
		out[idx] = Rule(idx)
	}
	return out
}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return "unknown"
}

// Valid reports whether r is a known variant.
func (r Rule) Valid() bool {
	return int(r) < len(ruleNames)
}

// MarshalText encodes the rule by name.
func (r Rule) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, errors.Newf("validation: invalid rule %d", uint8(r))
	}
	return []byte(ruleNames[r]), nil
}

// UnmarshalText decodes a rule name.
func (r *Rule) UnmarshalText(text []byte) error {
	parsed, err := ParseRule(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRule resolves a case-insensitive rule name. An empty name is RuleText.
func ParseRule(raw string) (Rule, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return RuleText, nil
	}
	for idx, candidate := range ruleNames {
		if candidate == name {
			return Rule(idx), nil
		}
	}
	return RuleText, errors.WithHint(
		errors.Wrapf(ErrUnknownRule, "validation: rule %q", raw),
		"use one of "+strings.Join(ruleNames[:], ", "),
	)
}

// CustomFunc is a business rule evaluated against the coerced string value.
type CustomFunc func(value string) bool

// Config describes one rule for one field. Treat it as immutable once built.
type Config struct {
	Rule      Rule
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	// Custom runs only when every other check passed.
	Custom CustomFunc
	// CustomName resolves Custom from the validator registry when Custom is
	// nil. When both are set the name only identifies the func for caching.
	CustomName string
	Sanitize   bool
	AllowHTML  *sanitize.AllowList
	// Message replaces every default failure message for this config.
	Message string
}

func (c Config) validate() error {
	if !c.Rule.Valid() {
		return errors.Wrapf(ErrUnknownRule, "validation: rule %d", uint8(c.Rule))
	}
	if c.MinLength < 0 || c.MaxLength < 0 {
		return errors.New("validation: length bounds must not be negative")
	}
	if c.MaxLength > 0 && c.MinLength > c.MaxLength {
		return errors.Newf("validation: min length %d exceeds max length %d", c.MinLength, c.MaxLength)
	}
	if c.Rule == RuleCustom && c.Custom == nil && strings.TrimSpace(c.CustomName) == "" {
		return errors.New("validation: custom rule requires a func or a registered name")
	}
	return nil
}

// cacheable reports whether results for c can be memoised. Anonymous custom
// funcs cannot be told apart, so they are never cached.
func (c Config) cacheable() bool {
	return c.Custom == nil || strings.TrimSpace(c.CustomName) != ""
}

func (c Config) fingerprint() string {
	var b strings.Builder
	b.WriteString(c.Rule.String())
	if c.Required {
		b.WriteString("|req")
	}
	b.WriteString("|min=")
	b.WriteString(itoa(c.MinLength))
	b.WriteString("|max=")
	b.WriteString(itoa(c.MaxLength))
	if c.Pattern != nil {
		b.WriteString("|re=")
		b.WriteString(c.Pattern.String())
	}
	if name := strings.TrimSpace(c.CustomName); name != "" {
		b.WriteString("|fn=")
		b.WriteString(name)
	}
	if c.Sanitize {
		b.WriteString("|san")
	}
	if c.AllowHTML != nil {
		b.WriteString("|allow=")
		b.WriteString(c.AllowHTML.Key())
	}
	if c.Message != "" {
		b.WriteString("|msg=")
		b.WriteString(c.Message)
	}
	return b.String()
}
