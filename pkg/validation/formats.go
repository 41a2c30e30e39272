package validation

import (
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// dateLayouts are accepted by the date rule and by date cross-field rules.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// checkFormat runs the rule-specific check. On failure it returns the default
// message format, which takes the field label as its only argument.
func (v *Validator) checkFormat(rule Rule, value string) (bool, string, error) {
	switch rule {
	case RuleText, RuleHTML, RuleCustom:
		return true, "", nil
	case RuleEmail:
		return v.tag(value, "email"), "%s must be a valid email address", nil
	case RulePassword:
		return strongPassword(value), "%s must mix upper and lower case letters with digits and symbols", nil
	case RulePhone:
		return v.tag(normalizePhone(value), "e164"), "%s must be a valid phone number", nil
	case RuleURL:
		return v.tag(value, "http_url"), "%s must be a valid URL", nil
	case RuleAlphanumeric:
		return v.tag(value, "alphanum"), "%s must contain only letters and numbers", nil
	case RuleNumeric:
		return v.tag(value, "numeric"), "%s must be a number", nil
	case RuleJSON:
		return v.tag(value, "json"), "%s must be valid JSON", nil
	case RuleUUID:
		_, err := uuid.Parse(value)
		return err == nil, "%s must be a valid UUID", nil
	case RuleDate:
		_, ok := parseDate(value)
		return ok, "%s must be a valid date", nil
	default:
		return false, "", errors.Wrapf(ErrUnknownRule, "validation: rule %d", uint8(rule))
	}
}

func (v *Validator) tag(value, tag string) bool {
	return v.formats.Var(value, tag) == nil
}

func normalizePhone(value string) string {
	digits := phoneNoise.Replace(strings.TrimSpace(value))
	if strings.HasPrefix(digits, "00") {
		digits = "+" + digits[2:]
	}
	if !strings.HasPrefix(digits, "+") {
		digits = "+" + digits
	}
	return digits
}

func strongPassword(value string) bool {
	var lower, upper, digit, symbol bool
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

func parseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
