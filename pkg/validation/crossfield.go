package validation

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Cross-field rule kinds understood by schema files.
const (
	CrossFieldMatch     = "match"
	CrossFieldDateOrder = "dateOrder"
)

// CrossFieldRule checks a relation between fields. It runs only when every
// field in Fields is present and non-blank. A failure is reported on Target,
// or as a global error when Target is empty.
type CrossFieldRule struct {
	Kind    string
	Fields  []string
	Target  string
	Message string
	// Check receives the values of Fields in order and reports whether the
	// relation holds.
	Check func(values []any) bool
}

// FieldsMatch requires confirm to equal field. The error goes to confirm.
func FieldsMatch(field, confirm, message string) CrossFieldRule {
	if strings.TrimSpace(message) == "" {
		message = displayName(confirm) + " must match " + strings.ToLower(displayName(field))
	}
	return CrossFieldRule{
		Kind:    CrossFieldMatch,
		Fields:  []string{field, confirm},
		Target:  confirm,
		Message: message,
		Check: func(values []any) bool {
			a, errA := coerce(values[0])
			b, errB := coerce(values[1])
			return errA == nil && errB == nil && a == b
		},
	}
}

// DateOrder requires start to be strictly before end. The error goes to end.
// Values that do not parse as dates are left to the field rules.
func DateOrder(start, end, message string) CrossFieldRule {
	if strings.TrimSpace(message) == "" {
		message = displayName(end) + " must be after " + strings.ToLower(displayName(start))
	}
	return CrossFieldRule{
		Kind:    CrossFieldDateOrder,
		Fields:  []string{start, end},
		Target:  end,
		Message: message,
		Check: func(values []any) bool {
			startRaw, errA := coerce(values[0])
			endRaw, errB := coerce(values[1])
			if errA != nil || errB != nil {
				return true
			}
			startAt, okA := parseDate(startRaw)
			endAt, okB := parseDate(endRaw)
			if !okA || !okB {
				return true
			}
			return startAt.Before(endAt)
		},
	}
}

func (r CrossFieldRule) validate(known map[string]struct{}) error {
	if r.Check == nil {
		return errors.Newf("validation: cross-field rule %q has no check", r.Kind)
	}
	if len(r.Fields) == 0 {
		return errors.Newf("validation: cross-field rule %q names no fields", r.Kind)
	}
	for _, field := range r.Fields {
		if _, ok := known[field]; !ok {
			return errors.Newf("validation: cross-field rule %q references unknown field %q", r.Kind, field)
		}
	}
	if r.Target != "" {
		if _, ok := known[r.Target]; !ok {
			return errors.Newf("validation: cross-field rule %q targets unknown field %q", r.Kind, r.Target)
		}
	}
	return nil
}

// apply returns false when the rule applies and fails.
func (r CrossFieldRule) apply(data map[string]any) (passed bool) {
	values := make([]any, len(r.Fields))
	for idx, field := range r.Fields {
		value, ok := data[field]
		if !ok {
			return true
		}
		str, err := coerce(value)
		if err == nil && isBlank(value, str) {
			return true
		}
		values[idx] = value
	}
	defer func() {
		if recover() != nil {
			passed = false
		}
	}()
	return r.Check(values)
}
