package validation

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors returned by schema construction and lookups.
var (
	ErrUnknownRule   = errors.New("unknown rule")
	ErrUnknownSchema = errors.New("unknown schema")
	ErrUnknownCustom = errors.New("unknown custom validator")
	ErrInvalidSchema = errors.New("invalid schema")
)

// GenericFailureMessage is reported when a field validation fails internally.
const GenericFailureMessage = "Validation error occurred"

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
