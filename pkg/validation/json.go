package validation

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/sanitize"
	"github.com/goliatone/go-formguard/pkg/threat"
)

// JSON payload limits.
const (
	MaxJSONBytes = 1 << 20
	MaxJSONDepth = 32
)

// Messages reported by ValidateJSONData.
const (
	InvalidJSONMessage     = "Invalid JSON format"
	JSONTooLargeMessage    = "JSON payload exceeds maximum size"
	JSONTooDeepMessage     = "JSON payload exceeds maximum nesting depth"
	JSONKeyConflictMessage = "JSON payload contains keys that collide after sanitization"
)

var (
	errTooDeep     = errors.New("validation: json nesting too deep")
	errKeyConflict = errors.New("validation: json keys collide after sanitization")
)

// ValidateJSONData parses data, rejects oversized or deeply nested payloads,
// and returns a copy whose keys and string values went through general
// sanitization. Threats are detected on the raw strings, walking object keys
// in sorted order. Two keys that sanitize to the same key fail the payload.
func (v *Validator) ValidateJSONData(data []byte) JSONResult {
	if len(data) > MaxJSONBytes {
		return JSONResult{Error: JSONTooLargeMessage, RiskLevel: risk.Low}
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return JSONResult{Error: InvalidJSONMessage, RiskLevel: risk.Low}
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return JSONResult{Error: InvalidJSONMessage, RiskLevel: risk.Low}
	}

	walker := jsonWalker{matcher: v.matcher}
	cleaned, err := walker.walk(payload, 0)
	switch {
	case errors.Is(err, errKeyConflict):
		return JSONResult{
			Error:     JSONKeyConflictMessage,
			RiskLevel: risk.ForThreats(walker.threats),
			Threats:   walker.threats,
		}
	case err != nil:
		return JSONResult{Error: JSONTooDeepMessage, RiskLevel: risk.Low}
	}
	level := risk.ForThreats(walker.threats)
	return JSONResult{
		Valid:     true,
		Sanitized: cleaned,
		RiskLevel: level,
		Threats:   walker.threats,
	}
}

type jsonWalker struct {
	matcher *threat.Matcher
	threats []threat.Category
}

func (w *jsonWalker) walk(value any, depth int) (any, error) {
	if depth > MaxJSONDepth {
		return nil, errTooDeep
	}
	switch typed := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		out := make(map[string]any, len(typed))
		for _, key := range keys {
			cleanKey := w.text(key)
			if _, taken := out[cleanKey]; taken {
				return nil, errors.Wrapf(errKeyConflict, "key %q", cleanKey)
			}
			cleaned, err := w.walk(typed[key], depth+1)
			if err != nil {
				return nil, err
			}
			out[cleanKey] = cleaned
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for idx, item := range typed {
			cleaned, err := w.walk(item, depth+1)
			if err != nil {
				return nil, err
			}
			out[idx] = cleaned
		}
		return out, nil
	case string:
		return w.text(typed), nil
	default:
		return typed, nil
	}
}

func (w *jsonWalker) text(value string) string {
	w.threats = unionThreats(w.threats, w.matcher.Detect(value))
	return sanitize.Text(value)
}
