package validation

import (
	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/threat"
)

// Result is the outcome of validating one value against one Config.
type Result struct {
	Valid     bool              `json:"valid"`
	Errors    []string          `json:"errors,omitempty"`
	Value     string            `json:"sanitizedValue"`
	RiskLevel risk.Level        `json:"riskLevel"`
	Threats   []threat.Category `json:"detectedThreats,omitempty"`
}

// Clone returns a deep copy so cached results are never shared.
func (r Result) Clone() Result {
	out := r
	if r.Errors != nil {
		out.Errors = append([]string(nil), r.Errors...)
	}
	if r.Threats != nil {
		out.Threats = append([]threat.Category(nil), r.Threats...)
	}
	return out
}

func failure(message string, level risk.Level) Result {
	return Result{
		Valid:     false,
		Errors:    []string{message},
		RiskLevel: level,
	}
}

// BulkResult aggregates a whole form validation. Valid is true only when no
// field and no cross-field rule reported an error.
type BulkResult struct {
	Schema       string              `json:"schema,omitempty"`
	Valid        bool                `json:"valid"`
	Errors       map[string][]string `json:"errors,omitempty"`
	GlobalErrors []string            `json:"globalErrors,omitempty"`
	Sanitized    map[string]any      `json:"sanitizedData"`
	Risk         risk.Assessment     `json:"riskAssessment"`
}

// FieldErrors returns the messages reported for field.
func (b BulkResult) FieldErrors(field string) []string {
	if b.Errors == nil {
		return nil
	}
	return b.Errors[field]
}

func (b *BulkResult) addError(field string, messages ...string) {
	if len(messages) == 0 {
		return
	}
	if field == "" {
		b.GlobalErrors = normalizeMessages(append(b.GlobalErrors, messages...))
		return
	}
	if b.Errors == nil {
		b.Errors = make(map[string][]string)
	}
	merged := normalizeMessages(append(b.Errors[field], messages...))
	if len(merged) > 0 {
		b.Errors[field] = merged
	}
}

// JSONResult is the outcome of ValidateJSONData.
type JSONResult struct {
	Valid     bool              `json:"valid"`
	Sanitized any               `json:"sanitized,omitempty"`
	Error     string            `json:"error,omitempty"`
	RiskLevel risk.Level        `json:"riskLevel"`
	Threats   []threat.Category `json:"detectedThreats,omitempty"`
}
