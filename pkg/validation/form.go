package validation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/threat"
)

// ValidateForm validates data against schema. Fields run in schema order;
// every config of a field contributes errors, threats and its risk level,
// and the overall risk is never below the riskiest field. Keys in data that
// the schema does not declare are dropped from the sanitized output.
func (v *Validator) ValidateForm(data map[string]any, schema Schema) BulkResult {
	out := BulkResult{
		Schema:    schema.Name,
		Sanitized: make(map[string]any, len(schema.Fields)),
	}
	threatsByField := make(map[string][]threat.Category)
	fieldLevel := risk.Low

	for _, entry := range schema.Fields {
		value, present := data[entry.Name]
		sanitized := value
		var fieldThreats []threat.Category

		for _, cfg := range entry.Configs {
			result, ok := v.validateField(value, cfg, entry.Name)
			out.addError(entry.Name, result.Errors...)
			fieldThreats = unionThreats(fieldThreats, result.Threats)
			fieldLevel = risk.Max(fieldLevel, result.RiskLevel)
			if ok && cfg.Sanitize && value != nil {
				sanitized = result.Value
			}
		}

		if present {
			out.Sanitized[entry.Name] = sanitized
		}
		if len(fieldThreats) > 0 {
			threatsByField[entry.Name] = fieldThreats
		}
	}

	for _, rule := range schema.CrossField {
		if rule.apply(data) {
			continue
		}
		out.addError(rule.Target, rule.Message)
	}

	out.Risk = risk.Assess(threatsByField, out.Sanitized)
	out.Risk.Overall = risk.Max(out.Risk.Overall, fieldLevel)
	out.Valid = len(out.Errors) == 0 && len(out.GlobalErrors) == 0

	if out.Risk.CoordinatedAttack {
		v.logger.Warn("coordinated attack pattern detected",
			zap.String("schema", schema.Name),
			zap.Strings("patterns", out.Risk.Patterns),
			zap.Stringer("risk", out.Risk.Overall),
		)
	}
	v.recorder.ObserveForm(out)
	return out
}

// ValidateWithSchema resolves name from the catalogue and validates data
// against it. An unknown name yields an invalid result with a global error.
func (v *Validator) ValidateWithSchema(data map[string]any, name string) BulkResult {
	schema, err := v.catalog.Lookup(name)
	if err != nil {
		out := BulkResult{
			Schema:       name,
			Valid:        false,
			GlobalErrors: []string{fmt.Sprintf("Unknown validation schema: %s", name)},
			Sanitized:    map[string]any{},
			Risk:         risk.Assessment{Overall: risk.Low},
		}
		v.recorder.ObserveForm(out)
		return out
	}
	return v.ValidateForm(data, schema)
}

// ValidateWithPredefinedSchema is ValidateWithSchema for the built-in schema
// names.
func (v *Validator) ValidateWithPredefinedSchema(data map[string]any, name string) BulkResult {
	return v.ValidateWithSchema(data, name)
}

func unionThreats(existing, extra []threat.Category) []threat.Category {
	for _, category := range extra {
		found := false
		for _, current := range existing {
			if current == category {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, category)
		}
	}
	return existing
}
