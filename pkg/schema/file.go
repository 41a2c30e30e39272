package schema

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formguard/pkg/sanitize"
	"github.com/goliatone/go-formguard/pkg/validation"
)

type documentFile struct {
	Schemas []schemaFile `json:"schemas" yaml:"schemas"`
}

type schemaFile struct {
	Name       string           `json:"name" yaml:"name"`
	Fields     []fieldFile      `json:"fields" yaml:"fields"`
	CrossField []crossFieldFile `json:"crossField" yaml:"crossField"`
}

// fieldFile accepts either one inline rule or a list under rules.
type fieldFile struct {
	Name     string `json:"name" yaml:"name"`
	ruleFile `yaml:",inline"`
	Rules    []ruleFile `json:"rules" yaml:"rules"`
}

type ruleFile struct {
	Rule      string              `json:"rule" yaml:"rule"`
	Required  bool                `json:"required" yaml:"required"`
	MinLength int                 `json:"minLength" yaml:"minLength"`
	MaxLength int                 `json:"maxLength" yaml:"maxLength"`
	Pattern   string              `json:"pattern" yaml:"pattern"`
	Custom    string              `json:"custom" yaml:"custom"`
	Sanitize  bool                `json:"sanitize" yaml:"sanitize"`
	AllowHTML *sanitize.AllowList `json:"allowHtml" yaml:"allowHtml"`
	Message   string              `json:"message" yaml:"message"`
}

type crossFieldFile struct {
	Kind    string   `json:"kind" yaml:"kind"`
	Fields  []string `json:"fields" yaml:"fields"`
	Message string   `json:"message" yaml:"message"`
}

func (r ruleFile) empty() bool {
	return r.Rule == "" && !r.Required && r.MinLength == 0 && r.MaxLength == 0 &&
		r.Pattern == "" && r.Custom == "" && !r.Sanitize && r.AllowHTML == nil && r.Message == ""
}

func parseDocument(doc Document) (documentFile, error) {
	var out documentFile
	raw := doc.raw
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return documentFile{}, errors.WithHint(
			errors.Wrapf(err, "schema: parse %s", doc.Location()),
			"schema files must be valid JSON or YAML with a top-level schemas list",
		)
	}
	return out, nil
}

func (b *builder) buildSchema(raw schemaFile, location string) (validation.Schema, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return validation.Schema{}, errors.Newf("schema: file %s defines a schema without a name", location)
	}

	fields := make([]validation.FieldSpec, 0, len(raw.Fields))
	for _, field := range raw.Fields {
		rules := field.Rules
		if !field.ruleFile.empty() {
			rules = append([]ruleFile{field.ruleFile}, rules...)
		}
		configs := make([]validation.Config, 0, len(rules))
		for idx, rule := range rules {
			cfg, err := b.buildConfig(rule)
			if err != nil {
				return validation.Schema{}, errors.Wrapf(err, "schema: %s field %q rule %d (file %s)", name, field.Name, idx, location)
			}
			configs = append(configs, cfg)
		}
		fields = append(fields, validation.Field(strings.TrimSpace(field.Name), configs...))
	}

	crossField := make([]validation.CrossFieldRule, 0, len(raw.CrossField))
	for _, entry := range raw.CrossField {
		rule, err := buildCrossField(entry)
		if err != nil {
			return validation.Schema{}, errors.Wrapf(err, "schema: %s (file %s)", name, location)
		}
		crossField = append(crossField, rule)
	}

	schema, err := validation.NewSchema(name, fields, crossField...)
	if err != nil {
		return validation.Schema{}, errors.Wrapf(err, "schema: file %s", location)
	}
	return schema, nil
}

func (b *builder) buildConfig(raw ruleFile) (validation.Config, error) {
	rule, err := validation.ParseRule(raw.Rule)
	if err != nil {
		return validation.Config{}, err
	}
	cfg := validation.Config{
		Rule:       rule,
		Required:   raw.Required,
		MinLength:  raw.MinLength,
		MaxLength:  raw.MaxLength,
		CustomName: strings.TrimSpace(raw.Custom),
		Sanitize:   raw.Sanitize,
		AllowHTML:  raw.AllowHTML,
		Message:    strings.TrimSpace(raw.Message),
	}
	if pattern := strings.TrimSpace(raw.Pattern); pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return validation.Config{}, errors.WithHint(
				errors.Wrapf(err, "schema: invalid pattern %q", pattern),
				"patterns use RE2 syntax; lookarounds and backreferences are not supported",
			)
		}
		cfg.Pattern = compiled
	}
	if cfg.CustomName != "" && b.registry != nil && !b.registry.Has(cfg.CustomName) {
		return validation.Config{}, errors.WithHint(
			errors.Wrapf(validation.ErrUnknownCustom, "schema: %q", cfg.CustomName),
			"registered validators: "+strings.Join(b.registry.Names(), ", "),
		)
	}
	return cfg, nil
}

func buildCrossField(raw crossFieldFile) (validation.CrossFieldRule, error) {
	if len(raw.Fields) != 2 {
		return validation.CrossFieldRule{}, errors.Newf("schema: cross-field rule %q needs exactly two fields", raw.Kind)
	}
	a, b := strings.TrimSpace(raw.Fields[0]), strings.TrimSpace(raw.Fields[1])
	switch strings.TrimSpace(raw.Kind) {
	case validation.CrossFieldMatch:
		return validation.FieldsMatch(a, b, raw.Message), nil
	case validation.CrossFieldDateOrder:
		return validation.DateOrder(a, b, raw.Message), nil
	default:
		return validation.CrossFieldRule{}, errors.WithHint(
			errors.Newf("schema: unknown cross-field kind %q", raw.Kind),
			"use match or dateOrder",
		)
	}
}
