package validation

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-formguard/pkg/sanitize"
)

// Predefined schema names.
const (
	SchemaLogin        = "login"
	SchemaRegistration = "registration"
	SchemaPlayerData   = "playerData"
	SchemaFormation    = "formationData"
	SchemaMatchData    = "matchData"
)

// FieldSpec attaches one or more configs to a field.
type FieldSpec struct {
	Name    string
	Configs []Config
}

// Field is shorthand for a FieldSpec.
func Field(name string, configs ...Config) FieldSpec {
	return FieldSpec{Name: name, Configs: configs}
}

// Schema is a named, ordered set of field rules plus cross-field rules.
type Schema struct {
	Name       string
	Fields     []FieldSpec
	CrossField []CrossFieldRule
}

// NewSchema validates and returns a schema. A schema declaring both fields of
// a standard pair (password/confirmPassword, startDate/endDate) gets the
// matching cross-field rule unless a rule already targets the second field.
func NewSchema(name string, fields []FieldSpec, crossField ...CrossFieldRule) (Schema, error) {
	schema := Schema{
		Name:       strings.TrimSpace(name),
		Fields:     fields,
		CrossField: withStandardRules(fields, crossField),
	}
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// MustSchema is NewSchema that panics on error.
func MustSchema(name string, fields []FieldSpec, crossField ...CrossFieldRule) Schema {
	schema, err := NewSchema(name, fields, crossField...)
	if err != nil {
		panic(err)
	}
	return schema
}

// Validate reports construction errors: missing names, duplicate fields,
// fields without configs, bad configs and dangling cross-field references.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.Wrap(ErrInvalidSchema, "validation: schema name is required")
	}
	if len(s.Fields) == 0 {
		return errors.Wrapf(ErrInvalidSchema, "validation: schema %q has no fields", s.Name)
	}
	known := make(map[string]struct{}, len(s.Fields))
	for _, field := range s.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return errors.Wrapf(ErrInvalidSchema, "validation: schema %q has a field without a name", s.Name)
		}
		if _, dup := known[name]; dup {
			return errors.Wrapf(ErrInvalidSchema, "validation: schema %q declares field %q twice", s.Name, name)
		}
		known[name] = struct{}{}
		if len(field.Configs) == 0 {
			return errors.Wrapf(ErrInvalidSchema, "validation: schema %q field %q has no rules", s.Name, name)
		}
		for _, cfg := range field.Configs {
			if err := cfg.validate(); err != nil {
				return errors.Wrapf(errors.Mark(err, ErrInvalidSchema), "schema %q field %q", s.Name, name)
			}
		}
	}
	for _, rule := range s.CrossField {
		if err := rule.validate(known); err != nil {
			return errors.Wrapf(errors.Mark(err, ErrInvalidSchema), "schema %q", s.Name)
		}
	}
	return nil
}

// standardPairs are the cross-field rules implied by field names alone.
var standardPairs = []struct {
	first, second string
	rule          func(first, second, message string) CrossFieldRule
}{
	{"password", "confirmPassword", FieldsMatch},
	{"startDate", "endDate", DateOrder},
}

func withStandardRules(fields []FieldSpec, crossField []CrossFieldRule) []CrossFieldRule {
	declared := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		declared[strings.TrimSpace(field.Name)] = struct{}{}
	}
	targeted := make(map[string]struct{}, len(crossField))
	for _, rule := range crossField {
		targeted[rule.Target] = struct{}{}
	}

	out := crossField
	for _, pair := range standardPairs {
		_, hasFirst := declared[pair.first]
		_, hasSecond := declared[pair.second]
		if !hasFirst || !hasSecond {
			continue
		}
		if _, ok := targeted[pair.second]; ok {
			continue
		}
		out = append(out[:len(out):len(out)], pair.rule(pair.first, pair.second, ""))
	}
	return out
}

// FieldNames returns the field names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for idx, field := range s.Fields {
		names[idx] = field.Name
	}
	return names
}

// Catalog stores schemas by name.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewCatalog creates a catalogue holding schemas.
func NewCatalog(schemas ...Schema) *Catalog {
	c := &Catalog{schemas: make(map[string]Schema, len(schemas))}
	for _, schema := range schemas {
		c.Put(schema)
	}
	return c
}

// Put stores schema, replacing any schema with the same name.
func (c *Catalog) Put(schema Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[schema.Name] = schema
}

// Lookup returns the schema registered under name.
func (c *Catalog) Lookup(name string) (Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[strings.TrimSpace(name)]
	if !ok {
		return Schema{}, errors.Wrapf(ErrUnknownSchema, "validation: %q", name)
	}
	return schema, nil
}

// Names returns the registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	positionPattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z ]{1,19}$`)
	formationShape    = regexp.MustCompile(`^\d(-\d){2,4}$`)
	personNamePattern = regexp.MustCompile(`^[\p{L}\p{M}][\p{L}\p{M}' .-]*$`)
)

// PredefinedSchemas returns the built-in form schemas.
func PredefinedSchemas() []Schema {
	return []Schema{
		LoginSchema(),
		RegistrationSchema(),
		PlayerDataSchema(),
		FormationDataSchema(),
		MatchDataSchema(),
	}
}

// LoginSchema validates sign-in forms.
func LoginSchema() Schema {
	return MustSchema(SchemaLogin, []FieldSpec{
		Field("email", Config{Rule: RuleEmail, Required: true, MaxLength: 254, Sanitize: true}),
		Field("password", Config{Rule: RuleText, Required: true, MinLength: 8, MaxLength: 128}),
	})
}

// RegistrationSchema validates account sign-up forms.
func RegistrationSchema() Schema {
	return MustSchema(SchemaRegistration, []FieldSpec{
		Field("email", Config{Rule: RuleEmail, Required: true, MaxLength: 254, Sanitize: true}),
		Field("password", Config{Rule: RulePassword, Required: true, MinLength: 8, MaxLength: 128}),
		Field("confirmPassword", Config{Rule: RuleText, Required: true}),
		Field("name", Config{
			Rule: RuleText, Required: true, MinLength: 2, MaxLength: 100,
			Pattern: personNamePattern, Sanitize: true,
		}),
	},
		FieldsMatch("password", "confirmPassword", "Passwords do not match"),
	)
}

// PlayerDataSchema validates player profile forms.
func PlayerDataSchema() Schema {
	return MustSchema(SchemaPlayerData, []FieldSpec{
		Field("name", Config{
			Rule: RuleText, Required: true, MinLength: 2, MaxLength: 100,
			Pattern: personNamePattern, Sanitize: true,
		}),
		Field("position",
			Config{Rule: RuleText, Required: true, Pattern: positionPattern, Sanitize: true},
			Config{Rule: RuleCustom, CustomName: CustomPlayerPosition, Message: "Position is not a recognised playing position"},
		),
		Field("jerseyNumber", Config{
			Rule: RuleNumeric, Required: true, CustomName: CustomJerseyNumber,
			Message: "Jersey number must be between 1 and 99",
		}),
		Field("email", Config{Rule: RuleEmail, MaxLength: 254, Sanitize: true}),
		Field("nationality", Config{Rule: RuleText, MaxLength: 56, Pattern: personNamePattern, Sanitize: true}),
		Field("dateOfBirth", Config{Rule: RuleDate}),
	})
}

// FormationDataSchema validates tactical formation forms.
func FormationDataSchema() Schema {
	return MustSchema(SchemaFormation, []FieldSpec{
		Field("name", Config{Rule: RuleText, Required: true, MinLength: 1, MaxLength: 100, Sanitize: true}),
		Field("formation",
			Config{Rule: RuleText, Required: true, Pattern: formationShape, Message: "Formation must look like 4-4-2"},
			Config{Rule: RuleCustom, CustomName: CustomFormation, Message: "Formation must place ten outfield players"},
		),
		Field("description", Config{
			Rule: RuleHTML, MaxLength: 2000, Sanitize: true,
			AllowHTML: &sanitize.AllowList{
				Tags:       []string{"b", "i", "em", "strong", "p", "br", "ul", "ol", "li"},
				Attributes: nil,
			},
		}),
	})
}

// MatchDataSchema validates fixture forms.
func MatchDataSchema() Schema {
	return MustSchema(SchemaMatchData, []FieldSpec{
		Field("homeTeam", Config{Rule: RuleText, Required: true, MinLength: 2, MaxLength: 100, Sanitize: true}),
		Field("awayTeam", Config{Rule: RuleText, Required: true, MinLength: 2, MaxLength: 100, Sanitize: true}),
		Field("venue", Config{Rule: RuleText, MaxLength: 200, Sanitize: true}),
		Field("startDate", Config{Rule: RuleDate, Required: true}),
		Field("endDate", Config{Rule: RuleDate}),
		Field("notes", Config{Rule: RuleHTML, MaxLength: 5000, Sanitize: true}),
	},
		DateOrder("startDate", "endDate", "End date must be after start date"),
	)
}
