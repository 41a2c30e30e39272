package schema_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguard/pkg/schema"
	"github.com/goliatone/go-formguard/pkg/validation"
)

func loadSquad(t *testing.T) map[string]validation.Schema {
	t.Helper()
	schemas, err := schema.NewLoader().LoadFile(context.Background(), "testdata/squad.openapi.yaml")
	if err != nil {
		t.Fatalf("load openapi: %v", err)
	}
	out := make(map[string]validation.Schema, len(schemas))
	for _, s := range schemas {
		out[s.Name] = s
	}
	return out
}

func TestFromOpenAPI_DerivesSchemas(t *testing.T) {
	schemas := loadSquad(t)
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	if len(names) != 2 {
		t.Fatalf("expected two schemas, got %v", names)
	}

	player, ok := schemas["createPlayer"]
	if !ok {
		t.Fatalf("createPlayer schema missing")
	}
	wantFields := []string{"bio", "email", "jerseyNumber", "name", "position"}
	if diff := cmp.Diff(wantFields, player.FieldNames()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	rules := map[string]validation.Rule{}
	required := map[string]bool{}
	for _, field := range player.Fields {
		rules[field.Name] = field.Configs[0].Rule
		required[field.Name] = field.Configs[0].Required
	}
	wantRules := map[string]validation.Rule{
		"bio":          validation.RuleHTML,
		"email":        validation.RuleEmail,
		"jerseyNumber": validation.RuleNumeric,
		"name":         validation.RuleText,
		"position":     validation.RuleText,
	}
	if diff := cmp.Diff(wantRules, rules); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}
	if !required["name"] || !required["jerseyNumber"] || required["email"] {
		t.Fatalf("unexpected required flags %v", required)
	}
}

func TestFromOpenAPI_ValidatesPayloads(t *testing.T) {
	schemas := loadSquad(t)
	v := validation.New(validation.WithSchemas(schemas["createPlayer"], schemas["fixture"]))

	got := v.ValidateWithSchema(map[string]any{
		"name":         "Leo",
		"jerseyNumber": 120,
		"position":     "COACH",
		"bio":          "<b>Quick</b><script>x()</script>",
	}, "createPlayer")
	wantErrors := map[string][]string{
		"jerseyNumber": {"Value must be between 1 and 99"},
		"position":     {"Position format is invalid"},
	}
	if diff := cmp.Diff(wantErrors, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got.Sanitized["bio"] != "<b>Quick</b>" {
		t.Fatalf("unexpected bio %q", got.Sanitized["bio"])
	}

	fixture := v.ValidateWithSchema(map[string]any{
		"kickoff": "2024-06-01T18:00:00Z",
		"finish":  "2024-06-01T17:00:00Z",
	}, "fixture")
	if diff := cmp.Diff([]string{"Finish must be after kickoff"}, fixture.FieldErrors("finish")); diff != "" {
		t.Fatalf("cross-field mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_Format(t *testing.T) {
	openapi := schema.MustNewDocument(schema.SourceInline("a"), []byte("openapi: 3.0.3\ninfo: {}\n"))
	if openapi.Format() != schema.FormatOpenAPI {
		t.Fatalf("expected openapi format")
	}
	file := schema.MustNewDocument(schema.SourceInline("b"), []byte("schemas: []\n"))
	if file.Format() != schema.FormatSchemaFile {
		t.Fatalf("expected schema file format")
	}
}
