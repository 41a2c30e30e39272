package schema_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguard/pkg/schema"
	"github.com/goliatone/go-formguard/pkg/validation"
)

func TestLoader_LoadFile(t *testing.T) {
	schemas, err := schema.NewLoader().LoadFile(context.Background(), "testdata/tryout.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(schemas) != 1 {
		t.Fatalf("expected one schema, got %d", len(schemas))
	}
	tryout := schemas[0]

	wantFields := []string{"email", "password", "confirmPassword", "jerseyNumber", "bio"}
	if diff := cmp.Diff(wantFields, tryout.FieldNames()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if got := len(tryout.Fields[3].Configs); got != 2 {
		t.Fatalf("expected two configs for jerseyNumber, got %d", got)
	}
	if tryout.Fields[2].Configs[0].Rule != validation.RuleText {
		t.Fatalf("rule should default to text")
	}

	v := validation.New(validation.WithSchemas(tryout))
	got := v.ValidateWithSchema(map[string]any{
		"email":           "coach@club.example.com",
		"password":        "Abc123!@#xyz1",
		"confirmPassword": "Abc123!@#xyz2",
		"jerseyNumber":    "100",
		"bio":             "<b>Fast</b> <u>winger</u>",
	}, "tryout")

	wantErrors := map[string][]string{
		"confirmPassword": {"Passwords do not match"},
		"jerseyNumber":    {"Jersey number must be between 1 and 99"},
	}
	if diff := cmp.Diff(wantErrors, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got.Sanitized["bio"] != "<b>Fast</b> winger" {
		t.Fatalf("unexpected sanitized bio %q", got.Sanitized["bio"])
	}
}

func TestLoader_LoadFS_JSONAndDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/contact.json": {Data: []byte(`{"schemas":[{"name":"contact","fields":[{"name":"email","rule":"email","required":true}]}]}`)},
		"forms/readme.txt":   {Data: []byte("ignored")},
	}
	schemas, err := schema.NewLoader().LoadFS(context.Background(), fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(schemas) != 1 || schemas[0].Name != "contact" {
		t.Fatalf("unexpected schemas %+v", schemas)
	}

	fsys["forms/contact-copy.yaml"] = &fstest.MapFile{Data: []byte("schemas:\n  - name: contact\n    fields:\n      - name: a\n")}
	if _, err := schema.NewLoader().LoadFS(context.Background(), fsys); err == nil {
		t.Fatalf("expected duplicate schema error")
	}
}

func TestLoader_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		is   error
	}{
		{name: "unknown rule", body: "schemas:\n  - name: x\n    fields:\n      - name: a\n        rule: postcode\n", is: validation.ErrUnknownRule},
		{name: "unknown custom", body: "schemas:\n  - name: x\n    fields:\n      - name: a\n        custom: shoeSize\n", is: validation.ErrUnknownCustom},
		{name: "dangling cross-field", body: "schemas:\n  - name: x\n    fields:\n      - name: a\n    crossField:\n      - kind: match\n        fields: [a, b]\n", is: validation.ErrInvalidSchema},
		{name: "bad pattern", body: "schemas:\n  - name: x\n    fields:\n      - name: a\n        pattern: \"(?!x)\"\n"},
		{name: "bad cross-field kind", body: "schemas:\n  - name: x\n    fields:\n      - name: a\n      - name: b\n    crossField:\n      - kind: sum\n        fields: [a, b]\n"},
		{name: "no schemas", body: "other: true\n"},
		{name: "not yaml", body: "schemas: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := schema.MustNewDocument(schema.SourceInline(tc.name), []byte(tc.body))
			_, err := schema.NewLoader().Parse(context.Background(), doc)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("expected %v, got %v", tc.is, err)
			}
		})
	}
}

func TestLoader_CustomRegistry(t *testing.T) {
	registry := validation.NewRegistry()
	registry.MustRegister("shoeSize", validation.IntRange(30, 50))
	doc := schema.MustNewDocument(schema.SourceInline("kit"), []byte("schemas:\n  - name: kit\n    fields:\n      - name: boots\n        rule: numeric\n        custom: shoeSize\n"))

	schemas, err := schema.NewLoader(schema.WithRegistry(registry)).Parse(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v := validation.New(validation.WithRegistry(registry), validation.WithSchemas(schemas...))
	if got := v.ValidateWithSchema(map[string]any{"boots": 60}, "kit"); got.Valid {
		t.Fatalf("expected out of range shoe size to fail")
	}
}

func TestDocument_RawIsACopy(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceInline("kit"), []byte("schemas: []\n"))
	raw := doc.Raw()
	raw[0] = 'X'
	if got := string(doc.Raw()); got != "schemas: []\n" {
		t.Fatalf("document payload changed through Raw: %q", got)
	}
	if doc.Location() != "kit" {
		t.Fatalf("unexpected location %q", doc.Location())
	}
}

func TestNewDocument_Empty(t *testing.T) {
	if _, err := schema.NewDocument(schema.SourceInline(""), []byte("  \n")); err == nil {
		t.Fatalf("expected empty document error")
	}
	if _, err := schema.NewDocument(nil, []byte("x")); err == nil {
		t.Fatalf("expected missing source error")
	}
}
