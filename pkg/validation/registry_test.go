package validation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguard/pkg/validation"
)

func TestRegistry_Builtins(t *testing.T) {
	reg := validation.NewRegistry()
	want := []string{validation.CustomFormation, validation.CustomJerseyNumber, validation.CustomPlayerPosition}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	cases := []struct {
		name  string
		value string
		want  bool
	}{
		{validation.CustomJerseyNumber, "1", true},
		{validation.CustomJerseyNumber, "99", true},
		{validation.CustomJerseyNumber, "0", false},
		{validation.CustomJerseyNumber, "100", false},
		{validation.CustomJerseyNumber, "7.5", false},
		{validation.CustomPlayerPosition, "st", true},
		{validation.CustomPlayerPosition, "Goalkeeper", true},
		{validation.CustomPlayerPosition, "Sweeper keeper", false},
		{validation.CustomFormation, "4-4-2", true},
		{validation.CustomFormation, "3-4-2-1", true},
		{validation.CustomFormation, "4-4-3", false},
		{validation.CustomFormation, "442", false},
	}
	for _, tc := range cases {
		fn, ok := reg.Lookup(tc.name)
		if !ok {
			t.Fatalf("missing builtin %s", tc.name)
		}
		if got := fn(tc.value); got != tc.want {
			t.Fatalf("%s(%q) = %v, want %v", tc.name, tc.value, got, tc.want)
		}
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	reg := validation.NewRegistry()
	if err := reg.Register("", func(string) bool { return true }); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatalf("expected error for nil func")
	}
	if err := reg.Register(validation.CustomFormation, func(string) bool { return true }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := reg.Register("squadSize", validation.IntRange(11, 25)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !reg.Has("squadSize") {
		t.Fatalf("expected squadSize to be registered")
	}
}

func TestNumberRange(t *testing.T) {
	fn := validation.NumberRange(0.5, 2)
	for value, want := range map[string]bool{"0.5": true, "2": true, "2.01": false, "abc": false} {
		if got := fn(value); got != want {
			t.Fatalf("NumberRange(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestParseRule(t *testing.T) {
	rule, err := validation.ParseRule("Email")
	if err != nil || rule != validation.RuleEmail {
		t.Fatalf("ParseRule(Email) = %s, %v", rule, err)
	}
	if rule, err := validation.ParseRule(""); err != nil || rule != validation.RuleText {
		t.Fatalf("empty rule should be text, got %s, %v", rule, err)
	}
	if _, err := validation.ParseRule("postcode"); err == nil {
		t.Fatalf("expected unknown rule error")
	}
	for _, rule := range validation.Rules() {
		text, err := rule.MarshalText()
		if err != nil {
			t.Fatalf("marshal %d: %v", rule, err)
		}
		var back validation.Rule
		if err := back.UnmarshalText(text); err != nil || back != rule {
			t.Fatalf("round trip %s: got %s, %v", rule, back, err)
		}
	}
}
