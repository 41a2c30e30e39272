package validation_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/threat"
	"github.com/goliatone/go-formguard/pkg/validation"
)

func TestValidateJSONData_SanitizesRecursively(t *testing.T) {
	v := validation.New()
	got := v.ValidateJSONData([]byte(`{
		"name": "<script>alert(1)</script>Lions",
		"players": [{"name": " Leo ", "number": 10}],
		"active": true
	}`))
	if !got.Valid {
		t.Fatalf("expected valid json, got %q", got.Error)
	}
	want := map[string]any{
		"name":    "Lions",
		"players": []any{map[string]any{"name": "Leo", "number": json.Number("10")}},
		"active":  true,
	}
	if diff := cmp.Diff(want, got.Sanitized); diff != "" {
		t.Fatalf("sanitized mismatch (-want +got):\n%s", diff)
	}
	if got.RiskLevel != risk.High {
		t.Fatalf("expected high risk, got %s", got.RiskLevel)
	}
	if diff := cmp.Diff([]threat.Category{threat.XSS}, got.Threats); diff != "" {
		t.Fatalf("threats mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateJSONData_Failures(t *testing.T) {
	v := validation.New()
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "malformed", input: `{"a":`, want: validation.InvalidJSONMessage},
		{name: "trailing data", input: `{"a":1}{"b":2}`, want: validation.InvalidJSONMessage},
		{name: "empty", input: ``, want: validation.InvalidJSONMessage},
		{name: "too deep", input: strings.Repeat("[", 40) + strings.Repeat("]", 40), want: validation.JSONTooDeepMessage},
		{name: "too large", input: `"` + strings.Repeat("a", validation.MaxJSONBytes) + `"`, want: validation.JSONTooLargeMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := v.ValidateJSONData([]byte(tc.input))
			if got.Valid {
				t.Fatalf("expected failure")
			}
			if got.Error != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got.Error)
			}
		})
	}
}

func TestValidateJSONData_RejectsCollidingKeys(t *testing.T) {
	v := validation.New()
	got := v.ValidateJSONData([]byte(`{"a<script>x</script>":"evil","a":"good"}`))
	if got.Valid {
		t.Fatalf("expected colliding keys to fail, got %v", got.Sanitized)
	}
	if got.Error != validation.JSONKeyConflictMessage {
		t.Fatalf("expected %q, got %q", validation.JSONKeyConflictMessage, got.Error)
	}
	if got.Sanitized != nil {
		t.Fatalf("expected no sanitized payload, got %v", got.Sanitized)
	}
	if diff := cmp.Diff([]threat.Category{threat.XSS}, got.Threats); diff != "" {
		t.Fatalf("threats mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateJSONData_ThreatOrderIsStable(t *testing.T) {
	v := validation.New()
	payload := []byte(`{"c":"<script>x</script>","b":"' OR 1=1 --","a":"../etc/passwd"}`)
	want := []threat.Category{threat.PathTraversal, threat.SQLInjection, threat.XSS}
	for i := 0; i < 10; i++ {
		got := v.ValidateJSONData(payload)
		if !got.Valid {
			t.Fatalf("expected valid json, got %q", got.Error)
		}
		if diff := cmp.Diff(want, got.Threats); diff != "" {
			t.Fatalf("run %d threats mismatch (-want +got):\n%s", i, diff)
		}
	}
}
