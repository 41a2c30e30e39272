package risk_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/threat"
)

func TestForThreats_Escalation(t *testing.T) {
	cases := []struct {
		name    string
		threats []threat.Category
		want    risk.Level
	}{
		{name: "none", want: risk.Low},
		{name: "path only", threats: []threat.Category{threat.PathTraversal}, want: risk.Medium},
		{name: "xss", threats: []threat.Category{threat.XSS}, want: risk.High},
		{name: "ldap", threats: []threat.Category{threat.LDAPInjection}, want: risk.High},
		{name: "nosql", threats: []threat.Category{threat.NoSQLInjection}, want: risk.High},
		{name: "sql", threats: []threat.Category{threat.SQLInjection}, want: risk.Critical},
		{name: "command", threats: []threat.Category{threat.CommandInjection}, want: risk.Critical},
		{name: "critical is sticky", threats: []threat.Category{threat.SQLInjection, threat.PathTraversal}, want: risk.Critical},
		{name: "max of mixed", threats: []threat.Category{threat.PathTraversal, threat.XSS}, want: risk.High},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := risk.ForThreats(tc.threats); got != tc.want {
				t.Fatalf("ForThreats(%v) = %s, want %s", tc.threats, got, tc.want)
			}
		})
	}
}

func TestLevel_TextRoundTrip(t *testing.T) {
	payload, err := json.Marshal(map[risk.Level]int{risk.High: 2, risk.Low: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"high":2,"low":1}` {
		t.Fatalf("unexpected encoding %s", payload)
	}

	var decoded struct {
		Level risk.Level `json:"level"`
	}
	if err := json.Unmarshal([]byte(`{"level":"Critical"}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Level != risk.Critical {
		t.Fatalf("expected critical, got %s", decoded.Level)
	}

	if _, err := risk.ParseLevel("severe"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestAssess_OverallAndThreats(t *testing.T) {
	got := risk.Assess(map[string][]threat.Category{
		"name":  {threat.XSS},
		"notes": {threat.PathTraversal},
		"email": nil,
	}, map[string]any{"name": "bob", "notes": "x"})

	want := risk.Assessment{
		Overall: risk.High,
		ThreatsByField: map[string][]threat.Category{
			"name":  {threat.XSS},
			"notes": {threat.PathTraversal},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("assessment mismatch (-want +got):\n%s", diff)
	}
}

func TestAssess_CoordinatedPatterns(t *testing.T) {
	got := risk.Assess(nil, map[string]any{
		"a": "please SELECT",
		"b": "then DROP it",
		"c": "<script>one",
		"d": "<SCRIPT>two",
		"e": 10,
	})
	want := []string{risk.PatternSQLKeywordCluster, risk.PatternMultipleScripts}
	if diff := cmp.Diff(want, got.Patterns); diff != "" {
		t.Fatalf("patterns mismatch (-want +got):\n%s", diff)
	}
	if !got.CoordinatedAttack {
		t.Fatalf("expected coordinated attack flag")
	}
	if got.Overall != risk.Low {
		t.Fatalf("coordinated flag must not change overall level, got %s", got.Overall)
	}
}

func TestCoordinatedPatterns_RepeatedKeywordIsNotACluster(t *testing.T) {
	if got := risk.CoordinatedPatterns("select select select"); len(got) != 0 {
		t.Fatalf("expected no pattern for a single repeated keyword, got %v", got)
	}
	got := risk.CoordinatedPatterns("javascript:a() and javascript:b()")
	if diff := cmp.Diff([]string{risk.PatternRepeatedJSURI}, got); diff != "" {
		t.Fatalf("patterns mismatch (-want +got):\n%s", diff)
	}
}
