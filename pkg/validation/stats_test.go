package validation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/threat"
	"github.com/goliatone/go-formguard/pkg/validation"
)

func TestStats_DerivedFromCache(t *testing.T) {
	v := validation.New()
	text := validation.Config{Rule: validation.RuleText}
	email := validation.Config{Rule: validation.RuleEmail}

	v.ValidateField("' OR 1=1 --", text, "a")
	v.ValidateField("<script>x</script>", text, "b")
	v.ValidateField("<script>y</script>", text, "c")
	v.ValidateField("bad-email", email, "d")
	v.ValidateField("ok", text, "e")
	v.ValidateField("ok", text, "e")

	got := v.Stats()
	if got.Entries != 5 || got.Valid != 4 || got.Invalid != 1 {
		t.Fatalf("unexpected counts %+v", got)
	}
	if got.FailureRate != 0.2 {
		t.Fatalf("expected failure rate 0.2, got %v", got.FailureRate)
	}
	wantRisk := map[risk.Level]int{risk.Low: 2, risk.Medium: 0, risk.High: 2, risk.Critical: 1}
	if diff := cmp.Diff(wantRisk, got.RiskDistribution); diff != "" {
		t.Fatalf("risk distribution mismatch (-want +got):\n%s", diff)
	}
	wantThreats := []validation.ThreatCount{
		{Category: threat.XSS, Count: 2},
		{Category: threat.SQLInjection, Count: 1},
	}
	if diff := cmp.Diff(wantThreats, got.TopThreats); diff != "" {
		t.Fatalf("top threats mismatch (-want +got):\n%s", diff)
	}
	if got.Cache.Hits != 1 || got.Cache.Capacity != 1024 {
		t.Fatalf("unexpected cache counters %+v", got.Cache)
	}
}

func TestStats_Empty(t *testing.T) {
	got := validation.New(validation.WithCacheSize(4)).Stats()
	if got.Entries != 0 || got.FailureRate != 0 || got.TopThreats != nil {
		t.Fatalf("unexpected stats %+v", got)
	}
	if got.Cache.Capacity != 4 {
		t.Fatalf("expected capacity 4, got %d", got.Cache.Capacity)
	}
}
