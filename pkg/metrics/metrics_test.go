package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formguard/pkg/metrics"
	"github.com/goliatone/go-formguard/pkg/validation"
)

func TestCollector_RecordsValidatorActivity(t *testing.T) {
	collector := metrics.New(metrics.Config{})
	v := validation.New(validation.WithRecorder(collector))

	cfg := validation.Config{Rule: validation.RuleText}
	v.ValidateField("' OR 1=1 --", cfg, "q")
	v.ValidateField("' OR 1=1 --", cfg, "q")
	v.ValidateWithSchema(map[string]any{"email": "bad", "password": "short"}, validation.SchemaLogin)

	expected := `
# HELP formguard_validation_threats_total Detected threats by category
# TYPE formguard_validation_threats_total counter
formguard_validation_threats_total{category="sqlInjection"} 2
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "formguard_validation_threats_total"); err != nil {
		t.Fatalf("threat metrics mismatch: %v", err)
	}

	forms := `
# HELP formguard_validation_forms_total Form validations by schema and outcome
# TYPE formguard_validation_forms_total counter
formguard_validation_forms_total{outcome="invalid",schema="login"} 1
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(forms), "formguard_validation_forms_total"); err != nil {
		t.Fatalf("form metrics mismatch: %v", err)
	}

	cache := `
# HELP formguard_validation_cache_lookups_total Field result cache lookups by result
# TYPE formguard_validation_cache_lookups_total counter
formguard_validation_cache_lookups_total{result="hit"} 1
formguard_validation_cache_lookups_total{result="miss"} 3
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(cache), "formguard_validation_cache_lookups_total"); err != nil {
		t.Fatalf("cache metrics mismatch: %v", err)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := metrics.New(metrics.Config{Namespace: "club"})
	collector.ObserveForm(validation.BulkResult{Valid: true})

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `club_validation_forms_total{outcome="valid",schema="adhoc"} 1`) {
		t.Fatalf("expected forms counter in exposition, got:\n%s", rec.Body.String())
	}
}

func TestCollector_UploadsSkipCacheLookups(t *testing.T) {
	collector := metrics.New(metrics.Config{})
	v := validation.New(validation.WithRecorder(collector))

	v.ValidateFileUpload(validation.FileInfo{Name: "", Size: 0}, nil)

	uploads := `
# HELP formguard_validation_uploads_total File upload validations by outcome
# TYPE formguard_validation_uploads_total counter
formguard_validation_uploads_total{outcome="invalid"} 1
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(uploads), "formguard_validation_uploads_total"); err != nil {
		t.Fatalf("upload metrics mismatch: %v", err)
	}
	count, err := testutil.GatherAndCount(collector.Registry(), "formguard_validation_cache_lookups_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 0 {
		t.Fatalf("uploads must not record cache lookups, got %d series", count)
	}
}
