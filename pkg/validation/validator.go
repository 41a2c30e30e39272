package validation

import (
	"context"

	playground "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/cache"
	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/sanitize"
	"github.com/goliatone/go-formguard/pkg/threat"
)

// Recorder receives validation outcomes, typically to export metrics.
type Recorder interface {
	ObserveField(result Result, cached bool)
	ObserveForm(result BulkResult)
	ObserveUpload(result Result)
}

// Scanner inspects an upload for malware. Clean is false when a signature
// matched.
type Scanner interface {
	Scan(ctx context.Context, file FileInfo) (ScanReport, error)
}

// ScanReport is returned by a Scanner.
type ScanReport struct {
	Clean     bool
	Signature string
}

// Option customises a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for suspicious input and recovered
// failures.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithCache injects the result cache. It takes precedence over
// WithCacheSize.
func WithCache(c *cache.LRU[Result]) Option {
	return func(v *Validator) {
		if c != nil {
			v.cache = c
		}
	}
}

// WithCacheSize bounds the default result cache.
func WithCacheSize(size int) Option {
	return func(v *Validator) {
		v.cacheSize = size
	}
}

// WithRecorder registers a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(v *Validator) {
		if recorder != nil {
			v.recorder = recorder
		}
	}
}

// WithScanner wires the collaborator used when an upload requests a malware
// scan.
func WithScanner(scanner Scanner) Option {
	return func(v *Validator) {
		v.scanner = scanner
	}
}

// WithRejectRisk turns detected threats at or above level into field errors.
func WithRejectRisk(level risk.Level) Option {
	return func(v *Validator) {
		l := level
		v.rejectRisk = &l
	}
}

// WithSchemas registers additional schemas next to the predefined ones. A
// schema with a predefined name replaces it.
func WithSchemas(schemas ...Schema) Option {
	return func(v *Validator) {
		v.extraSchemas = append(v.extraSchemas, schemas...)
	}
}

// WithRegistry replaces the custom validator registry.
func WithRegistry(registry *Registry) Option {
	return func(v *Validator) {
		if registry != nil {
			v.registry = registry
		}
	}
}

// WithMatcher replaces the threat matcher.
func WithMatcher(matcher *threat.Matcher) Option {
	return func(v *Validator) {
		if matcher != nil {
			v.matcher = matcher
		}
	}
}

// Validator validates fields and forms. The zero value is not usable; call
// New.
type Validator struct {
	logger       *zap.Logger
	cache        *cache.LRU[Result]
	cacheSize    int
	recorder     Recorder
	scanner      Scanner
	rejectRisk   *risk.Level
	registry     *Registry
	catalog      *Catalog
	extraSchemas []Schema
	matcher      *threat.Matcher
	formats      *playground.Validate
}

// New builds a Validator. Missing collaborators fall back to the built-in
// implementations.
func New(options ...Option) *Validator {
	v := &Validator{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(v)
	}
	v.applyDefaults()
	return v
}

func (v *Validator) applyDefaults() {
	if v.logger == nil {
		v.logger = zap.NewNop()
	}
	if v.cache == nil {
		v.cache = cache.MustNew[Result](v.cacheSize)
	}
	if v.recorder == nil {
		v.recorder = nopRecorder{}
	}
	if v.registry == nil {
		v.registry = NewRegistry()
	}
	if v.matcher == nil {
		v.matcher = threat.Default()
	}
	if v.formats == nil {
		v.formats = playground.New()
	}
	v.catalog = NewCatalog(PredefinedSchemas()...)
	for _, schema := range v.extraSchemas {
		v.catalog.Put(schema)
	}
	v.extraSchemas = nil
}

// Registry exposes the custom validator registry.
func (v *Validator) Registry() *Registry {
	return v.registry
}

// Schemas exposes the schema catalogue.
func (v *Validator) Schemas() *Catalog {
	return v.catalog
}

// SanitizeInput cleans input for ctx.
func (v *Validator) SanitizeInput(input string, ctx sanitize.Context) string {
	return sanitize.Sanitize(input, ctx)
}

// ClearCache drops every memoised field result.
func (v *Validator) ClearCache() {
	v.cache.Purge()
}

type nopRecorder struct{}

func (nopRecorder) ObserveField(Result, bool) {}
func (nopRecorder) ObserveForm(BulkResult)    {}
func (nopRecorder) ObserveUpload(Result)      {}
