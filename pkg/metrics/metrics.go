// Package metrics exports validation outcomes as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formguard/pkg/validation"
)

// Config controls metric naming and registration.
type Config struct {
	Namespace string
	Subsystem string
	// Registry defaults to a fresh registry so collectors never clash with
	// the global one.
	Registry *prometheus.Registry
}

// Collector implements validation.Recorder.
type Collector struct {
	registry *prometheus.Registry

	fieldsValidated *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	threatsDetected *prometheus.CounterVec
	riskLevels      *prometheus.CounterVec
	formsValidated  *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	coordinated     prometheus.Counter
}

var _ validation.Recorder = (*Collector)(nil)

// New registers the validation metrics.
func New(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "formguard"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "validation"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(cfg.Registry)

	return &Collector{
		registry: cfg.Registry,
		fieldsValidated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fields_total",
			Help:      "Field validations by outcome",
		}, []string{"outcome"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_lookups_total",
			Help:      "Field result cache lookups by result",
		}, []string{"result"}),
		threatsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "threats_total",
			Help:      "Detected threats by category",
		}, []string{"category"}),
		riskLevels: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "results_by_risk_total",
			Help:      "Field results by risk level",
		}, []string{"level"}),
		formsValidated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "forms_total",
			Help:      "Form validations by schema and outcome",
		}, []string{"schema", "outcome"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "uploads_total",
			Help:      "File upload validations by outcome",
		}, []string{"outcome"}),
		coordinated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "coordinated_attacks_total",
			Help:      "Forms flagged with a coordinated attack pattern",
		}),
	}
}

// ObserveField records one field result.
func (c *Collector) ObserveField(result validation.Result, cached bool) {
	if cached {
		c.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		c.cacheLookups.WithLabelValues("miss").Inc()
	}
	c.fieldsValidated.WithLabelValues(outcome(result.Valid)).Inc()
	c.riskLevels.WithLabelValues(result.RiskLevel.String()).Inc()
	for _, category := range result.Threats {
		c.threatsDetected.WithLabelValues(string(category)).Inc()
	}
}

// ObserveUpload records one upload result. Uploads bypass the field cache.
func (c *Collector) ObserveUpload(result validation.Result) {
	c.uploads.WithLabelValues(outcome(result.Valid)).Inc()
	c.riskLevels.WithLabelValues(result.RiskLevel.String()).Inc()
	for _, category := range result.Threats {
		c.threatsDetected.WithLabelValues(string(category)).Inc()
	}
}

// ObserveForm records one form result.
func (c *Collector) ObserveForm(result validation.BulkResult) {
	schema := result.Schema
	if schema == "" {
		schema = "adhoc"
	}
	c.formsValidated.WithLabelValues(schema, outcome(result.Valid)).Inc()
	if result.Risk.CoordinatedAttack {
		c.coordinated.Inc()
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func outcome(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}
