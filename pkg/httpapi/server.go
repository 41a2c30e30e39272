// Package httpapi exposes the validator over HTTP with chi.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/report"
	"github.com/goliatone/go-formguard/pkg/validation"
)

// DefaultMaxBodyBytes caps request bodies when WithMaxBodyBytes is not set.
const DefaultMaxBodyBytes int64 = 2 << 20

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit enables a server-wide token bucket. A non-positive rps
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rps = rps
		s.burst = burst
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(limit int64) Option {
	return func(s *Server) {
		if limit > 0 {
			s.maxBody = limit
		}
	}
}

// WithUploadOptions sets the constraints applied to uploaded files.
func WithUploadOptions(opts validation.UploadOptions) Option {
	return func(s *Server) {
		s.upload = opts
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithReportRenderer overrides the renderer used for ?format=text|html.
func WithReportRenderer(r *report.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.reports = r
		}
	}
}

// Server routes HTTP requests to a Validator.
type Server struct {
	validator *validation.Validator
	logger    *zap.Logger
	reports   *report.Renderer
	metrics   http.Handler
	upload    validation.UploadOptions
	rps       float64
	burst     int
	maxBody   int64
	router    chi.Router
}

// New builds the router for v.
func New(v *validation.Validator, options ...Option) *Server {
	s := &Server{
		validator: v,
		upload:    validation.DefaultUploadOptions(),
		maxBody:   DefaultMaxBodyBytes,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.reports == nil {
		s.reports = report.New()
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recoverer(s.logger))
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if s.rps > 0 {
			r.Use(newRateLimiter(s.rps, s.burst, s.logger).handler)
		}
		r.Use(bodyLimit(s.maxBody))

		r.Post("/forms/{schema}/validate", s.handleValidateForm)
		r.Post("/sanitize", s.handleSanitize)
		r.Post("/json/validate", s.handleValidateJSON)
		r.Post("/uploads/validate", s.handleValidateUpload)
		r.Get("/stats", s.handleStats)
		r.Delete("/cache", s.handleClearCache)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, TypeNotFound, "No route for "+r.Method+" "+r.URL.Path)
	})
	return r
}
