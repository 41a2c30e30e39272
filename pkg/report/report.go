// Package report renders validation results as plain text or HTML using
// pongo2 templates.
package report

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/validation"
)

// Format selects the template used by Render.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// DefaultTitle heads every report unless WithTitle overrides it.
const DefaultTitle = "Form validation report"

// ParseFormat resolves a format name. Empty means text.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", errors.WithHint(
			errors.Newf("report: unknown format %q", raw),
			"use text or html",
		)
	}
}

func (f Format) template() string {
	if f == FormatHTML {
		return "form.html.tpl"
	}
	return "form.txt.tpl"
}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	templates fs.FS
	title     string
}

// WithTemplates replaces the embedded templates. The FS must provide
// form.txt.tpl and form.html.tpl at its root.
func WithTemplates(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = files
		}
	}
}

// WithTitle sets the report heading.
func WithTitle(title string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			cfg.title = trimmed
		}
	}
}

// Renderer turns BulkResults into reports. It is safe for concurrent use.
type Renderer struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	title     string
}

// New constructs a Renderer backed by the embedded templates unless
// WithTemplates is supplied.
func New(options ...Option) *Renderer {
	cfg := &config{title: DefaultTitle}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	if cfg.templates == nil {
		cfg.templates = TemplatesFS()
	}
	registerFilters()

	return &Renderer{
		set:       pongo2.NewSet("formguard-report", pongo2.NewFSLoader(cfg.templates)),
		templates: make(map[string]*pongo2.Template),
		title:     cfg.title,
	}
}

// Render writes the report for result to w.
func (r *Renderer) Render(w io.Writer, format Format, result validation.BulkResult) error {
	if r == nil || r.set == nil {
		return errors.New("report: renderer is nil")
	}
	tmpl, err := r.template(format.template())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(r.context(result), &buf); err != nil {
		return errors.Wrapf(err, "report: execute %s", format.template())
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// RenderString returns the report for result.
func (r *Renderer) RenderString(format Format, result validation.BulkResult) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, format, result); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) template(name string) (*pongo2.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := r.set.FromFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "report: load template %q", name)
	}
	r.templates[name] = tmpl
	return tmpl, nil
}

func (r *Renderer) context(result validation.BulkResult) pongo2.Context {
	schema := result.Schema
	if schema == "" {
		schema = "adhoc"
	}
	return pongo2.Context{
		"title":        r.title,
		"schema":       schema,
		"valid":        result.Valid,
		"risk":         result.Risk.Overall.String(),
		"coordinated":  result.Risk.CoordinatedAttack,
		"patterns":     result.Risk.Patterns,
		"globalErrors": result.GlobalErrors,
		"fields":       fieldRows(result),
	}
}

// fieldRows lists every field that has a value, an error or a threat, sorted
// by name.
func fieldRows(result validation.BulkResult) []map[string]any {
	names := make(map[string]struct{})
	for name := range result.Sanitized {
		names[name] = struct{}{}
	}
	for name := range result.Errors {
		names[name] = struct{}{}
	}
	for name := range result.Risk.ThreatsByField {
		names[name] = struct{}{}
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	rows := make([]map[string]any, 0, len(ordered))
	for _, name := range ordered {
		threats := make([]string, 0, len(result.Risk.ThreatsByField[name]))
		for _, category := range result.Risk.ThreatsByField[name] {
			threats = append(threats, string(category))
		}
		value := ""
		if raw, ok := result.Sanitized[name]; ok && raw != nil {
			value = fmt.Sprint(raw)
		}
		rows = append(rows, map[string]any{
			"name":    name,
			"value":   value,
			"errors":  result.Errors[name],
			"threats": threats,
		})
	}
	return rows
}

var filtersOnce sync.Once

func registerFilters() {
	filtersOnce.Do(func() {
		if !pongo2.FilterExists("riskclass") {
			_ = pongo2.RegisterFilter("riskclass", filterRiskClass)
		}
		if !pongo2.FilterExists("quote") {
			_ = pongo2.RegisterFilter("quote", filterQuote)
		}
	})
}

func filterRiskClass(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	level, err := risk.ParseLevel(in.String())
	if err != nil {
		return pongo2.AsValue("risk-unknown"), nil
	}
	return pongo2.AsValue("risk-" + level.String()), nil
}

func filterQuote(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(fmt.Sprintf("%q", in.String())), nil
}
