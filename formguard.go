// Package formguard validates, sanitizes and threat-scans form submissions.
//
// The package-level functions delegate to a lazily built default
// validation.Validator. Services that need their own cache bound, logger or
// schemas should build a Validator with NewValidator and keep it.
package formguard

import (
	"sync"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/sanitize"
	"github.com/goliatone/go-formguard/pkg/validation"
)

// Config aliases validation.Config for callers that only import the root
// package.
type Config = validation.Config

// Result is the outcome of a single field validation.
type Result = validation.Result

// BulkResult is the outcome of a form validation.
type BulkResult = validation.BulkResult

// JSONResult is the outcome of ValidateJSONData.
type JSONResult = validation.JSONResult

// Schema is a named set of field rules.
type Schema = validation.Schema

// FileInfo describes an upload.
type FileInfo = validation.FileInfo

// UploadOptions constrains uploads.
type UploadOptions = validation.UploadOptions

// Stats summarises cached validation results.
type Stats = validation.Stats

// RiskLevel is the ordered severity attached to results.
type RiskLevel = risk.Level

// Sanitization contexts.
const (
	ContextGeneral  = sanitize.General
	ContextHTML     = sanitize.HTML
	ContextSQL      = sanitize.SQL
	ContextURL      = sanitize.URL
	ContextFilename = sanitize.Filename
)

var (
	defaultMu        sync.Mutex
	defaultValidator *validation.Validator
)

// NewValidator exposes the validator constructor from the top-level module.
func NewValidator(options ...validation.Option) *validation.Validator {
	return validation.New(options...)
}

// Default returns the shared validator, building it on first use.
func Default() *validation.Validator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultValidator == nil {
		defaultValidator = validation.New()
	}
	return defaultValidator
}

// SetDefault replaces the shared validator. A nil v resets it so the next
// call builds a fresh one.
func SetDefault(v *validation.Validator) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultValidator = v
}

// ValidateField validates one value with the default validator.
func ValidateField(value any, cfg Config, fieldName string) Result {
	return Default().ValidateField(value, cfg, fieldName)
}

// ValidateForm validates data against schema with the default validator.
func ValidateForm(data map[string]any, schema Schema) BulkResult {
	return Default().ValidateForm(data, schema)
}

// ValidateWithPredefinedSchema validates data against a named schema.
func ValidateWithPredefinedSchema(data map[string]any, name string) BulkResult {
	return Default().ValidateWithPredefinedSchema(data, name)
}

// SanitizeInput cleans input for ctx.
func SanitizeInput(input string, ctx sanitize.Context) string {
	return sanitize.Sanitize(input, ctx)
}

// ValidateJSONData parses and sanitizes a JSON payload.
func ValidateJSONData(data []byte) JSONResult {
	return Default().ValidateJSONData(data)
}

// ValidateFileUpload checks upload metadata.
func ValidateFileUpload(file FileInfo, opts *UploadOptions) Result {
	return Default().ValidateFileUpload(file, opts)
}

// ValidationStats reports statistics derived from the default cache.
func ValidationStats() Stats {
	return Default().Stats()
}

// ClearCache empties the default validator cache.
func ClearCache() {
	Default().ClearCache()
}
