// Package validation validates single field values and whole form
// submissions, sanitizes accepted values and annotates each result with the
// injection threats detected in the raw input.
//
// A Validator owns a bounded result cache, a catalogue of named schemas and a
// registry of named custom rules. It is safe for concurrent use.
//
// Threat detection is advisory. Detected threats raise the reported risk
// level but do not make a value invalid unless WithRejectRisk is configured.
// Callers must still use parameterized queries and context-aware escaping at
// the point of use.
package validation
