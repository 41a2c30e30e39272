package risk

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-formguard/pkg/threat"
)

// Coordinated attack pattern identifiers reported in Assessment.Patterns.
const (
	PatternSQLKeywordCluster = "sqlKeywordCluster"
	PatternMultipleScripts   = "multipleScriptTags"
	PatternRepeatedJSURI     = "repeatedJavascriptURI"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|alter|truncate|exec)\b`)
	scriptTagPattern  = regexp.MustCompile(`(?i)<\s*script\b`)
	jsURIPattern      = regexp.MustCompile(`(?i)javascript\s*:`)
)

// Assessment summarises risk across a whole form.
type Assessment struct {
	Overall           Level                        `json:"overallRisk"`
	ThreatsByField    map[string][]threat.Category `json:"threats,omitempty"`
	CoordinatedAttack bool                         `json:"coordinatedAttack"`
	Patterns          []string                     `json:"patterns,omitempty"`
}

// Assess computes the overall level as the maximum field severity and scans
// the concatenated sanitized values for multi-token attack shapes. The scan is
// heuristic; false positives are expected.
func Assess(threatsByField map[string][]threat.Category, sanitized map[string]any) Assessment {
	out := Assessment{Overall: Low}
	for field, categories := range threatsByField {
		if len(categories) == 0 {
			continue
		}
		if out.ThreatsByField == nil {
			out.ThreatsByField = make(map[string][]threat.Category)
		}
		out.ThreatsByField[field] = append([]threat.Category(nil), categories...)
		out.Overall = Max(out.Overall, ForThreats(categories))
	}

	out.Patterns = CoordinatedPatterns(concatValues(sanitized))
	out.CoordinatedAttack = len(out.Patterns) > 0
	return out
}

// CoordinatedPatterns returns the names of the multi-token patterns found in
// combined.
func CoordinatedPatterns(combined string) []string {
	if strings.TrimSpace(combined) == "" {
		return nil
	}
	var found []string
	if distinctSQLKeywords(combined) >= 2 {
		found = append(found, PatternSQLKeywordCluster)
	}
	if len(scriptTagPattern.FindAllStringIndex(combined, -1)) >= 2 {
		found = append(found, PatternMultipleScripts)
	}
	if len(jsURIPattern.FindAllStringIndex(combined, -1)) >= 2 {
		found = append(found, PatternRepeatedJSURI)
	}
	return found
}

func distinctSQLKeywords(value string) int {
	seen := make(map[string]struct{})
	for _, match := range sqlKeywordPattern.FindAllString(value, -1) {
		seen[strings.ToLower(match)] = struct{}{}
	}
	return len(seen)
}

func concatValues(values map[string]any) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		switch v := values[key].(type) {
		case nil:
			continue
		case string:
			parts = append(parts, v)
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, " ")
}
