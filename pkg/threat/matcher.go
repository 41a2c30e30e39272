package threat

import (
	"regexp"
	"strings"
)

// Category names an injection family. The string values are the identifiers
// reported in results and metrics.
type Category string

const (
	SQLInjection     Category = "sqlInjection"
	XSS              Category = "xss"
	CommandInjection Category = "commandInjection"
	PathTraversal    Category = "pathTraversal"
	LDAPInjection    Category = "ldapInjection"
	NoSQLInjection   Category = "nosqlInjection"
)

// Categories lists every family in detection order.
func Categories() []Category {
	return []Category{SQLInjection, XSS, CommandInjection, PathTraversal, LDAPInjection, NoSQLInjection}
}

// Family is a named group of expressions. A value matches the family when any
// expression matches.
type Family struct {
	Category Category
	Patterns []*regexp.Regexp
}

// Matcher tests values against an ordered list of families.
type Matcher struct {
	families []Family
}

var defaultMatcher = NewMatcher(DefaultFamilies()...)

// Default returns the shared matcher built from DefaultFamilies.
func Default() *Matcher {
	return defaultMatcher
}

// Detect runs the default matcher.
func Detect(value string) []Category {
	return defaultMatcher.Detect(value)
}

// NewMatcher builds a matcher over the supplied families. Families without
// patterns are ignored.
func NewMatcher(families ...Family) *Matcher {
	m := &Matcher{}
	for _, family := range families {
		if len(family.Patterns) == 0 {
			continue
		}
		m.families = append(m.families, Family{
			Category: family.Category,
			Patterns: append([]*regexp.Regexp(nil), family.Patterns...),
		})
	}
	return m
}

// Detect returns every category with at least one matching pattern. Each
// category appears once, in family order. Empty input never matches.
func (m *Matcher) Detect(value string) []Category {
	if m == nil || strings.TrimSpace(value) == "" {
		return nil
	}
	var out []Category
	seen := make(map[Category]struct{}, len(m.families))
	for _, family := range m.families {
		if _, dup := seen[family.Category]; dup {
			continue
		}
		if matchesAny(family.Patterns, value) {
			seen[family.Category] = struct{}{}
			out = append(out, family.Category)
		}
	}
	return out
}

// Matches reports whether value matches the named family.
func (m *Matcher) Matches(category Category, value string) bool {
	if m == nil {
		return false
	}
	for _, family := range m.families {
		if family.Category == category && matchesAny(family.Patterns, value) {
			return true
		}
	}
	return false
}

// PatternCount reports the number of compiled expressions per category.
func (m *Matcher) PatternCount() map[Category]int {
	out := make(map[Category]int)
	if m == nil {
		return out
	}
	for _, family := range m.families {
		out[family.Category] += len(family.Patterns)
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, value string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
