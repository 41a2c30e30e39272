package sanitize

import (
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// AllowList names the HTML elements and attributes an html field may keep.
type AllowList struct {
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// DefaultAllowList is used when a field does not configure its own.
func DefaultAllowList() AllowList {
	return AllowList{
		Tags:       []string{"b", "i", "em", "strong", "u", "p", "br", "ul", "ol", "li", "a", "span"},
		Attributes: []string{"href", "title"},
	}
}

// Key returns a stable identity for the allow list.
func (a AllowList) Key() string {
	tags := normalizeNames(a.Tags)
	attrs := normalizeNames(a.Attributes)
	return strings.Join(tags, ",") + "|" + strings.Join(attrs, ",")
}

var (
	defaultPolicyOnce sync.Once
	defaultPolicy     *bluemonday.Policy

	policies sync.Map
)

// HTMLFragment keeps only allow-listed markup. A nil allow list uses
// DefaultAllowList.
func HTMLFragment(input string, allow *AllowList) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(policyFor(allow).Sanitize(trimmed))
}

func policyFor(allow *AllowList) *bluemonday.Policy {
	if allow == nil || (len(allow.Tags) == 0 && len(allow.Attributes) == 0) {
		defaultPolicyOnce.Do(func() {
			defaultPolicy = buildPolicy(DefaultAllowList())
		})
		return defaultPolicy
	}
	key := allow.Key()
	if cached, ok := policies.Load(key); ok {
		return cached.(*bluemonday.Policy)
	}
	policy, _ := policies.LoadOrStore(key, buildPolicy(*allow))
	return policy.(*bluemonday.Policy)
}

func buildPolicy(allow AllowList) *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	tags := normalizeNames(allow.Tags)
	if len(tags) == 0 {
		return policy
	}
	policy.AllowElements(tags...)

	attrs := normalizeNames(allow.Attributes)
	for _, attr := range attrs {
		if attr == "href" || attr == "src" {
			policy.AllowStandardURLs()
			policy.RequireNoFollowOnLinks(false)
		}
	}
	if len(attrs) > 0 {
		policy.AllowAttrs(attrs...).OnElements(tags...)
	}
	return policy
}

func normalizeNames(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		name := strings.ToLower(strings.TrimSpace(value))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
