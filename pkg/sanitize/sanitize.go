package sanitize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

// Context names the destination a value is cleaned for.
type Context string

const (
	General  Context = "general"
	HTML     Context = "html"
	SQL      Context = "sql"
	URL      Context = "url"
	Filename Context = "filename"
)

// MaxFilenameLength caps sanitized filenames.
const MaxFilenameLength = 255

// Contexts lists the supported contexts.
func Contexts() []Context {
	return []Context{General, HTML, SQL, URL, Filename}
}

// ParseContext resolves a context name. An empty name maps to General.
func ParseContext(raw string) (Context, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return General, nil
	}
	for _, ctx := range Contexts() {
		if string(ctx) == name {
			return ctx, nil
		}
	}
	return General, errors.WithHint(
		errors.Newf("sanitize: unknown context %q", raw),
		"use one of general, html, sql, url, filename",
	)
}

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`)
	scriptOpenPattern  = regexp.MustCompile(`(?i)<\s*/?\s*script\b[^>]*>?`)
	jsURIPattern       = regexp.MustCompile(`(?i)javascript\s*:`)
	eventAttrPattern   = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]*)`)
	filenameReplacer   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	sqlStripper        = strings.NewReplacer(";", "", "--", "", "/*", "", "*/", "", "#", "")
	sqlQuoteEscaper    = strings.NewReplacer(`'`, `''`, `"`, `""`)
)

// Sanitize cleans input for ctx. Unknown contexts fall back to General.
func Sanitize(input string, ctx Context) string {
	switch ctx {
	case HTML:
		return HTMLFragment(input, nil)
	case SQL:
		return SQLLiteral(input)
	case URL:
		return URLComponent(input)
	case Filename:
		return FileName(input)
	default:
		return Text(input)
	}
}

// Text normalises to NFC and removes script blocks, javascript: URIs and
// inline event handlers.
func Text(input string) string {
	if input == "" {
		return ""
	}
	out := norm.NFC.String(input)
	out = scriptBlockPattern.ReplaceAllString(out, "")
	out = scriptOpenPattern.ReplaceAllString(out, "")
	out = jsURIPattern.ReplaceAllString(out, "")
	out = eventAttrPattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// SQLLiteral strips statement separators and comment markers, then doubles
// quotes.
func SQLLiteral(input string) string {
	return sqlQuoteEscaper.Replace(sqlStripper.Replace(input))
}

// URLComponent percent-encodes input for use as a URL component. Spaces become
// %20.
func URLComponent(input string) string {
	return strings.ReplaceAll(url.QueryEscape(input), "+", "%20")
}

// FileName keeps [a-zA-Z0-9._-], replaces everything else with "_", drops
// leading dots and caps the length.
func FileName(input string) string {
	out := filenameReplacer.ReplaceAllString(input, "_")
	out = strings.TrimLeft(out, ".")
	if len(out) > MaxFilenameLength {
		out = out[:MaxFilenameLength]
	}
	return out
}
