// Package sanitize cleans strings for a specific use-site: HTML fragments,
// SQL literals, URL components, filenames and general free text.
//
// Sanitization is a defense-in-depth layer. It does not replace parameterized
// queries or template escaping at the point of use.
package sanitize
