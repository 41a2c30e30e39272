package schema

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Format is the detected document flavour.
type Format string

const (
	FormatSchemaFile Format = "schema"
	FormatOpenAPI    Format = "openapi"
)

// Document wraps the raw schema payload and its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, errors.Newf("schema: document %s is empty", src.Location())
	}

	clone := append([]byte(nil), raw...)
	return Document{source: src, raw: clone}, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Format reports whether the payload is an OpenAPI document or a schema
// file, based on its top-level keys.
func (d Document) Format() Format {
	var header struct {
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(d.raw, &header); err == nil && strings.TrimSpace(header.OpenAPI) != "" {
		return FormatOpenAPI
	}
	return FormatSchemaFile
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
