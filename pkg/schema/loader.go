package schema

import (
	"context"
	"io/fs"
	"os"
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/validation"
)

// Option customises a Loader.
type Option func(*Loader)

// WithRegistry checks custom validator names against registry while loading.
func WithRegistry(registry *validation.Registry) Option {
	return func(l *Loader) {
		l.registry = registry
	}
}

// WithLogger sets the logger used to report loaded files.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader turns schema files and OpenAPI documents into validation schemas.
type Loader struct {
	registry *validation.Registry
	logger   *zap.Logger
}

// NewLoader constructs a Loader. Without WithRegistry custom names are checked
// against the built-in registry.
func NewLoader(options ...Option) *Loader {
	l := &Loader{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}
	if l.registry == nil {
		l.registry = validation.NewRegistry()
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

type builder struct {
	registry *validation.Registry
}

// Parse builds the schemas held by doc, dispatching on its format.
func (l *Loader) Parse(ctx context.Context, doc Document) ([]validation.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Format() == FormatOpenAPI {
		return l.FromOpenAPI(ctx, doc)
	}

	parsed, err := parseDocument(doc)
	if err != nil {
		return nil, err
	}
	if len(parsed.Schemas) == 0 {
		return nil, errors.Newf("schema: file %s defines no schemas", doc.Location())
	}

	b := builder{registry: l.registry}
	out := make([]validation.Schema, 0, len(parsed.Schemas))
	for _, raw := range parsed.Schemas {
		schema, err := b.buildSchema(raw, doc.Location())
		if err != nil {
			return nil, err
		}
		out = append(out, schema)
	}
	return out, nil
}

// LoadFile reads and parses one file from disk.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]validation.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "schema: read %s", path)
	}
	doc, err := NewDocument(SourceFromFile(path), data)
	if err != nil {
		return nil, err
	}
	return l.Parse(ctx, doc)
}

// LoadDir walks dir for schema files.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]validation.Schema, error) {
	return l.LoadFS(ctx, os.DirFS(dir))
}

// LoadFS walks fsys and parses every JSON or YAML file. Schema names must be
// unique across files. The result is sorted by name.
func (l *Loader) LoadFS(ctx context.Context, fsys fs.FS) ([]validation.Schema, error) {
	if fsys == nil {
		return nil, nil
	}
	seen := make(map[string]string)
	var out []validation.Schema

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return errors.Wrapf(err, "schema: read %s", path)
		}
		doc, err := NewDocument(SourceFromFS(path), data)
		if err != nil {
			return err
		}
		schemas, err := l.Parse(ctx, doc)
		if err != nil {
			return err
		}
		for _, schema := range schemas {
			if previous, exists := seen[schema.Name]; exists {
				return errors.Newf("schema: duplicate schema %q (files %s and %s)", schema.Name, previous, path)
			}
			seen[schema.Name] = path
			out = append(out, schema)
		}
		l.logger.Debug("loaded schema file", zap.String("path", path), zap.Int("schemas", len(schemas)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
