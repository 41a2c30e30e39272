package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/validation"
)

const extensionKey = "x-formguard"

var requestMediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

type operationExtension struct {
	Name       string           `json:"name"`
	CrossField []crossFieldFile `json:"crossField"`
	Skip       bool             `json:"skip"`
}

// FromOpenAPI derives one schema per operation whose request body is an
// object. Schemas are named after the operationId unless the operation's
// x-formguard extension sets a name.
func (l *Loader) FromOpenAPI(ctx context.Context, doc Document) ([]validation.Schema, error) {
	loader := &openapi3.Loader{Context: ctx}
	api, err := loader.LoadFromData(doc.Raw())
	if err != nil {
		return nil, errors.Wrapf(err, "schema: load openapi %s", doc.Location())
	}
	if err := api.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, errors.Wrapf(err, "schema: validate openapi %s", doc.Location())
	}
	if api.Paths == nil || api.Paths.Len() == 0 {
		return nil, errors.Newf("schema: openapi %s does not contain any paths", doc.Location())
	}

	b := builder{registry: l.registry}
	paths := api.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	var out []validation.Schema
	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		operations := item.Operations()
		methods := make([]string, 0, len(operations))
		for method := range operations {
			methods = append(methods, method)
		}
		sort.Strings(methods)

		for _, method := range methods {
			schema, ok, err := b.fromOperation(method, path, operations[method])
			if err != nil {
				return nil, errors.Wrapf(err, "schema: openapi %s", doc.Location())
			}
			if !ok {
				l.logger.Debug("skipping operation without object request body",
					zap.String("method", method), zap.String("path", path))
				continue
			}
			out = append(out, schema)
		}
	}
	if len(out) == 0 {
		return nil, errors.Newf("schema: openapi %s has no operations with object request bodies", doc.Location())
	}
	return out, nil
}

func (b *builder) fromOperation(method, path string, op *openapi3.Operation) (validation.Schema, bool, error) {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return validation.Schema{}, false, nil
	}
	var ext operationExtension
	if err := decodeExtension(op.Extensions, &ext); err != nil {
		return validation.Schema{}, false, err
	}
	if ext.Skip {
		return validation.Schema{}, false, nil
	}

	body := requestSchema(op.RequestBody.Value)
	if body == nil || !body.Type.Is(openapi3.TypeObject) || len(body.Properties) == 0 {
		return validation.Schema{}, false, nil
	}

	name := strings.TrimSpace(ext.Name)
	if name == "" {
		name = strings.TrimSpace(op.OperationID)
	}
	if name == "" {
		name = strings.ToLower(method) + ":" + path
	}

	required := make(map[string]bool, len(body.Required))
	for _, field := range body.Required {
		required[field] = true
	}
	props := make([]string, 0, len(body.Properties))
	for prop := range body.Properties {
		props = append(props, prop)
	}
	sort.Strings(props)

	fields := make([]validation.FieldSpec, 0, len(props))
	for _, prop := range props {
		ref := body.Properties[prop]
		if ref == nil || ref.Value == nil {
			continue
		}
		cfg, ok, err := b.configFromProperty(ref.Value, required[prop])
		if err != nil {
			return validation.Schema{}, false, errors.Wrapf(err, "operation %s property %q", name, prop)
		}
		if !ok {
			continue
		}
		fields = append(fields, validation.Field(prop, cfg))
	}

	crossField := make([]validation.CrossFieldRule, 0, len(ext.CrossField))
	for _, entry := range ext.CrossField {
		rule, err := buildCrossField(entry)
		if err != nil {
			return validation.Schema{}, false, err
		}
		crossField = append(crossField, rule)
	}

	schema, err := validation.NewSchema(name, fields, crossField...)
	if err != nil {
		return validation.Schema{}, false, err
	}
	return schema, true, nil
}

func requestSchema(body *openapi3.RequestBody) *openapi3.Schema {
	for _, mediaType := range requestMediaTypes {
		if mt, ok := body.Content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

// configFromProperty maps a scalar property onto a Config. Objects and arrays
// are skipped.
func (b *builder) configFromProperty(prop *openapi3.Schema, required bool) (validation.Config, bool, error) {
	cfg := validation.Config{Required: required}
	switch {
	case prop.Type.Is(openapi3.TypeString):
		cfg.Rule = ruleForFormat(prop.Format)
		cfg.MinLength = int(prop.MinLength)
		if prop.MaxLength != nil {
			cfg.MaxLength = int(*prop.MaxLength)
		}
		if prop.Pattern != "" {
			compiled, err := regexp.Compile(prop.Pattern)
			if err != nil {
				return validation.Config{}, false, errors.Wrapf(err, "invalid pattern %q", prop.Pattern)
			}
			cfg.Pattern = compiled
		} else if len(prop.Enum) > 0 {
			cfg.Pattern = enumPattern(prop.Enum)
		}
		cfg.Sanitize = cfg.Rule == validation.RuleText || cfg.Rule == validation.RuleHTML
	case prop.Type.Is(openapi3.TypeInteger), prop.Type.Is(openapi3.TypeNumber):
		cfg.Rule = validation.RuleNumeric
		if prop.Min != nil || prop.Max != nil {
			lo, hi := boundsOf(prop)
			cfg.Custom = validation.NumberRange(lo, hi)
			cfg.CustomName = fmt.Sprintf("range(%s,%s)", formatBound(prop.Min), formatBound(prop.Max))
			cfg.Message = rangeMessage(prop)
		}
	case prop.Type.Is(openapi3.TypeBoolean):
		cfg.Rule = validation.RuleText
		cfg.Pattern = regexp.MustCompile(`^(true|false)$`)
	default:
		return validation.Config{}, false, nil
	}

	var ext ruleFile
	if err := decodeExtension(prop.Extensions, &ext); err != nil {
		return validation.Config{}, false, err
	}
	if !ext.empty() {
		override, err := b.buildConfig(ext)
		if err != nil {
			return validation.Config{}, false, err
		}
		cfg = mergeConfig(cfg, override, ext)
	}
	return cfg, true, nil
}

func ruleForFormat(format string) validation.Rule {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "email", "idn-email":
		return validation.RuleEmail
	case "uri", "url", "iri":
		return validation.RuleURL
	case "uuid":
		return validation.RuleUUID
	case "date", "date-time":
		return validation.RuleDate
	case "password":
		return validation.RulePassword
	case "phone", "tel":
		return validation.RulePhone
	case "html":
		return validation.RuleHTML
	default:
		return validation.RuleText
	}
}

func enumPattern(values []any) *regexp.Regexp {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, regexp.QuoteMeta(fmt.Sprint(value)))
	}
	return regexp.MustCompile(`^(?:` + strings.Join(quoted, "|") + `)$`)
}

func boundsOf(prop *openapi3.Schema) (float64, float64) {
	lo, hi := -1e308, 1e308
	if prop.Min != nil {
		lo = *prop.Min
	}
	if prop.Max != nil {
		hi = *prop.Max
	}
	return lo, hi
}

func formatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func rangeMessage(prop *openapi3.Schema) string {
	switch {
	case prop.Min != nil && prop.Max != nil:
		return fmt.Sprintf("Value must be between %s and %s", formatBound(prop.Min), formatBound(prop.Max))
	case prop.Min != nil:
		return fmt.Sprintf("Value must be at least %s", formatBound(prop.Min))
	default:
		return fmt.Sprintf("Value must be at most %s", formatBound(prop.Max))
	}
}

// mergeConfig lays the explicitly set extension fields over the derived
// config.
func mergeConfig(base, override validation.Config, raw ruleFile) validation.Config {
	out := base
	if raw.Rule != "" {
		out.Rule = override.Rule
	}
	if raw.Required {
		out.Required = true
	}
	if raw.MinLength > 0 {
		out.MinLength = override.MinLength
	}
	if raw.MaxLength > 0 {
		out.MaxLength = override.MaxLength
	}
	if override.Pattern != nil {
		out.Pattern = override.Pattern
	}
	if override.CustomName != "" {
		out.Custom = nil
		out.CustomName = override.CustomName
	}
	if raw.Sanitize {
		out.Sanitize = true
	}
	if override.AllowHTML != nil {
		out.AllowHTML = override.AllowHTML
	}
	if override.Message != "" {
		out.Message = override.Message
	}
	return out
}

func decodeExtension(extensions map[string]any, target any) error {
	raw, ok := extensions[extensionKey]
	if !ok || raw == nil {
		return nil
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return errors.Wrapf(err, "encode %s extension", extensionKey)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return errors.Wrapf(err, "decode %s extension", extensionKey)
	}
	return nil
}
