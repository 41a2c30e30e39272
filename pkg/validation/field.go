package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/sanitize"
)

const logValueLimit = 100

var errUncoercible = errors.New("validation: value cannot be coerced to string")

// ValidateField checks value against cfg. Results are memoised by field name,
// value and config; suspicious input is logged on every call, cached or not. It never panics for user input: internal failures become
// an invalid, high-risk result.
func (v *Validator) ValidateField(value any, cfg Config, fieldName string) Result {
	result, _ := v.validateField(value, cfg, fieldName)
	return result
}

// validateField reports ok=false when the result is the generic internal
// failure.
func (v *Validator) validateField(value any, cfg Config, fieldName string) (Result, bool) {
	key, cacheable := v.cacheKey(value, cfg, fieldName)
	if cacheable {
		if cached, hit := v.cache.Get(key); hit {
			v.recorder.ObserveField(cached, true)
			if cached.RiskLevel >= risk.Medium {
				v.logSuspiciousInput(fieldName, value, cached)
			}
			return cached.Clone(), true
		}
	}

	result, err := v.evaluate(value, cfg, fieldName)
	if err != nil {
		v.logger.Error("field validation failed",
			zap.String("field", fieldName),
			zap.Stringer("rule", cfg.Rule),
			zap.Error(err),
		)
		result = failure(GenericFailureMessage, risk.High)
		v.recorder.ObserveField(result, false)
		return result, false
	}

	if cacheable {
		v.cache.Add(key, result.Clone())
	}
	v.recorder.ObserveField(result, false)
	if result.RiskLevel >= risk.Medium {
		v.logSuspiciousInput(fieldName, value, result)
	}
	return result, true
}

func (v *Validator) evaluate(value any, cfg Config, fieldName string) (result Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Newf("validation: recovered panic: %v", recovered)
		}
	}()

	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	str, err := coerce(value)
	if err != nil {
		return Result{}, err
	}
	label := displayName(fieldName)

	if isBlank(value, str) {
		if cfg.Required {
			return Result{
				Valid:     false,
				Errors:    []string{messageFor(cfg, "%s is required", label)},
				RiskLevel: risk.Low,
			}, nil
		}
		return Result{Valid: true, Value: str, RiskLevel: risk.Low}, nil
	}

	var messages []string
	length := utf8.RuneCountInString(str)
	if cfg.MinLength > 0 && length < cfg.MinLength {
		messages = append(messages, messageFor(cfg, "%s must be at least %d characters", label, cfg.MinLength))
	}
	if cfg.MaxLength > 0 && length > cfg.MaxLength {
		messages = append(messages, messageFor(cfg, "%s must be at most %d characters", label, cfg.MaxLength))
	}
	if cfg.Pattern != nil && !cfg.Pattern.MatchString(str) {
		messages = append(messages, messageFor(cfg, "%s format is invalid", label))
	}
	if ok, format, err := v.checkFormat(cfg.Rule, str); err != nil {
		return Result{}, err
	} else if !ok {
		messages = append(messages, messageFor(cfg, format, label))
	}

	if len(messages) == 0 {
		custom, err := v.customFor(cfg)
		if err != nil {
			return Result{}, err
		}
		if custom != nil && !custom(str) {
			messages = append(messages, messageFor(cfg, "%s is invalid", label))
		}
	}

	threats := v.matcher.Detect(str)
	level := risk.ForThreats(threats)
	if v.rejectRisk != nil && len(threats) > 0 && level >= *v.rejectRisk {
		messages = append(messages, fmt.Sprintf("%s contains potentially malicious content", label))
	}

	cleaned := str
	if cfg.Sanitize {
		if cfg.Rule == RuleHTML {
			cleaned = sanitize.HTMLFragment(str, cfg.AllowHTML)
		} else {
			cleaned = sanitize.Text(str)
		}
	}

	messages = normalizeMessages(messages)
	return Result{
		Valid:     len(messages) == 0,
		Errors:    messages,
		Value:     cleaned,
		RiskLevel: level,
		Threats:   threats,
	}, nil
}

func (v *Validator) customFor(cfg Config) (CustomFunc, error) {
	if cfg.Custom != nil {
		return cfg.Custom, nil
	}
	name := strings.TrimSpace(cfg.CustomName)
	if name == "" {
		return nil, nil
	}
	fn, ok := v.registry.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCustom, "validation: %q", name)
	}
	return fn, nil
}

func (v *Validator) cacheKey(value any, cfg Config, fieldName string) (uint64, bool) {
	if !cfg.cacheable() {
		return 0, false
	}
	str, err := coerce(value)
	if err != nil {
		return 0, false
	}
	digest := xxhash.New()
	_, _ = digest.WriteString(fieldName)
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(fmt.Sprintf("%T", value))
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(str)
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(cfg.fingerprint())
	return digest.Sum64(), true
}

func (v *Validator) logSuspiciousInput(fieldName string, value any, result Result) {
	str, _ := coerce(value)
	v.logger.Warn("suspicious input detected",
		zap.String("field", fieldName),
		zap.Stringer("risk", result.RiskLevel),
		zap.Any("threats", result.Threats),
		zap.String("value", truncate(str, logValueLimit)),
	)
}

// coerce renders scalar values as strings. Composite values are rejected.
func coerce(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", errors.Wrapf(errUncoercible, "type %T", value)
	}
}

func isBlank(value any, str string) bool {
	if value == nil {
		return true
	}
	return strings.TrimSpace(str) == ""
}

func messageFor(cfg Config, format string, args ...any) string {
	if msg := strings.TrimSpace(cfg.Message); msg != "" {
		return msg
	}
	return fmt.Sprintf(format, args...)
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// displayName turns "confirmPassword" into "Confirm password".
func displayName(field string) string {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return "Field"
	}
	spaced := camelBoundary.ReplaceAllString(trimmed, "$1 $2")
	spaced = strings.NewReplacer("_", " ", "-", " ").Replace(spaced)
	spaced = strings.ToLower(spaced)
	r, size := utf8.DecodeRuneInString(spaced)
	return strings.ToUpper(string(r)) + spaced[size:]
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
