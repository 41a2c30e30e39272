package validation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Built-in custom validator names.
const (
	CustomJerseyNumber   = "jerseyNumber"
	CustomPlayerPosition = "playerPosition"
	CustomFormation      = "formation"
)

// PlayerPositions lists the accepted playing positions, abbreviated and long
// form.
var PlayerPositions = []string{
	"GK", "RB", "CB", "LB", "RWB", "LWB", "CDM", "CM", "CAM", "RM", "LM", "RW", "LW", "CF", "ST",
	"Goalkeeper", "Defender", "Midfielder", "Forward",
}

var formationPattern = regexp.MustCompile(`^[1-9](-[1-9]){2,4}$`)

// Registry stores named custom validators so schemas loaded from files can
// reference business rules. Names are case-sensitive.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]CustomFunc
}

// NewRegistry constructs a registry with the built-in rules registered.
func NewRegistry() *Registry {
	reg := &Registry{funcs: make(map[string]CustomFunc)}
	reg.registerBuiltins()
	return reg
}

// Register adds fn under name. Duplicate names return an error.
func (r *Registry) Register(name string, fn CustomFunc) error {
	if fn == nil {
		return errors.New("validation: custom validator func is required")
	}
	key := strings.TrimSpace(name)
	if key == "" {
		return errors.New("validation: custom validator name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[key]; exists {
		return errors.Newf("validation: custom validator %q already registered", key)
	}
	r.funcs[key] = fn
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(name string, fn CustomFunc) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the func registered under name.
func (r *Registry) Lookup(name string) (CustomFunc, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[strings.TrimSpace(name)]
	return fn, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) registerBuiltins() {
	r.MustRegister(CustomJerseyNumber, IntRange(1, 99))
	r.MustRegister(CustomPlayerPosition, OneOf(PlayerPositions...))
	r.MustRegister(CustomFormation, validFormation)
}

// IntRange accepts whole numbers in [min, max].
func IntRange(min, max int) CustomFunc {
	return func(value string) bool {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		return err == nil && n >= min && n <= max
	}
}

// NumberRange accepts decimal numbers in [min, max].
func NumberRange(min, max float64) CustomFunc {
	return func(value string) bool {
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return err == nil && n >= min && n <= max
	}
}

// OneOf accepts any of options, compared case-insensitively.
func OneOf(options ...string) CustomFunc {
	allowed := make(map[string]struct{}, len(options))
	for _, option := range options {
		allowed[strings.ToLower(strings.TrimSpace(option))] = struct{}{}
	}
	return func(value string) bool {
		_, ok := allowed[strings.ToLower(strings.TrimSpace(value))]
		return ok
	}
}

// validFormation accepts outfield shapes such as 4-4-2 or 4-2-3-1 that add up
// to ten players.
func validFormation(value string) bool {
	trimmed := strings.TrimSpace(value)
	if !formationPattern.MatchString(trimmed) {
		return false
	}
	total := 0
	for _, part := range strings.Split(trimmed, "-") {
		n, _ := strconv.Atoi(part)
		total += n
	}
	return total == 10
}
