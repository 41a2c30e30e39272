package risk

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-formguard/pkg/threat"
)

// Level is an ordered severity: Low < Medium < High < Critical.
type Level uint8

const (
	Low Level = iota
	Medium
	High
	Critical
)

var levelNames = [...]string{"low", "medium", "high", "critical"}

// Levels lists every level in ascending order.
func Levels() []Level {
	return []Level{Low, Medium, High, Critical}
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// MarshalText encodes the level by name so JSON, YAML and map keys stay
// readable.
func (l Level) MarshalText() ([]byte, error) {
	if int(l) >= len(levelNames) {
		return nil, errors.Newf("risk: invalid level %d", uint8(l))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel resolves a case-insensitive level name.
func ParseLevel(raw string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for idx, candidate := range levelNames {
		if candidate == name {
			return Level(idx), nil
		}
	}
	return Low, errors.WithHint(
		errors.Newf("risk: unknown level %q", raw),
		"use one of low, medium, high, critical",
	)
}

// Max returns the higher of two levels.
func Max(a, b Level) Level {
	if b > a {
		return b
	}
	return a
}

var severity = map[threat.Category]Level{
	threat.SQLInjection:     Critical,
	threat.CommandInjection: Critical,
	threat.XSS:              High,
	threat.LDAPInjection:    High,
	threat.NoSQLInjection:   High,
	threat.PathTraversal:    Medium,
}

// ForCategory maps a threat family to its fixed severity. Unknown categories
// are treated as Medium.
func ForCategory(category threat.Category) Level {
	if level, ok := severity[category]; ok {
		return level
	}
	return Medium
}

// ForThreats escalates to the highest severity across the supplied
// categories. No threats means Low.
func ForThreats(categories []threat.Category) Level {
	level := Low
	for _, category := range categories {
		level = Max(level, ForCategory(category))
		if level == Critical {
			break
		}
	}
	return level
}
