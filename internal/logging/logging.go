// Package logging builds the zap logger used by the formguard commands.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects level, encoding and destination.
type Options struct {
	Level    string
	Encoding string
	Output   io.Writer
}

// New returns a logger writing JSON (or console) entries at Level to Output,
// which defaults to stderr.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(opts.Encoding)) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, errors.WithHint(
			errors.Newf("logging: unknown encoding %q", opts.Encoding),
			"use json or console",
		)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ParseLevel accepts zap level names case-insensitively. Empty means info.
func ParseLevel(raw string) (zapcore.Level, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(trimmed)
	if err != nil {
		return zapcore.InfoLevel, errors.WithHint(
			errors.Wrapf(err, "logging: level %q", raw),
			"use debug, info, warn or error",
		)
	}
	return level, nil
}
