// Package cli implements the formguard command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/internal/config"
	"github.com/goliatone/go-formguard/internal/logging"
	"github.com/goliatone/go-formguard/pkg/metrics"
	"github.com/goliatone/go-formguard/pkg/schema"
	"github.com/goliatone/go-formguard/pkg/validation"
)

// ErrInvalid is returned when the checked input failed validation. main maps
// it to exit status 1 without printing it.
var ErrInvalid = errors.New("formguard: input is invalid")

// IO bundles the streams commands read from and write to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdIO uses the process streams.
func StdIO() IO {
	return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

type app struct {
	io        IO
	cfg       config.Config
	logger    *zap.Logger
	validator *validation.Validator
	metrics   *metrics.Collector
}

// NewRootCommand assembles every subcommand.
func NewRootCommand(streams IO) *cobra.Command {
	a := &app{io: streams}
	var configPath string

	root := &cobra.Command{
		Use:           "formguard",
		Short:         "Validate, sanitize and threat-scan form input",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), configPath, cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Int("cache-size", 0, "validation cache capacity")
	flags.String("reject-risk", "", "reject inputs whose threats reach this risk level")
	flags.String("schemas", "", "directory of schema files to load")
	flags.String("openapi", "", "OpenAPI document to derive schemas from")

	root.AddCommand(
		a.validateCommand(),
		a.sanitizeCommand(),
		a.jsonCommand(),
		a.uploadCommand(),
		a.promptCommand(),
		a.schemasCommand(),
		a.serveCommand(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, streams IO, args []string) int {
	root := NewRootCommand(streams)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalid):
		return 1
	default:
		fmt.Fprintf(streams.Err, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(streams.Err, "Hint: %s\n", hint)
		}
		return 2
	}
}

func (a *app) setup(ctx context.Context, configPath string, cmd *cobra.Command) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding, Output: a.io.Err})
	if err != nil {
		return err
	}

	registry := validation.NewRegistry()
	loader := schema.NewLoader(schema.WithRegistry(registry), schema.WithLogger(logger))
	var loaded []validation.Schema
	if cfg.Schemas.Dir != "" {
		schemas, err := loader.LoadDir(ctx, cfg.Schemas.Dir)
		if err != nil {
			return err
		}
		loaded = append(loaded, schemas...)
	}
	if cfg.Schemas.OpenAPI != "" {
		schemas, err := loader.LoadFile(ctx, cfg.Schemas.OpenAPI)
		if err != nil {
			return err
		}
		loaded = append(loaded, schemas...)
	}

	collector := metrics.New(metrics.Config{})
	options := []validation.Option{
		validation.WithLogger(logger),
		validation.WithCacheSize(cfg.Cache.Size),
		validation.WithRegistry(registry),
		validation.WithRecorder(collector),
		validation.WithSchemas(loaded...),
	}
	if level, ok, _ := cfg.RejectRisk(); ok {
		options = append(options, validation.WithRejectRisk(level))
	}

	a.cfg = cfg
	a.logger = logger
	a.metrics = collector
	a.validator = validation.New(options...)
	logger.Debug("validator ready",
		zap.Int("schemas", len(a.validator.Schemas().Names())),
		zap.Int("cache_size", cfg.Cache.Size),
	)
	return nil
}
