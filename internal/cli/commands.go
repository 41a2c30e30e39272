package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formguard/pkg/prompt"
	"github.com/goliatone/go-formguard/pkg/report"
	"github.com/goliatone/go-formguard/pkg/sanitize"
	"github.com/goliatone/go-formguard/pkg/validation"
)

// uploadHeadBytes is how much of a file is read for content sniffing.
const uploadHeadBytes = 3072

func (a *app) validateCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "validate <schema> [file]",
		Short: "Validate a JSON object against a schema",
		Long:  "Reads a JSON object from file, or stdin when file is omitted or '-', and validates it against the named schema.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readInput(args[1:])
			if err != nil {
				return err
			}
			var data map[string]any
			if err := json.Unmarshal(raw, &data); err != nil {
				return errors.WithHint(errors.Wrap(err, "validate: decode input"), "input must be a JSON object")
			}
			result := a.validator.ValidateWithSchema(data, args[0])
			if err := a.writeReport(format, result); err != nil {
				return err
			}
			if !result.Valid {
				return ErrInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, text, html)")
	return cmd
}

func (a *app) sanitizeCommand() *cobra.Command {
	var context string
	cmd := &cobra.Command{
		Use:   "sanitize [input]",
		Short: "Sanitize a value for an output context",
		Long:  "Sanitizes input, or stdin when input is omitted, for the general, html, sql, url or filename context.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := sanitize.ParseContext(context)
			if err != nil {
				return errors.WithHint(
					errors.Wrapf(err, "sanitize: context %q", context),
					"use one of general, html, sql, url, filename",
				)
			}
			var input string
			if len(args) == 1 {
				input = args[0]
			} else {
				raw, err := io.ReadAll(a.io.In)
				if err != nil {
					return errors.Wrap(err, "sanitize: read stdin")
				}
				input = strings.TrimRight(string(raw), "\r\n")
			}
			_, err = fmt.Fprintln(a.io.Out, a.validator.SanitizeInput(input, ctx))
			return err
		},
	}
	cmd.Flags().StringVarP(&context, "context", "c", string(sanitize.General), "sanitization context")
	return cmd
}

func (a *app) jsonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "json [file]",
		Short: "Validate and sanitize an arbitrary JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readInput(args)
			if err != nil {
				return err
			}
			result := a.validator.ValidateJSONData(raw)
			if err := a.writeJSON(result); err != nil {
				return err
			}
			if !result.Valid {
				return ErrInvalid
			}
			return nil
		},
	}
}

func (a *app) uploadCommand() *cobra.Command {
	var (
		contentType string
		scan        bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Check a file against the upload policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := describeFile(args[0], contentType)
			if err != nil {
				return err
			}
			opts := a.cfg.UploadOptions()
			opts.ScanForMalware = scan
			result := a.validator.ValidateFileUploadContext(cmd.Context(), info, &opts)
			if err := a.writeJSON(result); err != nil {
				return err
			}
			if !result.Valid {
				return ErrInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "declared content type (defaults to the extension's type)")
	cmd.Flags().BoolVar(&scan, "scan", false, "require a malware scan")
	return cmd
}

func (a *app) promptCommand() *cobra.Command {
	var (
		format   string
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "prompt <schema>",
		Short: "Fill a schema interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := a.validator.Schemas().Lookup(args[0])
			if err != nil {
				return errors.WithHint(err, "available schemas: "+strings.Join(a.validator.Schemas().Names(), ", "))
			}
			session := prompt.NewSession(
				prompt.WithValidator(a.validator),
				prompt.WithDriver(prompt.NewSurveyDriver(a.io.Err)),
				prompt.WithMaxAttempts(attempts),
			)
			result, err := session.Fill(cmd.Context(), schema)
			if err != nil && !errors.Is(err, prompt.ErrTooManyAttempts) {
				return err
			}
			if werr := a.writeReport(format, result); werr != nil {
				return werr
			}
			if err != nil || !result.Valid {
				return ErrInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (json, text, html)")
	cmd.Flags().IntVar(&attempts, "attempts", prompt.DefaultMaxAttempts, "attempts per field")
	return cmd
}

type schemaSummary struct {
	Name       string   `json:"name"`
	Fields     []string `json:"fields"`
	CrossField []string `json:"crossField,omitempty"`
}

func (a *app) schemasCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the available schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := a.validator.Schemas()
			summaries := make([]schemaSummary, 0, len(catalog.Names()))
			for _, name := range catalog.Names() {
				s, err := catalog.Lookup(name)
				if err != nil {
					return err
				}
				summary := schemaSummary{Name: s.Name, Fields: s.FieldNames()}
				for _, rule := range s.CrossField {
					summary.CrossField = append(summary.CrossField, rule.Kind+"("+strings.Join(rule.Fields, ",")+")")
				}
				summaries = append(summaries, summary)
			}
			if asJSON {
				return a.writeJSON(summaries)
			}
			for _, s := range summaries {
				line := s.Name + ": " + strings.Join(s.Fields, ", ")
				if len(s.CrossField) > 0 {
					line += " [" + strings.Join(s.CrossField, "; ") + "]"
				}
				if _, err := fmt.Fprintln(a.io.Out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(a.io.In)
		return raw, errors.Wrap(err, "read stdin")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", args[0])
	}
	return raw, nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.io.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) writeReport(format string, result validation.BulkResult) error {
	if format == "" || format == "json" {
		return a.writeJSON(result)
	}
	parsed, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	return report.New().Render(a.io.Out, parsed, result)
}

func describeFile(path, declared string) (validation.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return validation.FileInfo{}, errors.Wrapf(err, "upload: open %s", path)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return validation.FileInfo{}, errors.Wrapf(err, "upload: stat %s", path)
	}
	head := make([]byte, uploadHeadBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return validation.FileInfo{}, errors.Wrapf(err, "upload: read %s", path)
	}
	if declared == "" {
		declared = mime.TypeByExtension(filepath.Ext(path))
	}
	return validation.FileInfo{
		Name:        filepath.Base(path),
		Size:        stat.Size(),
		ContentType: declared,
		Head:        head[:n],
	}, nil
}
