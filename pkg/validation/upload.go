package validation

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/sanitize"
)

// DefaultMaxUploadSize caps uploads when UploadOptions.MaxSize is zero.
const DefaultMaxUploadSize int64 = 5 << 20

// FileInfo describes an upload. Head is an optional sample of the leading
// bytes used to sniff the real content type.
type FileInfo struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"type"`
	Head        []byte `json:"-"`
}

// UploadOptions constrains accepted uploads.
type UploadOptions struct {
	MaxSize           int64    `json:"maxSize"`
	AllowedTypes      []string `json:"allowedTypes"`
	AllowedExtensions []string `json:"allowedExtensions"`
	ScanForMalware    bool     `json:"scanForMalware"`
}

// DefaultUploadOptions accepts common images and PDF documents up to 5MB.
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{
		MaxSize:           DefaultMaxUploadSize,
		AllowedTypes:      []string{"image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf"},
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf"},
	}
}

var executableExtensions = map[string]struct{}{
	".exe": {}, ".bat": {}, ".cmd": {}, ".com": {}, ".scr": {}, ".pif": {},
	".js": {}, ".vbs": {}, ".ps1": {}, ".sh": {}, ".php": {}, ".jar": {},
	".msi": {}, ".dll": {}, ".hta": {},
}

// ValidateFileUpload checks upload metadata against opts. A nil opts uses
// DefaultUploadOptions.
func (v *Validator) ValidateFileUpload(file FileInfo, opts *UploadOptions) Result {
	return v.ValidateFileUploadContext(context.Background(), file, opts)
}

// ValidateFileUploadContext is ValidateFileUpload with a context for the
// malware scanner.
func (v *Validator) ValidateFileUploadContext(ctx context.Context, file FileInfo, opts *UploadOptions) Result {
	options := DefaultUploadOptions()
	if opts != nil {
		options = *opts
		if options.MaxSize <= 0 {
			options.MaxSize = DefaultMaxUploadSize
		}
	}

	var messages []string
	name := strings.TrimSpace(file.Name)
	if name == "" {
		messages = append(messages, "File name is required")
	}
	if file.Size <= 0 {
		messages = append(messages, "File is empty")
	}
	if file.Size > options.MaxSize {
		messages = append(messages, fmt.Sprintf("File size exceeds maximum of %d bytes", options.MaxSize))
	}

	declared := baseMediaType(file.ContentType)
	if len(options.AllowedTypes) > 0 && !containsFold(options.AllowedTypes, declared) {
		messages = append(messages, fmt.Sprintf("File type %q is not allowed", file.ContentType))
	}
	ext := strings.ToLower(path.Ext(name))
	if len(options.AllowedExtensions) > 0 && !containsFold(options.AllowedExtensions, ext) {
		messages = append(messages, fmt.Sprintf("File extension %q is not allowed", ext))
	}

	level := risk.Low
	if strings.ContainsRune(name, 0) {
		messages = append(messages, "File name contains invalid characters")
		level = risk.Max(level, risk.High)
	}
	if strings.ContainsAny(name, `/\`) {
		messages = append(messages, "File name must not contain path separators")
		level = risk.Max(level, risk.Medium)
	}
	if hasHiddenExecutable(name) {
		messages = append(messages, "File name contains a disguised executable extension")
		level = risk.Max(level, risk.High)
	}

	threats := v.matcher.Detect(name)
	level = risk.Max(level, risk.ForThreats(threats))

	if len(file.Head) > 0 && declared != "" && !sniffMatches(file.Head, declared) {
		messages = append(messages, "File content does not match its declared type")
		level = risk.Max(level, risk.High)
	}

	if options.ScanForMalware {
		switch {
		case v.scanner == nil:
			messages = append(messages, "Malware scan requested but no scanner is configured")
		case len(messages) == 0:
			report, err := v.scanner.Scan(ctx, file)
			if err != nil {
				v.logger.Error("malware scan failed", zap.String("file", name), zap.Error(err))
				messages = append(messages, "Malware scan failed")
			} else if !report.Clean {
				messages = append(messages, "File failed malware scan")
				level = risk.Critical
				v.logger.Warn("malware detected",
					zap.String("file", name),
					zap.String("signature", report.Signature),
				)
			}
		}
	}

	messages = normalizeMessages(messages)
	result := Result{
		Valid:     len(messages) == 0,
		Errors:    messages,
		Value:     sanitize.FileName(name),
		RiskLevel: level,
		Threats:   threats,
	}
	v.recorder.ObserveUpload(result)
	if result.RiskLevel >= risk.Medium {
		v.logSuspiciousInput("file", name, result)
	}
	return result
}

func baseMediaType(contentType string) string {
	trimmed := strings.TrimSpace(contentType)
	if trimmed == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(trimmed); err == nil {
		return parsed
	}
	return strings.ToLower(trimmed)
}

// sniffMatches reports whether the sniffed type equals declared or descends
// from it. Inconclusive sniffs are accepted.
func sniffMatches(head []byte, declared string) bool {
	detected := mimetype.Detect(head)
	if detected.Is("application/octet-stream") {
		return true
	}
	if detected.Is("text/plain") && strings.HasPrefix(declared, "text/") {
		return true
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return true
		}
	}
	return false
}

// hasHiddenExecutable flags names like "photo.jpg.exe" or "run.exe.png" where
// an executable extension sits next to another extension.
func hasHiddenExecutable(name string) bool {
	parts := strings.Split(strings.ToLower(path.Base(strings.ReplaceAll(name, `\`, "/"))), ".")
	if len(parts) < 3 {
		return false
	}
	for _, part := range parts[1:] {
		if _, ok := executableExtensions["."+strings.TrimSpace(part)]; ok {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) {
			return true
		}
	}
	return false
}
