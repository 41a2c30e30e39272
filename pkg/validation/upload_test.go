package validation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formguard/pkg/risk"
	"github.com/goliatone/go-formguard/pkg/threat"
	"github.com/goliatone/go-formguard/pkg/validation"
)

var pngHead = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type stubScanner struct {
	report validation.ScanReport
	err    error
	calls  int
}

func (s *stubScanner) Scan(_ context.Context, _ validation.FileInfo) (validation.ScanReport, error) {
	s.calls++
	return s.report, s.err
}

func TestValidateFileUpload_Accepts(t *testing.T) {
	v := validation.New()
	got := v.ValidateFileUpload(validation.FileInfo{
		Name:        "squad photo.png",
		Size:        1024,
		ContentType: "image/png",
		Head:        pngHead,
	}, nil)
	want := validation.Result{Valid: true, Value: "squad_photo.png", RiskLevel: risk.Low}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFileUpload_Rejections(t *testing.T) {
	v := validation.New()
	cases := []struct {
		name      string
		file      validation.FileInfo
		wantError string
		wantRisk  risk.Level
	}{
		{
			name:      "too large",
			file:      validation.FileInfo{Name: "a.png", Size: 6 << 20, ContentType: "image/png"},
			wantError: "File size exceeds maximum of 5242880 bytes",
			wantRisk:  risk.Low,
		},
		{
			name:      "empty",
			file:      validation.FileInfo{Name: "a.png", ContentType: "image/png"},
			wantError: "File is empty",
			wantRisk:  risk.Low,
		},
		{
			name:      "type not allowed",
			file:      validation.FileInfo{Name: "a.png", Size: 10, ContentType: "text/html"},
			wantError: `File type "text/html" is not allowed`,
			wantRisk:  risk.Low,
		},
		{
			name:      "disguised executable",
			file:      validation.FileInfo{Name: "photo.jpg.exe", Size: 10, ContentType: "image/jpeg"},
			wantError: "File name contains a disguised executable extension",
			wantRisk:  risk.High,
		},
		{
			name:      "null byte",
			file:      validation.FileInfo{Name: "photo.php\x00.png", Size: 10, ContentType: "image/png"},
			wantError: "File name contains invalid characters",
			wantRisk:  risk.High,
		},
		{
			name:      "content mismatch",
			file:      validation.FileInfo{Name: "photo.png", Size: 10, ContentType: "image/png", Head: []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")},
			wantError: "File content does not match its declared type",
			wantRisk:  risk.High,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := v.ValidateFileUpload(tc.file, nil)
			if got.Valid {
				t.Fatalf("expected upload to be rejected")
			}
			found := false
			for _, msg := range got.Errors {
				if msg == tc.wantError {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error %q, got %v", tc.wantError, got.Errors)
			}
			if got.RiskLevel != tc.wantRisk {
				t.Fatalf("expected risk %s, got %s", tc.wantRisk, got.RiskLevel)
			}
		})
	}
}

func TestValidateFileUpload_TraversalName(t *testing.T) {
	v := validation.New()
	got := v.ValidateFileUpload(validation.FileInfo{Name: "../../etc/passwd.png", Size: 10, ContentType: "image/png"}, nil)
	if got.Valid {
		t.Fatalf("expected traversal name to be rejected")
	}
	if diff := cmp.Diff([]threat.Category{threat.PathTraversal}, got.Threats); diff != "" {
		t.Fatalf("threats mismatch (-want +got):\n%s", diff)
	}
	if got.Value != "_.._etc_passwd.png" {
		t.Fatalf("unexpected sanitized name %q", got.Value)
	}
}

func TestValidateFileUpload_CustomOptions(t *testing.T) {
	v := validation.New()
	opts := &validation.UploadOptions{
		AllowedTypes:      []string{"text/csv"},
		AllowedExtensions: []string{".csv"},
	}
	got := v.ValidateFileUpload(validation.FileInfo{
		Name:        "squad.csv",
		Size:        64,
		ContentType: "text/csv; charset=utf-8",
		Head:        []byte("name,position\nLeo,ST\n"),
	}, opts)
	if !got.Valid {
		t.Fatalf("expected csv upload to pass, got %v", got.Errors)
	}
}

func TestValidateFileUpload_MalwareScan(t *testing.T) {
	file := validation.FileInfo{Name: "a.png", Size: 10, ContentType: "image/png", Head: pngHead}
	opts := validation.DefaultUploadOptions()
	opts.ScanForMalware = true

	unconfigured := validation.New().ValidateFileUpload(file, &opts)
	if diff := cmp.Diff([]string{"Malware scan requested but no scanner is configured"}, unconfigured.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	clean := &stubScanner{report: validation.ScanReport{Clean: true}}
	if got := validation.New(validation.WithScanner(clean)).ValidateFileUpload(file, &opts); !got.Valid {
		t.Fatalf("expected clean scan to pass, got %v", got.Errors)
	}
	if clean.calls != 1 {
		t.Fatalf("expected one scan, got %d", clean.calls)
	}

	infected := &stubScanner{report: validation.ScanReport{Clean: false, Signature: "EICAR"}}
	got := validation.New(validation.WithScanner(infected)).ValidateFileUpload(file, &opts)
	if got.Valid || got.RiskLevel != risk.Critical {
		t.Fatalf("expected infected file to be critical, got %+v", got)
	}

	broken := &stubScanner{err: errors.New("daemon unavailable")}
	got = validation.New(validation.WithScanner(broken)).ValidateFileUpload(file, &opts)
	if diff := cmp.Diff([]string{"Malware scan failed"}, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}
