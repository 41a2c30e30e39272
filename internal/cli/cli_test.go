package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formguard/internal/cli"
	"github.com/goliatone/go-formguard/pkg/validation"
)

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := cli.Execute(context.Background(), cli.IO{
		In:  strings.NewReader(stdin),
		Out: &out,
		Err: &errOut,
	}, append([]string{"--log-level=error"}, args...))
	return code, out.String(), errOut.String()
}

func TestSanitize(t *testing.T) {
	code, out, _ := run(t, "", "sanitize", "<script>alert(1)</script>Hello")
	require.Equal(t, 0, code)
	require.Equal(t, "Hello\n", out)

	code, out, _ = run(t, "O'Brien\n", "sanitize", "--context", "sql")
	require.Equal(t, 0, code)
	require.Equal(t, "O''Brien\n", out)

	code, _, errOut := run(t, "", "sanitize", "--context", "shell", "x")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "Hint:")
}

func TestValidate_FromStdin(t *testing.T) {
	code, out, _ := run(t, `{"email":"not-an-email","password":"short"}`, "validate", "login")
	require.Equal(t, 1, code)

	var result validation.BulkResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 2)

	code, out, _ = run(t, `{"email":"coach@club.example.com","password":"long-enough"}`, "validate", "login", "--format", "text")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Status: valid")
}

func TestValidate_LoadedSchemas(t *testing.T) {
	input := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"email":"coach@club.example.com","jerseyNumber":"120"}`), 0o600))

	code, out, _ := run(t, "", "--schemas", "testdata", "validate", "tryout", input)
	require.Equal(t, 1, code)
	require.Contains(t, out, "Jersey number must be between 1 and 99")

	code, out, _ = run(t, "", "--schemas", "testdata", "schemas")
	require.Equal(t, 0, code)
	require.Contains(t, out, "tryout: email, jerseyNumber")
	require.Contains(t, out, "registration: email, password, confirmPassword, name [match(password,confirmPassword)]")
}

func TestValidate_Errors(t *testing.T) {
	code, _, errOut := run(t, "[1,2]", "validate", "login")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "input must be a JSON object")

	code, _, errOut = run(t, "", "--schemas", "does-not-exist", "schemas")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "Error:")
}

func TestJSON(t *testing.T) {
	code, out, _ := run(t, `{"bio":"<script>x</script>Fast"}`, "json")
	require.Equal(t, 0, code)
	require.JSONEq(t, `{"valid":true,"sanitized":{"bio":"Fast"},"riskLevel":"high","detectedThreats":["xss"]}`, out)

	code, _, _ = run(t, `{"bio":`, "json")
	require.Equal(t, 1, code)
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "crest.png")
	require.NoError(t, os.WriteFile(png, append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...), 0o600))

	code, out, _ := run(t, "", "upload", png)
	require.Equal(t, 0, code, out)

	fake := filepath.Join(dir, "crest.jpg")
	require.NoError(t, os.WriteFile(fake, []byte("MZ\x90\x00 not really a jpeg"), 0o600))
	code, out, _ = run(t, "", "upload", fake)
	require.Equal(t, 1, code)
	require.Contains(t, out, `"valid": false`)

	code, out, _ = run(t, "", "upload", "--scan", png)
	require.Equal(t, 1, code)
	require.Contains(t, out, "Malware scan requested but no scanner is configured")
}

func TestRejectRiskFlag(t *testing.T) {
	code, out, _ := run(t, `{"email":"coach@club.example.com","password":"' OR 1=1 --"}`, "--reject-risk", "high", "validate", "login")
	require.Equal(t, 1, code)
	require.Contains(t, out, "Password contains potentially malicious content")
}
