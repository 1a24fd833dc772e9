package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv clears variables that would change the loaded configuration.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DATABASE_URL", "DB_URL", "ENDPOINT_URL", "LOG_LEVEL", "LOG_FORMAT", "UPLOAD_MAX_FILE_SIZE"} {
		t.Setenv(name, "")
	}
	t.Chdir(t.TempDir())
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConvert_Stdin(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, `[{"rule":"amount > 0","severity":"high"}]`, "convert")

	require.NoError(t, err)
	assert.Equal(t, "rule,severity\namount > 0,high\n", out)
}

func TestConvert_File(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, t.TempDir(), "resp.txt", "first\nsecond")

	out, err := run(t, "", "convert", path)

	require.NoError(t, err)
	assert.Equal(t, "\"first\"\n\"second\"\n", out)
}

func TestConvert_MissingFile(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, "", "convert", filepath.Join(t.TempDir(), "nope.txt"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input")
}

func TestUpload(t *testing.T) {
	isolateEnv(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rules_generated":"[{\"rule\":\"id is unique\"}]","validation_response":"all rows pass"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	pdf := writeFile(t, dir, "regs.pdf", "%PDF-1.4")
	csv := writeFile(t, dir, "data.csv", "id\n1\n")
	outDir := filepath.Join(dir, "results")

	out, err := run(t, "", "upload", "--endpoint", srv.URL, "--pdf", pdf, "--csv", csv, "--out", outDir, "--no-progress")

	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.Contains(t, out, "Generated Rules:\n[{\"rule\":\"id is unique\"}]")
	assert.Contains(t, out, "Validation Response:\nall rows pass")
	assert.Contains(t, out, "Saved "+filepath.Join(outDir, "rules_generated.csv"))

	data, err := os.ReadFile(filepath.Join(outDir, "rules_generated.csv"))
	require.NoError(t, err)
	assert.Equal(t, "rule\nid is unique", string(data))

	data, err = os.ReadFile(filepath.Join(outDir, "validation_results.csv"))
	require.NoError(t, err)
	assert.Equal(t, `"all rows pass"`, string(data))
}

func TestUpload_ServerError(t *testing.T) {
	isolateEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	pdf := writeFile(t, dir, "regs.pdf", "%PDF-1.4")
	csv := writeFile(t, dir, "data.csv", "id\n1\n")

	_, err := run(t, "", "upload", "--endpoint", srv.URL, "--pdf", pdf, "--csv", csv, "--no-progress")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Request failed with status code 500")
}

func TestUpload_RequiresBothFiles(t *testing.T) {
	isolateEnv(t)
	pdf := writeFile(t, t.TempDir(), "regs.pdf", "%PDF-1.4")

	_, err := run(t, "", "upload", "--pdf", pdf)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
}

func TestUpload_FileTooLarge(t *testing.T) {
	isolateEnv(t)
	t.Setenv("UPLOAD_MAX_FILE_SIZE", "4")
	dir := t.TempDir()
	pdf := writeFile(t, dir, "regs.pdf", "%PDF-1.4")
	csv := writeFile(t, dir, "data.csv", "id\n1\n")

	_, err := run(t, "", "upload", "--pdf", pdf, "--csv", csv)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
}

func TestInvalidEndpointFlag(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, "", "convert", "--endpoint", "ftp://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENDPOINT_URL")
}

func TestHistory_RequiresDatabase(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, "", "history")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
