package export

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/profiler/internal/core"
)

type recordingDownloader struct {
	data, filename string
	calls          int
	err            error
}

func (r *recordingDownloader) Download(data, filename string) error {
	r.calls++
	r.data, r.filename = data, filename
	return r.err
}

func TestExport_ConvertsAndNamesFile(t *testing.T) {
	result := core.SucceededResult(`[{"a":1,"b":2},{"a":3,"b":4}]`, "not json", nil, time.Now())

	tests := []struct {
		field    core.Field
		wantData string
		wantName string
	}{
		{core.FieldRules, "a,b\n1,2\n3,4", "rules_generated.csv"},
		{core.FieldValidation, `"not json"`, "validation_results.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.field.Slug, func(t *testing.T) {
			d := &recordingDownloader{}
			require.NoError(t, Exporter{}.Export(result, tt.field, d))
			assert.Equal(t, tt.wantData, d.data)
			assert.Equal(t, tt.wantName, d.filename)
		})
	}
}

func TestExport_NothingToExport(t *testing.T) {
	results := map[string]core.Result{
		"empty":       {},
		"failed":      core.FailedResult(errors.New("boom"), time.Now()),
		"blank field": core.SucceededResult("", "v", nil, time.Now()),
	}

	for name, r := range results {
		t.Run(name, func(t *testing.T) {
			d := &recordingDownloader{}
			err := Exporter{}.Export(r, core.FieldRules, d)
			assert.ErrorIs(t, err, ErrNothingToExport)
			assert.Zero(t, d.calls)
		})
	}
}

func TestExportSlug(t *testing.T) {
	result := core.SucceededResult("r", "v", nil, time.Now())

	d := &recordingDownloader{}
	require.NoError(t, Exporter{}.ExportSlug(result, "validation", d))
	assert.Equal(t, "validation_results.csv", d.filename)

	err := Exporter{}.ExportSlug(result, "secrets", d)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestExport_DownloaderErrorPropagates(t *testing.T) {
	boom := errors.New("disk full")
	d := &recordingDownloader{err: boom}

	err := Exporter{}.Export(core.SucceededResult("r", "", nil, time.Now()), core.FieldRules, d)
	assert.ErrorIs(t, err, boom)
}

func TestHTTPDownloader(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, HTTPDownloader{W: rec}.Download("a,b\n1,2", "rules_generated.csv"))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=rules_generated.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n1,2", rec.Body.String())
}

func TestDirDownloader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var saved string
	d := DirDownloader{Dir: dir, Saved: func(p string) { saved = p }}

	require.NoError(t, d.Download(`"x"`, "validation_results.csv"))

	want := filepath.Join(dir, "validation_results.csv")
	assert.Equal(t, want, saved)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(data))

	// Path components in the name never escape the directory.
	require.NoError(t, d.Download("y", "../escape.csv"))
	_, err = os.Stat(filepath.Join(dir, "escape.csv"))
	assert.NoError(t, err)
}
