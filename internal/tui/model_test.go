package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/endpoint"
	"github.com/JonMunkholm/profiler/internal/export"
	"github.com/JonMunkholm/profiler/internal/session"
)

type stubUploader struct {
	calls atomic.Int32
	resp  *endpoint.Response
	err   error
}

func (u *stubUploader) Upload(ctx context.Context, pdf, csv endpoint.File) (*endpoint.Response, error) {
	u.calls.Add(1)
	return u.resp, u.err
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, up endpoint.Uploader) (*Model, string) {
	t.Helper()
	dir := t.TempDir()
	sess := session.New("", &session.Deps{Uploader: up})
	m := New(context.Background(), Options{
		Session:     sess,
		Downloader:  export.DirDownloader{Dir: dir},
		MaxFileSize: 1 << 10,
		StartDir:    dir,
	})
	return m, dir
}

func selectBoth(m *Model) {
	m.Update(fileLoadedMsg{kind: session.KindPDF, handle: session.NewFileHandle(session.KindPDF, "regs.pdf", "", []byte("%PDF-1.4"))})
	m.Update(fileLoadedMsg{kind: session.KindCSV, handle: session.NewFileHandle(session.KindCSV, "data.csv", "", []byte("a,b\n1,2\n"))})
}

func TestUpload_WithoutFilesShowsNotice(t *testing.T) {
	up := &stubUploader{}
	m, _ := newTestModel(t, up)

	_, cmd := m.Update(keyPress("u"))

	assert.Nil(t, cmd)
	assert.False(t, m.uploading)
	assert.Equal(t, session.NoticeMissingFiles, m.notice)
	assert.Zero(t, up.calls.Load())
	assert.Contains(t, m.View(), "Please select both PDF and CSV files!")
}

func TestUpload_Succeeds(t *testing.T) {
	up := &stubUploader{resp: &endpoint.Response{Rules: "r1", Validation: "all good"}}
	m, _ := newTestModel(t, up)
	selectBoth(m)

	_, cmd := m.Update(keyPress("u"))
	require.NotNil(t, cmd)
	assert.True(t, m.uploading)
	assert.Contains(t, m.View(), "Processing...")

	// A second press while uploading does not start another request.
	_, again := m.Update(keyPress("u"))
	assert.Nil(t, again)
	assert.Equal(t, session.NoticeUploadInFlight, m.notice)

	m.Update(uploadCmd(context.Background(), m.sess)())

	assert.False(t, m.uploading)
	assert.EqualValues(t, 1, up.calls.Load())
	assert.Equal(t, "Upload complete", m.status)
	view := m.View()
	assert.Contains(t, view, "Generated Rules")
	assert.Contains(t, view, "Validation Response")
	assert.Contains(t, view, "all good")
}

func TestUpload_FailureShowsError(t *testing.T) {
	up := &stubUploader{err: &endpoint.StatusError{Code: 502}}
	m, _ := newTestModel(t, up)
	selectBoth(m)

	m.Update(keyPress("u"))
	m.Update(uploadCmd(context.Background(), m.sess)())

	assert.Equal(t, "Upload failed", m.status)
	view := m.View()
	assert.Contains(t, view, "Upload Failed")
	assert.Contains(t, view, "502")
}

func TestExport(t *testing.T) {
	up := &stubUploader{resp: &endpoint.Response{Rules: `[{"rule":"amount > 0"}]`}}
	m, dir := newTestModel(t, up)

	// Nothing to export before an upload.
	_, cmd := m.Update(keyPress("r"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Contains(t, m.notice, "Nothing to export")

	selectBoth(m)
	m.Update(keyPress("u"))
	m.Update(uploadCmd(context.Background(), m.sess)())

	_, cmd = m.Update(keyPress("r"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, "Saved rules_generated.csv", m.status)
	data, err := os.ReadFile(filepath.Join(dir, core.FieldRules.Filename))
	require.NoError(t, err)
	assert.Equal(t, "rule\namount > 0", string(data))

	// Validation was absent from the response.
	_, cmd = m.Update(keyPress("v"))
	m.Update(cmd())
	assert.Contains(t, m.notice, "Nothing to export")
}

func TestFileLoaded_ErrorKeepsSelection(t *testing.T) {
	m, _ := newTestModel(t, &stubUploader{})
	selectBoth(m)

	m.Update(fileLoadedMsg{kind: session.KindCSV, err: errors.New("file too large: big.csv exceeds 1024 bytes")})

	assert.Equal(t, "The selected file exceeds the size limit", m.notice)
	assert.Equal(t, "data.csv", m.sess.Snapshot().CSV.Name)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(small, []byte("id,name\n1,x\n"), 0o600))
	big := filepath.Join(dir, "big.csv")
	require.NoError(t, os.WriteFile(big, make([]byte, 2048), 0o600))

	h, err := loadFile(session.KindCSV, small, 1024)
	require.NoError(t, err)
	assert.Equal(t, "data.csv", h.Name)
	assert.Equal(t, []string{"id", "name"}, h.Meta.Columns)

	_, err = loadFile(session.KindCSV, big, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")

	_, err = loadFile(session.KindCSV, filepath.Join(dir, "missing.csv"), 1024)
	require.Error(t, err)
}

func TestPicker_OpenAndCancel(t *testing.T) {
	m, _ := newTestModel(t, &stubUploader{})

	_, cmd := m.Update(keyPress("p"))
	assert.NotNil(t, cmd)
	assert.Equal(t, modePickPDF, m.mode)
	assert.Equal(t, []string{".pdf"}, m.picker.AllowedTypes)
	assert.Contains(t, m.View(), "Upload Regulations PDF File:")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeMain, m.mode)

	m.Update(keyPress("c"))
	assert.Equal(t, modePickCSV, m.mode)
	assert.Equal(t, []string{".csv"}, m.picker.AllowedTypes)
}

func TestQuitAndHelp(t *testing.T) {
	m, _ := newTestModel(t, &stubUploader{})

	m.Update(keyPress("?"))
	assert.True(t, m.help.ShowAll)

	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRenderResult(t *testing.T) {
	assert.Contains(t, renderResult(core.Result{}, 0), "No response yet")

	ok := core.SucceededResult("", "", nil, time.Now())
	assert.Contains(t, renderResult(ok, 0), "no rules or validation response")
}
