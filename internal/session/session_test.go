package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/endpoint"
	"github.com/JonMunkholm/profiler/internal/history"
)

// fakeUploader answers with resp/err and counts calls. When gate is set the
// call blocks until the gate is closed, after reporting on entered.
type fakeUploader struct {
	calls   atomic.Int32
	resp    *endpoint.Response
	err     error
	gate    chan struct{}
	entered chan struct{}

	mu      sync.Mutex
	lastPDF endpoint.File
	lastCSV endpoint.File
}

func (f *fakeUploader) Upload(ctx context.Context, pdf, csv endpoint.File) (*endpoint.Response, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastPDF, f.lastCSV = pdf, csv
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

func pdfHandle() *FileHandle {
	return NewFileHandle(KindPDF, "regs.pdf", "application/pdf", []byte("%PDF-1.4 not really"))
}

func csvHandle() *FileHandle {
	return NewFileHandle(KindCSV, "data.csv", "text/csv", []byte("id,amount\n1,10\n2,20\n"))
}

func readySession(up endpoint.Uploader, store history.Store) *Session {
	s := New("", &Deps{Uploader: up, History: store, Limiter: core.NewUploadLimiter(2, time.Second)})
	s.SelectPDF(pdfHandle())
	s.SelectCSV(csvHandle())
	return s
}

func TestUpload_MissingFilesMakesNoRequest(t *testing.T) {
	tests := []struct {
		name string
		pdf  bool
		csv  bool
	}{
		{"nothing selected", false, false},
		{"pdf only", true, false},
		{"csv only", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUploader{resp: &endpoint.Response{Rules: "r"}}
			s := New("", &Deps{Uploader: up})
			if tt.pdf {
				s.SelectPDF(pdfHandle())
			}
			if tt.csv {
				s.SelectCSV(csvHandle())
			}
			before := s.Snapshot()

			err := s.Upload(context.Background())
			require.ErrorIs(t, err, ErrMissingFiles)

			after := s.Snapshot()
			assert.Equal(t, int32(0), up.calls.Load())
			assert.Equal(t, "Please select both PDF and CSV files!", after.Notice)
			assert.False(t, after.Busy)
			assert.True(t, after.Result.IsEmpty())
			assert.Same(t, before.PDF, after.PDF)
			assert.Same(t, before.CSV, after.CSV)
		})
	}
}

func TestUpload_Success(t *testing.T) {
	up := &fakeUploader{resp: &endpoint.Response{Rules: "R1", Validation: "V1", Payload: map[string]any{"rules_generated": "R1"}}}
	s := readySession(up, nil)

	require.NoError(t, s.Upload(context.Background()))

	v := s.Snapshot()
	assert.Equal(t, int32(1), up.calls.Load())
	assert.False(t, v.Busy)
	assert.Equal(t, core.ResultSucceeded, v.Result.Kind)
	assert.Equal(t, "R1", v.Result.Rules)
	assert.Equal(t, "V1", v.Result.Validation)
	assert.Empty(t, v.Notice)

	// Selections survive the upload.
	assert.NotNil(t, v.PDF)
	assert.NotNil(t, v.CSV)

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, "regs.pdf", up.lastPDF.Name)
	assert.Equal(t, "data.csv", up.lastCSV.Name)
}

func TestUpload_FailureStoresMessage(t *testing.T) {
	up := &fakeUploader{err: &endpoint.StatusError{Code: 500}}
	s := readySession(up, nil)

	err := s.Upload(context.Background())
	require.Error(t, err)

	v := s.Snapshot()
	assert.False(t, v.Busy)
	assert.Equal(t, core.ResultFailed, v.Result.Kind)
	assert.Equal(t, "Error uploading file: Request failed with status code 500", v.Result.Message)
	assert.Empty(t, v.Result.Panels())
}

func TestUpload_BusyOnlyWhileInFlight(t *testing.T) {
	for _, fail := range []bool{false, true} {
		name := "success"
		if fail {
			name = "failure"
		}
		t.Run(name, func(t *testing.T) {
			up := &fakeUploader{
				resp:    &endpoint.Response{Rules: "r"},
				gate:    make(chan struct{}),
				entered: make(chan struct{}, 1),
			}
			if fail {
				up.resp, up.err = nil, errors.New("connection refused")
			}
			s := readySession(up, nil)
			assert.False(t, s.Busy())

			require.NoError(t, s.StartUpload(context.Background()))

			<-up.entered
			assert.True(t, s.Busy(), "busy while the request is in flight")

			close(up.gate)
			s.Wait()
			assert.False(t, s.Busy(), "busy cleared after settlement")
		})
	}
}

func TestUpload_RejectsOverlap(t *testing.T) {
	up := &fakeUploader{
		resp:    &endpoint.Response{Rules: "r"},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	s := readySession(up, nil)

	require.NoError(t, s.StartUpload(context.Background()))
	<-up.entered

	err := s.Upload(context.Background())
	assert.ErrorIs(t, err, ErrUploadInFlight)
	assert.Equal(t, NoticeUploadInFlight, s.Snapshot().Notice)

	close(up.gate)
	s.Wait()
	assert.Equal(t, int32(1), up.calls.Load())
}

func TestUpload_NewResultOverwritesOld(t *testing.T) {
	up := &fakeUploader{resp: &endpoint.Response{Rules: "first"}}
	s := readySession(up, nil)
	require.NoError(t, s.Upload(context.Background()))

	up.resp = nil
	up.err = errors.New("no such host")
	require.Error(t, s.Upload(context.Background()))

	v := s.Snapshot()
	assert.Equal(t, core.ResultFailed, v.Result.Kind)
	assert.Empty(t, v.Result.Rules)
}

func TestUpload_Timeout(t *testing.T) {
	up := &fakeUploader{gate: make(chan struct{})}
	s := New("", &Deps{Uploader: up, Timeout: 20 * time.Millisecond})
	s.SelectPDF(pdfHandle())
	s.SelectCSV(csvHandle())

	err := s.Upload(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.Busy())
	assert.Contains(t, s.Snapshot().Result.Message, "context deadline exceeded")
}

func TestUpload_RecordsHistory(t *testing.T) {
	store := history.NewMemoryStore(10)
	up := &fakeUploader{resp: &endpoint.Response{Rules: "abc", Validation: "de"}}
	s := readySession(up, store)

	ctx := core.WithClient(context.Background(), core.Client{IP: "192.0.2.1", UserAgent: "test-agent"})
	require.NoError(t, s.Upload(ctx))

	entries, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, s.ID(), e.SessionID)
	assert.Equal(t, "succeeded", e.Outcome)
	assert.Equal(t, "regs.pdf", e.PDFName)
	assert.Equal(t, 3, e.RulesLength)
	assert.Equal(t, 2, e.ValidationLength)
	assert.Equal(t, "192.0.2.1", e.IPAddress)
	assert.Equal(t, "test-agent", e.UserAgent)
}

// blockingStore holds every Record call until release is closed.
type blockingStore struct {
	*history.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Record(ctx context.Context, e history.Entry) error {
	b.entered <- struct{}{}
	<-b.release
	return b.MemoryStore.Record(ctx, e)
}

func TestUpload_SettlesBeforeHistoryWrite(t *testing.T) {
	store := &blockingStore{
		MemoryStore: history.NewMemoryStore(10),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	up := &fakeUploader{resp: &endpoint.Response{Rules: "r", Validation: "v"}}
	s := readySession(up, store)

	require.NoError(t, s.StartUpload(context.Background()))
	<-store.entered

	v := s.Snapshot()
	assert.False(t, v.Busy, "busy cleared once the endpoint call settles")
	assert.Equal(t, core.ResultSucceeded, v.Result.Kind)
	assert.Equal(t, "r", v.Result.Rules)

	close(store.release)
	s.Wait()

	entries, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConsume_ClearsNotice(t *testing.T) {
	s := New("", nil)
	require.ErrorIs(t, s.Upload(context.Background()), ErrMissingFiles)

	first := s.Consume()
	assert.Equal(t, NoticeMissingFiles, first.Notice)

	second := s.Consume()
	assert.Empty(t, second.Notice)
}

func TestSelect_ReplacesHandle(t *testing.T) {
	s := New("", nil)
	first := pdfHandle()
	second := NewFileHandle(KindPDF, "other.pdf", "", []byte("x"))

	s.SelectPDF(first)
	s.SelectPDF(second)

	v := s.Snapshot()
	assert.Same(t, second, v.PDF)
	assert.Nil(t, v.CSV)
	assert.False(t, v.Ready())
}
