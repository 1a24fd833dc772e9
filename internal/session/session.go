// Package session holds the per-user upload workflow.
//
// A Session owns the ViewState of one user: the two selected files, the
// latest result, the busy flag and a one-shot notice. Upload runs the
// workflow: both files must be present, the busy flag is raised, exactly one
// request goes to the profiling service and the outcome replaces the result.
// The busy flag is cleared when the request settles, whatever the outcome.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/endpoint"
	"github.com/JonMunkholm/profiler/internal/history"
	"github.com/JonMunkholm/profiler/internal/logging"
)

var (
	// ErrMissingFiles is returned when an upload is triggered without both files.
	ErrMissingFiles = errors.New("both PDF and CSV files are required")

	// ErrUploadInFlight is returned when the session already has an upload running.
	ErrUploadInFlight = errors.New("upload already in progress")
)

// NoticeMissingFiles is shown when an upload is triggered without both files.
const NoticeMissingFiles = "Please select both PDF and CSV files!"

// NoticeUploadInFlight is shown when an upload is triggered while busy.
const NoticeUploadInFlight = "An upload is already in progress. Please wait for it to finish."

// ViewState is everything the user interface renders for one session.
type ViewState struct {
	SessionID string
	PDF       *FileHandle
	CSV       *FileHandle
	Result    core.Result
	Busy      bool
	Notice    string
}

// Ready reports whether both files are selected.
func (v ViewState) Ready() bool { return v.PDF != nil && v.CSV != nil }

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Uploader endpoint.Uploader

	// Limiter caps uploads across sessions; nil means unlimited.
	Limiter *core.UploadLimiter

	// History records settled uploads; nil disables recording.
	History history.Store

	// Timeout bounds one upload; zero means no extra bound.
	Timeout time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Session is the upload workflow for one user.
type Session struct {
	id   string
	deps *Deps

	mu       sync.Mutex
	state    ViewState
	lastSeen time.Time

	inflight sync.WaitGroup
}

// New creates a session. An empty id is replaced by a random UUID.
func New(id string, deps *Deps) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if deps == nil {
		deps = &Deps{}
	}
	s := &Session{id: id, deps: deps}
	s.state.SessionID = id
	s.lastSeen = deps.now()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// SelectPDF replaces the selected PDF.
func (s *Session) SelectPDF(h *FileHandle) { s.selectFile(&s.state.PDF, h) }

// SelectCSV replaces the selected CSV.
func (s *Session) SelectCSV(h *FileHandle) { s.selectFile(&s.state.CSV, h) }

func (s *Session) selectFile(slot **FileHandle, h *FileHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*slot = h
	s.touchLocked()
}

// SetNotice sets the one-shot notice.
func (s *Session) SetNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Notice = msg
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Consume returns the current state and clears the notice, so a notice is
// shown exactly once.
func (s *Session) Consume() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.state
	s.state.Notice = ""
	s.touchLocked()
	return v
}

// Upload runs the workflow and blocks until the request settles. The
// returned error is the one stored in the failed result, or a precondition
// error when no request was made.
func (s *Session) Upload(ctx context.Context) error {
	pdf, csv, err := s.begin()
	if err != nil {
		return err
	}
	s.inflight.Add(1)
	return s.run(ctx, pdf, csv)
}

// StartUpload checks the preconditions and runs the request in the
// background. The request outlives ctx cancellation but keeps its values.
func (s *Session) StartUpload(ctx context.Context) error {
	pdf, csv, err := s.begin()
	if err != nil {
		return err
	}
	s.inflight.Add(1)
	go func() {
		_ = s.run(context.WithoutCancel(ctx), pdf, csv)
	}()
	return nil
}

// Wait blocks until no upload started by this session is running.
func (s *Session) Wait() { s.inflight.Wait() }

// Busy reports whether an upload is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Busy
}

// begin validates preconditions and raises the busy flag.
func (s *Session) begin() (*FileHandle, *FileHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.state.PDF == nil || s.state.CSV == nil {
		s.state.Notice = NoticeMissingFiles
		return nil, nil, ErrMissingFiles
	}
	if s.state.Busy {
		s.state.Notice = NoticeUploadInFlight
		return nil, nil, ErrUploadInFlight
	}

	s.state.Busy = true
	return s.state.PDF, s.state.CSV, nil
}

func (s *Session) run(ctx context.Context, pdf, csv *FileHandle) (err error) {
	started := s.deps.now()
	var result core.Result

	settled := false
	defer s.inflight.Done()
	defer func() {
		if !settled {
			s.settle(result)
		}
	}()

	if s.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.Timeout)
		defer cancel()
	}

	log := logging.WithFields(ctx, "session_id", s.id, "pdf", pdf.Name, "csv", csv.Name)
	log.Info("upload started", "pdf_size", pdf.Size, "csv_size", csv.Size)

	var resp *endpoint.Response
	call := func(ctx context.Context) error {
		if s.deps.Uploader == nil {
			return errors.New("no endpoint configured")
		}
		var err error
		resp, err = s.deps.Uploader.Upload(ctx, pdf.File(), csv.File())
		return err
	}

	if s.deps.Limiter != nil {
		err = s.deps.Limiter.Run(ctx, call)
	} else {
		err = call(ctx)
	}

	finished := s.deps.now()
	if err != nil {
		result = core.FailedResult(err, finished)
		log.Warn("upload failed", "error", err, "duration", finished.Sub(started))
	} else {
		result = core.SucceededResult(resp.Rules, resp.Validation, resp.Payload, finished)
		log.Info("upload succeeded",
			"rules_length", len(resp.Rules),
			"validation_length", len(resp.Validation),
			"duration", finished.Sub(started))
	}

	s.settle(result)
	settled = true

	s.record(ctx, pdf, csv, result, started, finished)
	return err
}

// settle publishes the result and clears busy as soon as the endpoint call
// returns, before any history write.
func (s *Session) settle(result core.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !result.IsEmpty() {
		s.state.Result = result
	}
	s.state.Busy = false
}

func (s *Session) record(ctx context.Context, pdf, csv *FileHandle, result core.Result, started, finished time.Time) {
	if s.deps.History == nil {
		return
	}

	client := core.ClientFromContext(ctx)
	entry := history.Entry{
		ID:               uuid.NewString(),
		SessionID:        s.id,
		PDFName:          pdf.Name,
		PDFSize:          pdf.Size,
		CSVName:          csv.Name,
		CSVSize:          csv.Size,
		Outcome:          result.Kind.String(),
		Error:            result.Message,
		RulesLength:      len(result.Rules),
		ValidationLength: len(result.Validation),
		IPAddress:        client.IP,
		UserAgent:        client.UserAgent,
		StartedAt:        started,
		Duration:         finished.Sub(started),
	}

	// The upload context may already be expired; recording gets its own budget.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.deps.History.Record(recCtx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to record upload history", "session_id", s.id, "error", err)
	}
}

func (s *Session) touchLocked() {
	s.lastSeen = s.deps.now()
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.state.Busy
}
