package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/history"
	"github.com/JonMunkholm/profiler/internal/logging"
	"github.com/JonMunkholm/profiler/internal/session"
)

// fileResponse describes a selected file.
type fileResponse struct {
	Name    string   `json:"name"`
	Size    int64    `json:"size"`
	Pages   int      `json:"pages,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Records int      `json:"records,omitempty"`
}

// resultResponse is the JSON form of core.Result.
type resultResponse struct {
	Kind               string         `json:"kind"`
	Message            string         `json:"message,omitempty"`
	RulesGenerated     string         `json:"rules_generated,omitempty"`
	ValidationResponse string         `json:"validation_response,omitempty"`
	Payload            map[string]any `json:"payload,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
}

// stateResponse is the JSON form of a session's view state.
type stateResponse struct {
	SessionID string         `json:"session_id"`
	PDF       *fileResponse  `json:"pdf"`
	CSV       *fileResponse  `json:"csv"`
	Busy      bool           `json:"busy"`
	Notice    string         `json:"notice,omitempty"`
	Result    resultResponse `json:"result"`
}

func newFileResponse(h *session.FileHandle) *fileResponse {
	if h == nil {
		return nil
	}
	return &fileResponse{
		Name:    h.Name,
		Size:    h.Size,
		Pages:   h.Meta.Pages,
		Columns: h.Meta.Columns,
		Records: h.Meta.Records,
	}
}

func newStateResponse(v session.ViewState) stateResponse {
	res := resultResponse{Kind: v.Result.Kind.String()}
	switch v.Result.Kind {
	case core.ResultFailed:
		res.Message = v.Result.Message
	case core.ResultSucceeded:
		res.RulesGenerated = v.Result.Rules
		res.ValidationResponse = v.Result.Validation
		res.Payload = v.Result.Payload
	}
	if !v.Result.CompletedAt.IsZero() {
		at := v.Result.CompletedAt
		res.CompletedAt = &at
	}

	return stateResponse{
		SessionID: v.SessionID,
		PDF:       newFileResponse(v.PDF),
		CSV:       newFileResponse(v.CSV),
		Busy:      v.Busy,
		Notice:    v.Notice,
		Result:    res,
	}
}

func encodeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// handleState returns the caller's session state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, newStateResponse(sessionFrom(r.Context()).Snapshot()))
}

// handleUploadAPI starts an upload and answers 202 with the busy state.
// Callers poll /api/state until busy is false.
func (s *Server) handleUploadAPI(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	err := sess.StartUpload(r.Context())
	switch {
	case err == nil:
		s.respondState(w, r, sess, http.StatusAccepted)
	case errors.Is(err, session.ErrMissingFiles):
		s.respondError(w, r, err, http.StatusBadRequest)
	case errors.Is(err, session.ErrUploadInFlight):
		s.respondError(w, r, err, http.StatusConflict)
	default:
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// handleConvert converts the request body to CSV.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if isRequestTooLarge(err) {
			s.respondError(w, r, fmt.Errorf("request body too large: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	out := core.ConvertToCSV(string(body))
	logging.FromContext(r.Context()).Debug("converted text", "in_bytes", len(body), "out_bytes", len(out))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

// handleHistoryJSON lists recent uploads.
func (s *Server) handleHistoryJSON(w http.ResponseWriter, r *http.Request) {
	entries, err := s.recentHistory(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, map[string]any{"entries": entries})
}

// handleLimiterStatus reports upload slot usage.
func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	var status core.UploadLimiterStatus
	if s.limiter != nil {
		status = s.limiter.Status()
	}
	writeJSON(w, status)
}
