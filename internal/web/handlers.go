package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/profiler/internal/export"
	"github.com/JonMunkholm/profiler/internal/history"
	"github.com/JonMunkholm/profiler/internal/logging"
	"github.com/JonMunkholm/profiler/internal/session"
	"github.com/JonMunkholm/profiler/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size for form boundaries and headers.
const multipartOverhead = 1 << 20

// multipartMemory is how much of a form is buffered in memory before spilling to disk.
const multipartMemory = 32 << 20

// withSession attaches the caller's session. Safe methods only look up an
// existing session and otherwise see a blank one. Any other method creates
// the session on first use and issues its cookie.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			id = c.Value
		}

		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			sess, _ := s.sessions.Peek(id)
			ctx := WithRequestMetadata(r.Context(), r)
			next.ServeHTTP(w, r.WithContext(withSession(ctx, sess)))
			return
		}

		sess, created := s.sessions.GetOrCreate(id)
		if created || sess.ID() != id {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.ID(),
				Path:     "/",
				MaxAge:   int(s.cfg.Session.TTL.Seconds()),
				HttpOnly: true,
				Secure:   s.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := WithRequestMetadata(r.Context(), r)
		ctx = withSession(ctx, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleIndex renders the upload page. The pending notice is shown once.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := sessionFrom(r.Context()).Consume()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Page(view).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleSelect replaces the PDF or CSV selection. Submitting the picker
// without a file clears the selection.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	kind := session.FileKind(chi.URLParam(r, "kind"))
	if kind != session.KindPDF && kind != session.KindCSV {
		s.respondError(w, r, fmt.Errorf("unknown file kind %q", kind), http.StatusNotFound)
		return
	}

	handle, status, err := s.readSelection(w, r, kind)
	if err != nil {
		s.respondError(w, r, err, status)
		return
	}

	sess := sessionFrom(r.Context())
	if kind == session.KindPDF {
		sess.SelectPDF(handle)
	} else {
		sess.SelectCSV(handle)
	}

	log := logging.WithFields(r.Context(), "session_id", sess.ID(), "kind", kind)
	if handle != nil {
		log.Info("file selected", "file", handle.Name, "size", handle.Size)
	} else {
		log.Info("file selection cleared")
	}

	s.respondState(w, r, sess, http.StatusOK)
}

// readSelection reads the "file" part of a picker form.
func (s *Server) readSelection(w http.ResponseWriter, r *http.Request, kind session.FileKind) (*session.FileHandle, int, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isRequestTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large: %w", err)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("read selected file: %w", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, http.StatusOK, nil
	}
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("read selected file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("read selected file: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large: %s exceeds %d bytes", header.Filename, maxSize)
	}

	return session.NewFileHandle(kind, header.Filename, header.Header.Get("Content-Type"), data), http.StatusOK, nil
}

// handleUpload starts the upload and sends the browser back to the page,
// which shows the busy indicator until the upload settles. Missing files and
// overlapping uploads surface as the page notice.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	err := sess.StartUpload(r.Context())
	if err != nil && !errors.Is(err, session.ErrMissingFiles) && !errors.Is(err, session.ErrUploadInFlight) {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleExport downloads one response field as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "field")
	view := sessionFrom(r.Context()).Snapshot()

	err := s.exporter.ExportSlug(view.Result, slug, export.HTTPDownloader{W: w})
	switch {
	case err == nil:
		logging.FromContext(r.Context()).Info("field exported", "field", slug)
	case errors.Is(err, export.ErrUnknownField), errors.Is(err, export.ErrNothingToExport):
		s.respondError(w, r, err, http.StatusNotFound)
	default:
		// Headers are already sent.
		logging.FromContext(r.Context()).Error("export download failed", "field", slug, "error", err)
	}
}

// handleHistoryPage renders recent uploads.
func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	entries, err := s.recentHistory(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.HistoryPage(entries).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render history", "error", err)
	}
}

func (s *Server) recentHistory(r *http.Request) ([]history.Entry, error) {
	if s.history == nil {
		return nil, nil
	}
	limit := parseIntParam(r, "limit", history.DefaultLimit)
	return s.history.Recent(r.Context(), limit)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// respondState answers a form action: JSON callers get the state, browsers
// are redirected to the page.
func (s *Server) respondState(w http.ResponseWriter, r *http.Request, sess *session.Session, status int) {
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := encodeJSON(w, newStateResponse(sess.Snapshot())); err != nil {
			slog.Error("json encode error", "error", err)
		}
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
