// Package export turns a response field into a downloaded CSV file.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/JonMunkholm/profiler/internal/core"
)

var (
	// ErrNothingToExport is returned when the field has no text.
	ErrNothingToExport = errors.New("nothing to export")

	// ErrUnknownField is returned for a field slug that does not exist.
	ErrUnknownField = errors.New("unknown export field")
)

// Downloader delivers CSV data to the user under a file name.
type Downloader interface {
	Download(data, filename string) error
}

// Exporter converts result fields to CSV and hands them to a Downloader.
type Exporter struct{}

// Export converts the text of field and delivers it. Downloader failures are
// returned unchanged.
func (Exporter) Export(result core.Result, field core.Field, d Downloader) error {
	text, ok := result.Text(field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNothingToExport, field.Slug)
	}
	return d.Download(core.ConvertToCSV(text), field.Filename)
}

// ExportSlug is Export with the field looked up by its slug.
func (e Exporter) ExportSlug(result core.Result, slug string, d Downloader) error {
	field, ok := core.FieldBySlug(slug)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, slug)
	}
	return e.Export(result, field, d)
}

// HTTPDownloader sends the file as an attachment on an HTTP response.
type HTTPDownloader struct {
	W http.ResponseWriter
}

// Download writes the CSV with headers that make the browser save it.
func (h HTTPDownloader) Download(data, filename string) error {
	header := h.W.Header()
	header.Set("Content-Type", "text/csv; charset=utf-8")
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	header.Set("Content-Length", strconv.Itoa(len(data)))
	header.Set("Cache-Control", "no-store")
	h.W.WriteHeader(http.StatusOK)

	if _, err := h.W.Write([]byte(data)); err != nil {
		return fmt.Errorf("write download: %w", err)
	}
	return nil
}

// DirDownloader saves files into a directory.
type DirDownloader struct {
	Dir string

	// Saved receives the path of every written file.
	Saved func(path string)
}

// Download writes data to Dir/filename, replacing an existing file.
func (d DirDownloader) Download(data, filename string) error {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	slog.Debug("export written", "path", path, "bytes", len(data))
	if d.Saved != nil {
		d.Saved(path)
	}
	return nil
}
