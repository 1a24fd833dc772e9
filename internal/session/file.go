package session

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/JonMunkholm/profiler/internal/endpoint"
)

// FileKind says which picker a file was selected in.
type FileKind string

const (
	KindPDF FileKind = "pdf"
	KindCSV FileKind = "csv"
)

// FileHandle is a selected file. Metadata is informational only and never
// blocks an upload.
type FileHandle struct {
	Kind        FileKind
	Name        string
	ContentType string
	Size        int64
	Data        []byte
	SelectedAt  time.Time
	Meta        FileMeta
}

// FileMeta describes the content of a selected file.
type FileMeta struct {
	// Pages is the PDF page count, zero when unreadable.
	Pages int

	// Columns and Records describe a CSV file; empty when unreadable.
	Columns []string
	Records int
}

// NewFileHandle wraps selected file content and inspects it.
func NewFileHandle(kind FileKind, name, contentType string, data []byte) *FileHandle {
	h := &FileHandle{
		Kind:        kind,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
		SelectedAt:  time.Now(),
	}

	switch kind {
	case KindPDF:
		if h.ContentType == "" {
			h.ContentType = "application/pdf"
		}
		pages, err := pdfPageCount(data)
		if err != nil {
			slog.Debug("pdf metadata unavailable", "file", name, "error", err)
		}
		h.Meta.Pages = pages
	case KindCSV:
		if h.ContentType == "" {
			h.ContentType = "text/csv"
		}
		cols, records, err := csvShape(data)
		if err != nil {
			slog.Debug("csv metadata unavailable", "file", name, "error", err)
		}
		h.Meta.Columns, h.Meta.Records = cols, records
	}
	return h
}

// File returns the handle in the form sent to the endpoint.
func (h *FileHandle) File() endpoint.File {
	return endpoint.File{Name: h.Name, ContentType: h.ContentType, Data: h.Data}
}

// Summary is a short human-readable description of the file.
func (h *FileHandle) Summary() string {
	if h == nil {
		return ""
	}
	size := formatBytes(h.Size)
	switch h.Kind {
	case KindPDF:
		if h.Meta.Pages > 0 {
			return fmt.Sprintf("%s, %d pages", size, h.Meta.Pages)
		}
	case KindCSV:
		if len(h.Meta.Columns) > 0 {
			return fmt.Sprintf("%s, %d columns, %d records", size, len(h.Meta.Columns), h.Meta.Records)
		}
	}
	return size
}

// pdfPageCount reads the page count. Malformed files can make the PDF
// parser panic, so the panic is turned into an error.
func pdfPageCount(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("panic reading pdf: %v", r)
		}
	}()

	if len(data) == 0 {
		return 0, errors.New("empty file")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// csvShape returns the header and the number of records after it.
func csvShape(data []byte) ([]string, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, 0, errors.New("empty file")
		}
		return nil, 0, err
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	records := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return columns, records, err
		}
		records++
	}
	return columns, records, nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
