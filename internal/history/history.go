// Package history records settled uploads.
//
// Every upload that reaches the profiling service leaves one Entry, whether
// it succeeded or failed. Entries are kept in memory by default, or in
// PostgreSQL when a database URL is configured.
package history

import (
	"context"
	"time"
)

// DefaultLimit is how many entries Recent returns when asked for none.
const DefaultLimit = 50

// Entry describes one settled upload.
type Entry struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`

	PDFName string `json:"pdf_name"`
	PDFSize int64  `json:"pdf_size"`
	CSVName string `json:"csv_name"`
	CSVSize int64  `json:"csv_size"`

	// Outcome is "succeeded" or "failed".
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`

	// Lengths of the returned fields, zero when absent.
	RulesLength      int `json:"rules_length"`
	ValidationLength int `json:"validation_length"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports whether the upload produced a result.
func (e Entry) Succeeded() bool { return e.Outcome == "succeeded" }

// Store persists entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
