package tui

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/export"
	"github.com/JonMunkholm/profiler/internal/session"
)

// --- Messages ---

type fileLoadedMsg struct {
	kind   session.FileKind
	handle *session.FileHandle
	err    error
}

type uploadDoneMsg struct{ err error }

type exportedMsg struct {
	field core.Field
	err   error
}

// --- Commands ---

func loadFileCmd(kind session.FileKind, path string, maxSize int64) tea.Cmd {
	return func() tea.Msg {
		h, err := loadFile(kind, path, maxSize)
		return fileLoadedMsg{kind: kind, handle: h, err: err}
	}
}

func loadFile(kind session.FileKind, path string, maxSize int64) (*session.FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read selected file: %w", err)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("file too large: %s exceeds %d bytes", filepath.Base(path), maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selected file: %w", err)
	}
	return session.NewFileHandle(kind, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), data), nil
}

func uploadCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		return uploadDoneMsg{err: s.Upload(ctx)}
	}
}

func exportCmd(e export.Exporter, result core.Result, field core.Field, d export.Downloader) tea.Cmd {
	return func() tea.Msg {
		return exportedMsg{field: field, err: e.Export(result, field, d)}
	}
}
