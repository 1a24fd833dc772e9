package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/export"
	"github.com/JonMunkholm/profiler/internal/session"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = max(msg.Width-4, 20)
		m.viewport.Height = max(msg.Height-14, 3)
		m.picker.Height = m.pickerHeight()
		return m, nil

	case spinner.TickMsg:
		if !m.uploading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fileLoadedMsg:
		return m, m.handleFileLoaded(msg)

	case uploadDoneMsg:
		m.handleUploadDone(msg)
		return m, nil

	case exportedMsg:
		m.handleExported(msg)
		return m, nil
	}

	if m.mode != modeMain {
		return m, m.updatePicker(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.PickPDF):
			return m, m.openPicker(session.KindPDF)
		case key.Matches(msg, m.keys.PickCSV):
			return m, m.openPicker(session.KindCSV)
		case key.Matches(msg, m.keys.Upload):
			return m, m.startUpload()
		case key.Matches(msg, m.keys.ExportRules):
			return m, m.export(core.FieldRules)
		case key.Matches(msg, m.keys.ExportValidation):
			return m, m.export(core.FieldValidation)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) updatePicker(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.mode = modeMain
			return nil
		case msg.String() == "ctrl+c":
			return tea.Quit
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		kind := m.pickerKind()
		m.mode = modeMain
		m.startDir = filepath.Dir(path)
		return tea.Batch(cmd, loadFileCmd(kind, path, m.maxSize))
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.notice = fmt.Sprintf("Selection not allowed: %s", filepath.Base(path))
	}
	return cmd
}

func (m *Model) handleFileLoaded(msg fileLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.notice = core.MapError(msg.err).Message
		slog.Warn("file selection failed", "kind", msg.kind, "error", msg.err)
		return nil
	}

	if msg.kind == session.KindPDF {
		m.sess.SelectPDF(msg.handle)
	} else {
		m.sess.SelectCSV(msg.handle)
	}
	m.notice = ""
	m.status = fmt.Sprintf("Selected %s (%s)", msg.handle.Name, msg.handle.Summary())
	return nil
}

// startUpload checks the preconditions the way the session will and starts
// the blocking upload as a command.
func (m *Model) startUpload() tea.Cmd {
	v := m.sess.Snapshot()
	if !v.Ready() {
		m.notice = session.NoticeMissingFiles
		return nil
	}
	if m.uploading || v.Busy {
		m.notice = session.NoticeUploadInFlight
		return nil
	}

	m.uploading = true
	m.notice = ""
	m.status = "Processing..."
	return tea.Batch(m.spinner.Tick, uploadCmd(m.ctx, m.sess))
}

func (m *Model) handleUploadDone(msg uploadDoneMsg) {
	m.uploading = false

	switch {
	case errors.Is(msg.err, session.ErrMissingFiles), errors.Is(msg.err, session.ErrUploadInFlight):
		m.notice = m.sess.Consume().Notice
		m.status = ""
		return
	case msg.err != nil:
		m.status = "Upload failed"
	default:
		m.status = "Upload complete"
	}
	m.refreshResult()
}

func (m *Model) export(field core.Field) tea.Cmd {
	if m.downloader == nil {
		m.notice = "No export directory configured"
		return nil
	}
	return exportCmd(m.exporter, m.sess.Snapshot().Result, field, m.downloader)
}

func (m *Model) handleExported(msg exportedMsg) {
	switch {
	case errors.Is(msg.err, export.ErrNothingToExport):
		m.notice = fmt.Sprintf("Nothing to export for %s", msg.field.Title)
	case msg.err != nil:
		m.notice = fmt.Sprintf("Export failed: %v", msg.err)
		slog.Error("export failed", "field", msg.field.Slug, "error", msg.err)
	default:
		m.notice = ""
		m.status = fmt.Sprintf("Saved %s", msg.field.Filename)
	}
}

func (m *Model) refreshResult() {
	m.viewport.SetContent(renderResult(m.sess.Snapshot().Result, m.viewport.Width))
	m.viewport.GotoTop()
}
