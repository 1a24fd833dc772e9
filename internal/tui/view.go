package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/session"
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(Title))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Upload your PDF and CSV files for rule generation and validation."))
	b.WriteString("\n\n")

	if m.mode != modeMain {
		label := "Upload Regulations PDF File:"
		if m.mode == modePickCSV {
			label = "Upload Dataset File:"
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.picker.CurrentDirectory))
		b.WriteString("\n")
		b.WriteString(pickerStyle.Render(m.picker.View()))
		b.WriteString("\n")
		if m.notice != "" {
			b.WriteString(noticeStyle.Render(m.notice))
			b.WriteString("\n")
		}
		b.WriteString(dimStyle.Render("enter select, esc cancel"))
		return b.String()
	}

	v := m.sess.Snapshot()
	b.WriteString(fileLine("Upload Regulations PDF File:", v.PDF))
	b.WriteString("\n")
	b.WriteString(fileLine("Upload Dataset File:", v.CSV))
	b.WriteString("\n\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if m.uploading {
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), "Processing..."))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(resultStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func fileLine(label string, h *session.FileHandle) string {
	value := dimStyle.Render("no file selected")
	if h != nil {
		value = valueStyle.Render(h.Name) + " " + dimStyle.Render("("+h.Summary()+")")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), " ", value)
}

// renderResult formats the latest result for the viewport.
func renderResult(r core.Result, width int) string {
	switch r.Kind {
	case core.ResultFailed:
		msg := core.MapError(resultError(r.Message))
		var b strings.Builder
		b.WriteString(errorTitleStyle.Render("Upload Failed"))
		b.WriteString("\n")
		b.WriteString(wrap(r.Message, width))
		if msg.Action != "" {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("%s (Code: %s)", msg.Action, msg.Code)))
		}
		return b.String()

	case core.ResultSucceeded:
		panels := r.Panels()
		if len(panels) == 0 {
			return dimStyle.Render("The service returned no rules or validation response.")
		}
		parts := make([]string, 0, len(panels))
		for _, p := range panels {
			parts = append(parts, panelTitleStyle.Render(p.Field.Title)+"\n"+wrap(p.Text, width))
		}
		return strings.Join(parts, "\n\n")

	default:
		return dimStyle.Render("No response yet. Choose both files and press u to upload.")
	}
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

type resultError string

func (e resultError) Error() string { return string(e) }
