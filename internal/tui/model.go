// Package tui is a terminal front end for the upload workflow. It drives the
// same session.Session as the web UI: pick a PDF and a CSV, upload them, read
// the generated rules and validation response and save either as CSV.
package tui

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/profiler/internal/export"
	"github.com/JonMunkholm/profiler/internal/session"
)

// Title is the heading shown at the top of the screen.
const Title = "Gen AI based Data profiling"

type mode int

const (
	modeMain mode = iota
	modePickPDF
	modePickCSV
)

// Options configure a Model.
type Options struct {
	Session *session.Session

	// Downloader receives exported CSV files.
	Downloader export.Downloader

	// MaxFileSize rejects larger selections; zero means unlimited.
	MaxFileSize int64

	// StartDir is where the file pickers open; empty means the working directory.
	StartDir string
}

// Model is the bubbletea model.
type Model struct {
	ctx        context.Context
	sess       *session.Session
	exporter   export.Exporter
	downloader export.Downloader
	maxSize    int64
	startDir   string

	mode     mode
	picker   filepicker.Model
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap

	width     int
	height    int
	uploading bool
	status    string
	notice    string
}

// New creates a Model. ctx bounds uploads started from the UI.
func New(ctx context.Context, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primary)

	h := help.New()
	h.Styles.ShortKey = h.Styles.ShortKey.Foreground(primary)
	h.Styles.ShortDesc = h.Styles.ShortDesc.Foreground(textDim)
	h.Styles.FullKey = h.Styles.FullKey.Foreground(primary)
	h.Styles.FullDesc = h.Styles.FullDesc.Foreground(textDim)

	startDir := opts.StartDir
	if startDir == "" {
		if wd, err := os.Getwd(); err == nil {
			startDir = wd
		} else {
			startDir = "."
		}
	}

	sess := opts.Session
	if sess == nil {
		sess = session.New("", nil)
	}

	m := &Model{
		ctx:        ctx,
		sess:       sess,
		downloader: opts.Downloader,
		maxSize:    opts.MaxFileSize,
		startDir:   startDir,
		spinner:    s,
		viewport:   viewport.New(80, 12),
		help:       h,
		keys:       keys,
	}
	m.refreshResult()
	return m
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// openPicker switches to a file picker filtered to the given kind.
func (m *Model) openPicker(kind session.FileKind) tea.Cmd {
	fp := filepicker.New()
	fp.CurrentDirectory = m.startDir
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.ShowHidden = false
	fp.AutoHeight = false
	fp.Height = m.pickerHeight()

	if kind == session.KindPDF {
		fp.AllowedTypes = []string{".pdf"}
		m.mode = modePickPDF
	} else {
		fp.AllowedTypes = []string{".csv"}
		m.mode = modePickCSV
	}
	m.picker = fp
	return m.picker.Init()
}

func (m *Model) pickerHeight() int {
	height := 12
	if m.height > 0 {
		height = max(m.height-8, 5)
	}
	return height
}

func (m *Model) pickerKind() session.FileKind {
	if m.mode == modePickPDF {
		return session.KindPDF
	}
	return session.KindCSV
}
