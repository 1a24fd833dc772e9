package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PickPDF          key.Binding
	PickCSV          key.Binding
	Upload           key.Binding
	ExportRules      key.Binding
	ExportValidation key.Binding
	Cancel           key.Binding
	Help             key.Binding
	Quit             key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PickPDF, k.PickCSV, k.Upload, k.ExportRules, k.ExportValidation, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PickPDF, k.PickCSV, k.Upload},
		{k.ExportRules, k.ExportValidation},
		{k.Cancel, k.Help, k.Quit},
	}
}

var keys = keyMap{
	PickPDF: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "choose PDF"),
	),
	PickCSV: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "choose CSV"),
	),
	Upload: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "upload files"),
	),
	ExportRules: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "export rules"),
	),
	ExportValidation: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "export validation"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close picker"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
