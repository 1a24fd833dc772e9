package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary   = lipgloss.Color("#7D56F4")
	secondary = lipgloss.Color("#04B575")
	textLight = lipgloss.Color("#E4E4E4")
	textDim   = lipgloss.Color("#626262")

	subtle  = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	warning = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#FF5F87"}

	headerStyle = lipgloss.NewStyle().
			Foreground(textLight).
			Background(primary).
			Padding(0, 1).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().Foreground(textDim)

	labelStyle = lipgloss.NewStyle().Foreground(secondary).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(textLight)
	dimStyle   = lipgloss.NewStyle().Foreground(textDim)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(secondary).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(subtle)

	errorTitleStyle = lipgloss.NewStyle().Foreground(warning).Bold(true)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtle).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().Foreground(warning).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(secondary)

	pickerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(0, 1)
)
