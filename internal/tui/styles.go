package tui

import "github.com/charmbracelet/lipgloss"

// palette, ANSI 256
const (
	colorGreen  = lipgloss.Color("42")
	colorOrange = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("12")
	colorRed    = lipgloss.Color("9")
	colorBorder = lipgloss.Color("8")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorGreen)
	pendingStyle = lipgloss.NewStyle().Foreground(colorOrange)
	accentStyle  = lipgloss.NewStyle().Foreground(colorBlue)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	helpStyle    = mutedStyle

	// list rows
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = mutedStyle.Strikethrough(true)

	// login panel and the add/edit form
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

const (
	boxChecked   = "☑"
	boxUnchecked = "☐"
)

func boxed(inner string) string { return boxStyle.Render(inner) }
