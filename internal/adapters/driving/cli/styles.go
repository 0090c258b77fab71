package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette colours.
var (
	colourPrimary = lipgloss.Color("#7C3AED") // Purple
	colourAccent  = lipgloss.Color("#06B6D4") // Cyan
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
)

// styles groups the text styles used by command output.
type styles struct {
	Title   lipgloss.Style
	Code    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Prompt  lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
		Code:    lipgloss.NewStyle().Foreground(colourAccent),
		Muted:   lipgloss.NewStyle().Foreground(colourMuted),
		Success: lipgloss.NewStyle().Foreground(colourSuccess),
		Warning: lipgloss.NewStyle().Foreground(colourWarning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(colourError),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(colourAccent),
	}
}

var style = newStyles()
