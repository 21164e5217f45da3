package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette used for terminal output. lipgloss degrades to plain text when
// output is not a terminal.
var (
	colourPrimary   = lipgloss.Color("#7C3AED")
	colourSecondary = lipgloss.Color("#06B6D4")
	colourMuted     = lipgloss.Color("#6C7086")
	colourSuccess   = lipgloss.Color("#A6E3A1")
	colourWarning   = lipgloss.Color("#F9E2AF")
	colourError     = lipgloss.Color("#F38BA8")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	subtitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colourSecondary)
	mutedStyle    = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle  = lipgloss.NewStyle().Foreground(colourSuccess)
	warningStyle  = lipgloss.NewStyle().Foreground(colourWarning)
	errorStyle    = lipgloss.NewStyle().Foreground(colourError)
)

// statusStyle colours a job status.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "succeeded":
		return successStyle
	case "failed":
		return errorStyle
	case "skipped":
		return warningStyle
	default:
		return mutedStyle
	}
}

// truncate shortens s to at most maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// maskAPIKey hides all but the ends of a secret.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
