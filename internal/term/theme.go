// Package term centralizes console styling for the interactive session.
package term

import "github.com/charmbracelet/lipgloss"

// Theme holds every style used on the interactive console. Keeping them in
// one place makes future theme support trivial.
type Theme struct {
	Banner Lines
	Prompt lipgloss.Style

	// Lifecycle notices
	Queued   lipgloss.Style
	Dispatch lipgloss.Style
	Done     lipgloss.Style
	Failed   lipgloss.Style
	Warn     lipgloss.Style
}

// Lines styles multi-line blocks such as the startup banner.
type Lines struct {
	Frame lipgloss.Style
	Title lipgloss.Style
}

func DefaultTheme() Theme {
	blue := lipgloss.Color("#61AFEF")

	return Theme{
		Banner: Lines{
			Frame: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
			Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")),
		},
		Prompt:   lipgloss.NewStyle().Bold(true).Foreground(blue),
		Queued:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Dispatch: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Done:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Failed:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Warn:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
	}
}
