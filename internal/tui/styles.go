package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Body     lipgloss.Style
	Hint     lipgloss.Style
	Subtle   lipgloss.Style
	Textarea lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AD8CFF")).
			Bold(true).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1),
		Body: lipgloss.NewStyle().
			Padding(0, 1),
		Hint: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("#555")).
			MarginTop(1).
			Padding(0, 1),
		Subtle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1),
		Textarea: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#AD8CFF")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00E6B8")).
			Bold(true),
	}
}
