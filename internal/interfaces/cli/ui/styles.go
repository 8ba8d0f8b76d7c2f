// Package ui holds the terminal presentation of the ChemXGen CLI: lipgloss
// styles, tables and the live task watcher.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/turtacn/ChemXGen/internal/domain/task"
)

var (
	ColorPrimary   = lipgloss.Color("39")  // Blue
	ColorSecondary = lipgloss.Color("241") // Gray
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorError     = lipgloss.Color("160") // Red
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorText      = lipgloss.Color("252")

	StyleTitle   = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleSubtle  = lipgloss.NewStyle().Foreground(ColorSecondary)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleText    = lipgloss.NewStyle().Foreground(ColorText)

	StyleBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Padding(0, 1)
)

// StatusLabel renders a task status with its icon and colour.
func StatusLabel(s task.Status) string {
	switch s {
	case task.StatusRunning:
		return StyleWarning.Render("● running")
	case task.StatusCompleted:
		return StyleSuccess.Render("✓ completed")
	case task.StatusFailed:
		return StyleError.Render("✗ failed")
	default:
		return StyleSubtle.Render(string(s))
	}
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
