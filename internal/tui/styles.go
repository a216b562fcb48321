// Package tui provides a bubbletea + lipgloss prompter and styled report
// lines for the reload loop.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// defaultAccentColor is the default accent color (indigo).
const defaultAccentColor = "#7D56F4"

var (
	colorWhite  = lipgloss.Color("#FAFAFA")
	colorGray   = lipgloss.Color("#888888")
	colorBlue   = lipgloss.Color("#5B9BD5")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
)

var (
	timestampStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	reloadStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorWhite)
)

// kindIcon returns the icon shown before an entry of the given kind.
func kindIcon(k report.Kind) string {
	switch k {
	case report.LogReloaded:
		return "🔄"
	case report.LogReloadFailed, report.LogRejected:
		return "❌"
	case report.LogResolved, report.LogDone:
		return "✅"
	case report.LogAwaiting:
		return "⏸"
	case report.LogUnknownInput:
		return "❓"
	case report.LogRerun:
		return "🔁"
	default:
		return ""
	}
}

// kindStyle returns the lipgloss style for the given kind.
func kindStyle(k report.Kind) lipgloss.Style {
	switch k {
	case report.LogReloaded:
		return reloadStyle
	case report.LogReloadFailed, report.LogRejected:
		return errorStyle
	case report.LogResolved, report.LogDone:
		return resultStyle
	case report.LogAwaiting:
		return hintStyle
	case report.LogUnknownInput, report.LogRerun:
		return warnStyle
	default:
		return infoStyle
	}
}
