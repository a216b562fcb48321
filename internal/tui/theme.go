package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// Theme holds the accent-color-derived styles. Kind styles are package-level
// and shared by every theme.
type Theme struct {
	accentStyle lipgloss.Style // prompt marker
	iterStyle   lipgloss.Style // iteration separators
}

// NewTheme creates a Theme from a hex accent color string (e.g. "#7D56F4").
// If accentColor is empty, the default accent color is used.
func NewTheme(accentColor string) Theme {
	color := defaultAccentColor
	if accentColor != "" {
		color = accentColor
	}
	c := lipgloss.Color(color)
	return Theme{
		accentStyle: lipgloss.NewStyle().
			Foreground(c).
			Bold(true),
		iterStyle: lipgloss.NewStyle().
			Foreground(c),
	}
}

// Marker renders the prompt marker.
func (t Theme) Marker(s string) string {
	return t.accentStyle.Render(s)
}

// RenderEntry renders a report entry as a single terminal line. It has the
// signature of report.Sink.Format.
func (t Theme) RenderEntry(e report.Entry) string {
	ts := timestampStyle.Render(fmt.Sprintf("[%s]", e.Timestamp.Format("15:04:05")))
	msg := singleLine(e.Message)

	if e.Kind == report.LogIterStart {
		return fmt.Sprintf("%s  %s", ts, t.iterStyle.Render(msg))
	}
	if icon := kindIcon(e.Kind); icon != "" {
		msg = icon + " " + msg
	}
	return fmt.Sprintf("%s  %s", ts, kindStyle(e.Kind).Render(msg))
}

// singleLine collapses line breaks so a multi-line value stays on one row.
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
