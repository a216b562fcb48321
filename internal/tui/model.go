package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/prompt"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// inputClosedMsg is sent when a non-terminal input reaches EOF.
type inputClosedMsg struct{}

// deviceKeyMsg carries a key read from a prompt.Terminal. Update reports on
// ack whether the prompt finished while handling it.
type deviceKeyMsg struct {
	msg tea.Msg
	ack chan<- bool
}

// Model is the bubbletea model for a single decision prompt.
type Model struct {
	input  textinput.Model
	theme  Theme
	report *report.Sink

	entered  string
	decision prompt.Decision
	err      error
	done     bool
}

// NewModel creates a focused prompt model. Unknown input is published to
// sink and printed above the prompt.
func NewModel(theme Theme, marker string, sink *report.Sink) Model {
	ti := textinput.New()
	ti.Prompt = theme.Marker(marker)
	ti.CharLimit = 256
	ti.Focus()
	return Model{input: ti, theme: theme, report: sink}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Decision returns the operator's decision, or the error that ended the
// prompt without one.
func (m Model) Decision() (prompt.Decision, error) {
	return m.decision, m.err
}

// Done reports whether the prompt has finished.
func (m Model) Done() bool {
	return m.done
}
