package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/prompt"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(deviceKeyMsg); ok {
		next, cmd := m.Update(km.msg)
		km.ack <- next.(Model).done
		return next, cmd
	}
	if m.done {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m.finish(prompt.ErrInterrupted)
		case tea.KeyCtrlD:
			return m.finish(prompt.ErrInputClosed)
		case tea.KeyEnter:
			return m.handleEnter()
		}

	case inputClosedMsg:
		return m.finish(prompt.ErrInputClosed)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	entered := m.input.Value()
	m.input.Reset()

	if d, ok := prompt.Classify(entered); ok {
		m.entered = entered
		m.decision = d
		m.done = true
		return m, tea.Quit
	}

	e := report.Entry{
		Kind:      report.LogUnknownInput,
		Timestamp: time.Now(),
		Message:   fmt.Sprintf("Unknown input %q.", entered),
		Input:     entered,
	}
	m.report.Publish(e)
	return m, tea.Println(m.theme.RenderEntry(e))
}

func (m Model) finish(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.done = true
	return m, tea.Quit
}
