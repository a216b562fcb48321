package tui

// View renders the prompt line. Once a decision is made the entered line is
// left in the scrollback.
func (m Model) View() string {
	if !m.done {
		return m.input.View()
	}
	if m.err != nil {
		return ""
	}
	return m.input.Prompt + m.entered + "\n"
}
