package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/prompt"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// Prompter asks for each decision with an inline bubbletea program. The
// program owns the terminal only while a prompt is active. Input that is not
// a terminal is read through a prompt.Terminal shared by every prompt, so
// keys typed ahead of one prompt reach the next.
type Prompter struct {
	In     io.Reader    // defaults to os.Stdin
	Out    io.Writer    // defaults to os.Stdout
	Report *report.Sink // instructions and unknown-input messages
	Theme  Theme
	Marker string // defaults to prompt.DefaultMarker

	busy   atomic.Bool
	device *prompt.Terminal
}

// NewPrompter returns a Prompter using the given accent color.
func NewPrompter(in io.Reader, out io.Writer, sink *report.Sink, accentColor string) *Prompter {
	return &Prompter{In: in, Out: out, Report: sink, Theme: NewTheme(accentColor)}
}

// AwaitDecision runs a prompt program until the operator enters "r" or "c".
func (p *Prompter) AwaitDecision(ctx context.Context) (prompt.Decision, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return 0, prompt.ErrBusy
	}
	defer p.busy.Store(false)

	p.Report.Emit(report.Entry{Kind: report.LogAwaiting, Message: prompt.Instructions})

	marker := p.Marker
	if marker == "" {
		marker = prompt.DefaultMarker
	}
	in := p.In
	if in == nil {
		in = os.Stdin
	}
	out := p.Out
	if out == nil {
		out = os.Stdout
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	var dev *prompt.Terminal
	if isTerminal(in) {
		opts = append(opts, tea.WithInput(in))
	} else {
		dev = p.inputDevice(in)
		if err := dev.Resume(); err != nil {
			return 0, err
		}
		defer func() { _ = dev.Pause() }()
		opts = append(opts, tea.WithInput(nil))
	}

	program := tea.NewProgram(NewModel(p.Theme, marker, p.Report), opts...)

	stop := make(chan struct{})
	fed := make(chan struct{})
	if dev != nil {
		go func() {
			defer close(fed)
			feed(program, dev.Keys(), stop)
		}()
	} else {
		close(fed)
	}

	final, err := program.Run()
	close(stop)
	<-fed

	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	if err != nil {
		return 0, fmt.Errorf("tui: run prompt: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return 0, fmt.Errorf("tui: unexpected model %T", final)
	}
	d, err := m.Decision()
	if err != nil {
		return 0, err
	}
	if d == 0 {
		// Quit without a decision, e.g. on SIGINT.
		return 0, prompt.ErrInterrupted
	}
	return d, nil
}

func (p *Prompter) inputDevice(in io.Reader) *prompt.Terminal {
	if p.device == nil {
		if f, ok := in.(*os.File); ok {
			p.device = prompt.NewTerminal(f)
		} else {
			p.device = prompt.NewStream(in)
		}
	}
	return p.device
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// feed sends keys to program one at a time and waits for the model to
// handle each. It stops taking keys once the prompt is done, leaving the
// rest queued on the device.
func feed(program *tea.Program, keys <-chan prompt.Key, stop <-chan struct{}) {
	ack := make(chan bool, 1)
	for {
		var k prompt.Key
		select {
		case <-stop:
			return
		case k = <-keys:
		}

		msg := keyToMsg(k)
		if msg == nil {
			continue
		}
		program.Send(deviceKeyMsg{msg: msg, ack: ack})

		select {
		case <-stop:
			return
		case done := <-ack:
			if done {
				return
			}
		}
	}
}

// keyToMsg converts a decoded key into the message bubbletea would have
// produced for it. Keys the prompt has no use for map to nil.
func keyToMsg(k prompt.Key) tea.Msg {
	switch k.Name {
	case prompt.KeyEOF:
		return inputClosedMsg{}
	case prompt.KeyEnter:
		return tea.KeyMsg{Type: tea.KeyEnter}
	case prompt.KeyBackspace:
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case prompt.KeyTab:
		return tea.KeyMsg{Type: tea.KeyTab}
	case prompt.KeyEscape:
		return tea.KeyMsg{Type: tea.KeyEsc}
	case prompt.KeyCtrlC:
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case prompt.KeyCtrlD:
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	}
	if k.Char == 0 || k.Char < 0x20 {
		return nil
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{k.Char}}
}
