package prompt

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"unicode"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// DefaultMarker is written before the operator's input.
const DefaultMarker = "[reloop> "

// Line is a line-buffered Prompter. It resumes the device for the duration
// of one AwaitDecision call and echoes what the operator types, since raw
// mode disables the terminal's own echo.
type Line struct {
	Device Device
	Out    io.Writer    // echo and marker; defaults to os.Stdout
	Report *report.Sink // instructions and unknown-input messages
	Marker string       // defaults to DefaultMarker

	busy atomic.Bool
}

// NewLine returns a Line prompter reading keys from dev.
func NewLine(dev Device, out io.Writer, sink *report.Sink) *Line {
	return &Line{Device: dev, Out: out, Report: sink}
}

// AwaitDecision blocks until the operator enters "r" or "c". Unrecognized
// lines are reported and the prompt is shown again. The device is paused
// before returning on every path.
func (p *Line) AwaitDecision(ctx context.Context) (Decision, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	defer p.busy.Store(false)

	p.Report.Emit(report.Entry{Kind: report.LogAwaiting, Message: Instructions})

	if err := p.Device.Resume(); err != nil {
		return 0, err
	}
	defer func() { _ = p.Device.Pause() }()

	p.showMarker()
	var line []rune
	for {
		select {
		case <-ctx.Done():
			p.write("\r\n")
			return 0, ctx.Err()

		case k := <-p.Device.Keys():
			switch k.Name {
			case KeyCtrlC:
				p.write("^C\r\n")
				return 0, ErrInterrupted

			case KeyCtrlD, KeyEOF:
				p.write("\r\n")
				return 0, ErrInputClosed

			case KeyEnter:
				p.write("\r\n")
				entered := string(line)
				line = line[:0]
				if d, ok := Classify(entered); ok {
					return d, nil
				}
				p.Report.Emit(report.Entry{
					Kind:    report.LogUnknownInput,
					Message: fmt.Sprintf("Unknown input %q.", entered),
					Input:   entered,
				})
				p.showMarker()

			case KeyBackspace:
				if len(line) > 0 {
					line = line[:len(line)-1]
					p.write("\b \b")
				}

			default:
				if k.Char != 0 && unicode.IsPrint(k.Char) {
					line = append(line, k.Char)
					p.write(string(k.Char))
				}
			}
		}
	}
}

// showMarker starts the marker at column 0; report lines written while the
// terminal is raw end in a bare newline.
func (p *Line) showMarker() {
	marker := p.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	p.write("\r" + marker)
}

func (p *Line) write(s string) {
	w := p.Out
	if w == nil {
		w = os.Stdout
	}
	_, _ = io.WriteString(w, s)
}
