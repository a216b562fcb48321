// Package prompt asks the operator whether to re-run the loop or continue.
// Keystrokes are collected into a line and the line is classified once the
// operator presses enter.
package prompt

import (
	"errors"
	"strings"
)

// Decision is the operator's answer to a prompt.
type Decision int

const (
	Rerun Decision = iota + 1
	Continue
)

func (d Decision) String() string {
	switch d {
	case Rerun:
		return "rerun"
	case Continue:
		return "continue"
	default:
		return "none"
	}
}

// Instructions is reported each time a prompt starts.
const Instructions = `Awaiting input. Enter "r" to re-run loop, or "c" to continue.`

var (
	// ErrInterrupted is returned when the operator presses ctrl+c while the
	// terminal is in raw mode and SIGINT is not delivered.
	ErrInterrupted = errors.New("prompt: interrupted")

	// ErrInputClosed is returned when input ends (EOF or ctrl+d) before a
	// decision was made.
	ErrInputClosed = errors.New("prompt: input closed")

	// ErrBusy is returned when a prompt is already waiting for input.
	ErrBusy = errors.New("prompt: another prompt is active")
)

// Classify maps an entered line to a decision. Surrounding whitespace is
// ignored; anything but "r" or "c" is unrecognized.
func Classify(line string) (Decision, bool) {
	switch strings.TrimSpace(line) {
	case "r":
		return Rerun, true
	case "c":
		return Continue, true
	default:
		return 0, false
	}
}
