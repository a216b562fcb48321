// Package report delivers the status messages of the reload loop: reload
// failures, pass summaries, driver results and prompt feedback.
package report

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Sink is the destination for report entries. The zero value writes
// timestamped lines to os.Stdout.
type Sink struct {
	// Log receives formatted lines. Defaults to os.Stdout.
	Log io.Writer

	// Hook is called with every entry after it is delivered.
	Hook func(Entry)

	// Format renders entries written to Log. Defaults to Format.
	Format func(Entry) string
}

// Emit writes e to Log once and passes it to Hook. A zero Timestamp is
// filled in with the current time.
func (s *Sink) Emit(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	fmt.Fprintln(s.writer(), s.format(e))
	s.hook(e)
}

// Publish passes e to Hook without writing it. It is used by callers that
// render the line themselves, such as a running bubbletea program.
func (s *Sink) Publish(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.hook(e)
}

// Logf emits an entry of the given kind with a formatted message.
func (s *Sink) Logf(kind Kind, format string, args ...any) {
	s.Emit(Entry{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Format renders e as a single log line.
func Format(e Entry) string {
	return fmt.Sprintf("[%s]  %s", e.Timestamp.Format("15:04:05"), e.Message)
}

func (s *Sink) writer() io.Writer {
	if s == nil || s.Log == nil {
		return os.Stdout
	}
	return s.Log
}

func (s *Sink) format(e Entry) string {
	if s == nil || s.Format == nil {
		return Format(e)
	}
	return s.Format(e)
}

func (s *Sink) hook(e Entry) {
	if s != nil && s.Hook != nil {
		s.Hook(e)
	}
}
