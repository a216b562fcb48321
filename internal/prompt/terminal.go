package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

// Device is a keyboard that only delivers keys while resumed.
type Device interface {
	Resume() error
	Pause() error
	Keys() <-chan Key
}

// Terminal is a Device reading from a file, usually os.Stdin. While resumed
// a tty is in raw mode; Pause restores the previous terminal state and stops
// the reader goroutine, so nothing holds the input between prompts.
//
// Input that cannot be polled (regular files, /dev/null, in-memory readers)
// is read as-is by a single goroutine that runs until EOF.
type Terminal struct {
	in   io.Reader
	file *os.File // nil for NewStream
	keys chan Key

	mu     sync.Mutex
	active bool
	stream bool
	state  *term.State
	reader cancelreader.CancelReader
	stop   chan struct{}
	done   chan struct{}
}

// NewTerminal returns a paused Terminal reading from in.
func NewTerminal(in *os.File) *Terminal {
	return &Terminal{
		in:   in,
		file: in,
		keys: make(chan Key, 64),
	}
}

// NewStream returns a paused Terminal reading from r, which is not a
// terminal. Keys not consumed while resumed wait for the next Resume.
func NewStream(r io.Reader) *Terminal {
	return &Terminal{
		in:   r,
		keys: make(chan Key, 64),
	}
}

// Keys returns the channel keys are delivered on.
func (t *Terminal) Keys() <-chan Key {
	return t.keys
}

// Resume puts a tty into raw mode and starts reading keys. Keys read but not
// consumed in a previous session are delivered first, the way a terminal
// keeps type-ahead. Resuming an active Terminal is a no-op.
func (t *Terminal) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return nil
	}
	if t.stream || t.file == nil {
		t.startStream()
		return nil
	}

	fd := int(t.file.Fd())
	tty := term.IsTerminal(fd)
	if tty {
		st, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("prompt: raw mode: %w", err)
		}
		t.state = st
	}

	r, err := cancelreader.NewReader(t.file)
	if err != nil {
		if !tty {
			// Regular files and /dev/null cannot be polled; reads on them
			// never block.
			t.startStream()
			return nil
		}
		_ = t.restore()
		return fmt.Errorf("prompt: input reader: %w", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	t.reader = r
	t.stop = stop
	t.done = done
	t.active = true
	go func() {
		defer close(done)
		t.read(r, stop)
	}()
	return nil
}

// startStream marks the Terminal active and starts the EOF-bound reader on
// first use.
func (t *Terminal) startStream() {
	t.active = true
	if t.stream {
		return
	}
	t.stream = true
	go t.read(t.in, nil)
}

// Pause stops delivering keys and restores the terminal. It returns once the
// reader goroutine has exited. A key decoded while Pause cancels the read is
// still queued if there is room, and is delivered after the next Resume. A
// stream reader is not stopped; it keeps queueing keys until EOF. Pausing an
// inactive Terminal is a no-op.
func (t *Terminal) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return nil
	}
	t.active = false
	if t.reader == nil {
		return nil
	}

	close(t.stop)
	if t.reader.Cancel() {
		<-t.done
		_ = t.reader.Close()
	}
	t.reader = nil
	return t.restore()
}

func (t *Terminal) read(r io.Reader, stop <-chan struct{}) {
	var dec decoder
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, k := range dec.decode(buf[:n]) {
			if !t.deliver(k, stop) {
				return
			}
		}
		if err != nil {
			if errors.Is(err, cancelreader.ErrCanceled) {
				return
			}
			t.deliver(Key{Name: KeyEOF}, stop)
			return
		}
	}
}

// deliver queues k. A key is only dropped when the queue is full after the
// terminal was paused. A nil stop never drops.
func (t *Terminal) deliver(k Key, stop <-chan struct{}) bool {
	select {
	case t.keys <- k:
		return true
	default:
	}
	select {
	case t.keys <- k:
		return true
	case <-stop:
		return false
	}
}

func (t *Terminal) restore() error {
	if t.state == nil {
		return nil
	}
	st := t.state
	t.state = nil
	if err := term.Restore(int(t.file.Fd()), st); err != nil {
		return fmt.Errorf("prompt: restore terminal: %w", err)
	}
	return nil
}
