package prompt

import (
	"strings"
	"unicode/utf8"
)

// Key names emitted by the decoder for non-printable input.
const (
	KeyEnter     = "enter"
	KeyBackspace = "backspace"
	KeyTab       = "tab"
	KeyEscape    = "escape"
	KeyCtrlC     = "ctrl+c"
	KeyCtrlD     = "ctrl+d"
	KeyEOF       = "eof"
)

// Key is a single key press. Char is the typed character for printable
// keys; Name identifies the key (lower-cased character or one of the Key*
// constants).
type Key struct {
	Char rune
	Name string
}

// decoder turns raw terminal bytes into keys. It keeps state across reads
// so that CRLF counts as a single enter and split UTF-8 sequences are
// reassembled.
type decoder struct {
	afterCR bool
	pending []byte
}

func (d *decoder) decode(p []byte) []Key {
	buf := p
	if len(d.pending) > 0 {
		buf = append(d.pending, p...)
		d.pending = nil
	}

	var keys []Key
	for i := 0; i < len(buf); {
		b := buf[i]
		if b == '\n' && d.afterCR {
			d.afterCR = false
			i++
			continue
		}
		d.afterCR = b == '\r'

		switch {
		case b == '\r' || b == '\n':
			keys = append(keys, Key{Char: '\n', Name: KeyEnter})
			i++
		case b == 0x7f || b == 0x08:
			keys = append(keys, Key{Name: KeyBackspace})
			i++
		case b == '\t':
			keys = append(keys, Key{Char: '\t', Name: KeyTab})
			i++
		case b == 0x03:
			keys = append(keys, Key{Name: KeyCtrlC})
			i++
		case b == 0x04:
			keys = append(keys, Key{Name: KeyCtrlD})
			i++
		case b == 0x1b:
			keys = append(keys, Key{Name: KeyEscape})
			i += escapeLen(buf[i:])
		case b < 0x20:
			keys = append(keys, Key{Name: "ctrl+" + string(rune('a'+b-1))})
			i++
		default:
			if !utf8.FullRune(buf[i:]) {
				d.pending = append([]byte(nil), buf[i:]...)
				return keys
			}
			r, n := utf8.DecodeRune(buf[i:])
			keys = append(keys, Key{Char: r, Name: strings.ToLower(string(r))})
			i += n
		}
	}
	return keys
}

// escapeLen returns how many bytes of p (which starts with ESC) belong to
// one escape sequence.
func escapeLen(p []byte) int {
	if len(p) < 2 {
		return 1
	}
	switch p[1] {
	case '[':
		// CSI: parameters, then a final byte in 0x40-0x7e.
		for i := 2; i < len(p); i++ {
			if p[i] >= 0x40 && p[i] <= 0x7e {
				return i + 1
			}
		}
		return len(p)
	case 'O':
		if len(p) >= 3 {
			return 3
		}
		return len(p)
	default:
		return 2
	}
}
