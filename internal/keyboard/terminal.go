package keyboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	byteCtrlC     = 0x03
	byteBackspace = 0x08
	byteEsc       = 0x1b
	byteDelete    = 0x7f
)

// TerminalSource decodes raw terminal bytes into key events.
//
// Terminals only report key-down, so characters and backspace arrive pressed and
// escape (or Ctrl-C) arrives as a release.
type TerminalSource struct {
	events chan Event
	done   chan struct{}

	readErr error

	fd    int
	state *term.State

	closeOnce sync.Once
	closeErr  error
}

// NewTerminalSource starts decoding r. When r is a terminal it is switched to raw mode
// until Close.
func NewTerminalSource(r io.Reader) (*TerminalSource, error) {
	s := &TerminalSource{
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		fd:     -1,
	}

	if f, ok := r.(interface{ Fd() uintptr }); ok {
		fd := int(f.Fd())
		if term.IsTerminal(fd) {
			state, err := term.MakeRaw(fd)
			if err != nil {
				return nil, fmt.Errorf("enable raw mode: %w", err)
			}
			s.fd = fd
			s.state = state
		}
	}

	go s.pump(r)
	return s, nil
}

func (s *TerminalSource) pump(r io.Reader) {
	defer close(s.events)

	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			var decoded []Event
			decoded, pending = decodeTerminal(append(pending, buf[:n]...))
			for _, ev := range decoded {
				select {
				case s.events <- ev:
				case <-s.done:
					return
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.readErr = ErrClosed
			} else {
				s.readErr = fmt.Errorf("read terminal: %w", err)
			}
			return
		}
	}
}

// decodeTerminal converts one chunk of input and returns any trailing partial rune.
func decodeTerminal(chunk []byte) ([]Event, []byte) {
	events := make([]Event, 0, len(chunk))
	for i := 0; i < len(chunk); {
		b := chunk[i]
		switch {
		case b == byteEsc:
			if i+1 < len(chunk) && (chunk[i+1] == '[' || chunk[i+1] == 'O') {
				i += escapeSequenceLen(chunk[i:])
				events = append(events, Event{Kind: KindOther, Pressed: true})
				continue
			}
			events = append(events, Event{Kind: KindEscape, Pressed: false})
			i++
		case b == byteCtrlC:
			events = append(events, Event{Kind: KindEscape, Pressed: false})
			i++
		case b == byteDelete || b == byteBackspace:
			events = append(events, Event{Kind: KindBackspace, Pressed: true})
			i++
		case b < 0x20 || b == ' ':
			events = append(events, Event{Kind: KindOther, Pressed: true})
			i++
		default:
			if !utf8.FullRune(chunk[i:]) {
				return events, append([]byte(nil), chunk[i:]...)
			}
			r, size := utf8.DecodeRune(chunk[i:])
			if r == utf8.RuneError {
				events = append(events, Event{Kind: KindOther, Pressed: true})
			} else {
				events = append(events, Event{Kind: KindCharacter, Rune: r, Pressed: true})
			}
			i += size
		}
	}
	return events, nil
}

// escapeSequenceLen measures a CSI (ESC [ ... final) or SS3 (ESC O x) sequence.
func escapeSequenceLen(seq []byte) int {
	if seq[1] == 'O' {
		return min(3, len(seq))
	}
	for i := 2; i < len(seq); i++ {
		if seq[i] >= 0x40 && seq[i] <= 0x7e {
			return i + 1
		}
	}
	return len(seq)
}

// Next returns the next decoded event.
func (s *TerminalSource) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-s.done:
		return Event{}, ErrClosed
	case ev, ok := <-s.events:
		if !ok {
			if s.readErr != nil {
				return Event{}, s.readErr
			}
			return Event{}, ErrClosed
		}
		return ev, nil
	}
}

// Close restores the terminal mode. The reader goroutine exits on its next read.
func (s *TerminalSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.state != nil {
			s.closeErr = term.Restore(s.fd, s.state)
		}
	})
	return s.closeErr
}
