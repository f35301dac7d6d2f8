package keyboard

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	// inputEventSize is sizeof(struct input_event) with 64-bit time fields.
	inputEventSize = 24

	evKey = 0x01

	valueRelease = 0
	valuePress   = 1
	valueRepeat  = 2
)

// EvdevSource decodes Linux input_event records from a keyboard device.
type EvdevSource struct {
	r      io.Reader
	closer io.Closer

	closeOnce sync.Once
	closeErr  error

	held     map[uint16]bool
	capsLock bool
	record   [inputEventSize]byte
}

// OpenEvdev opens a keyboard device. The path may be a glob; the first sorted match is used.
func OpenEvdev(pattern string) (*EvdevSource, error) {
	path, err := ResolveDevice(pattern)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyboard device %q: %w", path, err)
	}
	return NewEvdevSource(f), nil
}

// NewEvdevSource reads records from r. If r is an io.Closer, Close closes it.
func NewEvdevSource(r io.Reader) *EvdevSource {
	s := &EvdevSource{r: r, held: make(map[uint16]bool)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// ResolveDevice expands a device glob to a single path.
func ResolveDevice(pattern string) (string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", errors.New("keyboard device is empty")
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern, nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("expand keyboard device %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no keyboard device matches %q", pattern)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// Next returns the next key event, skipping non-key records.
func (s *EvdevSource) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		if _, err := io.ReadFull(s.r, s.record[:]); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Event{}, ctxErr
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, os.ErrClosed) {
				return Event{}, ErrClosed
			}
			return Event{}, fmt.Errorf("read input event: %w", err)
		}

		typ := binary.NativeEndian.Uint16(s.record[16:18])
		code := binary.NativeEndian.Uint16(s.record[18:20])
		value := int32(binary.NativeEndian.Uint32(s.record[20:24]))
		if typ != evKey {
			continue
		}
		if ev, ok := s.decode(code, value); ok {
			return ev, nil
		}
	}
}

func (s *EvdevSource) decode(code uint16, value int32) (Event, bool) {
	pressed := value == valuePress || value == valueRepeat
	if value != valueRelease && !pressed {
		return Event{}, false
	}

	switch code {
	case keyLeftShift, keyRightShift, keyLeftCtrl, keyRightCtrl,
		keyLeftAlt, keyRightAlt, keyLeftMeta, keyRightMeta:
		s.held[code] = pressed
		return Event{Kind: KindOther, Pressed: pressed}, true
	case keyCapsLock:
		if value == valuePress {
			s.capsLock = !s.capsLock
		}
		return Event{Kind: KindOther, Pressed: pressed}, true
	case keyEsc:
		return Event{Kind: KindEscape, Pressed: pressed}, true
	case keyBackspace:
		return Event{Kind: KindBackspace, Pressed: pressed}, true
	case keySpace:
		// Space is a named key like Enter, not text.
		return Event{Kind: KindOther, Pressed: pressed}, true
	}

	// Chords are shortcuts, not text.
	if s.held[keyLeftCtrl] || s.held[keyRightCtrl] || s.held[keyLeftAlt] || s.held[keyRightAlt] ||
		s.held[keyLeftMeta] || s.held[keyRightMeta] {
		return Event{Kind: KindOther, Pressed: pressed}, true
	}

	shift := s.held[keyLeftShift] || s.held[keyRightShift]
	r, ok := translate(code, shift, s.capsLock)
	if !ok {
		return Event{Kind: KindOther, Pressed: pressed}, true
	}
	return Event{Kind: KindCharacter, Rune: r, Pressed: pressed}, true
}

// Close releases the underlying device. It is safe to call more than once.
func (s *EvdevSource) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}
