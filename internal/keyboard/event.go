// Package keyboard turns raw key input into the small event vocabulary the listener consumes.
package keyboard

import (
	"context"
	"errors"
)

// Kind classifies one key event.
type Kind int

const (
	KindOther Kind = iota
	KindCharacter
	KindBackspace
	KindEscape
)

func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindBackspace:
		return "backspace"
	case KindEscape:
		return "escape"
	default:
		return "other"
	}
}

// Event is one key-down or key-up observation.
type Event struct {
	Kind    Kind
	Rune    rune
	Pressed bool
}

// Source yields key events one at a time.
type Source interface {
	// Next blocks until an event is available, the source ends, or ctx is done.
	Next(ctx context.Context) (Event, error)
	Close() error
}

// ErrClosed is returned by Next after Close or end of input.
var ErrClosed = errors.New("keyboard source closed")
