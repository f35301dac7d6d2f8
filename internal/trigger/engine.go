// Package trigger owns the typed-character window and suffix matching against known triggers.
package trigger

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/rbright/mojify/internal/mapping"
)

const (
	// capacityMargin keeps every trigger completable even with leading noise in the window.
	capacityMargin = 10
	// emptyCapacity is used when the mapping holds no triggers.
	emptyCapacity = 20
)

// Fired is emitted when the window ends with a known trigger.
type Fired struct {
	Trigger string
	Path    string
}

// Engine is the single-threaded trigger matcher. It is not safe for concurrent use.
type Engine struct {
	table  *mapping.Table
	logger *slog.Logger

	// lowerOrder lists lowercase triggers by the position of their first canonical source.
	lowerOrder []string
	// lowerIndex maps a lowercase trigger to the last canonical trigger that produced it.
	lowerIndex map[string]string

	buffer   []rune
	capacity int
}

// NewEngine builds the lowercase index and fixes the window capacity.
func NewEngine(table *mapping.Table, logger *slog.Logger) *Engine {
	if table == nil {
		table = mapping.NewTable()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		table:      table,
		logger:     logger,
		lowerIndex: make(map[string]string, table.Len()),
	}

	longest := 0
	table.Each(func(canonical, _ string) {
		if n := utf8.RuneCountInString(canonical); n > longest {
			longest = n
		}
		if canonical == "" {
			return
		}
		lower := strings.ToLower(canonical)
		if _, seen := e.lowerIndex[lower]; !seen {
			e.lowerOrder = append(e.lowerOrder, lower)
		}
		e.lowerIndex[lower] = canonical
	})

	if table.Len() == 0 {
		e.capacity = emptyCapacity
	} else {
		e.capacity = longest + capacityMargin
	}
	e.buffer = make([]rune, 0, e.capacity)
	return e
}

// OnCharacter appends r, evicting the oldest rune past capacity, then resolves.
func (e *Engine) OnCharacter(r rune) (Fired, bool) {
	e.buffer = append(e.buffer, r)
	if overflow := len(e.buffer) - e.capacity; overflow > 0 {
		e.buffer = append(e.buffer[:0], e.buffer[overflow:]...)
	}
	return e.resolve()
}

// OnBackspace drops the most recent rune if any, then resolves.
func (e *Engine) OnBackspace() (Fired, bool) {
	if len(e.buffer) > 0 {
		e.buffer = e.buffer[:len(e.buffer)-1]
	}
	return e.resolve()
}

func (e *Engine) resolve() (Fired, bool) {
	if len(e.buffer) == 0 || len(e.lowerOrder) == 0 {
		return Fired{}, false
	}

	window := strings.ToLower(string(e.buffer))
	for _, lower := range e.lowerOrder {
		if !strings.HasSuffix(window, lower) {
			continue
		}

		e.buffer = e.buffer[:0]

		canonical, ok := e.lowerIndex[lower]
		if !ok {
			e.logger.Error("trigger index miss", "trigger", lower)
			return Fired{}, false
		}
		path, ok := e.table.Get(canonical)
		if !ok {
			e.logger.Error("trigger has no mapped path", "trigger", canonical)
			return Fired{}, false
		}

		e.logger.Debug("trigger matched", "trigger", canonical, "path", path)
		return Fired{Trigger: canonical, Path: path}, true
	}
	return Fired{}, false
}

// Capacity returns the fixed window size.
func (e *Engine) Capacity() int {
	return e.capacity
}

// Buffer returns the current window contents.
func (e *Engine) Buffer() string {
	return string(e.buffer)
}

// Triggers returns the number of distinct lowercase triggers.
func (e *Engine) Triggers() int {
	return len(e.lowerOrder)
}
