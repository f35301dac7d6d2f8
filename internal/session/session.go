// Package session runs the listener loop: key events in, trigger replacements out.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rbright/mojify/internal/fsm"
	"github.com/rbright/mojify/internal/ipc"
	"github.com/rbright/mojify/internal/keyboard"
	"github.com/rbright/mojify/internal/trigger"
)

// StopReason explains why Run returned.
type StopReason string

const (
	StopEscape      StopReason = "escape"
	StopCancelled   StopReason = "cancelled"
	StopInputClosed StopReason = "input-closed"
	StopFailed      StopReason = "failed"
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State      fsm.State
	Reason     StopReason
	Fired      int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Replacer performs the clipboard/backspace/paste sequence for one fired trigger.
type Replacer interface {
	Replace(context.Context, trigger.Fired) error
}

// ReplaceFunc adapts a function to the Replacer interface.
type ReplaceFunc func(context.Context, trigger.Fired) error

func (f ReplaceFunc) Replace(ctx context.Context, fired trigger.Fired) error {
	return f(ctx, fired)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	CueStart(context.Context)
	CueFired(ctx context.Context, key, path string)
	CueStop(context.Context)
	ShowError(ctx context.Context, summary, detail string)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) CueStart(context.Context)                  {}
func (noopIndicator) CueFired(context.Context, string, string)  {}
func (noopIndicator) CueStop(context.Context)                   {}
func (noopIndicator) ShowError(context.Context, string, string) {}

// Options carries descriptive metadata reported over IPC.
type Options struct {
	MappingFile string
	SourceName  string
}

// Controller owns the trigger engine and drives it from one keyboard source.
type Controller struct {
	logger    *slog.Logger
	engine    *trigger.Engine
	replacer  Replacer
	indicator Indicator
	opts      Options

	mu          sync.RWMutex
	state       fsm.State
	fired       int
	lastTrigger string
	startedAt   time.Time
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	engine *trigger.Engine,
	replacer Replacer,
	indicator Indicator,
	opts Options,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if engine == nil {
		engine = trigger.NewEngine(nil, logger)
	}
	if replacer == nil {
		replacer = ReplaceFunc(func(context.Context, trigger.Fired) error { return nil })
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}

	return &Controller{
		logger:    logger,
		engine:    engine,
		replacer:  replacer,
		indicator: indicator,
		opts:      opts,
		state:     fsm.StateIdle,
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Fired returns how many replacements ran.
func (c *Controller) Fired() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fired
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run consumes events one at a time until escape is released, the source ends, or ctx is done.
//
// A fired trigger runs its replacement to completion before the next event is read.
func (c *Controller) Run(ctx context.Context, src keyboard.Source) Result {
	result := Result{StartedAt: time.Now()}

	if err := c.transition(fsm.EventStart); err != nil {
		return c.finish(result, StopFailed, err)
	}

	c.mu.Lock()
	c.startedAt = result.StartedAt
	c.mu.Unlock()

	c.logger.Info("listener started",
		"triggers", c.engine.Triggers(),
		"capacity", c.engine.Capacity(),
		"source", c.opts.SourceName,
	)
	c.indicator.CueStart(ctx)

	for {
		ev, err := src.Next(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return c.stop(result, StopCancelled, nil)
			case errors.Is(err, keyboard.ErrClosed):
				return c.stop(result, StopInputClosed, nil)
			default:
				c.indicator.ShowError(context.Background(), "Keyboard input failed", err.Error())
				_ = c.transition(fsm.EventFail)
				return c.finish(result, StopFailed, fmt.Errorf("read key event: %w", err))
			}
		}

		var (
			fired trigger.Fired
			ok    bool
		)
		switch {
		case ev.Kind == keyboard.KindEscape && !ev.Pressed:
			return c.stop(result, StopEscape, nil)
		case ev.Kind == keyboard.KindCharacter && ev.Pressed:
			fired, ok = c.engine.OnCharacter(ev.Rune)
		case ev.Kind == keyboard.KindBackspace && ev.Pressed:
			fired, ok = c.engine.OnBackspace()
		default:
			continue
		}

		if ok {
			c.replace(ctx, fired)
		}
	}
}

func (c *Controller) replace(ctx context.Context, fired trigger.Fired) {
	if err := c.transition(fsm.EventFire); err != nil {
		c.logger.Error("replace transition rejected", "error", err.Error())
		return
	}

	c.logger.Info("trigger fired", "trigger", fired.Trigger, "path", fired.Path)
	if err := c.replacer.Replace(ctx, fired); err != nil {
		c.logger.Error("replacement incomplete", "trigger", fired.Trigger, "error", err.Error())
		c.indicator.ShowError(context.Background(), fmt.Sprintf("Replacement failed for %s", fired.Trigger), err.Error())
	} else {
		c.indicator.CueFired(ctx, fired.Trigger, fired.Path)
	}

	c.mu.Lock()
	c.fired++
	c.lastTrigger = fired.Trigger
	c.mu.Unlock()

	if err := c.transition(fsm.EventReplaced); err != nil {
		c.logger.Error("replace transition rejected", "error", err.Error())
	}
}

func (c *Controller) stop(result Result, reason StopReason, err error) Result {
	_ = c.transition(fsm.EventStop)
	c.indicator.CueStop(context.Background())
	c.logger.Info("listener stopped", "reason", string(reason), "fired", c.Fired())
	return c.finish(result, reason, err)
}

func (c *Controller) finish(result Result, reason StopReason, err error) Result {
	result.State = c.State()
	result.Reason = reason
	result.Fired = c.Fired()
	result.Err = err
	result.FinishedAt = time.Now()
	return result
}

// Handle serves IPC commands for the running listener.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		c.mu.RLock()
		defer c.mu.RUnlock()

		snap := ipc.Snapshot{
			State:       string(c.state),
			PID:         os.Getpid(),
			MappingFile: c.opts.MappingFile,
			Source:      c.opts.SourceName,
			Triggers:    c.engine.Triggers(),
			Capacity:    c.engine.Capacity(),
			Fired:       c.fired,
			LastTrigger: c.lastTrigger,
		}
		if !c.startedAt.IsZero() {
			snap.Uptime = time.Since(c.startedAt).Round(time.Second).String()
		}
		return ipc.Response{OK: true, Snapshot: snap}
	default:
		return ipc.Response{Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}
