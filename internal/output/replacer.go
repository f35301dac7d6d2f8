package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/rbright/mojify/internal/config"
	"github.com/rbright/mojify/internal/trigger"
)

// Replacer swaps a typed trigger for its asset: clipboard, N backspaces, paste.
type Replacer struct {
	clipboard     config.CommandConfig
	keys          Keystroker
	pasteShortcut string
	keyDelay      time.Duration
	pasteDelay    time.Duration
	logger        *slog.Logger
}

// NewReplacer constructs a Replacer from runtime config.
func NewReplacer(cfg config.Config, keys Keystroker, logger *slog.Logger) *Replacer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Replacer{
		clipboard:     cfg.Clipboard,
		keys:          keys,
		pasteShortcut: cfg.Keys.PasteShortcut,
		keyDelay:      cfg.Keys.KeyDelay,
		pasteDelay:    cfg.Keys.PasteDelay,
		logger:        logger,
	}
}

// Replace runs the full sequence for one fired trigger.
//
// A clipboard helper failure is logged and the keystrokes are still sent, so the paste may
// insert stale clipboard content. The returned error then wraps ErrClipboard.
func (r *Replacer) Replace(ctx context.Context, fired trigger.Fired) error {
	clipErr := setClipboard(ctx, r.clipboard, fired.Path)
	if clipErr != nil {
		r.logger.Error("clipboard helper failed; continuing", "path", fired.Path, "error", clipErr.Error())
	}

	target, err := r.keys.Target(ctx)
	if err != nil {
		return errors.Join(clipErr, fmt.Errorf("resolve keystroke target: %w", err))
	}

	count := utf8.RuneCountInString(fired.Trigger)
	for i := 0; i < count; i++ {
		if err := r.keys.Send(ctx, target, BackspaceShortcut); err != nil {
			return errors.Join(clipErr, fmt.Errorf("send backspace %d/%d: %w", i+1, count, err))
		}
		if err := sleep(ctx, r.keyDelay); err != nil {
			return errors.Join(clipErr, err)
		}
	}

	if err := sleep(ctx, r.pasteDelay); err != nil {
		return errors.Join(clipErr, err)
	}
	if err := r.keys.Send(ctx, target, r.pasteShortcut); err != nil {
		return errors.Join(clipErr, fmt.Errorf("send paste: %w", err))
	}

	r.logger.Debug("replacement sent", "trigger", fired.Trigger, "backspaces", count)
	return clipErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
