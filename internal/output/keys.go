package output

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/mojify/internal/config"
	"github.com/rbright/mojify/internal/hypr"
)

// BackspaceShortcut is the unmodified BackSpace key in "MODS,KEY" form.
const BackspaceShortcut = ",BackSpace"

// Keystroker emits synthetic key chords in "MODS,KEY" form.
type Keystroker interface {
	// Target resolves the window that receives the keystrokes. Untargeted backends return "".
	Target(ctx context.Context) (string, error)
	Send(ctx context.Context, target string, shortcut string) error
}

// NewKeystroker selects the keystroke backend named by cfg.
func NewKeystroker(cfg config.KeysConfig) (Keystroker, error) {
	switch cfg.Backend {
	case config.KeysBackendHypr:
		return HyprKeystroker{}, nil
	case config.KeysBackendCommand:
		if len(cfg.Cmd.Argv) == 0 {
			return nil, fmt.Errorf("key command is empty")
		}
		return CommandKeystroker{Cmd: cfg.Cmd}, nil
	default:
		return nil, fmt.Errorf("unknown key backend %q", cfg.Backend)
	}
}

// HyprKeystroker dispatches hyprctl sendshortcut against the active window.
type HyprKeystroker struct{}

func (HyprKeystroker) Target(ctx context.Context) (string, error) {
	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return "", err
	}
	return window.Address, nil
}

func (HyprKeystroker) Send(ctx context.Context, target string, shortcut string) error {
	payload, err := buildShortcut(shortcut, target)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, payload)
}

// CommandKeystroker runs a user command once per chord, passing the chord through its value slot.
type CommandKeystroker struct {
	Cmd config.CommandConfig
}

func (CommandKeystroker) Target(context.Context) (string, error) {
	return "", nil
}

func (c CommandKeystroker) Send(ctx context.Context, _ string, shortcut string) error {
	return runCommand(ctx, c.Cmd.Expand(shortcut))
}

func buildShortcut(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" || shortcut == "," {
		return "", fmt.Errorf("shortcut cannot be empty")
	}

	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", fmt.Errorf("active window address is required")
	}

	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}

func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return hypr.ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("active window unavailable")
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}
