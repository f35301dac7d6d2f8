// Package output applies trigger replacement side effects: clipboard, backspaces, paste.
package output

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/mojify/internal/config"
)

// ErrClipboard marks a failed clipboard helper run.
var ErrClipboard = errors.New("clipboard helper failed")

const clipboardTimeout = 2 * time.Second

// setClipboard runs the helper with the asset path in its value slot.
func setClipboard(ctx context.Context, helper config.CommandConfig, assetPath string) error {
	ctx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()

	if err := runCommand(ctx, helper.Expand(assetPath)); err != nil {
		return fmt.Errorf("%w: %w", ErrClipboard, err)
	}
	return nil
}

// runCommand executes argv and folds captured output into the error.
func runCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("run %s: %w", argv[0], err)
		}
		return fmt.Errorf("run %s: %w (%s)", argv[0], err, trimmed)
	}
	return nil
}
