// Package hypr wraps the hyprctl commands used for keystroke dispatch and notifications.
package hypr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// InstanceEnv is set by Hyprland for every client process in the session.
const InstanceEnv = "HYPRLAND_INSTANCE_SIGNATURE"

// SessionDetected reports whether the process runs inside a Hyprland session.
func SessionDetected() bool {
	return strings.TrimSpace(os.Getenv(InstanceEnv)) != ""
}

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
