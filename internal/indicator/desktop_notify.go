package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notifyService = "org.freedesktop.Notifications"
	notifyPath    = "/org/freedesktop/Notifications"
)

// desktopNotify sends n over the session bus, replacing replaceID when non-zero.
// It returns the ID the notification server assigned.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, n note) (uint32, error) {
	args := busctlArgs("Notify", "susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		n.level.desktopIcon(),
		n.summary,
		n.body,
		"0",
	)
	args = append(args, n.desktopHints()...)
	args = append(args, strconv.Itoa(n.timeoutMS))

	out, err := busctl(ctx, args)
	if err != nil {
		return 0, fmt.Errorf("desktop notify: %w", err)
	}
	return parseNotificationID(out)
}

// desktopDismiss closes the notification with id.
func desktopDismiss(ctx context.Context, id uint32) error {
	if _, err := busctl(ctx, busctlArgs("CloseNotification", "u", strconv.FormatUint(uint64(id), 10))); err != nil {
		return fmt.Errorf("desktop dismiss: %w", err)
	}
	return nil
}

// desktopHints encodes the a{sv} hints map as busctl arguments: count, then key/signature/value triples.
func (n note) desktopHints() []string {
	hints := []string{"urgency", "y", strconv.Itoa(n.level.urgency())}
	if n.image != "" {
		hints = append(hints, "image-path", "s", n.image)
	}
	return append([]string{strconv.Itoa(len(hints) / 3)}, hints...)
}

func busctlArgs(method, signature string, values ...string) []string {
	args := []string{"--user", "call", notifyService, notifyPath, notifyService, method, signature}
	return append(args, values...)
}

func busctl(ctx context.Context, args []string) (string, error) {
	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", err
		}
		return "", fmt.Errorf("%w (%s)", err, trimmed)
	}
	return trimmed, nil
}

// parseNotificationID reads busctl's "u <id>" reply.
func parseNotificationID(out string) (uint32, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}
