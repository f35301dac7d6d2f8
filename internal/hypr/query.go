package hypr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ActiveWindow contains the fields needed for keystroke targeting.
type ActiveWindow struct {
	Address      string
	Class        string
	InitialClass string
	Title        string
}

// QueryActiveWindow fetches and validates the active-window contract from hyprctl.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	output, err := runHyprctlOutput(ctx, "-j", "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}
	if !gjson.ValidBytes(output) {
		return ActiveWindow{}, fmt.Errorf("decode hyprctl activewindow json: invalid JSON")
	}

	fields := gjson.GetManyBytes(output, "address", "class", "initialClass", "title")
	window := ActiveWindow{
		Address:      strings.TrimSpace(fields[0].String()),
		Class:        strings.TrimSpace(fields[1].String()),
		InitialClass: strings.TrimSpace(fields[2].String()),
		Title:        strings.TrimSpace(fields[3].String()),
	}
	if window.Address == "" {
		return ActiveWindow{}, fmt.Errorf("hyprctl activewindow returned empty address")
	}
	return window, nil
}

// SendShortcut sends a literal hyprctl sendshortcut payload ("MODS,KEY,address:0x...").
func SendShortcut(ctx context.Context, shortcut string) error {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return fmt.Errorf("sendshortcut requires a non-empty payload")
	}
	return runHyprctl(ctx, "--quiet", "dispatch", "sendshortcut", shortcut)
}

// Notify sends a Hyprland notification payload.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	return runHyprctl(
		ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(icon),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}
