// Package doctor runs runtime readiness diagnostics for config, mapping, input, output, and the provider.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/mojify/internal/config"
	"github.com/rbright/mojify/internal/emote"
	"github.com/rbright/mojify/internal/hypr"
	"github.com/rbright/mojify/internal/indicator"
	"github.com/rbright/mojify/internal/keyboard"
	"github.com/rbright/mojify/internal/mapping"
	"golang.org/x/term"
)

const providerProbeTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkMapping(cfg.Config))
	checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	checks = append(checks, checkKeyboard(cfg.Config.Keyboard))

	switch cfg.Config.Keys.Backend {
	case config.KeysBackendCommand:
		checks = append(checks, checkCommand(cfg.Config.Keys.Cmd.Argv, "key_cmd"))
	default:
		checks = append(checks, checkEnv(hypr.InstanceEnv, func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", hypr.InstanceEnv+" is empty"))
		checks = append(checks, checkBinary("hyprctl", "hypr key backend requires hyprctl"))
	}

	if cfg.Config.Indicator.SoundEnable {
		checks = append(checks, checkSound())
	}
	checks = append(checks, checkProvider(ctx, cfg.Config.Provider))

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults and environment", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkMapping loads the mapping the listener would use and counts missing assets.
func checkMapping(cfg config.Config) Check {
	table, err := mapping.LoadResolved(cfg.MappingFile, cfg.Root)
	if err != nil {
		return Check{Name: "mapping", Pass: false, Message: err.Error()}
	}
	if table.Len() == 0 {
		return Check{Name: "mapping", Pass: false, Message: fmt.Sprintf("%s has no triggers; run `mojify download`", cfg.MappingFile)}
	}

	missing := 0
	table.Each(func(_ string, path string) {
		if _, err := os.Stat(path); err != nil {
			missing++
		}
	})
	if missing > 0 {
		return Check{Name: "mapping", Pass: false, Message: fmt.Sprintf("%d of %d assets missing under %s", missing, table.Len(), cfg.Root)}
	}
	return Check{Name: "mapping", Pass: true, Message: fmt.Sprintf("%d triggers in %s", table.Len(), cfg.MappingFile)}
}

// checkKeyboard verifies the configured key source can be opened.
func checkKeyboard(cfg config.KeyboardConfig) Check {
	if cfg.Source == config.KeyboardSourceTerminal {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return Check{Name: "keyboard", Pass: false, Message: "stdin is not a terminal"}
		}
		return Check{Name: "keyboard", Pass: true, Message: "reading keys from the terminal"}
	}

	device, err := keyboard.ResolveDevice(cfg.Device)
	if err != nil {
		return Check{Name: "keyboard", Pass: false, Message: err.Error()}
	}
	f, err := os.Open(device)
	if err != nil {
		return Check{Name: "keyboard", Pass: false, Message: fmt.Sprintf("open %s: %v (is the user in the input group?)", device, err)}
	}
	_ = f.Close()
	return Check{Name: "keyboard", Pass: true, Message: fmt.Sprintf("readable device %s", device)}
}

// checkSound connects to Pulse to surface cue playback issues early.
func checkSound() Check {
	sink, err := indicator.DefaultSink()
	if err != nil {
		return Check{Name: "sound", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("cues play on %q", sink.ID)
	if sink.Muted {
		message += " (muted)"
	}
	return Check{Name: "sound", Pass: true, Message: message}
}

// checkProvider queries the first configured channel without retries.
func checkProvider(ctx context.Context, cfg config.ProviderConfig) Check {
	if len(cfg.ChannelIDs) == 0 {
		return Check{Name: "provider", Pass: true, Message: "CHANNEL_IDS is empty; skipped"}
	}

	client := emote.NewClient(emote.Options{
		BaseURL: cfg.BaseURL,
		Timeout: min(cfg.Timeout, providerProbeTimeout),
	})
	channelID := cfg.ChannelIDs[0]
	emotes, err := client.FetchChannel(ctx, channelID)
	if err != nil {
		return Check{Name: "provider", Pass: false, Message: err.Error()}
	}
	return Check{Name: "provider", Pass: true, Message: fmt.Sprintf("channel %s has %d emotes", channelID, len(emotes))}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
