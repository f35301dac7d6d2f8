package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	if strings.TrimSpace(cfg.MappingFile) == "" {
		return nil, fmt.Errorf("MAPPING_FILE must not be empty")
	}

	base := strings.TrimSpace(cfg.Provider.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("TWITCH_API_BASE_URL must not be empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("TWITCH_API_BASE_URL must start with http:// or https://")
	}
	if cfg.Provider.Timeout <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.Provider.Retries < 0 {
		return nil, fmt.Errorf("HTTP_RETRIES must be >= 0")
	}
	if cfg.Provider.RatePerSecond <= 0 {
		return nil, fmt.Errorf("API_RATE_PER_SECOND must be > 0")
	}
	if cfg.Download.Workers <= 0 {
		return nil, fmt.Errorf("DOWNLOAD_WORKERS must be > 0")
	}
	if cfg.Download.ChannelWorkers <= 0 {
		return nil, fmt.Errorf("CHANNEL_WORKERS must be > 0")
	}

	switch cfg.Keyboard.Source {
	case KeyboardSourceEvdev:
		if strings.TrimSpace(cfg.Keyboard.Device) == "" {
			return nil, fmt.Errorf("KEYBOARD_DEVICE must not be empty when KEYBOARD_SOURCE=evdev")
		}
	case KeyboardSourceTerminal:
	default:
		return nil, fmt.Errorf("KEYBOARD_SOURCE must be one of: evdev, terminal")
	}

	switch cfg.Keys.Backend {
	case KeysBackendHypr:
	case KeysBackendCommand:
		if len(cfg.Keys.Cmd.Argv) == 0 {
			return nil, fmt.Errorf("KEY_CMD must not be empty when KEY_BACKEND=command")
		}
	default:
		return nil, fmt.Errorf("KEY_BACKEND must be one of: hypr, command")
	}
	if strings.TrimSpace(cfg.Keys.PasteShortcut) == "" {
		return nil, fmt.Errorf("PASTE_SHORTCUT must not be empty")
	}
	if cfg.Keys.KeyDelay < 0 || cfg.Keys.PasteDelay < 0 {
		return nil, fmt.Errorf("KEY_DELAY_MS and PASTE_DELAY_MS must be >= 0")
	}

	if len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("CLIPBOARD_CMD must not be empty")
	}

	backend := cfg.Indicator.Backend
	if backend != IndicatorBackendHypr && backend != IndicatorBackendDesktop {
		return nil, fmt.Errorf("INDICATOR_BACKEND must be one of: hypr, desktop")
	}
	if backend == IndicatorBackendDesktop && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("INDICATOR_DESKTOP_APP_NAME must not be empty when INDICATOR_BACKEND=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("INDICATOR_ERROR_TIMEOUT_MS must be >= 0")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if cfg.Keys.KeyDelay == 0 {
		warnings = append(warnings, Warning{
			Key:     "KEY_DELAY_MS",
			Message: "KEY_DELAY_MS=0 may race the compositor input pipeline",
		})
	}

	return warnings, nil
}
