package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LookupFunc reads one process-level override; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

type setter struct {
	key   string
	apply func(cfg *Config, value string) error
}

// setters is ordered so that later keys win when two keys address the same field.
var setters = []setter{
	{"CHANNEL_IDS", func(c *Config, v string) error { c.Provider.ChannelIDs = splitList(v); return nil }},
	{"OUTPUT_DIR", func(c *Config, v string) error { c.OutputDir = v; return nil }},
	{"MAPPING_FILE", func(c *Config, v string) error { c.MappingFile = v; return nil }},
	{"MOJIFY_ROOT", func(c *Config, v string) error { c.Root = v; return nil }},
	{"TWITCH_API_BASE_URL", func(c *Config, v string) error { c.Provider.BaseURL = strings.TrimRight(v, "/"); return nil }},
	{"HTTP_TIMEOUT_SECONDS", func(c *Config, v string) error {
		n, err := parseInt(v)
		c.Provider.Timeout = time.Duration(n) * time.Second
		return err
	}},
	{"HTTP_RETRIES", intSetter(func(c *Config) *int { return &c.Provider.Retries })},
	{"API_RATE_PER_SECOND", intSetter(func(c *Config) *int { return &c.Provider.RatePerSecond })},
	{"DOWNLOAD_WORKERS", intSetter(func(c *Config) *int { return &c.Download.Workers })},
	{"CHANNEL_WORKERS", intSetter(func(c *Config) *int { return &c.Download.ChannelWorkers })},
	{"KEYBOARD_SOURCE", func(c *Config, v string) error { c.Keyboard.Source = strings.ToLower(v); return nil }},
	{"KEYBOARD_DEVICE", func(c *Config, v string) error { c.Keyboard.Device = v; return nil }},
	{"KEY_BACKEND", func(c *Config, v string) error { c.Keys.Backend = strings.ToLower(v); return nil }},
	{"KEY_CMD", commandSetter(func(c *Config) *CommandConfig { return &c.Keys.Cmd })},
	{"PASTE_SHORTCUT", func(c *Config, v string) error { c.Keys.PasteShortcut = v; return nil }},
	{"KEY_DELAY_MS", msSetter(func(c *Config) *time.Duration { return &c.Keys.KeyDelay })},
	{"PASTE_DELAY_MS", msSetter(func(c *Config) *time.Duration { return &c.Keys.PasteDelay })},
	{"CPP_EXECUTABLE_PATH", func(c *Config, v string) error {
		c.Clipboard = CommandConfig{Raw: v, Argv: []string{v}}
		return nil
	}},
	{"CLIPBOARD_CMD", commandSetter(func(c *Config) *CommandConfig { return &c.Clipboard })},
	{"INDICATOR_ENABLE", boolSetter(func(c *Config) *bool { return &c.Indicator.Enable })},
	{"INDICATOR_BACKEND", func(c *Config, v string) error { c.Indicator.Backend = strings.ToLower(v); return nil }},
	{"INDICATOR_DESKTOP_APP_NAME", func(c *Config, v string) error { c.Indicator.DesktopAppName = v; return nil }},
	{"INDICATOR_ERROR_TIMEOUT_MS", intSetter(func(c *Config) *int { return &c.Indicator.ErrorTimeoutMS })},
	{"SOUND_ENABLE", boolSetter(func(c *Config) *bool { return &c.Indicator.SoundEnable })},
	{"LOG_LEVEL", func(c *Config, v string) error { c.LogLevel = strings.ToLower(v); return nil }},
}

// Parse reads dotenv-formatted content on top of base.
//
// Values present in lookup (the process environment) take precedence over file values,
// matching dotenv semantics where an exported variable is never overridden by the file.
func Parse(content string, base Config, lookup LookupFunc) (Config, []Warning, error) {
	values, err := godotenv.Unmarshal(content)
	if err != nil {
		return Config{}, nil, fmt.Errorf("parse dotenv: %w", err)
	}

	warnings := unknownKeyWarnings(values)

	cfg := base
	for _, s := range setters {
		raw, ok := lookupValue(s.key, values, lookup)
		if !ok {
			continue
		}
		if err := s.apply(&cfg, strings.TrimSpace(raw)); err != nil {
			return Config{}, nil, fmt.Errorf("%s: %w", s.key, err)
		}
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validatedWarnings...), nil
}

func lookupValue(key string, file map[string]string, lookup LookupFunc) (string, bool) {
	if lookup != nil {
		if v, ok := lookup(key); ok {
			return v, true
		}
	}
	v, ok := file[key]
	return v, ok
}

func unknownKeyWarnings(values map[string]string) []Warning {
	known := make(map[string]struct{}, len(setters))
	for _, s := range setters {
		known[s.key] = struct{}{}
	}

	unknown := make([]string, 0)
	for key := range values {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	warnings := make([]Warning, 0, len(unknown))
	for _, key := range unknown {
		warnings = append(warnings, Warning{Key: key, Message: fmt.Sprintf("unknown key %q ignored", key)})
	}
	return warnings
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func msSetter(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		*field(c) = time.Duration(n) * time.Millisecond
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func commandSetter(field func(*Config) *CommandConfig) func(*Config, string) error {
	return func(c *Config, v string) error {
		argv, err := splitCommand(v)
		if err != nil {
			return err
		}
		*field(c) = CommandConfig{Raw: v, Argv: argv}
		return nil
	}
}

func parseInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %q", v)
	}
	return n, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %q", v)
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
