// Package config resolves, parses, validates, and defaults mojify configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by mojify.
type Config struct {
	// Root is the directory mapping paths are stored relative to.
	Root        string
	OutputDir   string
	MappingFile string
	Provider    ProviderConfig
	Download    DownloadConfig
	Keyboard    KeyboardConfig
	Keys        KeysConfig
	Clipboard   CommandConfig
	Indicator   IndicatorConfig
	LogLevel    string
}

// ProviderConfig controls emote-provider queries and asset downloads.
type ProviderConfig struct {
	BaseURL       string
	ChannelIDs    []string
	Timeout       time.Duration
	Retries       int
	RatePerSecond int
}

// DownloadConfig bounds the builder worker pools.
type DownloadConfig struct {
	Workers        int
	ChannelWorkers int
}

// KeyboardConfig selects where key events are read from.
type KeyboardConfig struct {
	Source string
	Device string
}

// KeysConfig controls synthetic keystroke replay.
type KeysConfig struct {
	Backend       string
	Cmd           CommandConfig
	PasteShortcut string
	KeyDelay      time.Duration
	PasteDelay    time.Duration
}

// IndicatorConfig controls notification and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Key     string
	Message string
}

const (
	KeyboardSourceEvdev    = "evdev"
	KeyboardSourceTerminal = "terminal"

	KeysBackendHypr    = "hypr"
	KeysBackendCommand = "command"

	IndicatorBackendHypr    = "hypr"
	IndicatorBackendDesktop = "desktop"
)
