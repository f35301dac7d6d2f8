package config

import "time"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "copy_to_clipboard"

	return Config{
		OutputDir:   "7tv_emotes",
		MappingFile: "emote_mapping.json",
		Provider: ProviderConfig{
			BaseURL:       "https://7tv.io/v3/users/twitch",
			Timeout:       10 * time.Second,
			Retries:       2,
			RatePerSecond: 5,
		},
		Download: DownloadConfig{
			Workers:        10,
			ChannelWorkers: 5,
		},
		Keyboard: KeyboardConfig{
			Source: KeyboardSourceEvdev,
			Device: "/dev/input/by-path/*-event-kbd",
		},
		Keys: KeysConfig{
			Backend:       KeysBackendHypr,
			PasteShortcut: "CTRL,V",
			KeyDelay:      10 * time.Millisecond,
			PasteDelay:    10 * time.Millisecond,
		},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustSplitCommand(clipboard)},
		Indicator: IndicatorConfig{
			Enable:         false,
			Backend:        IndicatorBackendHypr,
			DesktopAppName: "mojify",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		LogLevel: "info",
	}
}
