package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const localEnvFile = ".env"

// ResolvePath applies CLI/XDG/home fallback rules for mojify.env location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "mojify", "mojify.env"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "mojify", "mojify.env"), nil
}

// ResolvePaths anchors relative paths in cfg to baseDir and derives Root when unset.
func ResolvePaths(cfg Config, baseDir string) Config {
	cfg.OutputDir = anchor(baseDir, cfg.OutputDir)
	cfg.MappingFile = anchor(baseDir, cfg.MappingFile)
	if strings.TrimSpace(cfg.Root) == "" {
		cfg.Root = filepath.Dir(cfg.OutputDir)
	} else {
		cfg.Root = anchor(baseDir, cfg.Root)
	}

	// Bare command names go through PATH lookup; only path-like helpers are anchored.
	if len(cfg.Clipboard.Argv) > 0 && strings.ContainsRune(cfg.Clipboard.Argv[0], filepath.Separator) {
		argv := append([]string(nil), cfg.Clipboard.Argv...)
		argv[0] = anchor(baseDir, argv[0])
		cfg.Clipboard.Argv = argv
	}
	return cfg
}

func anchor(baseDir, path string) string {
	path = expandUserPath(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(baseDir, path))
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw, "~"))
}
