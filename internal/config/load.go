package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
//
// Relative paths are anchored to the directory holding the config file, or to the
// working directory when no file exists.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	var warnings []Warning
	content, err := os.ReadFile(resolvedPath)
	if err != nil && errors.Is(err, os.ErrNotExist) && strings.TrimSpace(explicitPath) == "" {
		if local, localErr := os.ReadFile(localEnvFile); localErr == nil {
			abs, absErr := filepath.Abs(localEnvFile)
			if absErr == nil {
				resolvedPath, content, err = abs, local, nil
				warnings = append(warnings, Warning{
					Message: fmt.Sprintf("using %s from the working directory", localEnvFile),
				})
			}
		}
	}

	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
		}

		cfg, parseWarnings, parseErr := Parse("", Default(), os.LookupEnv)
		if parseErr != nil {
			return Loaded{}, fmt.Errorf("parse environment: %w", parseErr)
		}
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return Loaded{}, fmt.Errorf("resolve working directory: %w", wdErr)
		}
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults and environment", resolvedPath),
		})
		return Loaded{
			Path:     resolvedPath,
			Config:   ResolvePaths(cfg, wd),
			Warnings: append(warnings, parseWarnings...),
			Exists:   false,
		}, nil
	}

	cfg, parseWarnings, err := Parse(string(content), Default(), os.LookupEnv)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	baseDir, err := filepath.Abs(filepath.Dir(resolvedPath))
	if err != nil {
		return Loaded{}, fmt.Errorf("resolve config dir %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   ResolvePaths(cfg, baseDir),
		Warnings: append(warnings, parseWarnings...),
		Exists:   true,
	}, nil
}
