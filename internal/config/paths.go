package config

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the pshelper config directory.
//
// Resolution order:
//  1. If ~/.pshelper/ exists, use it
//  2. If XDG_CONFIG_HOME is set, use $XDG_CONFIG_HOME/pshelper
//  3. Otherwise default to ~/.pshelper/
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	legacyDir := filepath.Join(home, ".pshelper")
	if info, err := os.Stat(legacyDir); err == nil && info.IsDir() {
		return legacyDir, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pshelper"), nil
	}
	return legacyDir, nil
}

// DefaultPath returns the path of the default config file.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}
