// Package config resolves hunkwright's on-disk locations and persisted user
// preferences, and provides a small file-backed logger used by patchctl's
// view subcommand.
package config

import (
	"os"
	"path/filepath"
)

// configDirOverride is set by tests to redirect ConfigDir.
var configDirOverride string

// ConfigDir returns the config directory for hunkwright.
func ConfigDir() string {
	if configDirOverride != "" {
		return configDirOverride
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hunkwright")
}

// DataDir returns ~/.local/share/hunkwright, creating it if needed. This is
// where the apply-history SQLite store and file checkpoints live.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "share", "hunkwright")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// CheckpointDir returns ~/.local/share/hunkwright/checkpoints, creating it
// if needed.
func CheckpointDir() (string, error) {
	base, err := DataDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "checkpoints")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
