package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Lifecycle events reported by RecordVersion.
const (
	LifecycleInstalled = "installed"
	LifecycleUpdated   = "updated"
)

const versionFile = "version"

// RecordVersion compares version with the one stored in dir and stores the
// new one. It returns LifecycleInstalled on first run, LifecycleUpdated when
// the version changed, and "" otherwise.
func RecordVersion(dir, version string) (string, error) {
	path := filepath.Join(dir, versionFile)
	prev, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("reading version marker: %w", err)
	}

	event := ""
	switch {
	case errors.Is(err, os.ErrNotExist):
		event = LifecycleInstalled
	case string(bytes.TrimSpace(prev)) != version:
		event = LifecycleUpdated
	default:
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(version+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing version marker: %w", err)
	}
	return event, nil
}
