// Package api holds the versioned configuration types of monana and the
// file helpers they share.
package api

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nilp0inter/monana/pkg/yaml"
)

// AppName names the per-user configuration directory.
const AppName = "monana"

// GetConfigPath returns filename inside the user configuration directory:
// $XDG_CONFIG_HOME/monana, then ~/.config/monana, then a temp directory.
func GetConfigPath(filename string) string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, AppName, filename)
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", AppName, filename)
	}

	tmp := filepath.Join(os.TempDir(), AppName, filename)

	slog.Warn("no user config directory, using temp path",
		slog.String("path", tmp),
		slog.Any("error", err),
	)

	return tmp
}

// ReadFile reads a regular file.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	switch {
	case info.IsDir():
		return nil, fmt.Errorf("%s: path is a directory", path)
	case !info.Mode().IsRegular():
		return nil, fmt.Errorf("%s: not a regular file", path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Path comes from the user.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// MarshalYAML encodes obj as YAML.
func MarshalYAML(obj any) ([]byte, error) {
	return yaml.Marshal(obj) //nolint:wrapcheck // Already wrapped.
}

// WriteDefaultFile writes data to path unless a file already exists there.
// With force, an existing file is first renamed to "<name>.<unixnano>.old".
// It reports whether data was written.
func WriteDefaultFile(path string, data []byte, force bool, kind string) (bool, error) {
	info, err := os.Stat(path)

	exists := err == nil
	if exists && !info.Mode().IsRegular() {
		return false, fmt.Errorf("%s: not a regular file", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("create directories: %w", err)
	}

	if exists {
		if !force {
			slog.Debug("file exists, not overwriting", slog.String("type", kind), slog.String("path", path))
			return false, nil
		}

		backup := fmt.Sprintf("%s.%d.old", path, time.Now().UnixNano())
		if err := os.Rename(path, backup); err != nil {
			return false, fmt.Errorf("back up %s: %w", kind, err)
		}

		slog.Info("backed up existing file", slog.String("type", kind), slog.String("path", backup))
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", kind, err)
	}

	slog.Info("wrote default file", slog.String("type", kind), slog.String("path", path))

	return true, nil
}
