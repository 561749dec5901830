// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

// Package xdg locates IronLog's files under the XDG Base Directory layout.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName        = "ironlog"
	configFileName = "config.yaml"
)

// ConfigDir returns $XDG_CONFIG_HOME/ironlog, falling back to
// $HOME/.config/ironlog.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", oops.Code("XDG_NO_HOME").Errorf("neither XDG_CONFIG_HOME nor HOME is set")
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigFile returns the path of the default config file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// FindConfigFile returns the default config file if it exists. A missing
// file or an unknown home directory yields ok=false and no error.
func FindConfigFile() (path string, ok bool, err error) {
	path, err = ConfigFile()
	if err != nil {
		return "", false, nil //nolint:nilerr // no home means no default file
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", false, nil
	case err != nil:
		return "", false, oops.Code("XDG_STAT_FAILED").With("path", path).Wrap(err)
	case info.IsDir():
		return "", false, oops.Code("XDG_STAT_FAILED").With("path", path).Errorf("config path is a directory")
	}
	return path, true, nil
}
