// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg resolves XDG Base Directory paths for signon.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "signon"

// ConfigDir returns $XDG_CONFIG_HOME/signon, falling back to ~/.config/signon.
func ConfigDir() string {
	return filepath.Join(baseDir("XDG_CONFIG_HOME", ".config"), appName)
}

// ConfigFile returns the path of name inside ConfigDir.
func ConfigFile(name string) string {
	return filepath.Join(ConfigDir(), name)
}

// EnsureDir creates path and its parents with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func baseDir(env, homeRel string) string {
	if base := os.Getenv(env); base != "" {
		return base
	}
	return filepath.Join(os.Getenv("HOME"), homeRel)
}
