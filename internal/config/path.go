package config

import (
	"os"
	"path/filepath"
)

const appDir = "segstore"

// DefaultDataDir is where local backends (pebble) keep their files when the
// config does not say otherwise. XDG_DATA_HOME wins; then the first platform
// location that exists on this host; then ~/.segstore. Without a home
// directory it falls back to ./data.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	for _, c := range []struct{ parent, dir string }{
		{"/var/lib", filepath.Join("/var/lib", appDir)},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", appDir)},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", appDir)},
	} {
		if isDir(c.parent) {
			return c.dir
		}
	}
	return filepath.Join(home, "."+appDir)
}

// DefaultStagingDir holds segment copies while they upload. It lives under the
// user cache directory so a crashed upload never leaves files in the data dir.
func DefaultStagingDir() string {
	if cache, err := os.UserCacheDir(); err == nil && cache != "" {
		return filepath.Join(cache, appDir, "staging")
	}
	return filepath.Join(os.TempDir(), appDir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
