// Package xdg resolves the executor's directories following the XDG Base
// Directory layout.
package xdg

import (
	"os"
	"path/filepath"
)

const AppName = "executor"

type Dirs struct {
	dataHome   string
	configHome string
	stateHome  string
	cacheHome  string
}

func New() *Dirs {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			homeDir = os.TempDir()
		}
	}
	return &Dirs{
		dataHome:   envOr("XDG_DATA_HOME", filepath.Join(homeDir, ".local", "share")),
		configHome: envOr("XDG_CONFIG_HOME", filepath.Join(homeDir, ".config")),
		stateHome:  envOr("XDG_STATE_HOME", filepath.Join(homeDir, ".local", "state")),
		cacheHome:  envOr("XDG_CACHE_HOME", filepath.Join(homeDir, ".cache")),
	}
}

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ConfigFile is the default location of the TOML configuration.
func (d *Dirs) ConfigFile() string {
	return filepath.Join(d.configHome, AppName, "config.toml")
}

// ScratchDir holds scratch SQLite databases.
func (d *Dirs) ScratchDir() string {
	return filepath.Join(d.cacheHome, AppName, "scratch")
}

// FilesDir holds verified test files, DownloadDir partial downloads.
func (d *Dirs) FilesDir() string {
	return filepath.Join(d.cacheHome, AppName, "files")
}

func (d *Dirs) DownloadDir() string {
	return filepath.Join(d.cacheHome, AppName, "downloads")
}

// DatabaseFile is the SQLite file with checkers and test runs.
func (d *Dirs) DatabaseFile() string {
	return filepath.Join(d.dataHome, AppName, "executor.db")
}

func (d *Dirs) LogDir() string {
	return filepath.Join(d.stateHome, AppName)
}

// EnsureDir creates the directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
