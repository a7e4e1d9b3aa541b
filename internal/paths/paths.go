// Package paths resolves the configuration directory, data directory and
// catalog file used by the pantry CLI. Every resolver follows the same
// precedence: flag, then config.yaml value (where one exists), then
// environment, then default.
// See docs/ARCHITECTURE.md § Configuration.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the platform directories.
const AppName = "pantry"

// Default names relative to their parent directory.
const (
	DefaultDataDirName = ".pantry-db"
	CatalogFileName    = "catalog.yaml"
)

// Environment variable names for overrides.
const (
	EnvConfigDir = "PANTRY_CONFIG_DIR"
	EnvDataDir   = "PANTRY_DATA_DIR"
	EnvCatalog   = "PANTRY_CATALOG"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/pantry (fallback ~/.config/pantry)
// macOS:   ~/Library/Application Support/pantry
// Windows: %APPDATA%/pantry
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}

// ResolveConfigDir returns flag, else $PANTRY_CONFIG_DIR, else
// DefaultConfigDir. Explicit values are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns flag, else the config.yaml value, else
// $PANTRY_DATA_DIR, else $(CWD)/.pantry-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if p, ok, err := firstAbs(flag, configValue, os.Getenv(EnvDataDir)); ok || err != nil {
		return p, err
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveCatalog returns flag, else the config.yaml value, else
// $PANTRY_CATALOG, else catalog.yaml inside configDir.
func ResolveCatalog(flag, configValue, configDir string) (string, error) {
	if p, ok, err := firstAbs(flag, configValue, os.Getenv(EnvCatalog)); ok || err != nil {
		return p, err
	}
	return filepath.Join(configDir, CatalogFileName), nil
}

func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			p, err := filepath.Abs(c)
			return p, true, err
		}
	}
	return "", false, nil
}
