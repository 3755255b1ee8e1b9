// Package paths resolves the configuration and history data directories.
package paths

import (
	"os"
	"path/filepath"
)

// CWD-relative default directory name.
const DefaultConfigDirName = ".docsmap"

// historyDirName is the data directory inside the config directory.
const historyDirName = "history"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "DOCSMAP_CONFIG_DIR"
	EnvDataDir   = "DOCSMAP_DATA_DIR"
)

// getwd is overridden in tests.
var getwd = os.Getwd

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > DOCSMAP_CONFIG_DIR > $(CWD)/.docsmap.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultConfigDirName), nil
}

// ResolveDataDir returns the history data directory following the
// precedence chain: flag > config value > DOCSMAP_DATA_DIR > <configDir>/history.
func ResolveDataDir(flag, configValue, configDir string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return filepath.Join(configDir, historyDirName), nil
}
