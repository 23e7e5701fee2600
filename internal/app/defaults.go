package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the locations used when nothing else is configured.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - PSTALKER_CONFIG_PATH: config file location (default: ~/.config/pstalker.toml)
//   - PSTALKER_HOME: base directory for pstalker data (default: ~/.local/share/pstalker)
func GetDefaults() (Defaults, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return Defaults{}, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return Defaults{}, err
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("PSTALKER_CONFIG_PATH"); path != "" {
		return path, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(configDir, "pstalker.toml"), nil
}

// getBaseDir returns the data directory, checking PSTALKER_HOME first, then
// falling back to the XDG default ~/.local/share/pstalker.
func getBaseDir() (string, error) {
	if path := os.Getenv("PSTALKER_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "pstalker"), nil
}
