package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gitship/gitship/internal/constants"
)

// expandPath handles tilde expansion for paths
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return path, nil
}

// DataDir returns the directory holding the deployment database.
// Default: ~/.local/share/gitship
func DataDir() (string, error) {
	if envPath, ok := os.LookupEnv(constants.EnvVarDataDir); ok && envPath != "" {
		return expandPath(envPath)
	}
	return expandPath(constants.UserDataDir)
}

// ConfigDir returns the user configuration directory.
// Default: ~/.config/gitship
func ConfigDir() (string, error) {
	if envPath, ok := os.LookupEnv(constants.EnvVarConfigDir); ok && envPath != "" {
		return expandPath(envPath)
	}
	return expandPath(constants.UserConfigDir)
}

// DBPath returns the sqlite database path, creating the data dir if needed.
func DBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, constants.ModeDirDefault); err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.DBFileName), nil
}
