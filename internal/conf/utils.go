// utils.go: helpers for locating configuration files.
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tmakinen/recwatch/internal/errors"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the OS specific list of directories that
// are searched for config.yaml, in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	// Fetch the directory of the executable.
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	// Fetch the user's home directory.
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		// For Windows, use the executable directory and the AppData Roaming directory.
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "recwatch"),
		}
	default:
		// For Linux and macOS, use a hidden directory in the home directory
		// and a system-wide configuration directory.
		configPaths = []string{
			filepath.Join(homeDir, ".config", "recwatch"),
			"/etc/recwatch",
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the active config.yaml among the default paths.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "find-config-paths").
			Build()
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}
