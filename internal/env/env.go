package env

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "ecellbrew"

// StateDir returns the directory holding logs, locks and install receipts.
func StateDir() (string, error) {
	dir := filepath.Join(xdg.StateHome, appName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigDir returns the directory searched for config.toml. It is not created.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}
