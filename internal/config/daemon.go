package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// HiveConfig represents the top-level .hive/config.json file.
type HiveConfig struct {
	Daemon DaemonConfig `json:"daemon"`
}

// DaemonConfig holds daemon-specific settings.
type DaemonConfig struct {
	LocalOnly bool `json:"local_only"`
}

// LoadHiveConfig reads config.json from the given .hive directory. Returns
// a zero-value HiveConfig (all defaults) if the file doesn't exist.
func LoadHiveConfig(hiveDir string) (*HiveConfig, error) {
	configPath := filepath.Join(hiveDir, "config.json")

	data, err := os.ReadFile(configPath) //nolint:gosec // G304 - path from internal .hive directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &HiveConfig{}, nil
		}
		return nil, err
	}

	var cfg HiveConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
