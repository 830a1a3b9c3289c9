package userconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDirName   = "dayleaf"
	configFileName  = "config.yaml"
	sessionFileName = "session.json"
)

// Storage backend names accepted in the config file.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
)

// Config represents the user's local configuration stored in ~/.config/dayleaf/config.yaml
type Config struct {
	ServerURL string `yaml:"server_url"`
	// StorageBackend selects where session credentials are kept:
	// "file" (default) or "keyring".
	StorageBackend string `yaml:"storage_backend"`
}

// configDir returns the directory holding all local dayleaf state
func configDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName), nil
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// SessionPath returns the path of the durable session store file
func SessionPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionFileName), nil
}

// Load reads the user configuration file
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config doesn't exist, return defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{StorageBackend: BackendFile}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = BackendFile
	}

	return &cfg, nil
}

// Save writes the user configuration to a file
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetServerURL updates the API server URL and saves the config
func SetServerURL(url string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	cfg.ServerURL = url
	return Save(cfg)
}
