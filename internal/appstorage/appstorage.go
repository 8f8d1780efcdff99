// Package appstorage is the host binary's own persisted configuration: rom
// directories, the taxonomy path, hidden categories, and UI preferences. The
// core itself owns no persistence (per the external interfaces contract);
// this package exists only for cmd/romcat.
package appstorage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

var appName = "romcat"

// SetAppName overrides the application data directory name; tests use this
// to avoid touching the real user config directory.
func SetAppName(name string) {
	appName = name
}

const configFile = "config.json"

// Config is the host binary's persisted preferences.
type Config struct {
	Version int `json:"version"`

	RomDirectories []string `json:"romDirectories"`
	RomExtensions  []string `json:"romExtensions"`

	MetadataCommand []string `json:"metadataCommand"` // argv to invoke for -listxml-style output
	VerifyCommand   []string `json:"verifyCommand"`   // argv, with a %s placeholder for the rom name

	TaxonomyPath     string   `json:"taxonomyPath"`
	HiddenCategories []string `json:"hiddenCategories"`
	Favorites        []string `json:"favorites"`

	Window WindowConfig `json:"window"`
	Sort   SortConfig   `json:"sort"`
}

// WindowConfig is the last-used window geometry, restored on next launch.
type WindowConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SortConfig is the last-used sort view, restored on next launch.
type SortConfig struct {
	Key       string `json:"key"`
	Ascending bool   `json:"ascending"`
}

// DefaultConfig returns the configuration a fresh install starts with.
func DefaultConfig() *Config {
	return &Config{
		Version:       1,
		RomExtensions: []string{".zip"},
		Window:        WindowConfig{Width: 1280, Height: 800},
		Sort:          SortConfig{Key: "description", Ascending: true},
	}
}

// GetBaseDir returns the OS-appropriate application data directory, the
// same three-way split the teacher's storage package uses.
func GetBaseDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("appstorage: failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("appstorage: APPDATA environment variable not set")
		}
		baseDir = filepath.Join(appData, appName)
	default:
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			baseDir = filepath.Join(dataHome, appName)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("appstorage: failed to get home directory: %w", err)
			}
			baseDir = filepath.Join(home, ".local", "share", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to config.json.
func GetConfigPath() (string, error) {
	baseDir, err := GetBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, configFile), nil
}

// Load reads the config file, returning DefaultConfig if it does not exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := ReadJSON(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save atomically persists cfg to the config file.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return AtomicWriteJSON(path, cfg)
}

// AtomicWriteJSON writes data to path as indented JSON, via a temp file and
// rename so the file is never observed half-written.
func AtomicWriteJSON(path string, data interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("appstorage: failed to create directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("appstorage: failed to marshal JSON: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("appstorage: failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("appstorage: failed to rename temp file: %w", err)
	}
	return nil
}

// ReadJSON reads and unmarshals a JSON file at path.
func ReadJSON(path string, data interface{}) error {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(jsonData, data); err != nil {
		return fmt.Errorf("appstorage: failed to parse JSON: %w", err)
	}
	return nil
}
