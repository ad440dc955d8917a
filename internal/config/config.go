package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all airgrid configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Entity store backend
	Storage StorageConfig `yaml:"storage"`

	// Grid engine behaviour
	Grid GridConfig `yaml:"grid"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Database file watcher
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfigDir is the per-workspace directory holding config, logs and the database.
const DefaultConfigDir = ".airgrid"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "airgrid",
		Version: "0.3.0",

		Storage: StorageConfig{
			Driver: DriverSQLite3,
			Path:   filepath.Join(DefaultConfigDir, "airgrid.db"),
		},

		Grid: GridConfig{
			PositionStep:   1000,
			ColumnWidth:    200,
			VisibleRows:    20,
			NumberGrouping: true,
			MaxNotices:     5,
		},

		UI: UIConfig{
			Theme:        "auto",
			CellPadding:  1,
			MouseEnabled: true,
		},

		Watch: WatchConfig{
			Enabled:  true,
			Debounce: "250ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultConfigPath returns .airgrid/config.yaml under the given workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(workspace, DefaultConfigDir, "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("AIRGRID_DB"); path != "" {
		c.Storage.Path = path
	}
	if driver := os.Getenv("AIRGRID_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if theme := os.Getenv("AIRGRID_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// ResolveStoragePath makes a relative storage path absolute against the workspace.
func (c *Config) ResolveStoragePath(workspace string) string {
	if c.Storage.Path == ":memory:" || filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(workspace, c.Storage.Path)
}

// GetWatchDebounce returns the watcher debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 250 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidDrivers {
		if c.Storage.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid storage driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path not configured (set storage.path or AIRGRID_DB)")
	}
	if c.Grid.PositionStep <= 0 {
		return fmt.Errorf("grid.position_step must be positive, got %d", c.Grid.PositionStep)
	}
	if c.Grid.ColumnWidth <= 0 {
		return fmt.Errorf("grid.column_width must be positive, got %d", c.Grid.ColumnWidth)
	}
	switch c.UI.Theme {
	case "auto", "light", "dark":
	default:
		return fmt.Errorf("invalid ui.theme: %s (valid: auto, light, dark)", c.UI.Theme)
	}
	return nil
}
