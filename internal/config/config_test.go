package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AIRGRID_DB", "")
	t.Setenv("AIRGRID_DRIVER", "")
	t.Setenv("AIRGRID_THEME", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "airgrid" {
		t.Errorf("expected Name=airgrid, got %s", cfg.Name)
	}
	if cfg.Storage.Driver != DriverSQLite3 {
		t.Errorf("expected sqlite3 driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Grid.PositionStep != 1000 {
		t.Errorf("expected PositionStep=1000, got %d", cfg.Grid.PositionStep)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Storage.Driver = DriverBolt
	cfg.Storage.Path = "grid.bolt"
	cfg.UI.Theme = "dark"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverBolt, loaded.Storage.Driver)
	assert.Equal(t, "grid.bolt", loaded.Storage.Path)
	assert.Equal(t, "dark", loaded.UI.Theme)
	assert.Equal(t, cfg.Grid, loaded.Grid)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Storage, cfg.Storage)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AIRGRID_DB", "/tmp/other.db")
	t.Setenv("AIRGRID_DRIVER", DriverSQLite)
	t.Setenv("AIRGRID_THEME", "light")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/other.db", cfg.Storage.Path)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"empty path", func(c *Config) { c.Storage.Path = "" }},
		{"zero step", func(c *Config) { c.Grid.PositionStep = 0 }},
		{"zero width", func(c *Config) { c.Grid.ColumnWidth = 0 }},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveStoragePath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/ws", ".airgrid", "airgrid.db"), cfg.ResolveStoragePath("/ws"))

	cfg.Storage.Path = ":memory:"
	assert.Equal(t, ":memory:", cfg.ResolveStoragePath("/ws"))

	cfg.Storage.Path = "/abs/grid.db"
	assert.Equal(t, "/abs/grid.db", cfg.ResolveStoragePath("/ws"))
}

func TestWatchDebounce(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "250ms", cfg.GetWatchDebounce().String())

	cfg.Watch.Debounce = "garbage"
	assert.Equal(t, "250ms", cfg.GetWatchDebounce().String())

	cfg.Watch.Debounce = "1s"
	assert.Equal(t, "1s", cfg.GetWatchDebounce().String())
}

func TestLoggingCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	assert.False(t, lc.IsCategoryEnabled("grid"))

	lc.DebugMode = true
	assert.True(t, lc.IsCategoryEnabled("grid"))

	lc.Categories = map[string]bool{"grid": false}
	assert.False(t, lc.IsCategoryEnabled("grid"))
	assert.True(t, lc.IsCategoryEnabled("store"))
}
