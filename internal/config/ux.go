package config

// UIConfig holds user interface configuration.
type UIConfig struct {
	// Theme is auto, light or dark
	Theme string `yaml:"theme"`

	// CellPadding is the horizontal padding on each side of a rendered cell
	CellPadding int `yaml:"cell_padding"`

	// MouseEnabled turns on click / double-click selection
	MouseEnabled bool `yaml:"mouse_enabled"`
}

// WatchConfig controls the database file watcher.
type WatchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Debounce string `yaml:"debounce"`
}
