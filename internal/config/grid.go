package config

// GridConfig configures the grid engine.
type GridConfig struct {
	// PositionStep is the gap between ordinal positions of new rows/columns
	PositionStep int `yaml:"position_step"`

	// ColumnWidth is the stored width of new columns
	ColumnWidth int `yaml:"column_width"`

	// VisibleRows is the viewport height used outside the TUI (e.g. table show)
	VisibleRows int `yaml:"visible_rows"`

	// NumberGrouping renders numbers with thousands separators (display only)
	NumberGrouping bool `yaml:"number_grouping"`

	// MaxNotices caps the persistence-failure notices kept for display
	MaxNotices int `yaml:"max_notices"`
}
