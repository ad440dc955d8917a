package config

// Storage drivers understood by store.Open.
const (
	DriverSQLite3 = "sqlite3" // mattn/go-sqlite3 (CGO)
	DriverSQLite  = "sqlite"  // modernc.org/sqlite (pure Go)
	DriverBolt    = "bolt"    // go.etcd.io/bbolt
)

// ValidDrivers lists all supported storage drivers.
var ValidDrivers = []string{DriverSQLite3, DriverSQLite, DriverBolt}

// StorageConfig configures the entity store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite3, sqlite, bolt
	Path   string `yaml:"path"`   // relative paths resolve against the workspace
}
