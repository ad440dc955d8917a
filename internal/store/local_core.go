package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"airgrid/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// LocalStore implements Store on SQLite.
//
// The database holds one table per entity kind. Foreign keys cascade deletes
// from a parent to its children, and grid_cells carries UNIQUE(row_id,
// column_id) so a (row, column) pair can never hold two cells.
//
// Usage Example:
//
//	s, _ := store.NewLocalStore("sqlite3", ".airgrid/airgrid.db")
//	ws, _ := s.CreateWorkspace(ctx, "Personal")
//	base, _ := s.CreateBase(ctx, ws.ID, "Projects")
//	tbl, _ := s.CreateTable(ctx, base.ID, "Tasks") // also creates "Grid view"
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	driver string
}

// NewLocalStore opens (creating if needed) the SQLite database at path using
// the named driver: "sqlite3" for mattn/go-sqlite3 or "sqlite" for modernc.
func NewLocalStore(driver, path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("Initializing LocalStore at path: %s (driver=%s)", path, driver)

	if driver != "sqlite3" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: keeps :memory: databases alive and the foreign_keys
	// pragma in effect for every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
		}
		if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
			logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
		}
	}

	s := &LocalStore{db: db, dbPath: path, driver: driver}
	if err := s.initialize(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}

	if err := RunMigrations(db, path); err != nil {
		logging.StoreError("Failed to run migrations: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("LocalStore ready (schema v%d)", GetSchemaVersion(db))
	return s, nil
}

// initialize creates the required tables.
func (s *LocalStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bases (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		last_open_at INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bases_workspace ON bases(workspace_id);

	CREATE TABLE IF NOT EXISTS data_tables (
		id TEXT PRIMARY KEY,
		base_id TEXT NOT NULL REFERENCES bases(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_data_tables_base ON data_tables(base_id);

	CREATE TABLE IF NOT EXISTS grid_columns (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL REFERENCES data_tables(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 200,
		position INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_grid_columns_table ON grid_columns(table_id, position);

	CREATE TABLE IF NOT EXISTS grid_rows (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL REFERENCES data_tables(id) ON DELETE CASCADE,
		position INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_grid_rows_table ON grid_rows(table_id, position);

	CREATE TABLE IF NOT EXISTS grid_cells (
		id TEXT PRIMARY KEY,
		row_id TEXT NOT NULL REFERENCES grid_rows(id) ON DELETE CASCADE,
		column_id TEXT NOT NULL REFERENCES grid_columns(id) ON DELETE CASCADE,
		value TEXT NOT NULL DEFAULT '',
		UNIQUE(row_id, column_id)
	);
	CREATE INDEX IF NOT EXISTS idx_grid_cells_column ON grid_cells(column_id);

	CREATE TABLE IF NOT EXISTS grid_views (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL REFERENCES data_tables(id) ON DELETE CASCADE,
		name TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_grid_views_table ON grid_views(table_id);

	CREATE TABLE IF NOT EXISTS view_filters (
		id TEXT PRIMARY KEY,
		view_id TEXT NOT NULL REFERENCES grid_views(id) ON DELETE CASCADE,
		column_id TEXT NOT NULL,
		operator TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS view_sorts (
		id TEXT PRIMARY KEY,
		view_id TEXT NOT NULL REFERENCES grid_views(id) ON DELETE CASCADE,
		column_id TEXT NOT NULL,
		direction TEXT NOT NULL DEFAULT 'asc'
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	logging.Store("Closing LocalStore database connection")
	return s.db.Close()
}

// GetDB returns the underlying SQL database connection.
func (s *LocalStore) GetDB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name in use.
func (s *LocalStore) Driver() string {
	return s.driver
}

// GetStats returns row counts per entity table.
func (s *LocalStore) GetStats() (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetStats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	tables := []string{"workspaces", "bases", "data_tables", "grid_columns", "grid_rows", "grid_cells", "grid_views", "view_filters", "view_sorts"}

	for _, table := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			logging.StoreWarn("Failed to count %s: %v", table, err)
			continue
		}
		stats[table] = count
	}
	return stats, nil
}

func now() int64 {
	return time.Now().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// isUniqueViolation matches the constraint error text both SQLite drivers emit.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation matches the foreign key error text both drivers emit.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
