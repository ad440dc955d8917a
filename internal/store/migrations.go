package store

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"airgrid/internal/logging"
)

// Schema versions:
// v1: workspaces, bases, data_tables, grid_columns, grid_rows, grid_cells, views
// v2: grid_columns.width for column display width
// v3: bases.last_open_at for recency ordering
const CurrentSchemaVersion = 3

// Migration adds a column to an existing table.
type Migration struct {
	Version int
	Table   string
	Column  string
	Def     string
}

// pendingMigrations handle databases whose tables predate newer columns.
// CREATE TABLE IF NOT EXISTS leaves those tables untouched.
var pendingMigrations = []Migration{
	{2, "grid_columns", "width", "INTEGER NOT NULL DEFAULT 200"},
	{3, "bases", "last_open_at", "INTEGER NOT NULL DEFAULT 0"},
}

// RunMigrations brings an opened database up to CurrentSchemaVersion. File
// databases that need work are copied aside first.
func RunMigrations(db *sql.DB, dbPath string) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	version := GetSchemaVersion(db)
	logging.Store("Running schema migrations (current=v%d, target=v%d)", version, CurrentSchemaVersion)

	if version > 0 && version < CurrentSchemaVersion && dbPath != ":memory:" {
		if backup, err := CreateBackup(dbPath); err != nil {
			logging.StoreWarn("Pre-migration backup failed: %v", err)
		} else {
			logging.Store("Pre-migration backup written to %s", backup)
		}
	}

	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("Table missing, skipping migration: %s.%s", m.Table, m.Column)
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		logging.StoreDebug("Executing migration v%d: %s", m.Version, query)
		if _, err := db.Exec(query); err != nil {
			logging.StoreError("Migration v%d failed: %s.%s: %v", m.Version, m.Table, m.Column, err)
			return fmt.Errorf("migration v%d (%s.%s) failed: %w", m.Version, m.Table, m.Column, err)
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	if recordedVersion(db) != CurrentSchemaVersion {
		if err := SetSchemaVersion(db, CurrentSchemaVersion); err != nil {
			return err
		}
	}

	logging.Store("Schema migrations complete: applied=%d", applied)
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("Table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}

// recordedVersion returns the newest version in schema_versions, or 0.
func recordedVersion(db *sql.DB) int {
	if !tableExists(db, "schema_versions") {
		return 0
	}
	var version int
	if err := db.QueryRow("SELECT version FROM schema_versions ORDER BY id DESC LIMIT 1").Scan(&version); err != nil {
		return 0
	}
	return version
}

// GetSchemaVersion returns the schema version of a database, inferring it
// from table structure when no version was recorded.
func GetSchemaVersion(db *sql.DB) int {
	if v := recordedVersion(db); v > 0 {
		return v
	}
	v := inferSchemaVersion(db)
	logging.StoreDebug("Inferred schema version: %d", v)
	return v
}

func inferSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "grid_columns") {
		return 0
	}
	if !columnExists(db, "grid_columns", "width") {
		return 1
	}
	if !columnExists(db, "bases", "last_open_at") {
		return 2
	}
	return 3
}

// SetSchemaVersion records a new schema version in the database.
func SetSchemaVersion(db *sql.DB, version int) error {
	createTable := `
		CREATE TABLE IF NOT EXISTS schema_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL,
			applied_at INTEGER NOT NULL,
			description TEXT
		)
	`
	if _, err := db.Exec(createTable); err != nil {
		logging.StoreError("Failed to create schema_versions table: %v", err)
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	desc := fmt.Sprintf("Migrated to schema version %d", version)
	if _, err := db.Exec(
		"INSERT INTO schema_versions (version, applied_at, description) VALUES (?, ?, ?)",
		version, time.Now().UnixNano(), desc,
	); err != nil {
		logging.StoreError("Failed to record schema version %d: %v", version, err)
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	logging.Store("Schema version set to %d", version)
	return nil
}

// CreateBackup copies the database file next to itself with a timestamp suffix.
func CreateBackup(dbPath string) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "CreateBackup")
	defer timer.Stop()

	backupPath := dbPath + fmt.Sprintf(".backup_%s", time.Now().Format("20060102_150405"))
	if err := copyFile(dbPath, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

// RestoreBackup overwrites dbPath with the contents of backupPath.
func RestoreBackup(dbPath, backupPath string) error {
	timer := logging.StartTimer(logging.CategoryStore, "RestoreBackup")
	defer timer.Stop()

	logging.Store("Restoring database from backup: %s -> %s", backupPath, dbPath)
	return copyFile(backupPath, dbPath)
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", from, err)
	}
	defer src.Close()

	dst, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", to, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", from, err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", to, err)
	}
	logging.StoreDebug("Copied %s -> %s (%d bytes)", from, to, n)
	return nil
}
