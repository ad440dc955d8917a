package store_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airgrid/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain ensures no goroutines leak from the store backends.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewLocalStore(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			s, err := store.NewLocalStore(driver, ":memory:")
			require.NoError(t, err)
			defer s.Close()

			require.NotNil(t, s.GetDB())
			assert.Equal(t, driver, s.Driver())

			stats, err := s.GetStats()
			require.NoError(t, err)
			for _, table := range []string{"workspaces", "bases", "data_tables", "grid_columns", "grid_rows", "grid_cells", "grid_views"} {
				_, ok := stats[table]
				assert.True(t, ok, "stats missing table %s", table)
			}
			assert.Equal(t, store.CurrentSchemaVersion, store.GetSchemaVersion(s.GetDB()))
		})
	}
}

func TestNewLocalStore_RejectsUnknownDriver(t *testing.T) {
	_, err := store.NewLocalStore("postgres", ":memory:")
	require.Error(t, err)
}

func TestLocalStore_MigratesV1Database(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "old.db")

	// A v1 database: grid_columns without width, bases without last_open_at.
	raw, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = raw.Exec(`
		CREATE TABLE workspaces (id TEXT PRIMARY KEY, name TEXT NOT NULL, created_at INTEGER NOT NULL);
		CREATE TABLE bases (id TEXT PRIMARY KEY, workspace_id TEXT NOT NULL, name TEXT NOT NULL, created_at INTEGER NOT NULL);
		CREATE TABLE data_tables (id TEXT PRIMARY KEY, base_id TEXT NOT NULL, name TEXT NOT NULL, created_at INTEGER NOT NULL);
		CREATE TABLE grid_columns (id TEXT PRIMARY KEY, table_id TEXT NOT NULL, name TEXT NOT NULL, type TEXT NOT NULL, position INTEGER NOT NULL);
		INSERT INTO workspaces VALUES ('w1', 'Old', 1);
		INSERT INTO bases VALUES ('b1', 'w1', 'Legacy', 1);
		INSERT INTO data_tables VALUES ('t1', 'b1', 'Tasks', 1);
		INSERT INTO grid_columns VALUES ('c1', 't1', 'Name', 'text', 1000);
	`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := store.NewLocalStore("sqlite3", dbPath)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, store.CurrentSchemaVersion, store.GetSchemaVersion(s.GetDB()))

	cols, err := s.ListColumns(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, 200, cols[0].Width)

	bases, err := s.ListBases(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, bases, 1)
	assert.True(t, bases[0].LastOpenAt.IsZero())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "old.db.backup_") {
			backups++
		}
	}
	assert.Equal(t, 1, backups, "expected one pre-migration backup")
}

func TestLocalStore_ReopenPersists(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "airgrid.db")

	s, err := store.NewLocalStore("sqlite", dbPath)
	require.NoError(t, err)
	ws, err := s.CreateWorkspace(ctx, "Personal")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := store.NewLocalStore("sqlite3", dbPath)
	require.NoError(t, err)
	defer s2.Close()

	list, err := s2.ListWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ws.ID, list[0].ID)
	assert.Equal(t, store.CurrentSchemaVersion, store.GetSchemaVersion(s2.GetDB()))
}
