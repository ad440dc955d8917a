// Package store is the entity store behind airgrid: workspaces, bases, tables,
// columns, rows, cells, views, filters and sorts.
//
// Every Store method is an independently atomic single-entity operation. There
// are no cross-entity transactions: creating a row and its cells is several
// calls, and callers that need all-or-nothing semantics compensate themselves
// (see the grid engine). Deleting a parent removes its children.
//
// Two backends implement Store:
//
//   - LocalStore: SQLite through database/sql, using either the CGO driver
//     (mattn/go-sqlite3, "sqlite3") or the pure Go driver (modernc.org/sqlite,
//     "sqlite").
//   - BoltStore: bbolt buckets with msgpack-encoded records.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"airgrid/internal/config"
	"airgrid/internal/types"
)

var (
	// ErrNotFound is returned (wrapped) when an id does not name a live entity.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCell is returned when a second cell is created for a
	// (row, column) pair that already has one.
	ErrDuplicateCell = errors.New("cell already exists for row and column")
)

// Store is the entity store / remote procedure surface consumed by the grid
// engine and the CLI.
type Store interface {
	CreateWorkspace(ctx context.Context, name string) (types.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]types.Workspace, error)
	RenameWorkspace(ctx context.Context, id, name string) (types.Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) (types.Workspace, error)

	CreateBase(ctx context.Context, workspaceID, name string) (types.Base, error)
	ListBases(ctx context.Context, workspaceID string) ([]types.Base, error)
	RenameBase(ctx context.Context, id, name string) (types.Base, error)
	MoveBase(ctx context.Context, id, workspaceID string) (types.Base, error)
	OpenBase(ctx context.Context, id string) (types.Base, error)
	DeleteBase(ctx context.Context, id string) (types.Base, error)

	CreateTable(ctx context.Context, baseID, name string) (types.Table, error)
	GetTable(ctx context.Context, id string) (types.Table, error)
	ListTables(ctx context.Context, baseID string) ([]types.Table, error)
	RenameTable(ctx context.Context, id, name string) (types.Table, error)
	DeleteTable(ctx context.Context, id string) (types.Table, error)

	ListColumns(ctx context.Context, tableID string) ([]types.Column, error)
	CreateColumn(ctx context.Context, tableID, name string, typ types.ColumnType, position int) (types.Column, error)
	RenameColumn(ctx context.Context, id, name string) (types.Column, error)
	DeleteColumn(ctx context.Context, id string) (types.Column, error)

	ListRows(ctx context.Context, tableID string) ([]types.Row, error)
	CreateRow(ctx context.Context, tableID string, position int) (types.Row, error)
	DeleteRow(ctx context.Context, id string) (types.Row, error)

	ListCellsForTable(ctx context.Context, tableID string) ([]types.Cell, error)
	ListCellsForRow(ctx context.Context, rowID string) ([]types.Cell, error)
	CreateCell(ctx context.Context, rowID, columnID, value string) (types.Cell, error)
	UpdateCell(ctx context.Context, id, value string) (types.Cell, error)
	DeleteCell(ctx context.Context, id string) (types.Cell, error)

	ListViews(ctx context.Context, tableID string) ([]types.View, error)
	CreateView(ctx context.Context, tableID, name string) (types.View, error)
	RenameView(ctx context.Context, id, name string) (types.View, error)
	DeleteView(ctx context.Context, id string) (types.View, error)

	ListFilters(ctx context.Context, viewID string) ([]types.Filter, error)
	CreateFilter(ctx context.Context, viewID, columnID, operator, value string) (types.Filter, error)
	DeleteFilter(ctx context.Context, id string) (types.Filter, error)

	ListSorts(ctx context.Context, viewID string) ([]types.Sort, error)
	CreateSort(ctx context.Context, viewID, columnID string, dir types.SortDirection) (types.Sort, error)
	DeleteSort(ctx context.Context, id string) (types.Sort, error)

	Close() error
}

// Open opens the backend named by cfg.Storage, resolving relative paths
// against workspace.
func Open(cfg *config.Config, workspace string) (Store, error) {
	path := cfg.ResolveStoragePath(workspace)
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	switch cfg.Storage.Driver {
	case config.DriverSQLite3, config.DriverSQLite:
		return NewLocalStore(cfg.Storage.Driver, path)
	case config.DriverBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
