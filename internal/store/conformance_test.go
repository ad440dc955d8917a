package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"airgrid/internal/store"
	"airgrid/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a constructor per Store implementation. Every test below
// runs against all of them.
func backends() map[string]func(t *testing.T) store.Store {
	return map[string]func(t *testing.T) store.Store{
		"sqlite3": func(t *testing.T) store.Store {
			s, err := store.NewLocalStore("sqlite3", ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"sqlite": func(t *testing.T) store.Store {
			s, err := store.NewLocalStore("sqlite", filepath.Join(t.TempDir(), "grid.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"bolt": func(t *testing.T) store.Store {
			s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "grid.bolt"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s store.Store)) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

// seedTable creates workspace, base and table and returns the table.
func seedTable(t *testing.T, s store.Store) types.Table {
	t.Helper()
	ctx := context.Background()
	ws, err := s.CreateWorkspace(ctx, "Personal")
	require.NoError(t, err)
	base, err := s.CreateBase(ctx, ws.ID, "Projects")
	require.NoError(t, err)
	tbl, err := s.CreateTable(ctx, base.ID, "Tasks")
	require.NoError(t, err)
	return tbl
}

func TestStore_WorkspaceLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		a, err := s.CreateWorkspace(ctx, "Alpha")
		require.NoError(t, err)
		b, err := s.CreateWorkspace(ctx, "Beta")
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)
		assert.NotEqual(t, a.ID, b.ID)

		renamed, err := s.RenameWorkspace(ctx, a.ID, "Alpha 2")
		require.NoError(t, err)
		assert.Equal(t, "Alpha 2", renamed.Name)

		list, err := s.ListWorkspaces(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, []string{"Alpha 2", "Beta"}, []string{list[0].Name, list[1].Name})

		deleted, err := s.DeleteWorkspace(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Beta", deleted.Name)

		_, err = s.DeleteWorkspace(ctx, b.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.RenameWorkspace(ctx, "missing", "x")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_BasesOrderedByLastOpen(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		ws, err := s.CreateWorkspace(ctx, "W")
		require.NoError(t, err)

		first, err := s.CreateBase(ctx, ws.ID, "First")
		require.NoError(t, err)
		second, err := s.CreateBase(ctx, ws.ID, "Second")
		require.NoError(t, err)

		list, err := s.ListBases(ctx, ws.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)

		opened, err := s.OpenBase(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, opened.LastOpenAt.Before(first.LastOpenAt))

		list, err = s.ListBases(ctx, ws.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, list[0].ID)

		_, err = s.CreateBase(ctx, "missing", "Orphan")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_MoveBase(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		w1, err := s.CreateWorkspace(ctx, "One")
		require.NoError(t, err)
		w2, err := s.CreateWorkspace(ctx, "Two")
		require.NoError(t, err)
		base, err := s.CreateBase(ctx, w1.ID, "Moving")
		require.NoError(t, err)

		moved, err := s.MoveBase(ctx, base.ID, w2.ID)
		require.NoError(t, err)
		assert.Equal(t, w2.ID, moved.WorkspaceID)

		inOne, err := s.ListBases(ctx, w1.ID)
		require.NoError(t, err)
		assert.Empty(t, inOne)
		inTwo, err := s.ListBases(ctx, w2.ID)
		require.NoError(t, err)
		require.Len(t, inTwo, 1)

		_, err = s.MoveBase(ctx, base.ID, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_CreateTableAddsDefaultView(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		tbl := seedTable(t, s)

		views, err := s.ListViews(ctx, tbl.ID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, types.DefaultViewName, views[0].Name)

		got, err := s.GetTable(ctx, tbl.ID)
		require.NoError(t, err)
		assert.Equal(t, "Tasks", got.Name)

		_, err = s.GetTable(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_ColumnsOrderedByPosition(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		tbl := seedTable(t, s)

		_, err := s.CreateColumn(ctx, tbl.ID, "Third", types.ColumnText, 3000)
		require.NoError(t, err)
		_, err = s.CreateColumn(ctx, tbl.ID, "First", types.ColumnNumber, 1000)
		require.NoError(t, err)
		_, err = s.CreateColumn(ctx, tbl.ID, "Second", types.ColumnText, 2000)
		require.NoError(t, err)

		cols, err := s.ListColumns(ctx, tbl.ID)
		require.NoError(t, err)
		var names []string
		for _, c := range cols {
			names = append(names, c.Name)
			assert.Equal(t, types.DefaultColumnWidth, c.Width)
		}
		if diff := cmp.Diff([]string{"First", "Second", "Third"}, names); diff != "" {
			t.Errorf("column order mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, types.ColumnNumber, cols[0].Type)

		renamed, err := s.RenameColumn(ctx, cols[1].ID, "Middle")
		require.NoError(t, err)
		assert.Equal(t, "Middle", renamed.Name)
		assert.Equal(t, 2000, renamed.Position)
	})
}

func TestStore_CellUniqueness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		tbl := seedTable(t, s)
		col, err := s.CreateColumn(ctx, tbl.ID, "Name", types.ColumnText, 1000)
		require.NoError(t, err)
		row, err := s.CreateRow(ctx, tbl.ID, 0)
		require.NoError(t, err)

		cell, err := s.CreateCell(ctx, row.ID, col.ID, "hello")
		require.NoError(t, err)

		_, err = s.CreateCell(ctx, row.ID, col.ID, "again")
		assert.ErrorIs(t, err, store.ErrDuplicateCell)

		updated, err := s.UpdateCell(ctx, cell.ID, "world")
		require.NoError(t, err)
		assert.Equal(t, "world", updated.Value)

		_, err = s.UpdateCell(ctx, "missing", "x")
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.DeleteCell(ctx, cell.ID)
		require.NoError(t, err)

		// The pair is free again once the cell is gone.
		_, err = s.CreateCell(ctx, row.ID, col.ID, "fresh")
		require.NoError(t, err)
	})
}

func TestStore_CreateCellRequiresRowAndColumn(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		tbl := seedTable(t, s)
		col, err := s.CreateColumn(ctx, tbl.ID, "Name", types.ColumnText, 1000)
		require.NoError(t, err)

		_, err = s.CreateCell(ctx, "missing-row", col.ID, "x")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_ListCellsForTableAndRow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		tbl := seedTable(t, s)
		other := seedTable(t, s)

		col, err := s.CreateColumn(ctx, tbl.ID, "Name", types.ColumnText, 1000)
		require.NoError(t, err)
		r0, err := s.CreateRow(ctx, tbl.ID, 0)
		require.NoError(t, err)
		r1, err := s.CreateRow(ctx, tbl.ID, 1000)
		require.NoError(t, err)
		_, err = s.CreateCell(ctx, r1.ID, col.ID, "b")
		require.NoError(t, err)
		_, err = s.CreateCell(ctx, r0.ID, col.ID, "a")
		require.NoError(t, err)

		otherCol, err := s.CreateColumn(ctx, other.ID, "Name", types.ColumnText, 1000)
		require.NoError(t, err)
		otherRow, err := s.CreateRow(ctx, other.ID, 0)
		require.NoError(t, err)
		_, err = s.CreateCell(ctx, otherRow.ID, otherCol.ID, "elsewhere")
		require.NoError(t, err)

		cells, err := s.ListCellsForTable(ctx, tbl.ID)
		require.NoError(t, err)
		require.Len(t, cells, 2)
		assert.Equal(t, "a", cells[0].Value)
		assert.Equal(t, "b", cells[1].Value)

		rowCells, err := s.ListCellsForRow(ctx, r1.ID)
		require.NoError(t, err)
		require.Len(t, rowCells, 1)
		assert.Equal(t, "b", rowCells[0].Value)
	})
}

func TestStore_DeleteCascades(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		tbl := seedTable(t, s)

		c1, err := s.CreateColumn(ctx, tbl.ID, "A", types.ColumnText, 1000)
		require.NoError(t, err)
		c2, err := s.CreateColumn(ctx, tbl.ID, "B", types.ColumnText, 2000)
		require.NoError(t, err)
		row, err := s.CreateRow(ctx, tbl.ID, 0)
		require.NoError(t, err)
		_, err = s.CreateCell(ctx, row.ID, c1.ID, "x")
		require.NoError(t, err)
		_, err = s.CreateCell(ctx, row.ID, c2.ID, "y")
		require.NoError(t, err)

		// Column delete removes only that column's cells.
		_, err = s.DeleteColumn(ctx, c1.ID)
		require.NoError(t, err)
		cells, err := s.ListCellsForRow(ctx, row.ID)
		require.NoError(t, err)
		require.Len(t, cells, 1)
		assert.Equal(t, c2.ID, cells[0].ColumnID)

		// Row delete removes the rest.
		_, err = s.DeleteRow(ctx, row.ID)
		require.NoError(t, err)
		cells, err = s.ListCellsForTable(ctx, tbl.ID)
		require.NoError(t, err)
		assert.Empty(t, cells)

		// Table delete removes columns and views.
		views, err := s.ListViews(ctx, tbl.ID)
		require.NoError(t, err)
		_, err = s.CreateFilter(ctx, views[0].ID, c2.ID, "contains", "y")
		require.NoError(t, err)
		_, err = s.DeleteTable(ctx, tbl.ID)
		require.NoError(t, err)

		cols, err := s.ListColumns(ctx, tbl.ID)
		require.NoError(t, err)
		assert.Empty(t, cols)
		views, err = s.ListViews(ctx, tbl.ID)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestStore_DeleteWorkspaceCascadesToTables(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		ws, err := s.CreateWorkspace(ctx, "Doomed")
		require.NoError(t, err)
		base, err := s.CreateBase(ctx, ws.ID, "B")
		require.NoError(t, err)
		tbl, err := s.CreateTable(ctx, base.ID, "T")
		require.NoError(t, err)
		row, err := s.CreateRow(ctx, tbl.ID, 0)
		require.NoError(t, err)

		_, err = s.DeleteWorkspace(ctx, ws.ID)
		require.NoError(t, err)

		_, err = s.GetTable(ctx, tbl.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.DeleteRow(ctx, row.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		bases, err := s.ListBases(ctx, ws.ID)
		require.NoError(t, err)
		assert.Empty(t, bases)
	})
}

func TestStore_ViewMetadata(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		tbl := seedTable(t, s)
		col, err := s.CreateColumn(ctx, tbl.ID, "Score", types.ColumnNumber, 1000)
		require.NoError(t, err)

		v, err := s.CreateView(ctx, tbl.ID, "Top scores")
		require.NoError(t, err)
		v, err = s.RenameView(ctx, v.ID, "Best")
		require.NoError(t, err)
		assert.Equal(t, "Best", v.Name)

		f, err := s.CreateFilter(ctx, v.ID, col.ID, "gt", "10")
		require.NoError(t, err)
		so, err := s.CreateSort(ctx, v.ID, col.ID, types.SortDesc)
		require.NoError(t, err)

		filters, err := s.ListFilters(ctx, v.ID)
		require.NoError(t, err)
		if diff := cmp.Diff([]types.Filter{f}, filters); diff != "" {
			t.Errorf("filters mismatch (-want +got):\n%s", diff)
		}
		sorts, err := s.ListSorts(ctx, v.ID)
		require.NoError(t, err)
		if diff := cmp.Diff([]types.Sort{so}, sorts); diff != "" {
			t.Errorf("sorts mismatch (-want +got):\n%s", diff)
		}

		_, err = s.DeleteSort(ctx, so.ID)
		require.NoError(t, err)
		_, err = s.DeleteView(ctx, v.ID)
		require.NoError(t, err)
		filters, err = s.ListFilters(ctx, v.ID)
		require.NoError(t, err)
		assert.Empty(t, filters)

		_, err = s.DeleteFilter(ctx, f.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_ParallelCellCreates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		tbl := seedTable(t, s)
		row, err := s.CreateRow(ctx, tbl.ID, 0)
		require.NoError(t, err)

		var cols []types.Column
		for i := 0; i < 8; i++ {
			c, err := s.CreateColumn(ctx, tbl.ID, string(rune('A'+i)), types.ColumnText, (i+1)*types.PositionStep)
			require.NoError(t, err)
			cols = append(cols, c)
		}

		var wg sync.WaitGroup
		errs := make(chan error, len(cols))
		for _, c := range cols {
			wg.Add(1)
			go func(colID string) {
				defer wg.Done()
				_, err := s.CreateCell(ctx, row.ID, colID, "")
				errs <- err
			}(c.ID)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		cells, err := s.ListCellsForRow(ctx, row.ID)
		require.NoError(t, err)
		assert.Len(t, cells, len(cols))
	})
}

func TestOpen_SelectsBackend(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite", "bolt"} {
		t.Run(driver, func(t *testing.T) {
			cfg := testConfig(driver, filepath.Join(t.TempDir(), "data", "grid.db"))
			s, err := store.Open(cfg, t.TempDir())
			require.NoError(t, err)
			defer s.Close()

			switch driver {
			case "bolt":
				assert.IsType(t, &store.BoltStore{}, s)
			default:
				assert.IsType(t, &store.LocalStore{}, s)
			}
		})
	}

	_, err := store.Open(testConfig("postgres", filepath.Join(t.TempDir(), "x.db")), t.TempDir())
	assert.Error(t, err)
}
