package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"airgrid/internal/logging"
	"airgrid/internal/types"

	"github.com/google/uuid"
)

// =============================================================================
// WORKSPACES, BASES, TABLES, VIEWS, FILTERS, SORTS
// =============================================================================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// execOne runs a single-row mutation and maps "no rows" to ErrNotFound.
func (s *LocalStore) execOne(ctx context.Context, kind, id, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

func scanWorkspace(sc rowScanner) (types.Workspace, error) {
	var w types.Workspace
	var created int64
	if err := sc.Scan(&w.ID, &w.Name, &created); err != nil {
		return w, err
	}
	w.CreatedAt = fromNanos(created)
	return w, nil
}

func (s *LocalStore) getWorkspace(ctx context.Context, id string) (types.Workspace, error) {
	w, err := scanWorkspace(s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM workspaces WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return w, notFound("workspace", id)
	}
	return w, err
}

// CreateWorkspace inserts a workspace.
func (s *LocalStore) CreateWorkspace(ctx context.Context, name string) (types.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := types.Workspace{ID: uuid.NewString(), Name: name}
	created := now()
	if _, err := s.db.ExecContext(ctx, "INSERT INTO workspaces (id, name, created_at) VALUES (?, ?, ?)", w.ID, name, created); err != nil {
		logging.StoreError("Failed to create workspace %q: %v", name, err)
		return types.Workspace{}, fmt.Errorf("create workspace: %w", err)
	}
	w.CreatedAt = fromNanos(created)
	logging.StoreDebug("Workspace created: id=%s name=%q", w.ID, name)
	return w, nil
}

// ListWorkspaces returns all workspaces, oldest first.
func (s *LocalStore) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM workspaces ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []types.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// RenameWorkspace changes a workspace's name.
func (s *LocalStore) RenameWorkspace(ctx context.Context, id, name string) (types.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.execOne(ctx, "workspace", id, "UPDATE workspaces SET name = ? WHERE id = ?", name, id); err != nil {
		return types.Workspace{}, err
	}
	return s.getWorkspace(ctx, id)
}

// DeleteWorkspace removes a workspace and everything beneath it.
func (s *LocalStore) DeleteWorkspace(ctx context.Context, id string) (types.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.getWorkspace(ctx, id)
	if err != nil {
		return w, err
	}
	if err := s.execOne(ctx, "workspace", id, "DELETE FROM workspaces WHERE id = ?", id); err != nil {
		return types.Workspace{}, err
	}
	logging.Store("Workspace deleted: id=%s name=%q", id, w.Name)
	return w, nil
}

const baseColumns = "id, workspace_id, name, last_open_at, created_at"

func scanBase(sc rowScanner) (types.Base, error) {
	var b types.Base
	var lastOpen, created int64
	if err := sc.Scan(&b.ID, &b.WorkspaceID, &b.Name, &lastOpen, &created); err != nil {
		return b, err
	}
	b.LastOpenAt = fromNanos(lastOpen)
	b.CreatedAt = fromNanos(created)
	return b, nil
}

func (s *LocalStore) getBase(ctx context.Context, id string) (types.Base, error) {
	b, err := scanBase(s.db.QueryRowContext(ctx, "SELECT "+baseColumns+" FROM bases WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return b, notFound("base", id)
	}
	return b, err
}

// CreateBase inserts a base into a workspace. The base counts as just opened.
func (s *LocalStore) CreateBase(ctx context.Context, workspaceID, name string) (types.Base, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	b := types.Base{ID: uuid.NewString(), WorkspaceID: workspaceID, Name: name}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO bases ("+baseColumns+") VALUES (?, ?, ?, ?, ?)",
		b.ID, workspaceID, name, ts, ts,
	)
	if isForeignKeyViolation(err) {
		return types.Base{}, notFound("workspace", workspaceID)
	}
	if err != nil {
		logging.StoreError("Failed to create base %q: %v", name, err)
		return types.Base{}, fmt.Errorf("create base: %w", err)
	}
	b.LastOpenAt = fromNanos(ts)
	b.CreatedAt = fromNanos(ts)
	return b, nil
}

// ListBases returns a workspace's bases, most recently opened first.
func (s *LocalStore) ListBases(ctx context.Context, workspaceID string) ([]types.Base, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+baseColumns+" FROM bases WHERE workspace_id = ? ORDER BY last_open_at DESC, id",
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bases: %w", err)
	}
	defer rows.Close()

	var out []types.Base
	for rows.Next() {
		b, err := scanBase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan base: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RenameBase changes a base's name and marks it opened.
func (s *LocalStore) RenameBase(ctx context.Context, id, name string) (types.Base, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.execOne(ctx, "base", id, "UPDATE bases SET name = ?, last_open_at = ? WHERE id = ?", name, now(), id); err != nil {
		return types.Base{}, err
	}
	return s.getBase(ctx, id)
}

// MoveBase reassigns a base to another workspace.
func (s *LocalStore) MoveBase(ctx context.Context, id, workspaceID string) (types.Base, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.execOne(ctx, "base", id, "UPDATE bases SET workspace_id = ? WHERE id = ?", workspaceID, id)
	if isForeignKeyViolation(err) {
		return types.Base{}, notFound("workspace", workspaceID)
	}
	if err != nil {
		return types.Base{}, err
	}
	return s.getBase(ctx, id)
}

// OpenBase records that a base was opened.
func (s *LocalStore) OpenBase(ctx context.Context, id string) (types.Base, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.execOne(ctx, "base", id, "UPDATE bases SET last_open_at = ? WHERE id = ?", now(), id); err != nil {
		return types.Base{}, err
	}
	return s.getBase(ctx, id)
}

// DeleteBase removes a base and its tables.
func (s *LocalStore) DeleteBase(ctx context.Context, id string) (types.Base, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.getBase(ctx, id)
	if err != nil {
		return b, err
	}
	if err := s.execOne(ctx, "base", id, "DELETE FROM bases WHERE id = ?", id); err != nil {
		return types.Base{}, err
	}
	logging.Store("Base deleted: id=%s name=%q", id, b.Name)
	return b, nil
}

func scanTable(sc rowScanner) (types.Table, error) {
	var t types.Table
	var created int64
	if err := sc.Scan(&t.ID, &t.BaseID, &t.Name, &created); err != nil {
		return t, err
	}
	t.CreatedAt = fromNanos(created)
	return t, nil
}

func (s *LocalStore) getTable(ctx context.Context, id string) (types.Table, error) {
	t, err := scanTable(s.db.QueryRowContext(ctx, "SELECT id, base_id, name, created_at FROM data_tables WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, notFound("table", id)
	}
	return t, err
}

// CreateTable inserts a table together with its default view.
func (s *LocalStore) CreateTable(ctx context.Context, baseID, name string) (types.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := types.Table{ID: uuid.NewString(), BaseID: baseID, Name: name}
	created := now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Table{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "INSERT INTO data_tables (id, base_id, name, created_at) VALUES (?, ?, ?, ?)", t.ID, baseID, name, created)
	if isForeignKeyViolation(err) {
		return types.Table{}, notFound("base", baseID)
	}
	if err != nil {
		return types.Table{}, fmt.Errorf("create table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO grid_views (id, table_id, name) VALUES (?, ?, ?)", uuid.NewString(), t.ID, types.DefaultViewName); err != nil {
		return types.Table{}, fmt.Errorf("create default view: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Table{}, fmt.Errorf("commit: %w", err)
	}

	t.CreatedAt = fromNanos(created)
	logging.StoreDebug("Table created: id=%s name=%q base=%s", t.ID, name, baseID)
	return t, nil
}

// GetTable returns one table.
func (s *LocalStore) GetTable(ctx context.Context, id string) (types.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTable(ctx, id)
}

// ListTables returns a base's tables, oldest first.
func (s *LocalStore) ListTables(ctx context.Context, baseID string) ([]types.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, base_id, name, created_at FROM data_tables WHERE base_id = ? ORDER BY created_at, id", baseID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []types.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RenameTable changes a table's name.
func (s *LocalStore) RenameTable(ctx context.Context, id, name string) (types.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.execOne(ctx, "table", id, "UPDATE data_tables SET name = ? WHERE id = ?", name, id); err != nil {
		return types.Table{}, err
	}
	return s.getTable(ctx, id)
}

// DeleteTable removes a table with its columns, rows, cells and views.
func (s *LocalStore) DeleteTable(ctx context.Context, id string) (types.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTable(ctx, id)
	if err != nil {
		return t, err
	}
	if err := s.execOne(ctx, "table", id, "DELETE FROM data_tables WHERE id = ?", id); err != nil {
		return types.Table{}, err
	}
	logging.Store("Table deleted: id=%s name=%q", id, t.Name)
	return t, nil
}

func (s *LocalStore) getView(ctx context.Context, id string) (types.View, error) {
	var v types.View
	err := s.db.QueryRowContext(ctx, "SELECT id, table_id, name FROM grid_views WHERE id = ?", id).Scan(&v.ID, &v.TableID, &v.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return v, notFound("view", id)
	}
	return v, err
}

// ListViews returns a table's views in creation order.
func (s *LocalStore) ListViews(ctx context.Context, tableID string) ([]types.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, table_id, name FROM grid_views WHERE table_id = ? ORDER BY rowid", tableID)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	defer rows.Close()

	var out []types.View
	for rows.Next() {
		var v types.View
		if err := rows.Scan(&v.ID, &v.TableID, &v.Name); err != nil {
			return nil, fmt.Errorf("scan view: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreateView adds a named view to a table.
func (s *LocalStore) CreateView(ctx context.Context, tableID, name string) (types.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := types.View{ID: uuid.NewString(), TableID: tableID, Name: name}
	_, err := s.db.ExecContext(ctx, "INSERT INTO grid_views (id, table_id, name) VALUES (?, ?, ?)", v.ID, tableID, name)
	if isForeignKeyViolation(err) {
		return types.View{}, notFound("table", tableID)
	}
	if err != nil {
		return types.View{}, fmt.Errorf("create view: %w", err)
	}
	return v, nil
}

// RenameView changes a view's name.
func (s *LocalStore) RenameView(ctx context.Context, id, name string) (types.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.execOne(ctx, "view", id, "UPDATE grid_views SET name = ? WHERE id = ?", name, id); err != nil {
		return types.View{}, err
	}
	return s.getView(ctx, id)
}

// DeleteView removes a view with its filters and sorts.
func (s *LocalStore) DeleteView(ctx context.Context, id string) (types.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.getView(ctx, id)
	if err != nil {
		return v, err
	}
	if err := s.execOne(ctx, "view", id, "DELETE FROM grid_views WHERE id = ?", id); err != nil {
		return types.View{}, err
	}
	return v, nil
}

// ListFilters returns a view's filters in creation order.
func (s *LocalStore) ListFilters(ctx context.Context, viewID string) ([]types.Filter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, view_id, column_id, operator, value FROM view_filters WHERE view_id = ? ORDER BY rowid", viewID)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var out []types.Filter
	for rows.Next() {
		var f types.Filter
		if err := rows.Scan(&f.ID, &f.ViewID, &f.ColumnID, &f.Operator, &f.Value); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateFilter attaches a filter to a view.
func (s *LocalStore) CreateFilter(ctx context.Context, viewID, columnID, operator, value string) (types.Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := types.Filter{ID: uuid.NewString(), ViewID: viewID, ColumnID: columnID, Operator: operator, Value: value}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO view_filters (id, view_id, column_id, operator, value) VALUES (?, ?, ?, ?, ?)",
		f.ID, viewID, columnID, operator, value,
	)
	if isForeignKeyViolation(err) {
		return types.Filter{}, notFound("view", viewID)
	}
	if err != nil {
		return types.Filter{}, fmt.Errorf("create filter: %w", err)
	}
	return f, nil
}

// DeleteFilter removes a filter.
func (s *LocalStore) DeleteFilter(ctx context.Context, id string) (types.Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f types.Filter
	err := s.db.QueryRowContext(ctx, "SELECT id, view_id, column_id, operator, value FROM view_filters WHERE id = ?", id).
		Scan(&f.ID, &f.ViewID, &f.ColumnID, &f.Operator, &f.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return f, notFound("filter", id)
	}
	if err != nil {
		return f, err
	}
	if err := s.execOne(ctx, "filter", id, "DELETE FROM view_filters WHERE id = ?", id); err != nil {
		return types.Filter{}, err
	}
	return f, nil
}

// ListSorts returns a view's sorts in creation order.
func (s *LocalStore) ListSorts(ctx context.Context, viewID string) ([]types.Sort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, view_id, column_id, direction FROM view_sorts WHERE view_id = ? ORDER BY rowid", viewID)
	if err != nil {
		return nil, fmt.Errorf("list sorts: %w", err)
	}
	defer rows.Close()

	var out []types.Sort
	for rows.Next() {
		var so types.Sort
		var dir string
		if err := rows.Scan(&so.ID, &so.ViewID, &so.ColumnID, &dir); err != nil {
			return nil, fmt.Errorf("scan sort: %w", err)
		}
		so.Direction = types.SortDirection(dir)
		out = append(out, so)
	}
	return out, rows.Err()
}

// CreateSort attaches a sort to a view.
func (s *LocalStore) CreateSort(ctx context.Context, viewID, columnID string, dir types.SortDirection) (types.Sort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	so := types.Sort{ID: uuid.NewString(), ViewID: viewID, ColumnID: columnID, Direction: dir}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO view_sorts (id, view_id, column_id, direction) VALUES (?, ?, ?, ?)",
		so.ID, viewID, columnID, string(dir),
	)
	if isForeignKeyViolation(err) {
		return types.Sort{}, notFound("view", viewID)
	}
	if err != nil {
		return types.Sort{}, fmt.Errorf("create sort: %w", err)
	}
	return so, nil
}

// DeleteSort removes a sort.
func (s *LocalStore) DeleteSort(ctx context.Context, id string) (types.Sort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var so types.Sort
	var dir string
	err := s.db.QueryRowContext(ctx, "SELECT id, view_id, column_id, direction FROM view_sorts WHERE id = ?", id).
		Scan(&so.ID, &so.ViewID, &so.ColumnID, &dir)
	if errors.Is(err, sql.ErrNoRows) {
		return so, notFound("sort", id)
	}
	if err != nil {
		return so, err
	}
	so.Direction = types.SortDirection(dir)
	if err := s.execOne(ctx, "sort", id, "DELETE FROM view_sorts WHERE id = ?", id); err != nil {
		return types.Sort{}, err
	}
	return so, nil
}
