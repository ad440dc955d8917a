package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"airgrid/internal/logging"
	"airgrid/internal/types"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var (
	bucketWorkspaces = []byte("workspaces")
	bucketBases      = []byte("bases")
	bucketTables     = []byte("tables")
	bucketColumns    = []byte("columns")
	bucketRows       = []byte("rows")
	bucketCells      = []byte("cells")
	bucketCellIndex  = []byte("cell_index")
	bucketViews      = []byte("views")
	bucketFilters    = []byte("filters")
	bucketSorts      = []byte("sorts")

	allBuckets = [][]byte{
		bucketWorkspaces, bucketBases, bucketTables, bucketColumns, bucketRows,
		bucketCells, bucketCellIndex, bucketViews, bucketFilters, bucketSorts,
	}
)

// BoltStore implements Store on a single bbolt file. Each entity kind has a
// bucket keyed by id holding msgpack records; cell_index maps
// "rowID/columnID" to the cell id. Cascading deletes run inside the same
// write transaction as the parent delete.
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltStore opens (creating if needed) the bbolt database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewBoltStore")
	defer timer.Stop()

	if path == ":memory:" {
		return nil, fmt.Errorf("bolt backend needs a file path")
	}

	opts := *bbolt.DefaultOptions
	opts.Timeout = 5 * time.Second
	opts.FreelistType = bbolt.FreelistMapType

	db, err := bbolt.Open(path, 0600, &opts)
	if err != nil {
		logging.StoreError("Failed to open bolt database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("BoltStore ready at %s", path)
	return &BoltStore{db: db, path: path}, nil
}

// Close closes the bbolt file.
func (s *BoltStore) Close() error {
	logging.Store("Closing BoltStore")
	return s.db.Close()
}

// Bolt exposes the underlying database.
func (s *BoltStore) Bolt() *bbolt.DB {
	return s.db
}

func boltPut[T any](tx *bbolt.Tx, bucket []byte, id string, v T) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	return tx.Bucket(bucket).Put([]byte(id), data)
}

func boltGet[T any](tx *bbolt.Tx, bucket []byte, kind, id string) (T, error) {
	var v T
	data := tx.Bucket(bucket).Get([]byte(id))
	if data == nil {
		return v, notFound(kind, id)
	}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return v, nil
}

// boltScan decodes every record in bucket and keeps those matching keep.
func boltScan[T any](tx *bbolt.Tx, bucket []byte, keep func(T) bool) ([]T, error) {
	var out []T
	err := tx.Bucket(bucket).ForEach(func(k, data []byte) error {
		var v T
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode %s/%s: %w", bucket, k, err)
		}
		if keep(v) {
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func cellIndexKey(rowID, columnID string) []byte {
	return []byte(rowID + "/" + columnID)
}

// view runs fn in a read transaction, honouring ctx cancellation up front.
func (s *BoltStore) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

// =============================================================================
// CASCADES
// =============================================================================

func deleteCellTx(tx *bbolt.Tx, c types.Cell) error {
	if err := tx.Bucket(bucketCellIndex).Delete(cellIndexKey(c.RowID, c.ColumnID)); err != nil {
		return err
	}
	return tx.Bucket(bucketCells).Delete([]byte(c.ID))
}

func deleteCellsWhere(tx *bbolt.Tx, keep func(types.Cell) bool) error {
	cells, err := boltScan(tx, bucketCells, keep)
	if err != nil {
		return err
	}
	for _, c := range cells {
		if err := deleteCellTx(tx, c); err != nil {
			return err
		}
	}
	return nil
}

func deleteRowTx(tx *bbolt.Tx, id string) error {
	if err := deleteCellsWhere(tx, func(c types.Cell) bool { return c.RowID == id }); err != nil {
		return err
	}
	return tx.Bucket(bucketRows).Delete([]byte(id))
}

func deleteColumnTx(tx *bbolt.Tx, id string) error {
	if err := deleteCellsWhere(tx, func(c types.Cell) bool { return c.ColumnID == id }); err != nil {
		return err
	}
	return tx.Bucket(bucketColumns).Delete([]byte(id))
}

func deleteViewTx(tx *bbolt.Tx, id string) error {
	filters, err := boltScan(tx, bucketFilters, func(f types.Filter) bool { return f.ViewID == id })
	if err != nil {
		return err
	}
	for _, f := range filters {
		if err := tx.Bucket(bucketFilters).Delete([]byte(f.ID)); err != nil {
			return err
		}
	}
	sorts, err := boltScan(tx, bucketSorts, func(so types.Sort) bool { return so.ViewID == id })
	if err != nil {
		return err
	}
	for _, so := range sorts {
		if err := tx.Bucket(bucketSorts).Delete([]byte(so.ID)); err != nil {
			return err
		}
	}
	return tx.Bucket(bucketViews).Delete([]byte(id))
}

func deleteTableTx(tx *bbolt.Tx, id string) error {
	rows, err := boltScan(tx, bucketRows, func(r types.Row) bool { return r.TableID == id })
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := deleteRowTx(tx, r.ID); err != nil {
			return err
		}
	}
	cols, err := boltScan(tx, bucketColumns, func(c types.Column) bool { return c.TableID == id })
	if err != nil {
		return err
	}
	for _, c := range cols {
		if err := deleteColumnTx(tx, c.ID); err != nil {
			return err
		}
	}
	views, err := boltScan(tx, bucketViews, func(v types.View) bool { return v.TableID == id })
	if err != nil {
		return err
	}
	for _, v := range views {
		if err := deleteViewTx(tx, v.ID); err != nil {
			return err
		}
	}
	return tx.Bucket(bucketTables).Delete([]byte(id))
}

func deleteBaseTx(tx *bbolt.Tx, id string) error {
	tables, err := boltScan(tx, bucketTables, func(t types.Table) bool { return t.BaseID == id })
	if err != nil {
		return err
	}
	for _, t := range tables {
		if err := deleteTableTx(tx, t.ID); err != nil {
			return err
		}
	}
	return tx.Bucket(bucketBases).Delete([]byte(id))
}

// =============================================================================
// WORKSPACES, BASES, TABLES
// =============================================================================

// CreateWorkspace inserts a workspace.
func (s *BoltStore) CreateWorkspace(ctx context.Context, name string) (types.Workspace, error) {
	w := types.Workspace{ID: uuid.NewString(), Name: name, CreatedAt: time.Now()}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		return boltPut(tx, bucketWorkspaces, w.ID, w)
	})
	if err != nil {
		return types.Workspace{}, fmt.Errorf("create workspace: %w", err)
	}
	return w, nil
}

// ListWorkspaces returns all workspaces, oldest first.
func (s *BoltStore) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	var out []types.Workspace
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = boltScan(tx, bucketWorkspaces, func(types.Workspace) bool { return true })
		return err
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// RenameWorkspace changes a workspace's name.
func (s *BoltStore) RenameWorkspace(ctx context.Context, id, name string) (types.Workspace, error) {
	var w types.Workspace
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if w, err = boltGet[types.Workspace](tx, bucketWorkspaces, "workspace", id); err != nil {
			return err
		}
		w.Name = name
		return boltPut(tx, bucketWorkspaces, id, w)
	})
	return w, err
}

// DeleteWorkspace removes a workspace and everything beneath it.
func (s *BoltStore) DeleteWorkspace(ctx context.Context, id string) (types.Workspace, error) {
	var w types.Workspace
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if w, err = boltGet[types.Workspace](tx, bucketWorkspaces, "workspace", id); err != nil {
			return err
		}
		bases, err := boltScan(tx, bucketBases, func(b types.Base) bool { return b.WorkspaceID == id })
		if err != nil {
			return err
		}
		for _, b := range bases {
			if err := deleteBaseTx(tx, b.ID); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketWorkspaces).Delete([]byte(id))
	})
	if err == nil {
		logging.Store("Workspace deleted: id=%s name=%q", id, w.Name)
	}
	return w, err
}

// CreateBase inserts a base into a workspace. The base counts as just opened.
func (s *BoltStore) CreateBase(ctx context.Context, workspaceID, name string) (types.Base, error) {
	ts := time.Now()
	b := types.Base{ID: uuid.NewString(), WorkspaceID: workspaceID, Name: name, LastOpenAt: ts, CreatedAt: ts}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := boltGet[types.Workspace](tx, bucketWorkspaces, "workspace", workspaceID); err != nil {
			return err
		}
		return boltPut(tx, bucketBases, b.ID, b)
	})
	if err != nil {
		return types.Base{}, err
	}
	return b, nil
}

// ListBases returns a workspace's bases, most recently opened first.
func (s *BoltStore) ListBases(ctx context.Context, workspaceID string) ([]types.Base, error) {
	var out []types.Base
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = boltScan(tx, bucketBases, func(b types.Base) bool { return b.WorkspaceID == workspaceID })
		return err
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastOpenAt.Equal(out[j].LastOpenAt) {
			return out[i].LastOpenAt.After(out[j].LastOpenAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (s *BoltStore) mutateBase(ctx context.Context, id string, fn func(tx *bbolt.Tx, b *types.Base) error) (types.Base, error) {
	var b types.Base
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if b, err = boltGet[types.Base](tx, bucketBases, "base", id); err != nil {
			return err
		}
		if err := fn(tx, &b); err != nil {
			return err
		}
		return boltPut(tx, bucketBases, id, b)
	})
	if err != nil {
		return types.Base{}, err
	}
	return b, nil
}

// RenameBase changes a base's name and marks it opened.
func (s *BoltStore) RenameBase(ctx context.Context, id, name string) (types.Base, error) {
	return s.mutateBase(ctx, id, func(_ *bbolt.Tx, b *types.Base) error {
		b.Name = name
		b.LastOpenAt = time.Now()
		return nil
	})
}

// MoveBase reassigns a base to another workspace.
func (s *BoltStore) MoveBase(ctx context.Context, id, workspaceID string) (types.Base, error) {
	return s.mutateBase(ctx, id, func(tx *bbolt.Tx, b *types.Base) error {
		if _, err := boltGet[types.Workspace](tx, bucketWorkspaces, "workspace", workspaceID); err != nil {
			return err
		}
		b.WorkspaceID = workspaceID
		return nil
	})
}

// OpenBase records that a base was opened.
func (s *BoltStore) OpenBase(ctx context.Context, id string) (types.Base, error) {
	return s.mutateBase(ctx, id, func(_ *bbolt.Tx, b *types.Base) error {
		b.LastOpenAt = time.Now()
		return nil
	})
}

// DeleteBase removes a base and its tables.
func (s *BoltStore) DeleteBase(ctx context.Context, id string) (types.Base, error) {
	var b types.Base
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if b, err = boltGet[types.Base](tx, bucketBases, "base", id); err != nil {
			return err
		}
		return deleteBaseTx(tx, id)
	})
	return b, err
}

// CreateTable inserts a table together with its default view.
func (s *BoltStore) CreateTable(ctx context.Context, baseID, name string) (types.Table, error) {
	t := types.Table{ID: uuid.NewString(), BaseID: baseID, Name: name, CreatedAt: time.Now()}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := boltGet[types.Base](tx, bucketBases, "base", baseID); err != nil {
			return err
		}
		if err := boltPut(tx, bucketTables, t.ID, t); err != nil {
			return err
		}
		v := types.View{ID: uuid.NewString(), TableID: t.ID, Name: types.DefaultViewName}
		return boltPut(tx, bucketViews, v.ID, v)
	})
	if err != nil {
		return types.Table{}, err
	}
	return t, nil
}

// GetTable returns one table.
func (s *BoltStore) GetTable(ctx context.Context, id string) (types.Table, error) {
	var t types.Table
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		t, err = boltGet[types.Table](tx, bucketTables, "table", id)
		return err
	})
	return t, err
}

// ListTables returns a base's tables, oldest first.
func (s *BoltStore) ListTables(ctx context.Context, baseID string) ([]types.Table, error) {
	var out []types.Table
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = boltScan(tx, bucketTables, func(t types.Table) bool { return t.BaseID == baseID })
		return err
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// RenameTable changes a table's name.
func (s *BoltStore) RenameTable(ctx context.Context, id, name string) (types.Table, error) {
	var t types.Table
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if t, err = boltGet[types.Table](tx, bucketTables, "table", id); err != nil {
			return err
		}
		t.Name = name
		return boltPut(tx, bucketTables, id, t)
	})
	return t, err
}

// DeleteTable removes a table with its columns, rows, cells and views.
func (s *BoltStore) DeleteTable(ctx context.Context, id string) (types.Table, error) {
	var t types.Table
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if t, err = boltGet[types.Table](tx, bucketTables, "table", id); err != nil {
			return err
		}
		return deleteTableTx(tx, id)
	})
	return t, err
}

// =============================================================================
// COLUMNS, ROWS, CELLS
// =============================================================================

// ListColumns returns a table's columns ordered by position.
func (s *BoltStore) ListColumns(ctx context.Context, tableID string) ([]types.Column, error) {
	var out []types.Column
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = boltScan(tx, bucketColumns, func(c types.Column) bool { return c.TableID == tableID })
		return err
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// CreateColumn inserts a column at the given position.
func (s *BoltStore) CreateColumn(ctx context.Context, tableID, name string, typ types.ColumnType, position int) (types.Column, error) {
	c := types.Column{
		ID:       uuid.NewString(),
		TableID:  tableID,
		Name:     name,
		Type:     typ,
		Width:    types.DefaultColumnWidth,
		Position: position,
	}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := boltGet[types.Table](tx, bucketTables, "table", tableID); err != nil {
			return err
		}
		return boltPut(tx, bucketColumns, c.ID, c)
	})
	if err != nil {
		return types.Column{}, err
	}
	return c, nil
}

// RenameColumn changes a column's name.
func (s *BoltStore) RenameColumn(ctx context.Context, id, name string) (types.Column, error) {
	var c types.Column
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if c, err = boltGet[types.Column](tx, bucketColumns, "column", id); err != nil {
			return err
		}
		c.Name = name
		return boltPut(tx, bucketColumns, id, c)
	})
	return c, err
}

// DeleteColumn removes a column and its cells.
func (s *BoltStore) DeleteColumn(ctx context.Context, id string) (types.Column, error) {
	var c types.Column
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if c, err = boltGet[types.Column](tx, bucketColumns, "column", id); err != nil {
			return err
		}
		return deleteColumnTx(tx, id)
	})
	return c, err
}

// ListRows returns a table's rows ordered by position.
func (s *BoltStore) ListRows(ctx context.Context, tableID string) ([]types.Row, error) {
	var out []types.Row
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = boltScan(tx, bucketRows, func(r types.Row) bool { return r.TableID == tableID })
		return err
	})
	sortRows(out)
	return out, err
}

func sortRows(rows []types.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Position != rows[j].Position {
			return rows[i].Position < rows[j].Position
		}
		return rows[i].ID < rows[j].ID
	})
}

// CreateRow inserts an empty row.
func (s *BoltStore) CreateRow(ctx context.Context, tableID string, position int) (types.Row, error) {
	r := types.Row{ID: uuid.NewString(), TableID: tableID, Position: position}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := boltGet[types.Table](tx, bucketTables, "table", tableID); err != nil {
			return err
		}
		return boltPut(tx, bucketRows, r.ID, r)
	})
	if err != nil {
		return types.Row{}, err
	}
	return r, nil
}

// DeleteRow removes a row and its cells.
func (s *BoltStore) DeleteRow(ctx context.Context, id string) (types.Row, error) {
	var r types.Row
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if r, err = boltGet[types.Row](tx, bucketRows, "row", id); err != nil {
			return err
		}
		return deleteRowTx(tx, id)
	})
	return r, err
}

// ListCellsForTable returns every cell belonging to the table's rows, in row
// order.
func (s *BoltStore) ListCellsForTable(ctx context.Context, tableID string) ([]types.Cell, error) {
	var out []types.Cell
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		rows, err := boltScan(tx, bucketRows, func(r types.Row) bool { return r.TableID == tableID })
		if err != nil {
			return err
		}
		sortRows(rows)
		rank := make(map[string]int, len(rows))
		for i, r := range rows {
			rank[r.ID] = i
		}
		out, err = boltScan(tx, bucketCells, func(c types.Cell) bool {
			_, ok := rank[c.RowID]
			return ok
		})
		if err != nil {
			return err
		}
		sort.SliceStable(out, func(i, j int) bool {
			if ri, rj := rank[out[i].RowID], rank[out[j].RowID]; ri != rj {
				return ri < rj
			}
			return out[i].ColumnID < out[j].ColumnID
		})
		return nil
	})
	return out, err
}

// ListCellsForRow returns a row's cells.
func (s *BoltStore) ListCellsForRow(ctx context.Context, rowID string) ([]types.Cell, error) {
	var out []types.Cell
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketCellIndex).Cursor()
		prefix := []byte(rowID + "/")
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
			cell, err := boltGet[types.Cell](tx, bucketCells, "cell", string(id))
			if err != nil {
				return err
			}
			out = append(out, cell)
		}
		return nil
	})
	return out, err
}

// CreateCell inserts the cell for (rowID, columnID). A second cell for the
// same pair fails with ErrDuplicateCell.
func (s *BoltStore) CreateCell(ctx context.Context, rowID, columnID, value string) (types.Cell, error) {
	c := types.Cell{ID: uuid.NewString(), RowID: rowID, ColumnID: columnID, Value: value}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := boltGet[types.Row](tx, bucketRows, "row", rowID); err != nil {
			return err
		}
		if _, err := boltGet[types.Column](tx, bucketColumns, "column", columnID); err != nil {
			return err
		}
		idx := tx.Bucket(bucketCellIndex)
		key := cellIndexKey(rowID, columnID)
		if idx.Get(key) != nil {
			return fmt.Errorf("cell %s/%s: %w", rowID, columnID, ErrDuplicateCell)
		}
		if err := idx.Put(key, []byte(c.ID)); err != nil {
			return err
		}
		return boltPut(tx, bucketCells, c.ID, c)
	})
	if err != nil {
		return types.Cell{}, err
	}
	return c, nil
}

// UpdateCell replaces a cell's value.
func (s *BoltStore) UpdateCell(ctx context.Context, id, value string) (types.Cell, error) {
	var c types.Cell
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if c, err = boltGet[types.Cell](tx, bucketCells, "cell", id); err != nil {
			return err
		}
		c.Value = value
		return boltPut(tx, bucketCells, id, c)
	})
	return c, err
}

// DeleteCell removes a cell.
func (s *BoltStore) DeleteCell(ctx context.Context, id string) (types.Cell, error) {
	var c types.Cell
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if c, err = boltGet[types.Cell](tx, bucketCells, "cell", id); err != nil {
			return err
		}
		return deleteCellTx(tx, c)
	})
	return c, err
}

// =============================================================================
// VIEWS, FILTERS, SORTS
// =============================================================================

// ListViews returns a table's views, default view first.
func (s *BoltStore) ListViews(ctx context.Context, tableID string) ([]types.View, error) {
	var out []types.View
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = boltScan(tx, bucketViews, func(v types.View) bool { return v.TableID == tableID })
		return err
	})
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Name == types.DefaultViewName, out[j].Name == types.DefaultViewName
		if di != dj {
			return di
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

// CreateView adds a named view to a table.
func (s *BoltStore) CreateView(ctx context.Context, tableID, name string) (types.View, error) {
	v := types.View{ID: uuid.NewString(), TableID: tableID, Name: name}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := boltGet[types.Table](tx, bucketTables, "table", tableID); err != nil {
			return err
		}
		return boltPut(tx, bucketViews, v.ID, v)
	})
	if err != nil {
		return types.View{}, err
	}
	return v, nil
}

// RenameView changes a view's name.
func (s *BoltStore) RenameView(ctx context.Context, id, name string) (types.View, error) {
	var v types.View
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if v, err = boltGet[types.View](tx, bucketViews, "view", id); err != nil {
			return err
		}
		v.Name = name
		return boltPut(tx, bucketViews, id, v)
	})
	return v, err
}

// DeleteView removes a view with its filters and sorts.
func (s *BoltStore) DeleteView(ctx context.Context, id string) (types.View, error) {
	var v types.View
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if v, err = boltGet[types.View](tx, bucketViews, "view", id); err != nil {
			return err
		}
		return deleteViewTx(tx, id)
	})
	return v, err
}

// ListFilters returns a view's filters.
func (s *BoltStore) ListFilters(ctx context.Context, viewID string) ([]types.Filter, error) {
	var out []types.Filter
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = boltScan(tx, bucketFilters, func(f types.Filter) bool { return f.ViewID == viewID })
		return err
	})
	return out, err
}

// CreateFilter attaches a filter to a view.
func (s *BoltStore) CreateFilter(ctx context.Context, viewID, columnID, operator, value string) (types.Filter, error) {
	f := types.Filter{ID: uuid.NewString(), ViewID: viewID, ColumnID: columnID, Operator: operator, Value: value}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := boltGet[types.View](tx, bucketViews, "view", viewID); err != nil {
			return err
		}
		return boltPut(tx, bucketFilters, f.ID, f)
	})
	if err != nil {
		return types.Filter{}, err
	}
	return f, nil
}

// DeleteFilter removes a filter.
func (s *BoltStore) DeleteFilter(ctx context.Context, id string) (types.Filter, error) {
	var f types.Filter
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if f, err = boltGet[types.Filter](tx, bucketFilters, "filter", id); err != nil {
			return err
		}
		return tx.Bucket(bucketFilters).Delete([]byte(id))
	})
	return f, err
}

// ListSorts returns a view's sorts.
func (s *BoltStore) ListSorts(ctx context.Context, viewID string) ([]types.Sort, error) {
	var out []types.Sort
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = boltScan(tx, bucketSorts, func(so types.Sort) bool { return so.ViewID == viewID })
		return err
	})
	return out, err
}

// CreateSort attaches a sort to a view.
func (s *BoltStore) CreateSort(ctx context.Context, viewID, columnID string, dir types.SortDirection) (types.Sort, error) {
	so := types.Sort{ID: uuid.NewString(), ViewID: viewID, ColumnID: columnID, Direction: dir}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := boltGet[types.View](tx, bucketViews, "view", viewID); err != nil {
			return err
		}
		return boltPut(tx, bucketSorts, so.ID, so)
	})
	if err != nil {
		return types.Sort{}, err
	}
	return so, nil
}

// DeleteSort removes a sort.
func (s *BoltStore) DeleteSort(ctx context.Context, id string) (types.Sort, error) {
	var so types.Sort
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		var err error
		if so, err = boltGet[types.Sort](tx, bucketSorts, "sort", id); err != nil {
			return err
		}
		return tx.Bucket(bucketSorts).Delete([]byte(id))
	})
	return so, err
}
