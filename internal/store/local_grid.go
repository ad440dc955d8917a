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
// COLUMNS, ROWS, CELLS
// =============================================================================

const columnColumns = "id, table_id, name, type, width, position"

func scanColumn(sc rowScanner) (types.Column, error) {
	var c types.Column
	var typ string
	if err := sc.Scan(&c.ID, &c.TableID, &c.Name, &typ, &c.Width, &c.Position); err != nil {
		return c, err
	}
	c.Type = types.ColumnType(typ)
	return c, nil
}

func (s *LocalStore) getColumn(ctx context.Context, id string) (types.Column, error) {
	c, err := scanColumn(s.db.QueryRowContext(ctx, "SELECT "+columnColumns+" FROM grid_columns WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, notFound("column", id)
	}
	return c, err
}

// ListColumns returns a table's columns ordered by position.
func (s *LocalStore) ListColumns(ctx context.Context, tableID string) ([]types.Column, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListColumns")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+columnColumns+" FROM grid_columns WHERE table_id = ? ORDER BY position, id", tableID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var out []types.Column
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateColumn inserts a column at the given position. Name uniqueness is the
// caller's concern.
func (s *LocalStore) CreateColumn(ctx context.Context, tableID, name string, typ types.ColumnType, position int) (types.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := types.Column{
		ID:       uuid.NewString(),
		TableID:  tableID,
		Name:     name,
		Type:     typ,
		Width:    types.DefaultColumnWidth,
		Position: position,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO grid_columns ("+columnColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, tableID, name, string(typ), c.Width, position,
	)
	if isForeignKeyViolation(err) {
		return types.Column{}, notFound("table", tableID)
	}
	if err != nil {
		logging.StoreError("Failed to create column %q: %v", name, err)
		return types.Column{}, fmt.Errorf("create column: %w", err)
	}
	logging.StoreDebug("Column created: id=%s name=%q type=%s position=%d", c.ID, name, typ, position)
	return c, nil
}

// RenameColumn changes a column's name.
func (s *LocalStore) RenameColumn(ctx context.Context, id, name string) (types.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.execOne(ctx, "column", id, "UPDATE grid_columns SET name = ? WHERE id = ?", name, id); err != nil {
		return types.Column{}, err
	}
	return s.getColumn(ctx, id)
}

// DeleteColumn removes a column and its cells.
func (s *LocalStore) DeleteColumn(ctx context.Context, id string) (types.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.getColumn(ctx, id)
	if err != nil {
		return c, err
	}
	if err := s.execOne(ctx, "column", id, "DELETE FROM grid_columns WHERE id = ?", id); err != nil {
		return types.Column{}, err
	}
	logging.StoreDebug("Column deleted: id=%s name=%q", id, c.Name)
	return c, nil
}

// ListRows returns a table's rows ordered by position.
func (s *LocalStore) ListRows(ctx context.Context, tableID string) ([]types.Row, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListRows")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, table_id, position FROM grid_rows WHERE table_id = ? ORDER BY position, id", tableID)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var out []types.Row
	for rows.Next() {
		var r types.Row
		if err := rows.Scan(&r.ID, &r.TableID, &r.Position); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateRow inserts an empty row. Cells are created separately.
func (s *LocalStore) CreateRow(ctx context.Context, tableID string, position int) (types.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := types.Row{ID: uuid.NewString(), TableID: tableID, Position: position}
	_, err := s.db.ExecContext(ctx, "INSERT INTO grid_rows (id, table_id, position) VALUES (?, ?, ?)", r.ID, tableID, position)
	if isForeignKeyViolation(err) {
		return types.Row{}, notFound("table", tableID)
	}
	if err != nil {
		logging.StoreError("Failed to create row at %d: %v", position, err)
		return types.Row{}, fmt.Errorf("create row: %w", err)
	}
	logging.StoreDebug("Row created: id=%s position=%d", r.ID, position)
	return r, nil
}

// DeleteRow removes a row and its cells.
func (s *LocalStore) DeleteRow(ctx context.Context, id string) (types.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r types.Row
	err := s.db.QueryRowContext(ctx, "SELECT id, table_id, position FROM grid_rows WHERE id = ?", id).Scan(&r.ID, &r.TableID, &r.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return r, notFound("row", id)
	}
	if err != nil {
		return r, err
	}
	if err := s.execOne(ctx, "row", id, "DELETE FROM grid_rows WHERE id = ?", id); err != nil {
		return types.Row{}, err
	}
	logging.StoreDebug("Row deleted: id=%s", id)
	return r, nil
}

func (s *LocalStore) getCell(ctx context.Context, id string) (types.Cell, error) {
	var c types.Cell
	err := s.db.QueryRowContext(ctx, "SELECT id, row_id, column_id, value FROM grid_cells WHERE id = ?", id).
		Scan(&c.ID, &c.RowID, &c.ColumnID, &c.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return c, notFound("cell", id)
	}
	return c, err
}

func (s *LocalStore) queryCells(ctx context.Context, query string, args ...interface{}) ([]types.Cell, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}
	defer rows.Close()

	var out []types.Cell
	for rows.Next() {
		var c types.Cell
		if err := rows.Scan(&c.ID, &c.RowID, &c.ColumnID, &c.Value); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCellsForTable returns every cell belonging to the table's rows.
func (s *LocalStore) ListCellsForTable(ctx context.Context, tableID string) ([]types.Cell, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListCellsForTable")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCells(ctx,
		`SELECT c.id, c.row_id, c.column_id, c.value
		 FROM grid_cells c
		 JOIN grid_rows r ON r.id = c.row_id
		 WHERE r.table_id = ?
		 ORDER BY r.position, r.id, c.column_id`,
		tableID,
	)
}

// ListCellsForRow returns a row's cells.
func (s *LocalStore) ListCellsForRow(ctx context.Context, rowID string) ([]types.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCells(ctx, "SELECT id, row_id, column_id, value FROM grid_cells WHERE row_id = ? ORDER BY column_id", rowID)
}

// CreateCell inserts the cell for (rowID, columnID). A second cell for the
// same pair fails with ErrDuplicateCell.
func (s *LocalStore) CreateCell(ctx context.Context, rowID, columnID, value string) (types.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM grid_cells WHERE row_id = ? AND column_id = ?", rowID, columnID).Scan(&existing)
	if err == nil {
		return types.Cell{}, fmt.Errorf("cell %s/%s: %w", rowID, columnID, ErrDuplicateCell)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Cell{}, fmt.Errorf("check cell: %w", err)
	}

	c := types.Cell{ID: uuid.NewString(), RowID: rowID, ColumnID: columnID, Value: value}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO grid_cells (id, row_id, column_id, value) VALUES (?, ?, ?, ?)",
		c.ID, rowID, columnID, value,
	)
	switch {
	case isUniqueViolation(err):
		return types.Cell{}, fmt.Errorf("cell %s/%s: %w", rowID, columnID, ErrDuplicateCell)
	case isForeignKeyViolation(err):
		return types.Cell{}, notFound("row or column", rowID+"/"+columnID)
	case err != nil:
		return types.Cell{}, fmt.Errorf("create cell: %w", err)
	}
	return c, nil
}

// UpdateCell replaces a cell's value.
func (s *LocalStore) UpdateCell(ctx context.Context, id, value string) (types.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.execOne(ctx, "cell", id, "UPDATE grid_cells SET value = ? WHERE id = ?", value, id); err != nil {
		return types.Cell{}, err
	}
	return s.getCell(ctx, id)
}

// DeleteCell removes a cell. The coordinate then reads as empty.
func (s *LocalStore) DeleteCell(ctx context.Context, id string) (types.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.getCell(ctx, id)
	if err != nil {
		return c, err
	}
	if err := s.execOne(ctx, "cell", id, "DELETE FROM grid_cells WHERE id = ?", id); err != nil {
		return types.Cell{}, err
	}
	return c, nil
}
