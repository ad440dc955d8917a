package sheets

import (
	"context"
	"fmt"
	"strings"

	"airgrid/internal/grid"
	"airgrid/internal/logging"
	"airgrid/internal/store"
	"airgrid/internal/types"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// ImportOptions selects what to read and where it goes.
type ImportOptions struct {
	// Sheet to read; the first sheet when empty
	Sheet string
	// TableName for the new table; the sheet name when empty
	TableName string
	// Concurrency bounds parallel cell creates per row
	Concurrency int
}

// ImportResult summarizes an import.
type ImportResult struct {
	Table   types.Table
	Columns []types.Column
	Rows    int
	Cells   int
}

// Import reads an XLSX sheet into a new table of baseID. The first row names
// the columns; a column is Number when every non-empty value below it parses
// as a number. If any store call fails the new table is deleted again.
func Import(ctx context.Context, s store.Store, baseID, path string, opts ImportOptions) (*ImportResult, error) {
	timer := logging.StartTimer(logging.CategorySheets, "Import")
	defer timer.Stop()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	name := opts.TableName
	if name == "" {
		name = sheet
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	headers := columnNames(rows[0], width(rows))
	typesByCol := inferTypes(rows[1:], len(headers))

	tbl, err := s.CreateTable(ctx, baseID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	result, err := fill(ctx, s, tbl, headers, typesByCol, rows[1:], opts.Concurrency)
	if err != nil {
		if _, derr := s.DeleteTable(context.WithoutCancel(ctx), tbl.ID); derr != nil {
			logging.StoreWarn("Cleanup of imported table %s failed: %v", tbl.ID, derr)
		}
		return nil, err
	}

	logging.Sheets("Imported %s!%s as table %q: %d columns, %d rows, %d cells",
		path, sheet, name, len(result.Columns), result.Rows, result.Cells)
	return result, nil
}

func fill(ctx context.Context, s store.Store, tbl types.Table, headers []string, typesByCol []types.ColumnType, rows [][]string, limit int) (*ImportResult, error) {
	result := &ImportResult{Table: tbl}

	for i, h := range headers {
		col, err := s.CreateColumn(ctx, tbl.ID, h, typesByCol[i], (i+1)*types.PositionStep)
		if err != nil {
			return nil, fmt.Errorf("failed to create column %q: %w", h, err)
		}
		result.Columns = append(result.Columns, col)
	}

	for r, values := range rows {
		row, err := s.CreateRow(ctx, tbl.ID, r*types.PositionStep)
		if err != nil {
			return nil, fmt.Errorf("failed to create row %d: %w", r+2, err)
		}
		result.Rows++

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		created := 0
		for c, raw := range values {
			if c >= len(result.Columns) {
				break
			}
			value, ok := cellValue(typesByCol[c], raw)
			if !ok {
				continue
			}
			created++
			colID := result.Columns[c].ID
			g.Go(func() error {
				_, err := s.CreateCell(gctx, row.ID, colID, value)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to create cells of row %d: %w", r+2, err)
		}
		result.Cells += created
	}
	return result, nil
}

func width(rows [][]string) int {
	w := 0
	for _, r := range rows {
		w = max(w, len(r))
	}
	return w
}

// columnNames turns the header row into unique (case-insensitive), non-blank
// column names, padding to n columns.
func columnNames(header []string, n int) []string {
	seen := make(map[string]bool, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		base := ""
		if i < len(header) {
			base = strings.TrimSpace(header[i])
		}
		if base == "" {
			base = fmt.Sprintf("Column %d", i+1)
		}
		name := base
		for k := 2; seen[strings.ToLower(name)]; k++ {
			name = fmt.Sprintf("%s %d", base, k)
		}
		seen[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// inferTypes marks a column Number when it has at least one value and every
// non-empty value parses as a number.
func inferTypes(rows [][]string, n int) []types.ColumnType {
	out := make([]types.ColumnType, n)
	for c := 0; c < n; c++ {
		numeric, found := true, false
		for _, row := range rows {
			if c >= len(row) || strings.TrimSpace(row[c]) == "" {
				continue
			}
			found = true
			if _, err := grid.ParseNumber(row[c]); err != nil {
				numeric = false
				break
			}
		}
		if numeric && found {
			out[c] = types.ColumnNumber
		} else {
			out[c] = types.ColumnText
		}
	}
	return out
}

// cellValue returns the stored form of raw and whether a cell is needed.
func cellValue(typ types.ColumnType, raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	if typ != types.ColumnNumber {
		return raw, true
	}
	f, err := grid.ParseNumber(raw)
	if err != nil {
		return "", false
	}
	return grid.FormatNumber(f), true
}
