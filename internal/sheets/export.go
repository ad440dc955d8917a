// Package sheets moves tables between the store and XLSX workbooks.
//
// Export writes one sheet per table: a bold, frozen header row of column
// names and one row per grid row, with Number cells written as numbers.
// Import reads the first (or a named) sheet back into a new table.
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
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// Export writes the table to an XLSX file at path.
func Export(ctx context.Context, s store.Store, tableID, path string) error {
	timer := logging.StartTimer(logging.CategorySheets, "Export")
	defer timer.Stop()

	tbl, err := s.GetTable(ctx, tableID)
	if err != nil {
		return fmt.Errorf("failed to load table: %w", err)
	}
	snap, err := grid.LoadSnapshot(ctx, s, tableID, "")
	if err != nil {
		return fmt.Errorf("failed to load table contents: %w", err)
	}
	proj := grid.Build(snap.Columns, snap.Rows, snap.Cells)

	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(tbl.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeProjection(f, sheet, proj); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	logging.Sheets("Exported table %q (%d rows x %d columns) to %s",
		tbl.Name, proj.RowCount(), proj.ColumnCount(), path)
	return nil
}

func writeProjection(f *excelize.File, sheet string, proj *grid.Projection) error {
	cols := proj.Columns()
	if len(cols) == 0 {
		return nil
	}

	for c, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellStr(sheet, cell, col.Name); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		name, _ := excelize.ColumnNumberToName(c + 1)
		if err := f.SetColWidth(sheet, name, name, columnWidth(col.Column)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	for r := 0; r < proj.RowCount(); r++ {
		for c := range cols {
			v := proj.Value(r, c)
			if v.Blank {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if v.Type == types.ColumnNumber {
				err = f.SetCellFloat(sheet, cell, v.Number, -1, 64)
			} else {
				err = f.SetCellStr(sheet, cell, v.Raw)
			}
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}
	return nil
}

// columnWidth converts a stored display width to Excel character units.
func columnWidth(col types.Column) float64 {
	w := col.Width
	if w <= 0 {
		w = types.DefaultColumnWidth
	}
	return float64(w) / 7
}

// SheetName makes a table name acceptable as a sheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}
