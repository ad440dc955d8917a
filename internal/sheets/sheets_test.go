package sheets_test

import (
	"context"
	"path/filepath"
	"testing"

	"airgrid/internal/grid"
	"airgrid/internal/sheets"
	"airgrid/internal/store"
	"airgrid/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openStore(t *testing.T) (store.Store, types.Base) {
	t.Helper()
	s, err := store.NewLocalStore("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	ws, err := s.CreateWorkspace(ctx, "Personal")
	require.NoError(t, err)
	base, err := s.CreateBase(ctx, ws.ID, "CRM")
	require.NoError(t, err)
	return s, base
}

func display(t *testing.T, s store.Store, tableID string) ([]string, [][]string) {
	t.Helper()
	snap, err := grid.LoadSnapshot(context.Background(), s, tableID, "")
	require.NoError(t, err)
	p := grid.Build(snap.Columns, snap.Rows, snap.Cells)

	var headers []string
	for _, c := range p.Columns() {
		headers = append(headers, c.Name+":"+c.Type.String())
	}
	out := make([][]string, p.RowCount())
	for r := range out {
		for c := 0; c < p.ColumnCount(); c++ {
			out[r] = append(out[r], p.Value(r, c).String())
		}
	}
	return headers, out
}

func TestExportImportRoundTrip(t *testing.T) {
	s, base := openStore(t)
	ctx := context.Background()

	tbl, err := s.CreateTable(ctx, base.ID, "People")
	require.NoError(t, err)
	name, err := s.CreateColumn(ctx, tbl.ID, "Name", types.ColumnText, 1000)
	require.NoError(t, err)
	age, err := s.CreateColumn(ctx, tbl.ID, "Age", types.ColumnNumber, 2000)
	require.NoError(t, err)
	for i, person := range [][2]string{{"Ada", "36"}, {"Grace", "85.5"}, {"", "-1"}} {
		row, err := s.CreateRow(ctx, tbl.ID, i*1000)
		require.NoError(t, err)
		if person[0] != "" {
			_, err = s.CreateCell(ctx, row.ID, name.ID, person[0])
			require.NoError(t, err)
		}
		_, err = s.CreateCell(ctx, row.ID, age.ID, person[1])
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "people.xlsx")
	require.NoError(t, sheets.Export(ctx, s, tbl.ID, path))

	res, err := sheets.Import(ctx, s, base.ID, path, sheets.ImportOptions{TableName: "People copy"})
	require.NoError(t, err)
	assert.Equal(t, "People copy", res.Table.Name)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 5, res.Cells)

	wantHeaders, wantRows := display(t, s, tbl.ID)
	gotHeaders, gotRows := display(t, s, res.Table.ID)
	if diff := cmp.Diff(wantHeaders, gotHeaders); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRows, gotRows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestExportWritesNumbersAsNumbers(t *testing.T) {
	s, base := openStore(t)
	ctx := context.Background()

	tbl, err := s.CreateTable(ctx, base.ID, "Q1/Q2 [draft]")
	require.NoError(t, err)
	col, err := s.CreateColumn(ctx, tbl.ID, "Total", types.ColumnNumber, 1000)
	require.NoError(t, err)
	row, err := s.CreateRow(ctx, tbl.ID, 0)
	require.NoError(t, err)
	_, err = s.CreateCell(ctx, row.ID, col.ID, "1234.5")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "totals.xlsx")
	require.NoError(t, sheets.Export(ctx, s, tbl.ID, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := sheets.SheetName(tbl.Name)
	assert.Equal(t, "Q1_Q2 _draft_", sheet)
	assert.Equal(t, []string{sheet}, f.GetSheetList())

	typ, err := f.GetCellType(sheet, "A2")
	require.NoError(t, err)
	assert.NotContains(t, []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}, typ,
		"numbers must not be written as strings")

	raw, err := f.GetCellValue(sheet, "A2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1234.5", raw)

	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Total", header)
}

func TestImportInfersTypesAndNames(t *testing.T) {
	s, base := openStore(t)
	ctx := context.Background()

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"Item", "", "item", "Qty"},
		{"Pen", "x", "a", 3},
		{"Ink", "", "b", "4.25"},
		{"Pad", "", "c", ""},
	}
	for r, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	path := filepath.Join(t.TempDir(), "stock.xlsx")
	require.NoError(t, f.SaveAs(path))

	res, err := sheets.Import(ctx, s, base.ID, path, sheets.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", res.Table.Name)

	var got []string
	for _, c := range res.Columns {
		got = append(got, c.Name+":"+c.Type.String())
	}
	assert.Equal(t, []string{"Item:Text", "Column 2:Text", "item 2:Text", "Qty:Number"}, got)
	assert.Equal(t, 3, res.Rows)

	_, values := display(t, s, res.Table.ID)
	assert.Equal(t, []string{"Ink", "", "b", "4.25"}, values[1])
	assert.Equal(t, "", values[2][3])
}

func TestImportRollsBackOnFailure(t *testing.T) {
	s, base := openStore(t)
	ctx := context.Background()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellStr("Sheet1", "A1", "Name"))
	require.NoError(t, f.SetCellStr("Sheet1", "A2", "one"))
	require.NoError(t, f.SetCellStr("Sheet1", "A3", "two"))
	path := filepath.Join(t.TempDir(), "names.xlsx")
	require.NoError(t, f.SaveAs(path))

	rec := store.NewRecorder(s)
	rec.FailOn("CreateCell", 2, nil)

	_, err := sheets.Import(ctx, rec, base.ID, path, sheets.ImportOptions{})
	require.ErrorIs(t, err, store.ErrInjected)
	assert.Equal(t, 1, rec.Calls("DeleteTable"))

	tables, err := s.ListTables(ctx, base.ID)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestImportMissingSheet(t *testing.T) {
	s, base := openStore(t)

	f := excelize.NewFile()
	defer f.Close()
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))

	_, err := sheets.Import(context.Background(), s, base.ID, path, sheets.ImportOptions{Sheet: "Nope"})
	assert.Error(t, err)

	_, err = sheets.Import(context.Background(), s, base.ID, path, sheets.ImportOptions{})
	assert.Error(t, err, "an empty sheet cannot be imported")
}
