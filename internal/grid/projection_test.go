package grid

import (
	"errors"
	"testing"

	"airgrid/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrix(p *Projection) [][]string {
	out := make([][]string, p.RowCount())
	for r := range out {
		out[r] = make([]string, p.ColumnCount())
		for c := range out[r] {
			out[r][c] = p.Display(r, c)
		}
	}
	return out
}

func TestBuild_OrdersAndFillsMissingCells(t *testing.T) {
	cols := []types.Column{
		{ID: "c-age", Name: "Age", Type: types.ColumnNumber, Position: 2000},
		{ID: "c-name", Name: "Name", Type: types.ColumnText, Position: 1000},
	}
	rows := []types.Row{
		{ID: "r-b", Position: 1000},
		{ID: "r-a", Position: 1000},
		{ID: "r-0", Position: 0},
	}
	cells := []types.Cell{
		{ID: "x1", RowID: "r-0", ColumnID: "c-name", Value: "Ada"},
		{ID: "x2", RowID: "r-0", ColumnID: "c-age", Value: "1234567"},
		{ID: "x3", RowID: "r-b", ColumnID: "c-name", Value: "Bob"},
		{ID: "x4", RowID: "ghost", ColumnID: "c-name", Value: "ignored"},
	}

	p := Build(cols, rows, cells)

	require.Equal(t, 3, p.RowCount())
	require.Equal(t, 2, p.ColumnCount())
	want := [][]string{
		{"Ada", "1,234,567"},
		{"", ""},
		{"Bob", ""},
	}
	if diff := cmp.Diff(want, matrix(p)); diff != "" {
		t.Errorf("projection mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "r-a", p.Row(1).ID, "position ties break by id")
	assert.Equal(t, "", p.CellID(1, 0))
	assert.Equal(t, "x1", p.CellID(0, 0))
	assert.True(t, p.Value(1, 1).Blank)
	assert.Equal(t, 1234567.0, p.Value(0, 1).Number)
}

func TestBuild_Empty(t *testing.T) {
	p := Build(nil, nil, nil)
	assert.Equal(t, 0, p.RowCount())
	assert.Equal(t, 0, p.ColumnCount())
	assert.False(t, p.InBounds(0, 0))
}

func TestProjection_RemoveAndInsertColumn(t *testing.T) {
	p := Build(
		[]types.Column{{ID: "a", Name: "A", Position: 1}, {ID: "b", Name: "B", Position: 2}},
		[]types.Row{{ID: "r", Position: 0}},
		[]types.Cell{{ID: "x", RowID: "r", ColumnID: "a", Value: "1"}, {ID: "y", RowID: "r", ColumnID: "b", Value: "2"}},
	)

	idx, col, cells := p.removeColumn("a")
	require.Equal(t, 0, idx)
	assert.Equal(t, [][]string{{"2"}}, matrix(p))

	p.insertColumn(idx, col, cells)
	assert.Equal(t, [][]string{{"1", "2"}}, matrix(p))
	assert.Equal(t, "x", p.CellID(0, 0))
}

func TestProjection_ColumnByName(t *testing.T) {
	p := Build([]types.Column{{ID: "s", Name: "status"}}, nil, nil)
	i, ok := p.ColumnByName("STATUS")
	assert.True(t, ok)
	assert.Equal(t, 0, i)
	_, ok = p.ColumnByName("other")
	assert.False(t, ok)
}

// =============================================================================
// VALUES
// =============================================================================

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"5", 5, false},
		{" -2.5 ", -2.5, false},
		{"1e3", 1000, false},
		{"", 0, false},
		{"1e", 0, true},
		{"abc", 0, true},
		{"1e999", 0, true},
		{"0x1p4", 0, true},
		{"1_000", 0, true},
		{"Inf", 0, true},
		{"NaN", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNumber(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	num := types.Column{Name: "Age", Type: types.ColumnNumber}

	raw, err := normalize(num, " 05.50 ")
	require.NoError(t, err)
	assert.Equal(t, "5.5", raw)

	raw, err = normalize(num, "  ")
	require.NoError(t, err)
	assert.Equal(t, "", raw)

	_, err = normalize(num, "--1")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Age", verr.Column)
	assert.Equal(t, "Age: must be a number", err.Error())

	_, err = normalize(num, "0x1p4")
	require.True(t, errors.As(err, &verr), "hex floats are not numbers")

	raw, err = normalize(types.Column{Type: types.ColumnText}, " keep spaces ")
	require.NoError(t, err)
	assert.Equal(t, " keep spaces ", raw)
}

func TestValue_Display(t *testing.T) {
	assert.Equal(t, "1,000", valueOf(types.ColumnNumber, "1000").Display(true))
	assert.Equal(t, "1000", valueOf(types.ColumnNumber, "1000").Display(false))
	assert.Equal(t, "-1,234.5", valueOf(types.ColumnNumber, "-1234.5").Display(true))
	assert.Equal(t, "", valueOf(types.ColumnNumber, "").Display(true))
	assert.Equal(t, "", valueOf(types.ColumnNumber, "junk").Display(true))
	assert.Equal(t, "hi", valueOf(types.ColumnText, "hi").Display(true))
}

func TestAllowedNumberRune(t *testing.T) {
	for _, r := range "0123456789.-+eE" {
		assert.True(t, AllowedNumberRune(r), string(r))
	}
	for _, r := range "ax, _" {
		assert.False(t, AllowedNumberRune(r), string(r))
	}
}

// =============================================================================
// VIEWPORT
// =============================================================================

func TestViewport_RevealRows(t *testing.T) {
	v := Viewport{Height: 3}

	v.Reveal(2, 0, nil)
	assert.Equal(t, 0, v.Top)

	v.Reveal(5, 0, nil)
	assert.Equal(t, 3, v.Top, "scrolls just enough to show the row at the bottom")

	v.Reveal(4, 0, nil)
	assert.Equal(t, 3, v.Top, "visible rows do not scroll")

	v.Reveal(1, 0, nil)
	assert.Equal(t, 1, v.Top, "scrolls up to put the row at the top")
}

func TestViewport_RevealColumns(t *testing.T) {
	widths := []int{10, 10, 20, 5}
	v := Viewport{Width: 25}

	v.Reveal(0, 1, widths)
	assert.Equal(t, 0, v.Left)

	v.Reveal(0, 2, widths)
	assert.Equal(t, 2, v.Left, "column 2 only fits alone")

	v.Reveal(0, 3, widths)
	assert.Equal(t, 2, v.Left)

	v.Reveal(0, 0, widths)
	assert.Equal(t, 0, v.Left)

	from, to := v.Columns(widths)
	assert.Equal(t, 0, from)
	assert.Equal(t, 2, to)
}

func TestViewport_Ranges(t *testing.T) {
	v := Viewport{Top: 2, Height: 5}
	from, to := v.Rows(4)
	assert.Equal(t, 2, from)
	assert.Equal(t, 4, to)

	v.clamp(1, 0)
	assert.Equal(t, 0, v.Top)

	wide := Viewport{Width: 3}
	from, to = wide.Columns([]int{8, 2})
	assert.Equal(t, 0, from)
	assert.Equal(t, 1, to, "first column always shown")
}
