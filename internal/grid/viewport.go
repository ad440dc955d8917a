package grid

// Viewport is the visible window onto the grid. Top and Left are the first
// visible row and column indices; Height counts rows and Width counts display
// cells across the variable-width columns.
type Viewport struct {
	Top    int
	Left   int
	Height int
	Width  int
}

// Reveal scrolls the minimum amount needed to bring (row, col) fully into
// view, moving only the nearest edge. widths[i] is the display width of
// column i. A zero Height or Width leaves that axis alone.
func (v *Viewport) Reveal(row, col int, widths []int) {
	if v.Height > 0 {
		switch {
		case row < v.Top:
			v.Top = row
		case row >= v.Top+v.Height:
			v.Top = row - v.Height + 1
		}
	}
	if v.Top < 0 {
		v.Top = 0
	}

	if v.Width > 0 && col >= 0 && col < len(widths) {
		if col < v.Left {
			v.Left = col
		}
		for v.Left < col && span(widths, v.Left, col) > v.Width {
			v.Left++
		}
	}
	if v.Left < 0 {
		v.Left = 0
	}
}

// Rows returns the half-open range of visible row indices.
func (v Viewport) Rows(rowCount int) (from, to int) {
	from = min(v.Top, rowCount)
	to = rowCount
	if v.Height > 0 {
		to = min(from+v.Height, rowCount)
	}
	return from, to
}

// Columns returns the half-open range of column indices that fit from Left.
// The first visible column is always included even when wider than Width.
func (v Viewport) Columns(widths []int) (from, to int) {
	from = min(v.Left, len(widths))
	if v.Width <= 0 {
		return from, len(widths)
	}
	used := 0
	to = from
	for to < len(widths) {
		if to > from && used+widths[to] > v.Width {
			break
		}
		used += widths[to]
		to++
	}
	return from, to
}

// clamp pulls Top and Left back inside the grid after it shrank.
func (v *Viewport) clamp(rowCount, colCount int) {
	if v.Top > 0 && v.Top >= rowCount {
		v.Top = max(rowCount-1, 0)
	}
	if v.Left > 0 && v.Left >= colCount {
		v.Left = max(colCount-1, 0)
	}
}

func span(widths []int, from, to int) int {
	total := 0
	for i := from; i <= to; i++ {
		total += widths[i]
	}
	return total
}
