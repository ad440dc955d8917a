package grid

import (
	"sort"
	"strings"

	"airgrid/internal/types"
)

// Status is the persistence state of an entity in the projection.
type Status int

const (
	// Committed entities match the store as far as the engine knows.
	Committed Status = iota
	// Pending entities carry an optimistic change whose store call is in flight.
	Pending
	// Failed cells had their last commit rejected and were reverted.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "committed"
	}
}

// Column is a projected column. Key is stable for the column's lifetime in the
// engine, including the time before the store has assigned an ID.
type Column struct {
	types.Column
	Key    string
	Status Status
}

// Row is a projected row. Key is stable like Column.Key.
type Row struct {
	types.Row
	Key    string
	Status Status
}

type cellKey struct {
	row, col string
}

type cellEntry struct {
	ID     string
	Raw    string
	Status Status
	seq    uint64
}

// Projection is the dense row by column matrix of a table. Every in-bounds
// coordinate is addressable; a coordinate without a stored cell reads as the
// column type's empty value. View, Filters and Sorts are carried along for
// display and are not applied.
type Projection struct {
	View    types.View
	Filters []types.Filter
	Sorts   []types.Sort

	columns  []Column
	rows     []Row
	cells    map[cellKey]*cellEntry
	grouping bool
}

// Build assembles a projection from store records. Columns and rows are
// ordered by position, ties broken by id. Cells referring to unknown rows or
// columns are ignored.
func Build(cols []types.Column, rows []types.Row, cells []types.Cell) *Projection {
	return build(cols, rows, cells, nil)
}

// build is Build with an optional id to key mapping, used to keep keys stable
// across refreshes.
func build(cols []types.Column, rows []types.Row, cells []types.Cell, keyFor map[string]string) *Projection {
	key := func(id string) string {
		if k, ok := keyFor[id]; ok {
			return k
		}
		return id
	}

	p := &Projection{
		columns:  make([]Column, 0, len(cols)),
		rows:     make([]Row, 0, len(rows)),
		cells:    make(map[cellKey]*cellEntry, len(cells)),
		grouping: true,
	}
	for _, c := range cols {
		p.columns = append(p.columns, Column{Column: c, Key: key(c.ID)})
	}
	for _, r := range rows {
		p.rows = append(p.rows, Row{Row: r, Key: key(r.ID)})
	}
	sort.SliceStable(p.columns, func(i, j int) bool {
		if p.columns[i].Position != p.columns[j].Position {
			return p.columns[i].Position < p.columns[j].Position
		}
		return p.columns[i].ID < p.columns[j].ID
	})
	sort.SliceStable(p.rows, func(i, j int) bool {
		if p.rows[i].Position != p.rows[j].Position {
			return p.rows[i].Position < p.rows[j].Position
		}
		return p.rows[i].ID < p.rows[j].ID
	})

	colKeys := make(map[string]string, len(p.columns))
	for _, c := range p.columns {
		colKeys[c.ID] = c.Key
	}
	rowKeys := make(map[string]string, len(p.rows))
	for _, r := range p.rows {
		rowKeys[r.ID] = r.Key
	}
	for _, c := range cells {
		rk, ok := rowKeys[c.RowID]
		if !ok {
			continue
		}
		ck, ok := colKeys[c.ColumnID]
		if !ok {
			continue
		}
		p.cells[cellKey{rk, ck}] = &cellEntry{ID: c.ID, Raw: c.Value}
	}
	return p
}

// RowCount returns the number of rows, pending ones included.
func (p *Projection) RowCount() int { return len(p.rows) }

// ColumnCount returns the number of columns, pending ones included.
func (p *Projection) ColumnCount() int { return len(p.columns) }

// Columns returns a copy of the ordered columns.
func (p *Projection) Columns() []Column {
	return append([]Column(nil), p.columns...)
}

// Rows returns a copy of the ordered rows.
func (p *Projection) Rows() []Row {
	return append([]Row(nil), p.rows...)
}

// Column returns the column at index c.
func (p *Projection) Column(c int) Column { return p.columns[c] }

// Row returns the row at index r.
func (p *Projection) Row(r int) Row { return p.rows[r] }

// InBounds reports whether (r, c) addresses a value.
func (p *Projection) InBounds(r, c int) bool {
	return r >= 0 && r < len(p.rows) && c >= 0 && c < len(p.columns)
}

func (p *Projection) entry(r, c int) *cellEntry {
	return p.cells[cellKey{p.rows[r].Key, p.columns[c].Key}]
}

// Value returns the typed value at (r, c).
func (p *Projection) Value(r, c int) Value {
	typ := p.columns[c].Type
	if e := p.entry(r, c); e != nil {
		return valueOf(typ, e.Raw)
	}
	return emptyValue(typ)
}

// Display returns the rendered text at (r, c).
func (p *Projection) Display(r, c int) string {
	return p.Value(r, c).Display(p.grouping)
}

// CellID returns the stored cell id at (r, c), or "" when no cell exists yet.
func (p *Projection) CellID(r, c int) string {
	if e := p.entry(r, c); e != nil {
		return e.ID
	}
	return ""
}

// CellStatus returns the persistence state of the value at (r, c).
func (p *Projection) CellStatus(r, c int) Status {
	if e := p.entry(r, c); e != nil {
		return e.Status
	}
	return Committed
}

// RowIndex returns the index of the row with the given key, or -1.
func (p *Projection) RowIndex(key string) int {
	for i, r := range p.rows {
		if r.Key == key {
			return i
		}
	}
	return -1
}

// ColumnIndex returns the index of the column with the given key, or -1.
func (p *Projection) ColumnIndex(key string) int {
	for i, c := range p.columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// ColumnByName finds a column ignoring case.
func (p *Projection) ColumnByName(name string) (int, bool) {
	for i, c := range p.columns {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// maxColumnPosition returns the highest column position, or 0 when empty.
func (p *Projection) maxColumnPosition() int {
	top := 0
	for i, c := range p.columns {
		if i == 0 || c.Position > top {
			top = c.Position
		}
	}
	return top
}

// =============================================================================
// MUTATION (engine only)
// =============================================================================

// appendColumn adds col last and back-fills every row with an empty value.
func (p *Projection) appendColumn(col Column, status Status) {
	p.columns = append(p.columns, col)
	for _, r := range p.rows {
		p.cells[cellKey{r.Key, col.Key}] = &cellEntry{Status: status}
	}
}

// removeColumn drops the column and its cells, returning what was removed so
// it can be restored.
func (p *Projection) removeColumn(key string) (int, Column, map[string]*cellEntry) {
	idx := p.ColumnIndex(key)
	if idx < 0 {
		return -1, Column{}, nil
	}
	col := p.columns[idx]
	p.columns = append(p.columns[:idx:idx], p.columns[idx+1:]...)
	removed := make(map[string]*cellEntry)
	for k, e := range p.cells {
		if k.col == key {
			removed[k.row] = e
			delete(p.cells, k)
		}
	}
	return idx, col, removed
}

// insertColumn puts col back at idx (clamped) with its cells keyed by row.
func (p *Projection) insertColumn(idx int, col Column, cells map[string]*cellEntry) {
	if idx < 0 || idx > len(p.columns) {
		idx = len(p.columns)
	}
	p.columns = append(p.columns[:idx], append([]Column{col}, p.columns[idx:]...)...)
	for rowKey, e := range cells {
		if p.RowIndex(rowKey) >= 0 {
			p.cells[cellKey{rowKey, col.Key}] = e
		}
	}
}

// appendRow adds row last with an empty value for every column.
func (p *Projection) appendRow(row Row, status Status) {
	p.rows = append(p.rows, row)
	for _, c := range p.columns {
		p.cells[cellKey{row.Key, c.Key}] = &cellEntry{Status: status}
	}
}

func (p *Projection) removeRow(key string) (int, Row, map[string]*cellEntry) {
	idx := p.RowIndex(key)
	if idx < 0 {
		return -1, Row{}, nil
	}
	row := p.rows[idx]
	p.rows = append(p.rows[:idx:idx], p.rows[idx+1:]...)
	removed := make(map[string]*cellEntry)
	for k, e := range p.cells {
		if k.row == key {
			removed[k.col] = e
			delete(p.cells, k)
		}
	}
	return idx, row, removed
}

func (p *Projection) insertRow(idx int, row Row, cells map[string]*cellEntry) {
	if idx < 0 || idx > len(p.rows) {
		idx = len(p.rows)
	}
	p.rows = append(p.rows[:idx], append([]Row{row}, p.rows[idx:]...)...)
	for colKey, e := range cells {
		if p.ColumnIndex(colKey) >= 0 {
			p.cells[cellKey{row.Key, colKey}] = e
		}
	}
}

// cell returns the entry for (rowKey, colKey), creating an empty one.
func (p *Projection) cell(rowKey, colKey string) *cellEntry {
	k := cellKey{rowKey, colKey}
	e, ok := p.cells[k]
	if !ok {
		e = &cellEntry{}
		p.cells[k] = e
	}
	return e
}
