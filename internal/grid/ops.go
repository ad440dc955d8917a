package grid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"airgrid/internal/logging"
	"airgrid/internal/store"
	"airgrid/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// OpKind names the mutation an Op persists.
type OpKind string

const (
	OpAddColumn    OpKind = "add_column"
	OpRenameColumn OpKind = "rename_column"
	OpDeleteColumn OpKind = "delete_column"
	OpAddRow       OpKind = "add_row"
	OpDeleteRow    OpKind = "delete_row"
	OpCommitCell   OpKind = "commit_cell"
	OpRefresh      OpKind = "refresh"
)

// Op is a store request issued by the engine after it applied the matching
// optimistic change. Run touches only the store, never engine state, so it
// may run on any goroutine; its Result must be handed back to Engine.Resolve
// on the goroutine that owns the engine.
type Op struct {
	ID   string
	Kind OpKind
	run  func(ctx context.Context) Result
}

// Run performs the store calls. There is no timeout: a stalled call leaves
// the optimistic state in place until it returns.
func (o *Op) Run(ctx context.Context) Result {
	start := time.Now()
	res := o.run(ctx)
	res.OpID = o.ID
	res.Kind = o.Kind
	res.Duration = time.Since(start)
	return res
}

// Result is the outcome of Op.Run.
type Result struct {
	OpID     string
	Kind     OpKind
	Err      error
	Duration time.Duration

	column    *types.Column
	row       *types.Row
	cell      *types.Cell
	cellIDs   map[string]string // entity key -> created cell id
	createdID string            // set even on failure when a parent was persisted
	snapshot  *Snapshot
}

// Snapshot is a full read of one table and one of its views.
type Snapshot struct {
	Columns []types.Column
	Rows    []types.Row
	Cells   []types.Cell
	View    types.View
	Filters []types.Filter
	Sorts   []types.Sort
}

// pendingOp is what the engine remembers about an in-flight Op in order to
// resolve or roll it back.
type pendingOp struct {
	kind    OpKind
	target  string
	rowKey  string
	colKey  string
	started time.Time

	// commit
	seq        uint64
	prevSeq    uint64
	prevRaw    string
	prevStatus Status

	// rename
	prevName string
	newName  string

	// delete
	index int
	col   Column
	row   Row
	cells map[string]*cellEntry
}

type cellPair struct {
	key   string
	rowID string
	colID string
}

func (e *Engine) issue(kind OpKind, p *pendingOp, run func(ctx context.Context) Result) *Op {
	op := &Op{ID: uuid.NewString(), Kind: kind, run: run}
	p.kind = kind
	p.started = time.Now()
	e.pending[op.ID] = p
	e.audit.OpIssued(op.ID, string(kind), p.target)
	logging.GridDebug("Issued %s op=%s target=%s", kind, op.ID, p.target)
	return op
}

// createEmptyCells creates one empty cell per pair in parallel. Every call is
// awaited; the first failure is returned.
func createEmptyCells(ctx context.Context, s store.Store, pairs []cellPair) (map[string]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	ids := make([]string, len(pairs))
	for i, p := range pairs {
		g.Go(func() error {
			cell, err := s.CreateCell(gctx, p.rowID, p.colID, "")
			if err != nil {
				return err
			}
			ids[i] = cell.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pairs))
	for i, p := range pairs {
		out[p.key] = ids[i]
	}
	return out, nil
}

// =============================================================================
// COLUMNS
// =============================================================================

// ValidateColumnName checks name against the existing columns, ignoring case.
// A blank name is not an error here so live validation stays quiet while the
// prompt is empty.
func (e *Engine) ValidateColumnName(name string) error {
	return e.validateName(name, "")
}

// ValidateRename is ValidateColumnName for renaming the column at index c;
// the column's own name does not count as a collision.
func (e *Engine) ValidateRename(c int, name string) error {
	if c < 0 || c >= e.proj.ColumnCount() {
		return fmt.Errorf("column index %d out of range", c)
	}
	return e.validateName(name, e.proj.columns[c].Key)
}

func (e *Engine) validateName(name, exceptKey string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, c := range e.proj.columns {
		if c.Key != exceptKey && strings.EqualFold(c.Name, name) {
			return &DuplicateNameError{Name: name}
		}
	}
	return nil
}

// AddColumn optimistically appends a column, back-filled with empty values,
// and returns the Op that persists it together with one empty cell per saved
// row. Invalid or duplicate names fail before anything changes.
func (e *Engine) AddColumn(name string, typ types.ColumnType) (*Op, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Input: name, Reason: "column name is required"}
	}
	if err := e.ValidateColumnName(name); err != nil {
		logging.GridDebug("AddColumn rejected: %v", err)
		return nil, err
	}

	position := e.opts.PositionStep
	if e.proj.ColumnCount() > 0 {
		position = e.proj.maxColumnPosition() + e.opts.PositionStep
	}

	col := Column{
		Column: types.Column{
			TableID:  e.tableID,
			Name:     name,
			Type:     typ,
			Width:    e.opts.ColumnWidth,
			Position: position,
		},
		Key:    uuid.NewString(),
		Status: Pending,
	}
	e.proj.appendColumn(col, Pending)

	var rowIDs []cellPair
	for _, r := range e.proj.rows {
		if r.ID != "" {
			rowIDs = append(rowIDs, cellPair{key: r.Key, rowID: r.ID})
		}
	}

	logging.Grid("AddColumn %q (%s) at position %d, back-filling %d rows", name, typ, position, len(rowIDs))

	s, tableID := e.store, e.tableID
	return e.issue(OpAddColumn, &pendingOp{target: name, colKey: col.Key}, func(ctx context.Context) Result {
		created, err := s.CreateColumn(ctx, tableID, name, typ, position)
		if err != nil {
			return Result{Err: err}
		}
		pairs := make([]cellPair, len(rowIDs))
		for i, p := range rowIDs {
			pairs[i] = cellPair{key: p.key, rowID: p.rowID, colID: created.ID}
		}
		ids, err := createEmptyCells(ctx, s, pairs)
		if err != nil {
			if _, derr := s.DeleteColumn(context.WithoutCancel(ctx), created.ID); derr != nil {
				logging.GridWarn("Cleanup of column %s failed: %v", created.ID, derr)
			}
			return Result{Err: err, createdID: created.ID}
		}
		return Result{column: &created, cellIDs: ids}
	}), nil
}

func (e *Engine) resolveAddColumn(p *pendingOp, res Result) error {
	if res.Err != nil {
		e.proj.removeColumn(p.colKey)
		e.dropDuplicateColumn(res.createdID, p.colKey)
		return res.Err
	}
	e.dropDuplicateColumn(res.column.ID, p.colKey)
	idx := e.proj.ColumnIndex(p.colKey)
	if idx < 0 {
		return nil
	}
	e.proj.columns[idx].Column = *res.column
	e.proj.columns[idx].Status = Committed
	for _, r := range e.proj.rows {
		entry := e.proj.cell(r.Key, p.colKey)
		if id, ok := res.cellIDs[r.Key]; ok {
			entry.ID = id
		}
		if entry.seq == 0 {
			entry.Status = Committed
		}
	}
	return nil
}

// dropDuplicateColumn removes a column a refresh picked up from the store
// while the optimistic copy under keepKey was still pending.
func (e *Engine) dropDuplicateColumn(id, keepKey string) {
	if id == "" {
		return
	}
	for _, c := range e.proj.columns {
		if c.ID == id && c.Key != keepKey {
			e.proj.removeColumn(c.Key)
			return
		}
	}
}

// RenameColumn optimistically renames the column at index c.
func (e *Engine) RenameColumn(c int, name string) (*Op, error) {
	if c < 0 || c >= e.proj.ColumnCount() {
		return nil, fmt.Errorf("column index %d out of range", c)
	}
	col := e.proj.columns[c]
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Column: col.Name, Reason: "column name is required"}
	}
	if err := e.validateName(name, col.Key); err != nil {
		return nil, err
	}
	if col.ID == "" {
		return nil, ErrNotEditable
	}
	if name == col.Name {
		return nil, nil
	}

	e.proj.columns[c].Name = name
	e.proj.columns[c].Status = Pending
	logging.Grid("RenameColumn %q -> %q", col.Name, name)

	s, id := e.store, col.ID
	return e.issue(OpRenameColumn, &pendingOp{target: id, colKey: col.Key, prevName: col.Name, newName: name}, func(ctx context.Context) Result {
		renamed, err := s.RenameColumn(ctx, id, name)
		if err != nil {
			return Result{Err: err}
		}
		return Result{column: &renamed}
	}), nil
}

func (e *Engine) resolveRenameColumn(p *pendingOp, res Result) error {
	idx := e.proj.ColumnIndex(p.colKey)
	if idx < 0 || e.proj.columns[idx].Name != p.newName {
		// Deleted or renamed again since; the later op owns the name.
		return res.Err
	}
	if res.Err != nil {
		e.proj.columns[idx].Name = p.prevName
	}
	e.proj.columns[idx].Status = Committed
	return res.Err
}

// DeleteColumn optimistically removes the column at index c with its values.
func (e *Engine) DeleteColumn(c int) (*Op, error) {
	if c < 0 || c >= e.proj.ColumnCount() {
		return nil, fmt.Errorf("column index %d out of range", c)
	}
	col := e.proj.columns[c]
	if col.ID == "" {
		return nil, ErrNotEditable
	}
	if e.cur.State == Editing && e.cur.Col == c {
		e.cancelEdit()
	}

	rowKey, colKey := e.cursorKeys()
	idx, removed, cells := e.proj.removeColumn(col.Key)
	e.deleting[col.ID] = true
	e.relocateCursor(rowKey, colKey)
	logging.Grid("DeleteColumn %q (%s)", col.Name, col.ID)

	s, id := e.store, col.ID
	return e.issue(OpDeleteColumn, &pendingOp{target: id, colKey: col.Key, index: idx, col: removed, cells: cells}, func(ctx context.Context) Result {
		_, err := s.DeleteColumn(ctx, id)
		return Result{Err: err}
	}), nil
}

func (e *Engine) resolveDeleteColumn(p *pendingOp, res Result) error {
	delete(e.deleting, p.col.ID)
	if res.Err == nil || errors.Is(res.Err, store.ErrNotFound) {
		return nil
	}
	e.proj.insertColumn(p.index, p.col, p.cells)
	return res.Err
}

// =============================================================================
// ROWS
// =============================================================================

// AddRow optimistically appends an empty row and returns the Op that persists
// it along with one empty cell per saved column.
func (e *Engine) AddRow() *Op {
	position := e.proj.RowCount() * e.opts.PositionStep
	row := Row{
		Row:    types.Row{TableID: e.tableID, Position: position},
		Key:    uuid.NewString(),
		Status: Pending,
	}
	e.proj.appendRow(row, Pending)

	var colIDs []cellPair
	for _, c := range e.proj.columns {
		if c.ID != "" {
			colIDs = append(colIDs, cellPair{key: c.Key, colID: c.ID})
		}
	}

	logging.Grid("AddRow at position %d with %d cells", position, len(colIDs))

	s, tableID := e.store, e.tableID
	return e.issue(OpAddRow, &pendingOp{target: row.Key, rowKey: row.Key}, func(ctx context.Context) Result {
		created, err := s.CreateRow(ctx, tableID, position)
		if err != nil {
			return Result{Err: err}
		}
		pairs := make([]cellPair, len(colIDs))
		for i, p := range colIDs {
			pairs[i] = cellPair{key: p.key, rowID: created.ID, colID: p.colID}
		}
		ids, err := createEmptyCells(ctx, s, pairs)
		if err != nil {
			if _, derr := s.DeleteRow(context.WithoutCancel(ctx), created.ID); derr != nil {
				logging.GridWarn("Cleanup of row %s failed: %v", created.ID, derr)
			}
			return Result{Err: err, createdID: created.ID}
		}
		return Result{row: &created, cellIDs: ids}
	})
}

func (e *Engine) resolveAddRow(p *pendingOp, res Result) error {
	if res.Err != nil {
		e.proj.removeRow(p.rowKey)
		e.dropDuplicateRow(res.createdID, p.rowKey)
		return res.Err
	}
	e.dropDuplicateRow(res.row.ID, p.rowKey)
	idx := e.proj.RowIndex(p.rowKey)
	if idx < 0 {
		return nil
	}
	e.proj.rows[idx].Row = *res.row
	e.proj.rows[idx].Status = Committed
	for _, c := range e.proj.columns {
		entry := e.proj.cell(p.rowKey, c.Key)
		if id, ok := res.cellIDs[c.Key]; ok {
			entry.ID = id
		}
		if entry.seq == 0 && c.Status != Pending {
			entry.Status = Committed
		}
	}
	return nil
}

func (e *Engine) dropDuplicateRow(id, keepKey string) {
	if id == "" {
		return
	}
	for _, r := range e.proj.rows {
		if r.ID == id && r.Key != keepKey {
			e.proj.removeRow(r.Key)
			return
		}
	}
}

// DeleteRow optimistically removes the row at index r.
func (e *Engine) DeleteRow(r int) (*Op, error) {
	if r < 0 || r >= e.proj.RowCount() {
		return nil, fmt.Errorf("row index %d out of range", r)
	}
	row := e.proj.rows[r]
	if row.ID == "" {
		return nil, ErrNotEditable
	}
	if e.cur.State == Editing && e.cur.Row == r {
		e.cancelEdit()
	}

	rowKey, colKey := e.cursorKeys()
	idx, removed, cells := e.proj.removeRow(row.Key)
	e.deleting[row.ID] = true
	e.relocateCursor(rowKey, colKey)
	logging.Grid("DeleteRow %s", row.ID)

	s, id := e.store, row.ID
	return e.issue(OpDeleteRow, &pendingOp{target: id, rowKey: row.Key, index: idx, row: removed, cells: cells}, func(ctx context.Context) Result {
		_, err := s.DeleteRow(ctx, id)
		return Result{Err: err}
	}), nil
}

func (e *Engine) resolveDeleteRow(p *pendingOp, res Result) error {
	delete(e.deleting, p.row.ID)
	if res.Err == nil || errors.Is(res.Err, store.ErrNotFound) {
		return nil
	}
	e.proj.insertRow(p.index, p.row, p.cells)
	return res.Err
}

// =============================================================================
// CELLS
// =============================================================================

// commitCell writes raw into (r, c) optimistically and returns the Op that
// updates the existing cell or creates it.
func (e *Engine) commitCell(r, c int, raw string) *Op {
	row, col := e.proj.rows[r], e.proj.columns[c]
	entry := e.proj.cell(row.Key, col.Key)

	e.seq++
	p := &pendingOp{
		target:     row.ID + "/" + col.ID,
		rowKey:     row.Key,
		colKey:     col.Key,
		seq:        e.seq,
		prevSeq:    entry.seq,
		prevRaw:    entry.Raw,
		prevStatus: entry.Status,
	}
	entry.Raw = raw
	entry.Status = Pending
	entry.seq = e.seq

	logging.GridDebug("Commit %s/%s = %q (seq=%d)", row.ID, col.Name, raw, e.seq)

	s, cellID, rowID, colID := e.store, entry.ID, row.ID, col.ID
	return e.issue(OpCommitCell, p, func(ctx context.Context) Result {
		cell, err := saveCell(ctx, s, cellID, rowID, colID, raw)
		if err != nil {
			return Result{Err: err}
		}
		return Result{cell: &cell}
	})
}

// saveCell updates the cell when its id is known and creates it otherwise.
// A create that races another create for the same pair falls back to
// updating the winner.
func saveCell(ctx context.Context, s store.Store, cellID, rowID, colID, value string) (types.Cell, error) {
	if cellID != "" {
		cell, err := s.UpdateCell(ctx, cellID, value)
		if !errors.Is(err, store.ErrNotFound) {
			return cell, err
		}
	}
	cell, err := s.CreateCell(ctx, rowID, colID, value)
	if !errors.Is(err, store.ErrDuplicateCell) {
		return cell, err
	}
	cells, lerr := s.ListCellsForRow(ctx, rowID)
	if lerr != nil {
		return types.Cell{}, lerr
	}
	for _, existing := range cells {
		if existing.ColumnID == colID {
			return s.UpdateCell(ctx, existing.ID, value)
		}
	}
	return types.Cell{}, err
}

func (e *Engine) resolveCommit(p *pendingOp, res Result) error {
	if e.proj.RowIndex(p.rowKey) < 0 || e.proj.ColumnIndex(p.colKey) < 0 {
		return res.Err
	}
	entry := e.proj.cell(p.rowKey, p.colKey)

	if res.Err == nil {
		if res.cell != nil && res.cell.ID != "" {
			entry.ID = res.cell.ID
		}
		if entry.seq == p.seq {
			entry.Status = Committed
		}
		return nil
	}

	if entry.seq == p.seq {
		entry.Raw = p.prevRaw
		entry.seq = p.prevSeq
		entry.Status = Failed
		return res.Err
	}

	// A later commit superseded this one; it must now revert past it.
	for _, q := range e.pending {
		if q.kind == OpCommitCell && q.rowKey == p.rowKey && q.colKey == p.colKey && q.prevSeq == p.seq {
			q.prevSeq = p.prevSeq
			q.prevRaw = p.prevRaw
			q.prevStatus = p.prevStatus
		}
	}
	return res.Err
}

// SetCell validates value for (r, c) and commits it without going through the
// edit buffer. Used by non-interactive callers.
func (e *Engine) SetCell(r, c int, value string) (*Op, error) {
	if !e.proj.InBounds(r, c) {
		return nil, fmt.Errorf("cell (%d, %d) out of range", r, c)
	}
	if !e.editable(r, c) {
		return nil, ErrNotEditable
	}
	col := e.proj.columns[c]
	raw, err := normalize(col.Column, value)
	if err != nil {
		return nil, err
	}
	if sameValue(col.Type, e.proj.Value(r, c).Raw, raw) {
		return nil, nil
	}
	return e.commitCell(r, c, raw), nil
}

// sameValue compares stored text the way the column type reads it.
func sameValue(typ types.ColumnType, a, b string) bool {
	if typ != types.ColumnNumber {
		return a == b
	}
	va, vb := valueOf(typ, a), valueOf(typ, b)
	if va.Blank || vb.Blank {
		return va.Blank == vb.Blank
	}
	return va.Number == vb.Number
}

// =============================================================================
// REFRESH
// =============================================================================

// Refresh returns an Op that re-reads the table. Resolving it rebuilds the
// projection without losing the cursor or any in-flight optimistic change.
func (e *Engine) Refresh() *Op {
	s, tableID, viewID := e.store, e.tableID, e.opts.ViewID
	return e.issue(OpRefresh, &pendingOp{target: tableID}, func(ctx context.Context) Result {
		snap, err := LoadSnapshot(ctx, s, tableID, viewID)
		if err != nil {
			return Result{Err: err}
		}
		return Result{snapshot: snap}
	})
}

// LoadSnapshot reads a table's columns, rows and cells plus the metadata of
// viewID, or of the table's first view when viewID is empty.
func LoadSnapshot(ctx context.Context, s store.Store, tableID, viewID string) (*Snapshot, error) {
	timer := logging.StartTimer(logging.CategoryGrid, "LoadSnapshot")
	defer timer.Stop()

	snap := &Snapshot{}
	var err error
	if snap.Columns, err = s.ListColumns(ctx, tableID); err != nil {
		return nil, err
	}
	if snap.Rows, err = s.ListRows(ctx, tableID); err != nil {
		return nil, err
	}
	if snap.Cells, err = s.ListCellsForTable(ctx, tableID); err != nil {
		return nil, err
	}
	views, err := s.ListViews(ctx, tableID)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		if viewID == "" || v.ID == viewID {
			snap.View = v
			break
		}
	}
	if snap.View.ID == "" {
		return snap, nil
	}
	if snap.Filters, err = s.ListFilters(ctx, snap.View.ID); err != nil {
		return nil, err
	}
	if snap.Sorts, err = s.ListSorts(ctx, snap.View.ID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (e *Engine) resolveRefresh(res Result) error {
	if res.Err != nil {
		return res.Err
	}
	snap := res.snapshot
	old := e.proj

	keyFor := make(map[string]string)
	for _, c := range old.columns {
		if c.ID != "" {
			keyFor[c.ID] = c.Key
		}
	}
	for _, r := range old.rows {
		if r.ID != "" {
			keyFor[r.ID] = r.Key
		}
	}

	var cols []types.Column
	for _, c := range snap.Columns {
		if !e.deleting[c.ID] {
			cols = append(cols, c)
		}
	}
	var rows []types.Row
	for _, r := range snap.Rows {
		if !e.deleting[r.ID] {
			rows = append(rows, r)
		}
	}

	fresh := build(cols, rows, snap.Cells, keyFor)
	fresh.View, fresh.Filters, fresh.Sorts = snap.View, snap.Filters, snap.Sorts
	fresh.grouping = old.grouping

	// Optimistic rows and columns not yet in the store stay, with their values.
	for _, c := range old.columns {
		switch {
		case c.ID == "" && fresh.ColumnIndex(c.Key) < 0:
			fresh.columns = append(fresh.columns, c)
		case c.Status == Pending:
			if i := fresh.ColumnIndex(c.Key); i >= 0 {
				fresh.columns[i].Name = c.Name
				fresh.columns[i].Status = Pending
			}
		}
	}
	for _, r := range old.rows {
		if r.ID == "" && fresh.RowIndex(r.Key) < 0 {
			fresh.rows = append(fresh.rows, r)
		}
	}
	for k, entry := range old.cells {
		if fresh.RowIndex(k.row) < 0 || fresh.ColumnIndex(k.col) < 0 {
			continue
		}
		if entry.Status != Pending {
			if _, ok := fresh.cells[k]; ok {
				continue
			}
			if entry.ID != "" {
				// Deleted in the store since the last read.
				continue
			}
		}
		kept := *entry
		if cur, ok := fresh.cells[k]; ok && kept.ID == "" {
			kept.ID = cur.ID
		}
		fresh.cells[k] = &kept
	}

	// Pending ops hold pointers into the old entries only through keys, so
	// replacing the map is safe.
	var rowKey, colKey string
	if e.cur.State != Idle && old.InBounds(e.cur.Row, e.cur.Col) {
		rowKey, colKey = old.rows[e.cur.Row].Key, old.columns[e.cur.Col].Key
	}
	e.proj = fresh
	e.relocateCursor(rowKey, colKey)

	logging.GridDebug("Refreshed projection: %d rows x %d columns", fresh.RowCount(), fresh.ColumnCount())
	return nil
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve applies an Op's outcome. Failures roll back the optimistic change,
// record a Notice and come back as *PersistenceError; they never leave the
// grid inconsistent. Results for unknown ops are ignored.
func (e *Engine) Resolve(res Result) error {
	p, ok := e.pending[res.OpID]
	if !ok {
		logging.GridDebug("Ignoring result for unknown op %s", res.OpID)
		return nil
	}
	delete(e.pending, res.OpID)
	e.audit.OpResolved(res.OpID, string(res.Kind), p.target, time.Since(p.started), res.Err)

	// Rollbacks reinsert rows and columns at their old index; the cursor
	// stays on the entities it was on, not on the numeric coordinate.
	rowKey, colKey := e.cursorKeys()
	var err error
	switch p.kind {
	case OpAddColumn:
		err = e.resolveAddColumn(p, res)
	case OpRenameColumn:
		err = e.resolveRenameColumn(p, res)
	case OpDeleteColumn:
		err = e.resolveDeleteColumn(p, res)
	case OpAddRow:
		err = e.resolveAddRow(p, res)
	case OpDeleteRow:
		err = e.resolveDeleteRow(p, res)
	case OpCommitCell:
		err = e.resolveCommit(p, res)
	case OpRefresh:
		err = e.resolveRefresh(res)
	}
	e.relocateCursor(rowKey, colKey)

	if err == nil {
		logging.GridDebug("Resolved %s op=%s in %v", p.kind, res.OpID, res.Duration)
		return nil
	}
	pe := &PersistenceError{Op: p.kind, Err: err}
	e.notify(res.OpID, pe)
	return pe
}

// Do runs op and resolves it on the calling goroutine. A nil op is a no-op.
func (e *Engine) Do(ctx context.Context, op *Op) error {
	if op == nil {
		return nil
	}
	return e.Resolve(op.Run(ctx))
}
