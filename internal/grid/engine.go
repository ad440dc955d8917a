// Package grid implements the spreadsheet-style editing engine over one table:
// the row by column projection, the Idle/Selected/Editing cursor, optimistic
// mutations with rollback, and the scrolled viewport.
//
// An Engine is owned by one goroutine. Methods that change persisted data
// apply the change locally and return an *Op; the caller runs Op.Run anywhere
// and feeds the Result back through Resolve on the owning goroutine.
package grid

import (
	"context"
	"time"
	"unicode"

	"airgrid/internal/config"
	"airgrid/internal/logging"
	"airgrid/internal/store"
	"airgrid/internal/types"
)

// State is the cursor mode.
type State int

const (
	Idle State = iota
	Selected
	Editing
)

func (s State) String() string {
	switch s {
	case Selected:
		return "selected"
	case Editing:
		return "editing"
	default:
		return "idle"
	}
}

// Cursor is the selection and, while Editing, the edit buffer. Err holds the
// live validation result of Buffer.
type Cursor struct {
	State  State
	Row    int
	Col    int
	Buffer string
	Err    error
}

// Key identifies a keyboard input to HandleKey.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyTab
	KeyShiftTab
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyDelete
	KeyRune
)

// KeyEvent is one key press. Rune is set for KeyRune.
type KeyEvent struct {
	Key  Key
	Rune rune
}

// Press builds a KeyEvent for a non-character key.
func Press(k Key) KeyEvent { return KeyEvent{Key: k} }

// Type builds a KeyEvent for a typed character.
func Type(r rune) KeyEvent { return KeyEvent{Key: KeyRune, Rune: r} }

// Notice records a persistence failure for display.
type Notice struct {
	OpID string
	Op   OpKind
	Err  error
	At   time.Time
}

// Options configures an Engine. Zero values pick the defaults.
type Options struct {
	ViewID         string
	PositionStep   int
	ColumnWidth    int
	MaxNotices     int
	NoGrouping     bool
	ViewportHeight int
	ViewportWidth  int
	// CellWidth maps a column to its display width in terminal cells.
	CellWidth func(types.Column) int
}

// OptionsFromConfig maps the grid section of the config onto Options.
func OptionsFromConfig(cfg config.GridConfig) Options {
	return Options{
		PositionStep:   cfg.PositionStep,
		ColumnWidth:    cfg.ColumnWidth,
		MaxNotices:     cfg.MaxNotices,
		NoGrouping:     !cfg.NumberGrouping,
		ViewportHeight: cfg.VisibleRows,
	}
}

func defaultCellWidth(c types.Column) int {
	return max(c.Width/10, 4)
}

// Engine is the grid editing state machine for one table.
type Engine struct {
	store   store.Store
	tableID string
	opts    Options

	proj *Projection
	cur  Cursor
	vp   Viewport

	pending  map[string]*pendingOp
	deleting map[string]bool
	seq      uint64
	notices  []Notice

	audit *logging.AuditLogger
}

// New creates an engine over tableID with an empty projection. Call Load, or
// run and resolve Refresh, to populate it.
func New(s store.Store, tableID string, opts Options) *Engine {
	if opts.PositionStep <= 0 {
		opts.PositionStep = types.PositionStep
	}
	if opts.ColumnWidth <= 0 {
		opts.ColumnWidth = types.DefaultColumnWidth
	}
	if opts.MaxNotices <= 0 {
		opts.MaxNotices = 5
	}
	if opts.CellWidth == nil {
		opts.CellWidth = defaultCellWidth
	}
	proj := Build(nil, nil, nil)
	proj.grouping = !opts.NoGrouping
	return &Engine{
		store:    s,
		tableID:  tableID,
		opts:     opts,
		proj:     proj,
		vp:       Viewport{Height: opts.ViewportHeight, Width: opts.ViewportWidth},
		pending:  make(map[string]*pendingOp),
		deleting: make(map[string]bool),
		audit:    logging.AuditForTable(tableID),
	}
}

// Load reads the table synchronously.
func (e *Engine) Load(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryGrid, "Load")
	defer timer.Stop()
	return e.Do(ctx, e.Refresh())
}

// TableID returns the table the engine edits.
func (e *Engine) TableID() string { return e.tableID }

// Projection returns the current projection. It must not be retained across
// calls that mutate the engine.
func (e *Engine) Projection() *Projection { return e.proj }

// Cursor returns the current selection and edit state.
func (e *Engine) Cursor() Cursor { return e.cur }

// Viewport returns the visible window.
func (e *Engine) Viewport() Viewport { return e.vp }

// Pending returns the number of ops issued but not yet resolved.
func (e *Engine) Pending() int { return len(e.pending) }

// Notices returns the persistence failures not yet dismissed, oldest first.
func (e *Engine) Notices() []Notice {
	return append([]Notice(nil), e.notices...)
}

// DismissNotice drops the notice for opID. It reports whether one existed.
func (e *Engine) DismissNotice(opID string) bool {
	for i, n := range e.notices {
		if n.OpID == opID {
			e.notices = append(e.notices[:i:i], e.notices[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) notify(opID string, err *PersistenceError) {
	logging.GridWarn("Rolled back %s: %v", err.Op, err.Err)
	e.notices = append(e.notices, Notice{OpID: opID, Op: err.Op, Err: err, At: time.Now()})
	if over := len(e.notices) - e.opts.MaxNotices; over > 0 {
		e.notices = e.notices[over:]
	}
}

// Resize sets the viewport dimensions and keeps the selection visible.
func (e *Engine) Resize(height, width int) {
	e.vp.Height, e.vp.Width = height, width
	e.reveal()
}

// ColumnWidths returns the display width of each column in order.
func (e *Engine) ColumnWidths() []int {
	widths := make([]int, len(e.proj.columns))
	for i, c := range e.proj.columns {
		widths[i] = e.opts.CellWidth(c.Column)
	}
	return widths
}

func (e *Engine) reveal() {
	if e.cur.State == Idle {
		return
	}
	e.vp.Reveal(e.cur.Row, e.cur.Col, e.ColumnWidths())
}

// =============================================================================
// SELECTION
// =============================================================================

func (e *Engine) editable(r, c int) bool {
	return e.proj.InBounds(r, c) && e.proj.rows[r].ID != "" && e.proj.columns[c].ID != ""
}

func (e *Engine) moveTo(r, c int) {
	e.cur = Cursor{State: Selected, Row: r, Col: c}
	e.reveal()
}

// Select moves the selection to (r, c) without touching an edit in progress.
// Out-of-range coordinates are ignored.
func (e *Engine) Select(r, c int) {
	if !e.proj.InBounds(r, c) || e.cur.State == Editing {
		return
	}
	e.moveTo(r, c)
}

// Deselect clears the selection, discarding any edit buffer.
func (e *Engine) Deselect() {
	e.cur = Cursor{}
}

// BeginEdit enters Editing on the selected cell with its current value in the
// buffer.
func (e *Engine) BeginEdit() error {
	if e.cur.State != Selected {
		return nil
	}
	return e.beginEdit(e.proj.Value(e.cur.Row, e.cur.Col).String())
}

func (e *Engine) beginEdit(buffer string) error {
	r, c := e.cur.Row, e.cur.Col
	if !e.editable(r, c) {
		return ErrNotEditable
	}
	e.cur.State = Editing
	e.cur.Buffer = buffer
	e.validateBuffer()
	logging.GridDebug("Editing (%d, %d)", r, c)
	return nil
}

func (e *Engine) validateBuffer() {
	_, e.cur.Err = normalize(e.proj.columns[e.cur.Col].Column, e.cur.Buffer)
}

func (e *Engine) cancelEdit() {
	e.cur.State = Selected
	e.cur.Buffer = ""
	e.cur.Err = nil
}

// commitEdit leaves Editing on success. An invalid buffer keeps the engine in
// Editing and returns the ValidationError.
func (e *Engine) commitEdit() (*Op, error) {
	r, c := e.cur.Row, e.cur.Col
	col := e.proj.columns[c]
	raw, err := normalize(col.Column, e.cur.Buffer)
	if err != nil {
		e.cur.Err = err
		return nil, err
	}
	e.cancelEdit()
	if sameValue(col.Type, e.proj.Value(r, c).Raw, raw) {
		return nil, nil
	}
	return e.commitCell(r, c, raw), nil
}

// Click selects (r, c). An edit in progress elsewhere is committed first; if
// its buffer does not validate it is discarded.
func (e *Engine) Click(r, c int) (*Op, error) {
	if !e.proj.InBounds(r, c) {
		return nil, nil
	}
	var op *Op
	if e.cur.State == Editing {
		if e.cur.Row == r && e.cur.Col == c {
			return nil, nil
		}
		var err error
		if op, err = e.commitEdit(); err != nil {
			logging.GridDebug("Discarding invalid edit at (%d, %d): %v", e.cur.Row, e.cur.Col, err)
			e.cancelEdit()
		}
	}
	e.moveTo(r, c)
	return op, nil
}

// DoubleClick selects (r, c) and begins editing it.
func (e *Engine) DoubleClick(r, c int) (*Op, error) {
	if e.cur.State == Editing && e.cur.Row == r && e.cur.Col == c {
		return nil, nil
	}
	op, err := e.Click(r, c)
	if err != nil || e.cur.State != Selected {
		return op, err
	}
	return op, e.BeginEdit()
}

// Blur commits an edit in progress and keeps the cell selected.
func (e *Engine) Blur() (*Op, error) {
	if e.cur.State != Editing {
		return nil, nil
	}
	return e.commitEdit()
}

// =============================================================================
// KEYBOARD
// =============================================================================

// HandleKey applies one key press. It returns the Op to run when the key
// committed a value, and an error when the key was refused: a
// *ValidationError for an invalid commit or ErrNotEditable for editing a cell
// that is not saved yet.
func (e *Engine) HandleKey(ev KeyEvent) (*Op, error) {
	switch e.cur.State {
	case Selected:
		return e.handleSelected(ev)
	case Editing:
		return e.handleEditing(ev)
	}
	return nil, nil
}

func (e *Engine) handleSelected(ev KeyEvent) (*Op, error) {
	r, c := e.cur.Row, e.cur.Col
	lastRow, lastCol := e.proj.RowCount()-1, e.proj.ColumnCount()-1

	switch ev.Key {
	case KeyUp:
		e.moveTo(max(r-1, 0), c)
	case KeyDown:
		e.moveTo(min(r+1, lastRow), c)
	case KeyLeft:
		e.moveTo(r, max(c-1, 0))
	case KeyRight:
		e.moveTo(r, min(c+1, lastCol))
	case KeyTab:
		switch {
		case c < lastCol:
			e.moveTo(r, c+1)
		case r < lastRow:
			e.moveTo(r+1, 0)
		}
	case KeyShiftTab:
		switch {
		case c > 0:
			e.moveTo(r, c-1)
		case r > 0:
			e.moveTo(r-1, lastCol)
		}
	case KeyEnter:
		return nil, e.BeginEdit()
	case KeyEscape:
		e.Deselect()
	case KeyDelete, KeyBackspace:
		if !e.editable(r, c) {
			return nil, ErrNotEditable
		}
		if e.proj.Value(r, c).Blank {
			return nil, nil
		}
		return e.commitCell(r, c, ""), nil
	case KeyRune:
		if !unicode.IsPrint(ev.Rune) {
			return nil, nil
		}
		if e.proj.columns[c].Type == types.ColumnNumber && !AllowedNumberRune(ev.Rune) {
			return nil, nil
		}
		return nil, e.beginEdit(string(ev.Rune))
	}
	return nil, nil
}

func (e *Engine) handleEditing(ev KeyEvent) (*Op, error) {
	r, c := e.cur.Row, e.cur.Col
	lastRow, lastCol := e.proj.RowCount()-1, e.proj.ColumnCount()-1

	switch ev.Key {
	case KeyRune:
		if !unicode.IsPrint(ev.Rune) {
			return nil, nil
		}
		if e.proj.columns[c].Type == types.ColumnNumber && !AllowedNumberRune(ev.Rune) {
			return nil, nil
		}
		e.cur.Buffer += string(ev.Rune)
		e.validateBuffer()
	case KeyBackspace:
		if buf := []rune(e.cur.Buffer); len(buf) > 0 {
			e.cur.Buffer = string(buf[:len(buf)-1])
			e.validateBuffer()
		}
	case KeyEscape:
		e.cancelEdit()
	case KeyEnter:
		return e.commitAndMove(min(r+1, lastRow), c)
	case KeyTab:
		return e.commitAndMove(r, min(c+1, lastCol))
	case KeyShiftTab:
		return e.commitAndMove(r, max(c-1, 0))
	}
	return nil, nil
}

func (e *Engine) commitAndMove(r, c int) (*Op, error) {
	op, err := e.commitEdit()
	if err != nil {
		return nil, err
	}
	e.moveTo(r, c)
	return op, nil
}

// settle re-establishes cursor and viewport bounds after rows or columns
// disappeared.
func (e *Engine) settle() {
	rows, cols := e.proj.RowCount(), e.proj.ColumnCount()
	e.vp.clamp(rows, cols)
	if e.cur.State == Idle {
		return
	}
	if rows == 0 || cols == 0 {
		e.cur = Cursor{}
		return
	}
	if e.cur.Row >= rows || e.cur.Col >= cols {
		if e.cur.State == Editing {
			e.cancelEdit()
		}
		e.cur.Row = min(e.cur.Row, rows-1)
		e.cur.Col = min(e.cur.Col, cols-1)
	}
	e.reveal()
}

// cursorKeys returns the keys of the row and column under the cursor, or
// empty keys when nothing is selected.
func (e *Engine) cursorKeys() (rowKey, colKey string) {
	if e.cur.State == Idle || !e.proj.InBounds(e.cur.Row, e.cur.Col) {
		return "", ""
	}
	return e.proj.rows[e.cur.Row].Key, e.proj.columns[e.cur.Col].Key
}

// relocateCursor follows the selected row and column by key after the
// projection was rebuilt. If either is gone the coordinate is clamped and any
// edit is dropped.
func (e *Engine) relocateCursor(rowKey, colKey string) {
	if e.cur.State == Idle || rowKey == "" {
		e.settle()
		return
	}
	r, c := e.proj.RowIndex(rowKey), e.proj.ColumnIndex(colKey)
	if r >= 0 && c >= 0 {
		e.cur.Row, e.cur.Col = r, c
		e.settle()
		return
	}
	if e.cur.State == Editing {
		e.cancelEdit()
	}
	e.settle()
}
