package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"airgrid/internal/grid"
	"airgrid/internal/logging"
	"airgrid/internal/types"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

const (
	// rows above the grid body: title bar and column headers
	gridTop = 2
	// rows below it: status line and short help
	gridBottom = 2

	gutterWidth      = 6
	doubleClickDelay = 400 * time.Millisecond
)

// opResultMsg carries a finished engine Op back into the update loop.
type opResultMsg struct {
	res grid.Result
}

// openPickerMsg asks the app to leave the grid.
type openPickerMsg struct{}

// runOp runs op off the update loop. A nil op yields a nil command.
func runOp(ctx context.Context, op *grid.Op) tea.Cmd {
	if op == nil {
		return nil
	}
	return func() tea.Msg {
		return opResultMsg{res: op.Run(ctx)}
	}
}

type click struct {
	row, col int
	at       time.Time
}

// GridPage renders one table and feeds keyboard and mouse input to its
// engine.
type GridPage struct {
	ctx     context.Context
	eng     *grid.Engine
	styles  Styles
	keys    GridKeyMap
	help    help.Model
	prompt  *columnPrompt
	title   string
	base    string
	padding int
	mouse   bool

	width  int
	height int

	flash     error
	lastClick click
}

// GridPageOptions configures NewGridPage.
type GridPageOptions struct {
	Title        string
	Base         string
	CellPadding  int
	MouseEnabled bool
}

// NewGridPage wraps a loaded engine.
func NewGridPage(ctx context.Context, eng *grid.Engine, styles Styles, opts GridPageOptions) GridPage {
	h := help.New()
	return GridPage{
		ctx:     ctx,
		eng:     eng,
		styles:  styles,
		keys:    DefaultGridKeyMap(),
		help:    h,
		title:   opts.Title,
		base:    opts.Base,
		padding: max(opts.CellPadding, 0),
		mouse:   opts.MouseEnabled,
	}
}

// CellWidth returns the engine's column width function for a given padding:
// the content width, padding on both sides and one separator cell.
func CellWidth(padding int) func(types.Column) int {
	return func(c types.Column) int {
		return max(c.Width/10, 4) + 2*padding + 1
	}
}

// Engine returns the page's engine.
func (m GridPage) Engine() *grid.Engine { return m.eng }

// SetSize updates the layout and the engine viewport.
func (m *GridPage) SetSize(w, h int) {
	m.width, m.height = w, h
	m.help.Width = w
	m.eng.Resize(max(h-gridTop-gridBottom, 1), max(w-gutterWidth, 1))
}

// Update handles messages.
func (m GridPage) Update(msg tea.Msg) (GridPage, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case opResultMsg:
		if err := m.eng.Resolve(msg.res); err != nil {
			logging.UI("Op %s failed: %v", msg.res.Kind, err)
		}
		return m, nil

	case tea.KeyMsg:
		if m.prompt != nil {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		if !m.mouse || m.prompt != nil {
			return m, nil
		}
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m GridPage) handleKey(msg tea.KeyMsg) (GridPage, tea.Cmd) {
	m.flash = nil
	editing := m.eng.Cursor().State == grid.Editing

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, runOp(m.ctx, m.eng.Refresh())
	case key.Matches(msg, m.keys.Dismiss):
		if notices := m.eng.Notices(); len(notices) > 0 {
			m.eng.DismissNotice(notices[len(notices)-1].OpID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Tables):
		op, err := m.eng.Blur()
		if err != nil {
			m.flash = err
			return m, nil
		}
		return m, tea.Batch(runOp(m.ctx, op), func() tea.Msg { return openPickerMsg{} })
	}

	// Structural commands wait until the edit is committed or cancelled.
	if !editing {
		switch {
		case key.Matches(msg, m.keys.AddRow):
			op := m.eng.AddRow()
			m.eng.Select(m.eng.Projection().RowCount()-1, max(m.eng.Cursor().Col, 0))
			return m, runOp(m.ctx, op)
		case key.Matches(msg, m.keys.AddColumn):
			m.prompt = newColumnPrompt(promptAddColumn, -1, "", m.styles)
			return m, m.prompt.focus()
		case key.Matches(msg, m.keys.RenameColumn):
			cur := m.eng.Cursor()
			if cur.State == grid.Idle {
				return m, nil
			}
			name := m.eng.Projection().Column(cur.Col).Name
			m.prompt = newColumnPrompt(promptRenameColumn, cur.Col, name, m.styles)
			return m, m.prompt.focus()
		case key.Matches(msg, m.keys.DeleteRow):
			cur := m.eng.Cursor()
			if cur.State == grid.Idle {
				return m, nil
			}
			op, err := m.eng.DeleteRow(cur.Row)
			m.flash = err
			return m, runOp(m.ctx, op)
		case key.Matches(msg, m.keys.DeleteColumn):
			cur := m.eng.Cursor()
			if cur.State == grid.Idle {
				return m, nil
			}
			op, err := m.eng.DeleteColumn(cur.Col)
			m.flash = err
			return m, runOp(m.ctx, op)
		}
	}

	if m.eng.Cursor().State == grid.Idle && m.eng.Projection().RowCount() > 0 && m.eng.Projection().ColumnCount() > 0 {
		switch msg.Type {
		case tea.KeyUp, tea.KeyDown, tea.KeyLeft, tea.KeyRight, tea.KeyTab, tea.KeyEnter:
			m.eng.Select(0, 0)
			return m, nil
		}
	}

	var cmds []tea.Cmd
	for _, ev := range engineKey(msg) {
		op, err := m.eng.HandleKey(ev)
		if err != nil {
			var invalid *grid.ValidationError
			if !errors.As(err, &invalid) {
				m.flash = err
			}
		}
		cmds = append(cmds, runOp(m.ctx, op))
	}
	return m, tea.Batch(cmds...)
}

func (m GridPage) handleMouse(msg tea.MouseMsg) (GridPage, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if m.eng.Cursor().State == grid.Selected {
			op, _ := m.eng.HandleKey(grid.Press(grid.KeyUp))
			return m, runOp(m.ctx, op)
		}
		return m, nil
	case tea.MouseButtonWheelDown:
		if m.eng.Cursor().State == grid.Selected {
			op, _ := m.eng.HandleKey(grid.Press(grid.KeyDown))
			return m, runOp(m.ctx, op)
		}
		return m, nil
	case tea.MouseButtonLeft:
	default:
		return m, nil
	}

	r, c, ok := m.hitTest(msg.X, msg.Y)
	if !ok {
		// Clicking outside the cells commits an edit in progress.
		op, err := m.eng.Blur()
		if err != nil {
			m.flash = err
		}
		return m, runOp(m.ctx, op)
	}

	now := time.Now()
	double := m.lastClick.row == r && m.lastClick.col == c && now.Sub(m.lastClick.at) <= doubleClickDelay
	m.lastClick = click{row: r, col: c, at: now}

	var op *grid.Op
	var err error
	if double {
		op, err = m.eng.DoubleClick(r, c)
		m.lastClick = click{}
	} else {
		op, err = m.eng.Click(r, c)
	}
	m.flash = err
	return m, runOp(m.ctx, op)
}

// hitTest maps a terminal position to a cell.
func (m GridPage) hitTest(x, y int) (int, int, bool) {
	p := m.eng.Projection()
	vp := m.eng.Viewport()

	rowFrom, rowTo := vp.Rows(p.RowCount())
	r := rowFrom + y - gridTop
	if y < gridTop || r >= rowTo {
		return 0, 0, false
	}
	if x < gutterWidth {
		return 0, 0, false
	}

	widths := m.eng.ColumnWidths()
	colFrom, colTo := vp.Columns(widths)
	left := gutterWidth
	for c := colFrom; c < colTo; c++ {
		if x < left+widths[c] {
			return r, c, true
		}
		left += widths[c]
	}
	return 0, 0, false
}

func (m GridPage) updatePrompt(msg tea.KeyMsg) (GridPage, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = nil
		return m, nil
	case tea.KeyEnter:
		name := m.prompt.value()
		var op *grid.Op
		var err error
		if m.prompt.kind == promptAddColumn {
			op, err = m.eng.AddColumn(name, m.prompt.typ)
		} else {
			op, err = m.eng.RenameColumn(m.prompt.col, name)
		}
		if err != nil {
			m.prompt.err = err
			return m, nil
		}
		m.prompt = nil
		if op != nil && m.eng.Cursor().State == grid.Idle && m.eng.Projection().RowCount() > 0 {
			m.eng.Select(0, m.eng.Projection().ColumnCount()-1)
		}
		return m, runOp(m.ctx, op)
	case tea.KeyTab:
		if m.prompt.kind == promptAddColumn {
			m.prompt.toggleType()
		}
		return m, nil
	}

	cmd := m.prompt.update(msg)
	if m.prompt.kind == promptAddColumn {
		m.prompt.err = m.eng.ValidateColumnName(m.prompt.value())
	} else {
		m.prompt.err = m.eng.ValidateRename(m.prompt.col, m.prompt.value())
	}
	return m, cmd
}

// =============================================================================
// RENDERING
// =============================================================================

// View renders the page.
func (m GridPage) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderTitle())
	sb.WriteString("\n")
	sb.WriteString(m.renderGrid())
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m GridPage) renderTitle() string {
	p := m.eng.Projection()
	title := m.base + " / " + m.title
	if p.View.Name != "" {
		title += " · " + p.View.Name
	}
	if n := len(p.Filters) + len(p.Sorts); n > 0 {
		title += fmt.Sprintf(" (%d filters, %d sorts)", len(p.Filters), len(p.Sorts))
	}
	bar := m.styles.Header.Render(title)
	if m.eng.Pending() > 0 {
		bar += " " + m.styles.Muted.Render("saving…")
	}
	return bar
}

func (m GridPage) renderGrid() string {
	p := m.eng.Projection()
	vp := m.eng.Viewport()
	widths := m.eng.ColumnWidths()
	colFrom, colTo := vp.Columns(widths)
	rowFrom, rowTo := vp.Rows(p.RowCount())

	var sb strings.Builder

	// Column headers
	sb.WriteString(m.styles.ColumnHeader.Render(runewidth.FillRight("#", gutterWidth)))
	for c := colFrom; c < colTo; c++ {
		col := p.Column(c)
		label := col.Name
		if col.Type == types.ColumnNumber {
			label = "# " + label
		}
		style := m.styles.ColumnHeader
		if col.Status == grid.Pending {
			style = style.Italic(true)
		}
		sb.WriteString(style.Render(m.pad(fit(label, m.inner(widths[c]), false))))
		sb.WriteString(m.styles.Divider.Render("│"))
	}
	sb.WriteString("\n")

	if p.ColumnCount() == 0 {
		sb.WriteString(m.styles.Muted.Render("  No columns yet. Press ctrl+t to add one."))
		sb.WriteString("\n")
		return sb.String()
	}
	if p.RowCount() == 0 {
		sb.WriteString(m.styles.Muted.Render("  No rows yet. Press ctrl+n to add one."))
		sb.WriteString("\n")
		return sb.String()
	}

	for r := rowFrom; r < rowTo; r++ {
		num := runewidth.FillLeft(strconv.Itoa(r+1), gutterWidth-1) + " "
		if p.Row(r).Status == grid.Pending {
			sb.WriteString(m.styles.Pending.Render(num))
		} else {
			sb.WriteString(m.styles.RowNumber.Render(num))
		}
		for c := colFrom; c < colTo; c++ {
			sb.WriteString(m.renderCell(r, c, widths[c]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m GridPage) inner(width int) int {
	return max(width-1-2*m.padding, 1)
}

func (m GridPage) pad(s string) string {
	p := strings.Repeat(" ", m.padding)
	return p + s + p
}

func (m GridPage) renderCell(r, c, width int) string {
	p := m.eng.Projection()
	cur := m.eng.Cursor()
	col := p.Column(c)
	inner := m.inner(width)
	here := cur.State != grid.Idle && cur.Row == r && cur.Col == c

	var text string
	style := m.styles.Cell
	switch {
	case here && cur.State == grid.Editing:
		text = runewidth.FillRight(tail(cur.Buffer+"▏", inner), inner)
		style = m.styles.Editing
		if cur.Err != nil {
			style = m.styles.Invalid
		}
	case here:
		text = fit(p.Display(r, c), inner, col.Type == types.ColumnNumber)
		style = m.styles.Selected
	default:
		text = fit(p.Display(r, c), inner, col.Type == types.ColumnNumber)
		switch {
		case p.CellStatus(r, c) == grid.Failed:
			style = m.styles.Error
		case p.CellStatus(r, c) == grid.Pending, p.Row(r).Status == grid.Pending, col.Status == grid.Pending:
			style = m.styles.Pending
		}
	}
	return style.Render(m.pad(text)) + m.styles.Divider.Render("│")
}

// fit truncates s to width display cells and pads it, right-aligned when
// alignRight is set.
func fit(s string, width int, alignRight bool) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = runewidth.Truncate(s, width, "…")
	if alignRight {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

// tail keeps the last width display cells of s so the edit cursor stays
// visible.
func tail(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	w := 0
	i := len(runes)
	for i > 0 {
		rw := runewidth.RuneWidth(runes[i-1])
		if w+rw > width-1 {
			break
		}
		w += rw
		i--
	}
	return "…" + string(runes[i:])
}

func (m GridPage) renderStatus() string {
	if m.prompt != nil {
		return m.prompt.view()
	}

	cur := m.eng.Cursor()
	if cur.State == grid.Editing && cur.Err != nil {
		return m.styles.Error.Render("✗ " + cur.Err.Error())
	}
	if m.flash != nil {
		return m.styles.Warning.Render("! " + m.flash.Error())
	}
	if notices := m.eng.Notices(); len(notices) > 0 {
		last := notices[len(notices)-1]
		line := m.styles.Error.Render("⚠ " + last.Err.Error())
		if len(notices) > 1 {
			line += m.styles.Muted.Render(fmt.Sprintf(" (+%d more)", len(notices)-1))
		}
		return line + m.styles.Muted.Render("  ctrl+k dismiss")
	}

	p := m.eng.Projection()
	if cur.State == grid.Idle {
		return m.styles.Muted.Render(fmt.Sprintf("%d rows · %d columns", p.RowCount(), p.ColumnCount()))
	}
	col := p.Column(cur.Col)
	state := ""
	if cur.State == grid.Editing {
		state = " · editing"
	}
	return m.styles.Muted.Render(fmt.Sprintf("R%d · %s (%s)%s", cur.Row+1, col.Name, col.Type, state))
}
