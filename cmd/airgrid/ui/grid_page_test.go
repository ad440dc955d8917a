package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"airgrid/internal/grid"
	"airgrid/internal/store"
	"airgrid/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

type uiFixture struct {
	ctx   context.Context
	store store.Store
	table types.Table
	base  types.Base
	ws    types.Workspace
}

// newUIFixture seeds a workspace, a base and a table with
// [Name:Text, Age:Number] and one row: Ada, 30.
func newUIFixture(t *testing.T) *uiFixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.NewLocalStore("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ws, err := s.CreateWorkspace(ctx, "Personal")
	if err != nil {
		t.Fatalf("CreateWorkspace failed: %v", err)
	}
	base, err := s.CreateBase(ctx, ws.ID, "CRM")
	if err != nil {
		t.Fatalf("CreateBase failed: %v", err)
	}
	tbl, err := s.CreateTable(ctx, base.ID, "People")
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	name, err := s.CreateColumn(ctx, tbl.ID, "Name", types.ColumnText, types.PositionStep)
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}
	age, err := s.CreateColumn(ctx, tbl.ID, "Age", types.ColumnNumber, 2*types.PositionStep)
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}
	row, err := s.CreateRow(ctx, tbl.ID, types.PositionStep)
	if err != nil {
		t.Fatalf("CreateRow failed: %v", err)
	}
	if _, err := s.CreateCell(ctx, row.ID, name.ID, "Ada"); err != nil {
		t.Fatalf("CreateCell failed: %v", err)
	}
	if _, err := s.CreateCell(ctx, row.ID, age.ID, "30"); err != nil {
		t.Fatalf("CreateCell failed: %v", err)
	}
	return &uiFixture{ctx: ctx, store: s, table: tbl, base: base, ws: ws}
}

func (f *uiFixture) page(t *testing.T, s store.Store) GridPage {
	t.Helper()
	opts := grid.Options{CellWidth: CellWidth(1)}
	eng := grid.New(s, f.table.ID, opts)
	if err := eng.Load(f.ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	page := NewGridPage(f.ctx, eng, DefaultStyles(), GridPageOptions{
		Title:        f.table.Name,
		Base:         f.base.Name,
		CellPadding:  1,
		MouseEnabled: true,
	})
	page.SetSize(120, 20)
	return page
}

// drain runs cmd and feeds every opResultMsg it produces back into the page.
// Other messages are ignored.
func drain(t *testing.T, page GridPage, cmd tea.Cmd) GridPage {
	t.Helper()
	if cmd == nil {
		return page
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			page = drain(t, page, c)
		}
	case opResultMsg:
		page, _ = page.Update(msg)
	}
	return page
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestGridPageArrowSelectsFirstCell(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)

	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyDown})
	cur := page.Engine().Cursor()
	if cur.State != grid.Selected || cur.Row != 0 || cur.Col != 0 {
		t.Fatalf("expected (0,0) selected, got %+v", cur)
	}

	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyRight})
	if got := page.Engine().Cursor().Col; got != 1 {
		t.Errorf("expected column 1 after right, got %d", got)
	}
}

func TestGridPageTypeAndCommit(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)
	page.Engine().Select(0, 1)

	page, _ = page.Update(runes("5"))
	cur := page.Engine().Cursor()
	if cur.State != grid.Editing || cur.Buffer != "5" {
		t.Fatalf("expected editing with buffer 5, got %+v", cur)
	}
	if !strings.Contains(page.View(), "editing") {
		t.Errorf("status line should show editing")
	}

	page, cmd := page.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("commit should return a command")
	}
	if got := page.Engine().Projection().Display(0, 1); got != "5" {
		t.Errorf("optimistic value = %q, want 5", got)
	}
	page = drain(t, page, cmd)
	if page.Engine().Pending() != 0 {
		t.Errorf("expected no pending ops, got %d", page.Engine().Pending())
	}

	cells, err := f.store.ListCellsForTable(f.ctx, f.table.ID)
	if err != nil {
		t.Fatalf("ListCellsForTable failed: %v", err)
	}
	found := false
	for _, c := range cells {
		if c.Value == "5" {
			found = true
		}
	}
	if !found {
		t.Errorf("committed value not persisted: %+v", cells)
	}
}

func TestGridPageInvalidNumberStaysEditing(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)
	page.Engine().Select(0, 1)

	page, _ = page.Update(runes("1"))
	page, _ = page.Update(runes("-"))
	page, cmd := page.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		page = drain(t, page, cmd)
	}
	cur := page.Engine().Cursor()
	if cur.State != grid.Editing {
		t.Fatalf("invalid number should keep editing, got %v", cur.State)
	}
	if cur.Err == nil {
		t.Error("expected a validation error on the cursor")
	}
	if !strings.Contains(page.View(), "✗") {
		t.Error("view should show the validation error")
	}
}

func TestGridPageAddColumnPrompt(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)

	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	if page.prompt == nil {
		t.Fatal("ctrl+t should open the column prompt")
	}

	page, _ = page.Update(runes("age"))
	var dup *grid.DuplicateNameError
	if !errors.As(page.prompt.err, &dup) {
		t.Fatalf("expected live duplicate error, got %v", page.prompt.err)
	}
	page, cmd := page.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || page.prompt == nil {
		t.Fatal("duplicate name should keep the prompt open")
	}

	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if page.prompt != nil {
		t.Fatal("esc should close the prompt")
	}

	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	page, _ = page.Update(runes("Score"))
	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyTab})
	if page.prompt.typ != types.ColumnNumber {
		t.Errorf("tab should toggle the type to number, got %v", page.prompt.typ)
	}
	page, cmd = page.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if page.prompt != nil {
		t.Fatal("prompt should close after submit")
	}
	page = drain(t, page, cmd)

	p := page.Engine().Projection()
	if p.ColumnCount() != 3 {
		t.Fatalf("expected 3 columns, got %d", p.ColumnCount())
	}
	if col := p.Column(2); col.Name != "Score" || col.Type != types.ColumnNumber || col.Status != grid.Committed {
		t.Errorf("unexpected new column: %+v", col)
	}
}

func TestGridPageRenameColumnPrompt(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)
	page.Engine().Select(0, 0)

	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if page.prompt == nil || page.prompt.value() != "Name" {
		t.Fatal("ctrl+r should open the prompt with the current name")
	}
	if page.prompt.err != nil {
		t.Errorf("current name should not be a collision: %v", page.prompt.err)
	}

	page, _ = page.Update(runes("s"))
	page, cmd := page.Update(tea.KeyMsg{Type: tea.KeyEnter})
	page = drain(t, page, cmd)
	if got := page.Engine().Projection().Column(0).Name; got != "Names" {
		t.Errorf("expected renamed column Names, got %q", got)
	}
}

func TestGridPageAddAndDeleteRow(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)

	page, cmd := page.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if got := page.Engine().Projection().RowCount(); got != 2 {
		t.Fatalf("expected optimistic second row, got %d rows", got)
	}
	if cur := page.Engine().Cursor(); cur.Row != 1 {
		t.Errorf("new row should be selected, got %+v", cur)
	}
	page = drain(t, page, cmd)

	rows, err := f.store.ListRows(f.ctx, f.table.ID)
	if err != nil {
		t.Fatalf("ListRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 stored rows, got %d", len(rows))
	}

	page, cmd = page.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	page = drain(t, page, cmd)
	if got := page.Engine().Projection().RowCount(); got != 1 {
		t.Errorf("expected 1 row after delete, got %d", got)
	}
}

func TestGridPageFailedCommitShowsNotice(t *testing.T) {
	f := newUIFixture(t)
	rec := store.NewRecorder(f.store)
	page := f.page(t, rec)
	rec.FailOn("UpdateCell", 0, errors.New("disk full"))
	page.Engine().Select(0, 0)

	page, _ = page.Update(runes("Bob"))
	page, cmd := page.Update(tea.KeyMsg{Type: tea.KeyEnter})
	page = drain(t, page, cmd)

	if got := page.Engine().Projection().Display(0, 0); got != "Ada" {
		t.Errorf("failed commit should roll back to Ada, got %q", got)
	}
	if len(page.Engine().Notices()) != 1 {
		t.Fatalf("expected one notice, got %d", len(page.Engine().Notices()))
	}
	if !strings.Contains(page.View(), "disk full") {
		t.Error("view should surface the failure")
	}

	page, _ = page.Update(tea.KeyMsg{Type: tea.KeyCtrlK})
	if len(page.Engine().Notices()) != 0 {
		t.Error("ctrl+k should dismiss the notice")
	}
}

func TestGridPageMouse(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)

	widths := page.Engine().ColumnWidths()
	x := gutterWidth + widths[0] + 1
	click := tea.MouseMsg{X: x, Y: gridTop, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}

	page, _ = page.Update(click)
	cur := page.Engine().Cursor()
	if cur.State != grid.Selected || cur.Row != 0 || cur.Col != 1 {
		t.Fatalf("click should select (0,1), got %+v", cur)
	}

	page, _ = page.Update(click)
	if got := page.Engine().Cursor().State; got != grid.Editing {
		t.Fatalf("second click should begin editing, got %v", got)
	}

	page, _ = page.Update(runes("1"))
	outside := tea.MouseMsg{X: 1, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	page, cmd := page.Update(outside)
	page = drain(t, page, cmd)
	cur = page.Engine().Cursor()
	if cur.State != grid.Selected {
		t.Fatalf("clicking away should commit and keep the selection, got %v", cur.State)
	}
	if got := page.Engine().Projection().Display(0, 1); got != "301" {
		t.Errorf("expected committed 301, got %q", got)
	}
}

func TestGridPageHitTest(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)
	widths := page.Engine().ColumnWidths()

	tests := []struct {
		name   string
		x, y   int
		row    int
		col    int
		inside bool
	}{
		{"title bar", gutterWidth, 0, 0, 0, false},
		{"gutter", 2, gridTop, 0, 0, false},
		{"first cell", gutterWidth, gridTop, 0, 0, true},
		{"second cell", gutterWidth + widths[0], gridTop, 0, 1, true},
		{"below rows", gutterWidth, gridTop + 1, 0, 0, false},
		{"right of columns", gutterWidth + widths[0] + widths[1], gridTop, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, c, ok := page.hitTest(tt.x, tt.y)
			if ok != tt.inside {
				t.Fatalf("hitTest(%d, %d) inside = %v, want %v", tt.x, tt.y, ok, tt.inside)
			}
			if ok && (r != tt.row || c != tt.col) {
				t.Errorf("hitTest(%d, %d) = (%d, %d), want (%d, %d)", tt.x, tt.y, r, c, tt.row, tt.col)
			}
		})
	}
}

func TestGridPageView(t *testing.T) {
	f := newUIFixture(t)
	page := f.page(t, f.store)

	view := page.View()
	for _, want := range []string{"CRM / People", "Grid view", "Name", "# Age", "Ada", "30", "1 rows · 2 columns"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	page.Engine().Select(0, 1)
	if !strings.Contains(page.View(), "R1 · Age (Number)") {
		t.Error("status line should describe the selected cell")
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		in    string
		width int
		right bool
		want  string
	}{
		{"Ada", 5, false, "Ada  "},
		{"30", 5, true, "   30"},
		{"Margaret", 5, false, "Marg…"},
		{"a\nb", 4, false, "a b "},
	}
	for _, tt := range tests {
		if got := fit(tt.in, tt.width, tt.right); got != tt.want {
			t.Errorf("fit(%q, %d, %v) = %q, want %q", tt.in, tt.width, tt.right, got, tt.want)
		}
	}
}

func TestTail(t *testing.T) {
	if got := tail("short", 10); got != "short" {
		t.Errorf("tail kept %q, want short", got)
	}
	if got := tail("abcdefghij", 5); got != "…ghij" {
		t.Errorf("tail = %q, want …ghij", got)
	}
}
