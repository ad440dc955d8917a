package ui

import (
	"context"
	"fmt"
	"strings"

	"airgrid/internal/logging"
	"airgrid/internal/store"
	"airgrid/internal/types"
	"airgrid/internal/ux"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PickerLevel is the level of the hierarchy the picker lists.
type PickerLevel int

const (
	LevelWorkspaces PickerLevel = iota
	LevelBases
	LevelTables
)

func (l PickerLevel) String() string {
	switch l {
	case LevelBases:
		return "Bases"
	case LevelTables:
		return "Tables"
	default:
		return "Workspaces"
	}
}

type pickerItem struct {
	ID     string
	Name   string
	Detail string
}

// itemsLoadedMsg delivers the entries of one level.
type itemsLoadedMsg struct {
	level PickerLevel
	items []pickerItem
	err   error
}

// baseOpenedMsg delivers a base after OpenBase stamped it.
type baseOpenedMsg struct {
	base types.Base
	err  error
}

// openTableMsg tells the app to show a table.
type openTableMsg struct {
	table types.Table
	base  types.Base
}

// PickerPage selects a workspace, then a base, then a table.
type PickerPage struct {
	ctx    context.Context
	store  store.Store
	nav    *ux.Navigator
	styles Styles
	keys   PickerKeyMap
	help   help.Model
	table  table.Model

	level       PickerLevel
	workspaceID string
	base        types.Base
	items       []pickerItem
	loading     bool
	err         error

	naming bool
	input  textinput.Model

	width  int
	height int
}

// NewPickerPage starts at the deepest level the navigation state allows.
func NewPickerPage(ctx context.Context, s store.Store, nav *ux.Navigator, styles Styles) PickerPage {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 32},
			{Title: "Details", Width: 24},
			{Title: "ID", Width: 36},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	ti := textinput.New()
	ti.Placeholder = "Name"
	ti.CharLimit = 64
	ti.Width = 32

	p := PickerPage{
		ctx:    ctx,
		store:  s,
		nav:    nav,
		styles: styles,
		keys:   DefaultPickerKeyMap(),
		help:   help.New(),
		table:  t,
		input:  ti,
		// Init issues the first load
		loading: true,
	}

	state := nav.Get()
	p.workspaceID = state.WorkspaceID
	switch {
	case state.HasBase():
		p.level = LevelTables
		p.base = types.Base{ID: state.BaseID, Name: state.BaseName, WorkspaceID: state.WorkspaceID}
	case state.WorkspaceID != "":
		p.level = LevelBases
	default:
		p.level = LevelWorkspaces
	}
	return p
}

// Init loads the starting level.
func (m PickerPage) Init() tea.Cmd {
	return m.load()
}

// Level returns the level being shown.
func (m PickerPage) Level() PickerLevel { return m.level }

// SetSize updates the table size.
func (m *PickerPage) SetSize(w, h int) {
	m.width, m.height = w, h
	m.help.Width = w
	m.table.SetWidth(w)
	m.table.SetHeight(max(h-5, 3))
}

func (m *PickerPage) load() tea.Cmd {
	m.loading = true
	ctx, s, level := m.ctx, m.store, m.level
	wsID, baseID := m.workspaceID, m.base.ID
	return func() tea.Msg {
		return listItems(ctx, s, level, wsID, baseID)
	}
}

func listItems(ctx context.Context, s store.Store, level PickerLevel, wsID, baseID string) itemsLoadedMsg {
	var items []pickerItem
	switch level {
	case LevelWorkspaces:
		list, err := s.ListWorkspaces(ctx)
		if err != nil {
			return itemsLoadedMsg{level: level, err: err}
		}
		for _, w := range list {
			items = append(items, pickerItem{ID: w.ID, Name: w.Name, Detail: w.CreatedAt.Format("2006-01-02")})
		}
	case LevelBases:
		list, err := s.ListBases(ctx, wsID)
		if err != nil {
			return itemsLoadedMsg{level: level, err: err}
		}
		for _, b := range list {
			detail := "never opened"
			if !b.LastOpenAt.IsZero() {
				detail = "opened " + b.LastOpenAt.Format("2006-01-02 15:04")
			}
			items = append(items, pickerItem{ID: b.ID, Name: b.Name, Detail: detail})
		}
	case LevelTables:
		list, err := s.ListTables(ctx, baseID)
		if err != nil {
			return itemsLoadedMsg{level: level, err: err}
		}
		for _, t := range list {
			items = append(items, pickerItem{ID: t.ID, Name: t.Name, Detail: t.CreatedAt.Format("2006-01-02")})
		}
	}
	return itemsLoadedMsg{level: level, items: items}
}

// create adds an entry at the current level and reloads the level.
func (m *PickerPage) create(name string) tea.Cmd {
	ctx, s, level := m.ctx, m.store, m.level
	wsID, baseID := m.workspaceID, m.base.ID
	return func() tea.Msg {
		var err error
		switch level {
		case LevelWorkspaces:
			_, err = s.CreateWorkspace(ctx, name)
		case LevelBases:
			_, err = s.CreateBase(ctx, wsID, name)
		case LevelTables:
			_, err = s.CreateTable(ctx, baseID, name)
		}
		if err != nil {
			return itemsLoadedMsg{level: level, err: fmt.Errorf("create failed: %w", err)}
		}
		logging.UI("Created %s entry %q", level, name)
		return listItems(ctx, s, level, wsID, baseID)
	}
}

func (m *PickerPage) openBase(id string) tea.Cmd {
	ctx, s := m.ctx, m.store
	return func() tea.Msg {
		b, err := s.OpenBase(ctx, id)
		return baseOpenedMsg{base: b, err: err}
	}
}

// Update handles messages.
func (m PickerPage) Update(msg tea.Msg) (PickerPage, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case itemsLoadedMsg:
		if msg.level != m.level {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.items = msg.items
			rows := make([]table.Row, 0, len(m.items))
			for _, it := range m.items {
				rows = append(rows, table.Row{it.Name, it.Detail, it.ID})
			}
			m.table.SetRows(rows)
			m.table.SetCursor(0)
		}
		return m, nil

	case baseOpenedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.base = msg.base
		m.nav.SetBase(msg.base.ID, msg.base.Name)
		m.level = LevelTables
		return m, m.load()

	case tea.KeyMsg:
		if m.naming {
			return m.updateNaming(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m PickerPage) handleKey(msg tea.KeyMsg) (PickerPage, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.load()
	case key.Matches(msg, m.keys.New):
		m.naming = true
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Open):
		return m.open()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m PickerPage) selected() (pickerItem, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.items) {
		return pickerItem{}, false
	}
	return m.items[i], true
}

func (m PickerPage) open() (PickerPage, tea.Cmd) {
	item, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch m.level {
	case LevelWorkspaces:
		m.workspaceID = item.ID
		m.nav.SetWorkspace(item.ID)
		m.level = LevelBases
		return m, m.load()
	case LevelBases:
		return m, m.openBase(item.ID)
	default:
		m.nav.SetTable(item.ID)
		if err := m.nav.Save(); err != nil {
			logging.UI("Failed to save navigation: %v", err)
		}
		tbl := types.Table{ID: item.ID, BaseID: m.base.ID, Name: item.Name}
		base := m.base
		return m, func() tea.Msg { return openTableMsg{table: tbl, base: base} }
	}
}

func (m PickerPage) back() (PickerPage, tea.Cmd) {
	switch m.level {
	case LevelTables:
		m.level = LevelBases
		m.base = types.Base{}
		return m, m.load()
	case LevelBases:
		m.level = LevelWorkspaces
		return m, m.load()
	}
	return m, nil
}

func (m PickerPage) updateNaming(msg tea.KeyMsg) (PickerPage, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.naming = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			return m, nil
		}
		m.naming = false
		m.input.Blur()
		return m, m.create(name)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the picker.
func (m PickerPage) View() string {
	var sb strings.Builder

	crumbs := []string{"airgrid", m.level.String()}
	if m.level == LevelTables && m.base.Name != "" {
		crumbs = []string{"airgrid", m.base.Name, "Tables"}
	}
	sb.WriteString(m.styles.Header.Render(strings.Join(crumbs, " / ")))
	sb.WriteString("\n\n")

	switch {
	case m.loading && len(m.items) == 0:
		sb.WriteString(m.styles.Muted.Render("Loading…"))
	case len(m.items) == 0:
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("No %s yet. Press n to create one.", strings.ToLower(m.level.String()))))
	default:
		sb.WriteString(m.table.View())
	}
	sb.WriteString("\n")

	switch {
	case m.naming:
		sb.WriteString(m.styles.Prompt.Render("New "+strings.TrimSuffix(strings.ToLower(m.level.String()), "s")+": ") + m.input.View())
	case m.err != nil:
		sb.WriteString(m.styles.Error.Render("✗ " + m.err.Error()))
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}
