package ui

import (
	"context"
	"fmt"
	"time"

	"airgrid/internal/config"
	"airgrid/internal/grid"
	"airgrid/internal/logging"
	"airgrid/internal/store"
	"airgrid/internal/ux"
	"airgrid/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
)

// Options wires the interactive program to its dependencies.
type Options struct {
	Store     store.Store
	Config    *config.Config
	Navigator *ux.Navigator
	Workspace string
}

// Page identifies the active page.
type Page int

const (
	PagePicker Page = iota
	PageGrid
)

// dbChangedMsg reports a debounced write to the database file.
type dbChangedMsg struct {
	change watch.Change
}

// gridLoadedMsg delivers an engine after its first load.
type gridLoadedMsg struct {
	eng   *grid.Engine
	title string
	base  string
	err   error
}

// Model is the root bubbletea model.
type Model struct {
	ctx    context.Context
	opts   Options
	styles Styles

	page   Page
	picker PickerPage
	grid   *GridPage
	err    error

	changes <-chan watch.Change

	width  int
	height int
}

// NewModel builds the root model. It opens the grid directly when the
// navigation state names a table.
func NewModel(ctx context.Context, opts Options) Model {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	styles := NewStyles(ThemeByName(opts.Config.UI.Theme))
	return Model{
		ctx:    ctx,
		opts:   opts,
		styles: styles,
		page:   PagePicker,
		picker: NewPickerPage(ctx, opts.Store, opts.Navigator, styles),
	}
}

// WithChanges makes the model refresh the grid on every database change.
func (m Model) WithChanges(ch <-chan watch.Change) Model {
	m.changes = ch
	return m
}

// Page returns the active page.
func (m Model) Page() Page { return m.page }

// Grid returns the grid page, or nil when no table is open.
func (m Model) Grid() *GridPage { return m.grid }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.picker.Init(), m.waitForChange()}
	if nav := m.opts.Navigator.Get(); nav.HasTable() {
		cmds = append(cmds, m.loadGrid(nav.TableID, nav.ViewID, nav.BaseLabel()))
	}
	return tea.Batch(cmds...)
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return dbChangedMsg{change: change}
	}
}

func (m Model) loadGrid(tableID, viewID, baseLabel string) tea.Cmd {
	ctx, s, cfg := m.ctx, m.opts.Store, m.opts.Config
	return func() tea.Msg {
		tbl, err := s.GetTable(ctx, tableID)
		if err != nil {
			return gridLoadedMsg{err: fmt.Errorf("failed to open table: %w", err)}
		}
		opts := grid.OptionsFromConfig(cfg.Grid)
		opts.ViewID = viewID
		opts.CellWidth = CellWidth(cfg.UI.CellPadding)
		eng := grid.New(s, tableID, opts)
		if err := eng.Load(ctx); err != nil {
			return gridLoadedMsg{err: fmt.Errorf("failed to load table: %w", err)}
		}
		return gridLoadedMsg{eng: eng, title: tbl.Name, base: baseLabel}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.picker.SetSize(msg.Width, msg.Height)
		if m.grid != nil {
			m.grid.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case gridLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			logging.UI("%v", msg.err)
			return m, nil
		}
		page := NewGridPage(m.ctx, msg.eng, m.styles, GridPageOptions{
			Title:        msg.title,
			Base:         msg.base,
			CellPadding:  m.opts.Config.UI.CellPadding,
			MouseEnabled: m.opts.Config.UI.MouseEnabled,
		})
		if m.width > 0 {
			page.SetSize(m.width, m.height)
		}
		m.grid = &page
		m.page = PageGrid
		m.err = nil
		logging.UI("Opened table %s", msg.title)
		return m, nil

	case openTableMsg:
		return m, m.loadGrid(msg.table.ID, "", msg.base.Name)

	case openPickerMsg:
		m.page = PagePicker
		return m, m.picker.load()

	case dbChangedMsg:
		logging.UIDebug("Database changed (%d events), refreshing", msg.change.Events)
		var cmd tea.Cmd
		if m.grid != nil {
			cmd = runOp(m.ctx, m.grid.eng.Refresh())
		}
		return m, tea.Batch(cmd, m.waitForChange())

	case opResultMsg:
		if m.grid == nil {
			return m, nil
		}
		page, cmd := m.grid.Update(msg)
		m.grid = &page
		return m, cmd
	}

	if m.page == PageGrid && m.grid != nil {
		page, cmd := m.grid.Update(msg)
		m.grid = &page
		return m, cmd
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var out string
	if m.page == PageGrid && m.grid != nil {
		out = m.grid.View()
	} else {
		out = m.picker.View()
	}
	if m.err != nil {
		out += "\n" + m.styles.Error.Render("✗ "+m.err.Error())
	}
	return out
}

// Run starts the interactive program and blocks until it exits. The
// navigation state is saved on the way out.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(ctx, opts)
	started := time.Now()
	audit := logging.AuditForTable(opts.Navigator.Get().TableID)
	audit.SessionStart(opts.Navigator.Get().TableID)

	cfg := model.opts.Config
	if path := cfg.ResolveStoragePath(opts.Workspace); cfg.Watch.Enabled && path != ":memory:" {
		w, err := watch.NewDBWatcher(path, cfg.GetWatchDebounce())
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			logging.WatchWarn("Database watcher disabled: %v", err)
		} else {
			defer w.Stop()
			model = model.WithChanges(w.Changes())
		}
	}

	popts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.UI.MouseEnabled {
		popts = append(popts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, popts...)
	final, err := p.Run()

	if fm, ok := final.(Model); ok && fm.grid != nil {
		// Commit a half-typed value before leaving.
		if op, berr := fm.grid.eng.Blur(); berr == nil && op != nil {
			if derr := fm.grid.eng.Do(context.WithoutCancel(ctx), op); derr != nil {
				logging.UI("Final commit failed: %v", derr)
			}
		}
	}
	if serr := opts.Navigator.Save(); serr != nil {
		logging.UI("Failed to save navigation: %v", serr)
	}
	audit.SessionEnd(opts.Navigator.Get().TableID, time.Since(started))
	return err
}
