package ui

import (
	"airgrid/internal/grid"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// GridKeyMap holds the grid page bindings. Printable keys start an edit on
// the selected cell, so commands use control keys.
type GridKeyMap struct {
	Move         key.Binding
	Next         key.Binding
	Edit         key.Binding
	Cancel       key.Binding
	Clear        key.Binding
	AddRow       key.Binding
	AddColumn    key.Binding
	RenameColumn key.Binding
	DeleteRow    key.Binding
	DeleteColumn key.Binding
	Refresh      key.Binding
	Dismiss      key.Binding
	Tables       key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// DefaultGridKeyMap returns the standard grid bindings.
func DefaultGridKeyMap() GridKeyMap {
	return GridKeyMap{
		Move: key.NewBinding(
			key.WithKeys("up", "down", "left", "right"),
			key.WithHelp("←↑↓→", "move"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "next cell"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit/commit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Clear: key.NewBinding(
			key.WithKeys("delete", "backspace"),
			key.WithHelp("del", "clear cell"),
		),
		AddRow: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "add row"),
		),
		AddColumn: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "add column"),
		),
		RenameColumn: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "rename column"),
		),
		DeleteRow: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "delete row"),
		),
		DeleteColumn: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "delete column"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+l", "f5"),
			key.WithHelp("ctrl+l", "reload"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "dismiss notice"),
		),
		Tables: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "tables"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k GridKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Move, k.Edit, k.AddRow, k.AddColumn, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k GridKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Move, k.Next, k.Edit, k.Cancel, k.Clear},
		{k.AddRow, k.DeleteRow, k.AddColumn, k.RenameColumn, k.DeleteColumn},
		{k.Refresh, k.Dismiss, k.Tables, k.Help, k.Quit},
	}
}

// PickerKeyMap holds the picker bindings.
type PickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Back   key.Binding
	New    key.Binding
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// DefaultPickerKeyMap returns the standard picker bindings.
func DefaultPickerKeyMap() PickerKeyMap {
	return PickerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "right", "l"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace", "left", "h"),
			key.WithHelp("esc", "back"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+l", "f5"),
			key.WithHelp("ctrl+l", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k PickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Back, k.New, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k PickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Back},
		{k.New, k.Reload, k.Help, k.Quit},
	}
}

// engineKey translates a terminal key into grid engine events. Pasted text
// arrives as several runes and becomes one event per rune.
func engineKey(msg tea.KeyMsg) []grid.KeyEvent {
	switch msg.Type {
	case tea.KeyUp:
		return []grid.KeyEvent{grid.Press(grid.KeyUp)}
	case tea.KeyDown:
		return []grid.KeyEvent{grid.Press(grid.KeyDown)}
	case tea.KeyLeft:
		return []grid.KeyEvent{grid.Press(grid.KeyLeft)}
	case tea.KeyRight:
		return []grid.KeyEvent{grid.Press(grid.KeyRight)}
	case tea.KeyTab:
		return []grid.KeyEvent{grid.Press(grid.KeyTab)}
	case tea.KeyShiftTab:
		return []grid.KeyEvent{grid.Press(grid.KeyShiftTab)}
	case tea.KeyEnter:
		return []grid.KeyEvent{grid.Press(grid.KeyEnter)}
	case tea.KeyEsc:
		return []grid.KeyEvent{grid.Press(grid.KeyEscape)}
	case tea.KeyBackspace:
		return []grid.KeyEvent{grid.Press(grid.KeyBackspace)}
	case tea.KeyDelete:
		return []grid.KeyEvent{grid.Press(grid.KeyDelete)}
	case tea.KeySpace:
		return []grid.KeyEvent{grid.Type(' ')}
	case tea.KeyRunes:
		events := make([]grid.KeyEvent, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			events = append(events, grid.Type(r))
		}
		return events
	}
	return nil
}
