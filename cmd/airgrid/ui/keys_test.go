package ui

import (
	"testing"

	"airgrid/internal/grid"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
)

func TestEngineKey(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []grid.KeyEvent
	}{
		{"up", tea.KeyMsg{Type: tea.KeyUp}, []grid.KeyEvent{grid.Press(grid.KeyUp)}},
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, []grid.KeyEvent{grid.Press(grid.KeyTab)}},
		{"shift tab", tea.KeyMsg{Type: tea.KeyShiftTab}, []grid.KeyEvent{grid.Press(grid.KeyShiftTab)}},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, []grid.KeyEvent{grid.Press(grid.KeyEnter)}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, []grid.KeyEvent{grid.Press(grid.KeyEscape)}},
		{"delete", tea.KeyMsg{Type: tea.KeyDelete}, []grid.KeyEvent{grid.Press(grid.KeyDelete)}},
		{"space", tea.KeyMsg{Type: tea.KeySpace}, []grid.KeyEvent{grid.Type(' ')}},
		{"rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, []grid.KeyEvent{grid.Type('x')}},
		{"paste", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("12")}, []grid.KeyEvent{grid.Type('1'), grid.Type('2')}},
		{"unmapped", tea.KeyMsg{Type: tea.KeyCtrlA}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, engineKey(tt.msg)); diff != "" {
				t.Errorf("engineKey mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGridKeysAvoidPrintableRunes(t *testing.T) {
	keys := DefaultGridKeyMap()
	commands := []key.Binding{keys.AddRow, keys.AddColumn, keys.RenameColumn, keys.DeleteRow, keys.DeleteColumn, keys.Refresh, keys.Tables, keys.Quit}
	for _, b := range commands {
		for _, k := range b.Keys() {
			if len([]rune(k)) == 1 {
				t.Errorf("binding %q uses printable key %q, which would start an edit", b.Help().Desc, k)
			}
		}
	}
}
