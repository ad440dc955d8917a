package ui

import (
	"airgrid/internal/types"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type promptKind int

const (
	promptAddColumn promptKind = iota
	promptRenameColumn
)

// columnPrompt is the one-line name input for adding or renaming a column.
// err is refreshed on every keystroke so duplicates show before submit.
type columnPrompt struct {
	kind   promptKind
	col    int
	typ    types.ColumnType
	input  textinput.Model
	err    error
	styles Styles
}

func newColumnPrompt(kind promptKind, col int, initial string, styles Styles) *columnPrompt {
	ti := textinput.New()
	ti.Placeholder = "Column name"
	ti.CharLimit = 64
	ti.Width = 32
	ti.Prompt = ""
	ti.SetValue(initial)
	ti.CursorEnd()

	return &columnPrompt{
		kind:   kind,
		col:    col,
		typ:    types.ColumnText,
		input:  ti,
		styles: styles,
	}
}

func (p *columnPrompt) focus() tea.Cmd {
	return p.input.Focus()
}

func (p *columnPrompt) value() string {
	return p.input.Value()
}

func (p *columnPrompt) toggleType() {
	if p.typ == types.ColumnNumber {
		p.typ = types.ColumnText
	} else {
		p.typ = types.ColumnNumber
	}
}

func (p *columnPrompt) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *columnPrompt) view() string {
	label := "New column: "
	if p.kind == promptRenameColumn {
		label = "Rename column: "
	}
	line := p.styles.Prompt.Render(label) + p.input.View()
	if p.kind == promptAddColumn {
		line += p.styles.Muted.Render("  type: ") + p.styles.Bold.Render(p.typ.String()) +
			p.styles.Muted.Render(" (tab)")
	}
	if p.err != nil {
		line += "  " + p.styles.Error.Render(p.err.Error())
	}
	return line
}
