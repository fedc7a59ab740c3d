// Package confirm is a yes/no prompt used before destructive actions.
package confirm

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/todolist/internal/theme"
)

// ResultMsg is dispatched when the prompt closes. Tag identifies which
// action asked.
type ResultMsg struct {
	Tag       string
	Confirmed bool
}

type bindings struct {
	confirmed bool
}

// Model wraps a huh confirm field.
type Model struct {
	form   *huh.Form
	b      *bindings
	tag    string
	styles theme.Styles
	width  int
}

// New creates an idle confirm prompt.
func New(styles theme.Styles, width int) Model {
	return Model{b: &bindings{}, styles: styles, width: width}
}

// Start asks question and remembers tag for the ResultMsg.
func (m *Model) Start(tag, question string) tea.Cmd {
	m.tag = tag
	m.b.confirmed = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&m.b.confirmed),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// Update handles messages for the prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	tag := m.tag
	switch m.form.State {
	case huh.StateCompleted:
		ok := m.b.confirmed
		m.form = nil
		return m, func() tea.Msg { return ResultMsg{Tag: tag, Confirmed: ok} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return ResultMsg{Tag: tag} }
	}
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return m.styles.Panel.Render(m.form.View())
}

// SetSize updates the prompt width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// SetStyles switches the palette used by the surrounding panel.
func (m *Model) SetStyles(styles theme.Styles) {
	m.styles = styles
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w < 30 {
		w = 30
	}
	if w > 60 {
		w = 60
	}
	return w
}
