package todolist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/nhle/todolist/internal/model"
)

// Item wraps a model.Todo so it can be used in a bubbles/list.
type Item struct {
	Todo model.Todo
}

// FilterValue returns the string used for filtering.
func (i Item) FilterValue() string { return i.Todo.Title }

// Title returns the todo title for the list.
func (i Item) Title() string { return i.Todo.Title }

// Description returns a short summary line for the list.
func (i Item) Description() string {
	var parts []string
	if i.Todo.DueDate != "" {
		parts = append(parts, "due "+i.Todo.DueDate)
	}
	if d := firstLine(i.Todo.Description); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering todo rows.
type ItemDelegate struct {
	// sh is shared with the owning Model so the row being edited can
	// render the live text input.
	sh *shared
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single todo row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}

	st := d.sh.styles
	isSelected := index == m.Index()
	todo := it.Todo

	box := st.Checkbox.Render("[ ]")
	if todo.Completed {
		box = st.CheckboxDone.Render("[x]")
	}

	// Room left after the checkbox, the gap and the item padding.
	avail := m.Width() - 6
	if avail < 10 {
		avail = 10
	}

	var body string
	if d.sh.editingID == todo.ID {
		body = st.Editing.Render(d.sh.input.View())
	} else {
		title, meta := fitRow(todo.Title, it.Description(), avail)
		if todo.Completed {
			title = st.Completed.Render(title)
		}
		body = title
		if meta != "" {
			body += "  " + st.Meta.Render(meta)
		}
	}

	line := fmt.Sprintf("%s %s", box, body)
	if isSelected {
		line = st.SelectedItem.Render(line)
	} else {
		line = st.ListItem.Render(line)
	}

	fmt.Fprint(w, line)
}

// fitRow truncates title to avail cells and fits meta into what is left
// after a two-cell gap. meta is dropped when fewer than nine cells remain.
func fitRow(title, meta string, avail int) (string, string) {
	title = truncate.StringWithTail(title, uint(avail), "…")
	if meta == "" {
		return title, ""
	}
	room := avail - lipgloss.Width(title) - 2
	if room <= 8 {
		return title, ""
	}
	return title, truncate.StringWithTail(meta, uint(room), "…")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
