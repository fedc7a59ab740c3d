package todolist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todolist/internal/edit"
	"github.com/nhle/todolist/internal/keys"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/theme"
	"github.com/nhle/todolist/internal/viewmodel"
)

// Actions are the store calls a row can issue.
type Actions interface {
	ToggleTodo(ctx context.Context, id string) error
	DeleteTodo(ctx context.Context, id string) error
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) error
}

// Op names the store call a ResultMsg reports on.
type Op string

const (
	OpToggle Op = "toggle"
	OpDelete Op = "delete"
	OpRename Op = "rename"
)

// ResultMsg reports the outcome of a store call issued for a row. Gen is
// the row generation at the time the call was issued.
type ResultMsg struct {
	ID  string
	Gen uint64
	Op  Op
	Err error
}

// AlertMsg asks the application to surface Err in the status bar.
type AlertMsg struct {
	Err error
}

// shared is the state the delegate reads while rendering.
type shared struct {
	styles    theme.Styles
	input     textinput.Model
	editingID string
}

// row is the per-todo UI state. gen changes every time a row with this
// ID is mounted, so results issued for an earlier mount can be told apart.
type row struct {
	ctrl *edit.Controller
	gen  uint64
}

// pendingUpdates records the updates edit controllers ask for so they can
// be issued as tea.Cmds instead of blocking the update loop.
type pendingUpdates struct {
	items []pendingUpdate
}

type pendingUpdate struct {
	id    string
	patch model.TodoPatch
}

func (p *pendingUpdates) UpdateTodo(_ context.Context, id string, patch model.TodoPatch) error {
	p.items = append(p.items, pendingUpdate{id: id, patch: patch})
	return nil
}

func (p *pendingUpdates) drain() []pendingUpdate {
	items := p.items
	p.items = nil
	return items
}

// Model is the todo list view component.
type Model struct {
	list        list.Model
	vm          *viewmodel.List
	actions     Actions
	keys        *keys.KeyMap
	sh          *shared
	rows        map[string]*row
	nextGen     *uint64
	pending     *pendingUpdates
	searchMode  bool
	searchInput textinput.Model
	loaded      bool
	width       int
	height      int
}

// New creates a new todo list model.
func New(a Actions, k *keys.KeyMap, styles theme.Styles, width, height int) Model {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 500
	input.Width = width - 10

	sh := &shared{styles: styles, input: input}

	l := list.New([]list.Item{}, ItemDelegate{sh: sh}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	si := textinput.New()
	si.Placeholder = "Search todos..."
	si.Prompt = "/ "
	si.Width = width - 4

	var gen uint64
	return Model{
		list:        l,
		vm:          viewmodel.NewList(),
		actions:     a,
		keys:        k,
		sh:          sh,
		rows:        make(map[string]*row),
		nextGen:     &gen,
		pending:     &pendingUpdates{},
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// SetTodos installs a pushed collection. Rows that disappeared are
// disposed; new rows get a fresh generation.
func (m *Model) SetTodos(todos []model.Todo) tea.Cmd {
	m.loaded = true
	m.vm.SetCollection(todos)

	seen := make(map[string]bool, len(todos))
	for _, t := range todos {
		seen[t.ID] = true
		if r, ok := m.rows[t.ID]; ok {
			r.ctrl.Sync(t)
			continue
		}
		*m.nextGen++
		m.rows[t.ID] = &row{ctrl: edit.New(m.pending, t), gen: *m.nextGen}
	}
	for id, r := range m.rows {
		if seen[id] {
			continue
		}
		r.ctrl.Dispose()
		delete(m.rows, id)
		if m.sh.editingID == id {
			m.stopEditing()
		}
	}

	return m.refreshItems()
}

// SetStatus changes the completion filter.
func (m *Model) SetStatus(s viewmodel.FilterStatus) tea.Cmd {
	m.vm.SetStatus(s)
	return m.refreshItems()
}

// SetStyles switches the palette used to render rows.
func (m *Model) SetStyles(styles theme.Styles) {
	m.sh.styles = styles
}

// ViewState returns the derived counts and visible todos.
func (m Model) ViewState() viewmodel.View { return m.vm.View() }

// Filter returns the current search and status filter.
func (m Model) Filter() viewmodel.Filter { return m.vm.Filter() }

// Todos returns the full collection from the latest push.
func (m Model) Todos() []model.Todo { return m.vm.Todos() }

// Loaded reports whether the first push has arrived.
func (m Model) Loaded() bool { return m.loaded }

// Capturing reports whether keystrokes belong to a text input.
func (m Model) Capturing() bool {
	return m.searchMode || m.sh.editingID != ""
}

// Update handles messages for the todo list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultMsg:
		return m, m.handleResult(msg)

	case tea.KeyMsg:
		switch {
		case m.sh.editingID != "":
			return m.handleEditKeys(msg)
		case m.searchMode:
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// handleResult drops results for rows that were removed or re-mounted
// since the call was issued, and turns the rest into alerts.
func (m Model) handleResult(msg ResultMsg) tea.Cmd {
	r, ok := m.rows[msg.ID]
	if !ok || r.gen != msg.Gen {
		return nil
	}
	if msg.Err == nil {
		return nil
	}
	err := fmt.Errorf("%s failed: %w", msg.Op, msg.Err)
	return func() tea.Msg { return AlertMsg{Err: err} }
}

// handleNormalKeys processes key input while no text input has focus.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.list.CursorUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.list.CursorDown()
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		id, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		return m, m.issue(OpToggle, id, func(ctx context.Context) error {
			return m.actions.ToggleTodo(ctx, id)
		})

	case key.Matches(msg, m.keys.Delete):
		id, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		return m, m.issue(OpDelete, id, func(ctx context.Context) error {
			return m.actions.DeleteTodo(ctx, id)
		})

	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Commit):
		return m.beginEdit()

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.vm.Filter().Query)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.FilterAll):
		return m, m.SetStatus(viewmodel.StatusAll)

	case key.Matches(msg, m.keys.FilterActive):
		return m, m.SetStatus(viewmodel.StatusActive)

	case key.Matches(msg, m.keys.FilterCompleted):
		return m, m.SetStatus(viewmodel.StatusCompleted)

	case key.Matches(msg, m.keys.CycleFilter):
		return m, m.SetStatus(m.vm.Filter().Status.Next())
	}

	return m, nil
}

func (m Model) beginEdit() (Model, tea.Cmd) {
	id, ok := m.selectedID()
	if !ok {
		return m, nil
	}
	r := m.rows[id]
	if err := r.ctrl.BeginEdit(); err != nil {
		if errors.Is(err, model.ErrPrecondition) {
			err = errors.New("completed todos cannot be edited")
		}
		return m, func() tea.Msg { return AlertMsg{Err: err} }
	}

	m.sh.editingID = id
	m.sh.input.SetValue(r.ctrl.Draft())
	m.sh.input.CursorEnd()
	return m, m.sh.input.Focus()
}

// handleEditKeys processes key input while a row is being edited.
func (m Model) handleEditKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	r, ok := m.rows[m.sh.editingID]
	if !ok {
		m.stopEditing()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Commit):
		r.ctrl.SetDraft(m.sh.input.Value())
		_, err := r.ctrl.Commit(context.Background())
		m.stopEditing()
		if err != nil {
			return m, func() tea.Msg { return AlertMsg{Err: err} }
		}
		return m, m.flushPending()

	case key.Matches(msg, m.keys.Cancel):
		r.ctrl.Cancel()
		m.stopEditing()
		return m, nil
	}

	var cmd tea.Cmd
	m.sh.input, cmd = m.sh.input.Update(msg)
	r.ctrl.SetDraft(m.sh.input.Value())
	return m, cmd
}

// handleSearchKeys processes key input in search mode. The visible list
// follows every keystroke.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.vm.SetQuery("")
		return m, m.refreshItems()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.vm.SetQuery(m.searchInput.Value())
	return m, tea.Batch(cmd, m.refreshItems())
}

// flushPending turns the updates queued by edit controllers into
// fire-and-forget store calls.
func (m Model) flushPending() tea.Cmd {
	var cmds []tea.Cmd
	for _, u := range m.pending.drain() {
		u := u
		cmds = append(cmds, m.issue(OpRename, u.id, func(ctx context.Context) error {
			return m.actions.UpdateTodo(ctx, u.id, u.patch)
		}))
	}
	return tea.Batch(cmds...)
}

// issue wraps a store call as a tea.Cmd tagged with the row's current
// generation.
func (m Model) issue(op Op, id string, call func(context.Context) error) tea.Cmd {
	var gen uint64
	if r, ok := m.rows[id]; ok {
		gen = r.gen
	}
	return func() tea.Msg {
		err := call(context.Background())
		return ResultMsg{ID: id, Gen: gen, Op: op, Err: err}
	}
}

func (m *Model) stopEditing() {
	m.sh.editingID = ""
	m.sh.input.Blur()
	m.sh.input.Reset()
}

func (m Model) selectedID() (string, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return "", false
	}
	return it.Todo.ID, true
}

// refreshItems rebuilds the list rows from the view model, keeping the
// cursor on the same todo when it is still visible.
func (m *Model) refreshItems() tea.Cmd {
	selected, _ := m.selectedID()

	visible := m.vm.View().Visible
	items := make([]list.Item, len(visible))
	idx := -1
	for i, t := range visible {
		items[i] = Item{Todo: t}
		if t.ID == selected {
			idx = i
		}
	}

	cmd := m.list.SetItems(items)
	if idx >= 0 {
		m.list.Select(idx)
	} else if m.list.Index() >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
	return cmd
}

// FilterBar renders the status tabs and the search query.
func (m Model) FilterBar() string {
	st := m.sh.styles
	current := m.vm.Filter()

	var tabs []string
	for _, s := range []viewmodel.FilterStatus{viewmodel.StatusAll, viewmodel.StatusActive, viewmodel.StatusCompleted} {
		label := strings.ToUpper(s.String()[:1]) + s.String()[1:]
		if s == current.Status {
			tabs = append(tabs, st.FilterTabActive.Render(label))
		} else {
			tabs = append(tabs, st.FilterTab.Render(label))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	switch {
	case m.searchMode:
		bar += "  " + m.searchInput.View()
	case current.Query != "":
		bar += "  " + st.Meta.Render("/ "+current.Query)
	}
	return bar
}

// View renders the todo list view.
func (m Model) View() string {
	if !m.loaded {
		return m.renderEmpty("Loading...")
	}

	v := m.vm.View()
	if v.Total == 0 && !m.vm.Filter().Narrowing() {
		return m.renderEmpty("No todos yet. Create one!")
	}
	if len(v.Visible) == 0 {
		return m.renderEmpty("No todos found")
	}

	return m.list.View()
}

func (m Model) renderEmpty(text string) string {
	return m.sh.styles.Empty.
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(text)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
	m.searchInput.Width = width / 2
	m.sh.input.Width = width - 10
}
