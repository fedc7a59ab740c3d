package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todolist/internal/keys"
	appsync "github.com/nhle/todolist/internal/sync"
	"github.com/nhle/todolist/internal/theme"
	"github.com/nhle/todolist/internal/ui"
	"github.com/nhle/todolist/internal/ui/command"
	"github.com/nhle/todolist/internal/ui/confirm"
	helpview "github.com/nhle/todolist/internal/ui/help"
	"github.com/nhle/todolist/internal/ui/todoform"
	"github.com/nhle/todolist/internal/ui/todolist"
	"github.com/nhle/todolist/internal/viewmodel"
)

// clearCompletedTag identifies the clear-completed confirmation.
const clearCompletedTag = "clear-completed"

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewHelp
	ViewCommand
	ViewTodoCreate
	ViewConfirm
)

// Model is the root Bubble Tea model that manages view routing, layout,
// and the subscription to the live todo collection.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	hub          *appsync.Hub
	sub          *appsync.Subscription
	pref         *theme.Preference
	keys         *keys.KeyMap
	styles       theme.Styles
	todoList     todolist.Model
	helpView     helpview.Model
	commandView  command.Model
	todoFormView todoform.Model
	confirmView  confirm.Model
	ready        bool
	alert        string
}

// New creates the root application model. pref must already be loaded.
func New(hub *appsync.Hub, pref *theme.Preference) Model {
	k := keys.DefaultKeyMap()
	styles := theme.NewStyles(pref.IsDark())

	return Model{
		currentView:  ViewList,
		layout:       ui.NewLayout(80, 24, styles),
		hub:          hub,
		pref:         pref,
		keys:         k,
		styles:       styles,
		todoList:     todolist.New(hub, k, styles, 80, 21),
		helpView:     helpview.New(k, styles, 80, 21),
		commandView:  command.New(styles, 80, 21),
		todoFormView: todoform.New(styles, 80, 21),
		confirmView:  confirm.New(styles, 80),
	}
}

// Init subscribes to the hub. The first snapshot arrives right after.
func (m Model) Init() tea.Cmd {
	return m.subscribe()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height, m.styles)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.todoList.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.todoFormView.SetSize(contentWidth, contentHeight)
		m.confirmView.SetSize(contentWidth)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case subscribedMsg:
		if msg.err != nil {
			m.alert = fmt.Sprintf("subscribing to todos: %v", msg.err)
			return m, nil
		}
		m.sub = msg.sub
		return m, m.sub.Wait()

	case appsync.SnapshotMsg:
		cmd := m.todoList.SetTodos(msg.Snapshot.Todos)
		return m, tea.Batch(cmd, m.sub.Wait())

	case todolist.AlertMsg:
		m.alert = msg.Err.Error()
		return m, nil

	case todolist.ResultMsg:
		var cmd tea.Cmd
		m.todoList, cmd = m.todoList.Update(msg)
		return m, cmd

	case todoform.SubmitMsg:
		m.currentView = ViewList
		return m, m.createTodo(msg.Todo)

	case todoform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case confirm.ResultMsg:
		m.currentView = ViewList
		if msg.Tag == clearCompletedTag && msg.Confirmed {
			return m, m.clearCompleted()
		}
		return m, nil

	case todoCreatedResultMsg:
		if msg.err != nil {
			m.alert = fmt.Sprintf("creating todo: %v", msg.err)
		}
		return m, nil

	case clearCompletedResultMsg:
		if msg.err != nil {
			m.alert = fmt.Sprintf("clear completed: deleted %d, then %v", msg.deleted, msg.err)
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = ViewList
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		m.alert = ""

		switch m.currentView {
		case ViewHelp:
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Cancel) {
				m.currentView = m.previousView
			}
			return m, nil

		case ViewCommand, ViewTodoCreate, ViewConfirm:
			if key.Matches(msg, m.keys.Cancel) {
				m.currentView = ViewList
				return m, nil
			}

		case ViewList:
			if !m.todoList.Capturing() {
				if handled, next, cmd := m.handleListKeys(msg); handled {
					return next, cmd
				}
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleListKeys processes the global keys of the list view.
func (m Model) handleListKeys(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return true, m, m.quit()

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return true, m, m.commandView.Focus()

	case key.Matches(msg, m.keys.New):
		m.previousView = m.currentView
		m.currentView = ViewTodoCreate
		return true, m, m.todoFormView.Start()

	case key.Matches(msg, m.keys.ClearCompleted):
		cmd := m.confirmClearCompleted()
		return true, m, cmd

	case key.Matches(msg, m.keys.Theme):
		m.toggleTheme()
		return true, m, nil
	}
	return false, m, nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.todoList, cmd = m.todoList.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTodoCreate:
		m.todoFormView, cmd = m.todoFormView.Update(msg)
	case ViewConfirm:
		m.confirmView, cmd = m.confirmView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("TODO", m.summary())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.alert)

	return m.layout.RenderWithFrame(header, m.todoList.FilterBar(), content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTodoCreate:
		return m.todoFormView.View()
	case ViewConfirm:
		return m.confirmView.View()
	default:
		return m.todoList.View()
	}
}

// summary is the right-hand side of the header.
func (m Model) summary() string {
	if !m.todoList.Loaded() {
		return ""
	}
	v := m.todoList.ViewState()
	s := v.ItemsLeft()
	if v.CompletedCount > 0 {
		s += fmt.Sprintf(" · %d completed", v.CompletedCount)
	}
	return s
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewTodoCreate:
		return "enter next/submit | esc cancel"
	case ViewConfirm:
		return "←/→ choose | enter confirm | esc cancel"
	}
	if m.todoList.Capturing() {
		return "enter save | esc cancel"
	}
	return m.helpView.ShortView()
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "quit", "q":
		return m.quit()
	case "theme", "toggle theme":
		m.toggleTheme()
		return nil
	case "clear completed", "clear":
		return m.confirmClearCompleted()
	case "new", "new todo":
		m.previousView = ViewList
		m.currentView = ViewTodoCreate
		return m.todoFormView.Start()
	}

	if rest, ok := strings.CutPrefix(cmd, "filter "); ok {
		status, err := viewmodel.ParseFilterStatus(rest)
		if err != nil {
			m.alert = err.Error()
			return nil
		}
		return m.todoList.SetStatus(status)
	}

	m.alert = fmt.Sprintf("unknown command %q", cmd)
	return nil
}

// confirmClearCompleted opens the confirmation when there is anything to
// clear.
func (m *Model) confirmClearCompleted() tea.Cmd {
	n := m.todoList.ViewState().CompletedCount
	if n == 0 {
		m.alert = "no completed todos"
		return nil
	}
	m.previousView = ViewList
	m.currentView = ViewConfirm
	return m.confirmView.Start(clearCompletedTag, fmt.Sprintf("Delete %d completed?", n))
}

// toggleTheme flips the preference and restyles every view.
func (m *Model) toggleTheme() {
	m.pref.Toggle()
	m.styles = theme.NewStyles(m.pref.IsDark())
	m.layout.Styles = m.styles
	m.todoList.SetStyles(m.styles)
	m.helpView.SetStyles(m.styles)
	m.commandView.SetStyles(m.styles)
	m.todoFormView.SetStyles(m.styles)
	m.confirmView.SetStyles(m.styles)
}

func (m Model) quit() tea.Cmd {
	if m.sub != nil {
		m.sub.Close()
	}
	return tea.Quit
}
