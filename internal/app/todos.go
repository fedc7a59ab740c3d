package app

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	appsync "github.com/nhle/todolist/internal/sync"
)

// subscribedMsg carries the subscription opened by Init.
type subscribedMsg struct {
	sub *appsync.Subscription
	err error
}

// todoCreatedResultMsg is sent after a create call returns.
type todoCreatedResultMsg struct {
	todo model.Todo
	err  error
}

// clearCompletedResultMsg is sent after the bulk delete stops.
type clearCompletedResultMsg struct {
	deleted int
	err     error
}

// subscribe opens the live subscription.
func (m Model) subscribe() tea.Cmd {
	hub := m.hub
	return func() tea.Msg {
		sub, err := hub.Subscribe(context.Background())
		return subscribedMsg{sub: sub, err: err}
	}
}

// createTodo persists a new todo. Blank titles never reach the store.
func (m Model) createTodo(in model.NewTodo) tea.Cmd {
	if strings.TrimSpace(in.Title) == "" {
		return nil
	}
	hub := m.hub
	return func() tea.Msg {
		todo, err := hub.CreateTodo(context.Background(), in)
		return todoCreatedResultMsg{todo: todo, err: err}
	}
}

// clearCompleted deletes every completed todo of the latest pushed
// collection, one call per todo, stopping at the first failure.
func (m Model) clearCompleted() tea.Cmd {
	hub := m.hub
	todos := m.todoList.Todos()
	if m.sub != nil {
		todos = m.sub.Latest().Todos
	}
	return func() tea.Msg {
		n, err := store.ClearCompleted(context.Background(), hub, todos)
		return clearCompletedResultMsg{deleted: n, err: err}
	}
}
