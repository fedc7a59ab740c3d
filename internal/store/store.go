package store

import (
	"context"

	"github.com/nhle/todolist/internal/model"
)

// Store defines the persistence interface for todos. Implementations are
// safe for concurrent use.
type Store interface {
	// CreateTodo validates and inserts a new todo, assigning its ID,
	// Order and CreatedAt. It returns the stored record.
	CreateTodo(ctx context.Context, in model.NewTodo) (model.Todo, error)

	// UpdateTodo applies a partial patch. Unset fields keep their value.
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) error

	// ToggleTodo flips Completed in a single statement.
	ToggleTodo(ctx context.Context, id string) error

	// DeleteTodo removes a todo permanently.
	DeleteTodo(ctx context.Context, id string) error

	GetTodo(ctx context.Context, id string) (model.Todo, error)

	// GetTodos returns every todo, most recently created first.
	GetTodos(ctx context.Context) ([]model.Todo, error)

	// Changes signals writes made outside this process. Signals are
	// coalesced; receivers should re-read the collection. The channel is
	// nil when the backend cannot observe foreign writes.
	Changes() <-chan struct{}

	Close() error
}

// Deleter is the subset of Store used by bulk deletes.
type Deleter interface {
	DeleteTodo(ctx context.Context, id string) error
}
