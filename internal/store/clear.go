package store

import (
	"context"
	"fmt"

	"github.com/nhle/todolist/internal/model"
)

// ClearCompleted deletes every completed todo in todos, one DeleteTodo
// call each, in order. It stops at the first failure and does not undo the
// deletes that already succeeded. It returns the number deleted.
func ClearCompleted(ctx context.Context, d Deleter, todos []model.Todo) (int, error) {
	deleted := 0
	for _, t := range todos {
		if !t.Completed {
			continue
		}
		if err := d.DeleteTodo(ctx, t.ID); err != nil {
			return deleted, fmt.Errorf("clearing completed todos (%d deleted): %w", deleted, err)
		}
		deleted++
	}
	return deleted, nil
}
