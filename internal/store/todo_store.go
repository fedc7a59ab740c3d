package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/todolist/internal/model"
)

const timeLayout = time.RFC3339Nano

const todoColumns = "id, title, description, due_date, completed, sort_order, created_at"

// todoTable implements the todo CRUD shared by every SQL backend. Queries
// are written with ? placeholders and rebound for the driver.
type todoTable struct {
	db  *sqlx.DB
	now func() time.Time
}

// todoRow is the storage shape of model.Todo.
type todoRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	DueDate     string `db:"due_date"`
	Completed   int    `db:"completed"`
	SortOrder   int64  `db:"sort_order"`
	CreatedAt   string `db:"created_at"`
}

func (r todoRow) toModel() (model.Todo, error) {
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return model.Todo{}, fmt.Errorf("parsing created_at of todo %s: %w", r.ID, err)
	}
	return model.Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Completed:   r.Completed != 0,
		Order:       r.SortOrder,
		CreatedAt:   created,
	}, nil
}

// CreateTodo inserts a new todo. The order key is the creation time in
// nanoseconds, bumped past the current maximum so it is strictly
// increasing even when the clock stalls or steps back.
func (s *todoTable) CreateTodo(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	if err := in.Validate(); err != nil {
		return model.Todo{}, err
	}

	now := s.now().UTC()

	var maxOrder int64
	err := s.db.GetContext(ctx, &maxOrder, "SELECT COALESCE(MAX(sort_order), 0) FROM todos")
	if err != nil {
		return model.Todo{}, classify("getting max sort_order", err)
	}
	order := now.UnixNano()
	if order <= maxOrder {
		order = maxOrder + 1
	}

	todo := model.Todo{
		ID:          uuid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Order:       order,
		CreatedAt:   now,
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO todos (`+todoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		todo.ID, todo.Title, todo.Description, todo.DueDate,
		boolToInt(todo.Completed), todo.Order, todo.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return model.Todo{}, classify("creating todo", err)
	}
	return todo, nil
}

// UpdateTodo writes only the fields present in patch. An empty patch still
// checks that the todo exists.
func (s *todoTable) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	if patch.IsEmpty() {
		_, err := s.GetTodo(ctx, id)
		return err
	}

	var sets []string
	var args []interface{}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, *patch.DueDate)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolToInt(*patch.Completed))
	}
	if patch.Order != nil {
		sets = append(sets, "sort_order = ?")
		args = append(args, *patch.Order)
	}
	args = append(args, id)

	query := "UPDATE todos SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return classify(fmt.Sprintf("updating todo %s", id), err)
	}
	return checkRowsAffected(result, id)
}

// ToggleTodo flips the completed flag without a separate read, so two
// toggles racing on one row both take effect.
func (s *todoTable) ToggleTodo(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE todos SET completed = 1 - completed WHERE id = ?"), id)
	if err != nil {
		return classify(fmt.Sprintf("toggling todo %s", id), err)
	}
	return checkRowsAffected(result, id)
}

// DeleteTodo removes a todo by ID.
func (s *todoTable) DeleteTodo(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM todos WHERE id = ?"), id)
	if err != nil {
		return classify(fmt.Sprintf("deleting todo %s", id), err)
	}
	return checkRowsAffected(result, id)
}

// GetTodo retrieves a single todo by ID.
func (s *todoTable) GetTodo(ctx context.Context, id string) (model.Todo, error) {
	var row todoRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind("SELECT "+todoColumns+" FROM todos WHERE id = ?"), id)
	if err != nil {
		return model.Todo{}, classify(fmt.Sprintf("getting todo %s", id), err)
	}
	return row.toModel()
}

// GetTodos retrieves all todos, newest first.
func (s *todoTable) GetTodos(ctx context.Context) ([]model.Todo, error) {
	var rows []todoRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+todoColumns+" FROM todos ORDER BY sort_order DESC")
	if err != nil {
		return nil, classify("querying todos", err)
	}

	todos := make([]model.Todo, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, nil
}

// checkRowsAffected turns an UPDATE/DELETE that matched nothing into
// model.ErrNotFound.
func checkRowsAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("todo %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// classify wraps a driver error with op and maps it onto the model error
// kinds callers branch on.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %v", op, model.ErrTransport, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// boolToInt converts a boolean to 0 or 1 for storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
