package model

import (
	"fmt"
	"strings"
	"time"
)

// Todo is a single task item owned by the store.
type Todo struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	DueDate     string    `json:"due_date" db:"due_date"`
	Completed   bool      `json:"completed" db:"completed"`
	Order       int64     `json:"order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewTodo carries the caller-supplied fields for a todo that does not
// exist yet. ID, Order, CreatedAt and Completed are assigned by the store.
type NewTodo struct {
	Title       string
	Description string
	DueDate     string
}

// Validate trims the title and rejects it when nothing is left.
func (n *NewTodo) Validate() error {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return fmt.Errorf("todo title must not be empty: %w", ErrValidation)
	}
	return nil
}

// TodoPatch is a partial update. Nil fields keep their stored value.
type TodoPatch struct {
	Title       *string
	Description *string
	DueDate     *string
	Completed   *bool
	Order       *int64
}

// IsEmpty reports whether the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Completed == nil && p.Order == nil
}

// Validate trims a supplied title and rejects it when blank.
func (p *TodoPatch) Validate() error {
	if p.Title == nil {
		return nil
	}
	title := strings.TrimSpace(*p.Title)
	if title == "" {
		return fmt.Errorf("todo title must not be empty: %w", ErrValidation)
	}
	p.Title = &title
	return nil
}

// TitlePatch builds a patch that only renames a todo.
func TitlePatch(title string) TodoPatch {
	return TodoPatch{Title: &title}
}

// DueDateLayout is the format due dates are entered in.
const DueDateLayout = "2006-01-02"

// ValidateDueDate accepts an empty string or a YYYY-MM-DD date.
func ValidateDueDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(DueDateLayout, s); err != nil {
		return fmt.Errorf("invalid due date %q, use YYYY-MM-DD: %w", s, ErrValidation)
	}
	return nil
}
