// Package edit implements the per-row Viewing/Editing state machine used
// for renaming todos in place.
package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/todolist/internal/model"
)

// ErrDisposed is returned by a Controller whose row has gone away.
var ErrDisposed = errors.New("edit controller disposed")

// Updater applies a partial update to a stored todo.
type Updater interface {
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) error
}

// State is the edit state of a single row.
type State int

const (
	Viewing State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "viewing"
}

// Controller tracks the edit state of one todo. It is not safe for
// concurrent use; the UI owns it from a single goroutine.
type Controller struct {
	updater Updater

	id        string
	title     string
	completed bool

	state    State
	draft    string
	disposed bool
}

// New returns a Controller for t in the Viewing state.
func New(u Updater, t model.Todo) *Controller {
	return &Controller{
		updater:   u,
		id:        t.ID,
		title:     t.Title,
		completed: t.Completed,
	}
}

func (c *Controller) ID() string      { return c.id }
func (c *Controller) Title() string   { return c.title }
func (c *Controller) State() State    { return c.state }
func (c *Controller) Draft() string   { return c.draft }
func (c *Controller) IsEditing() bool { return c.state == Editing }

// BeginEdit enters Editing with the draft seeded from the current title.
// Completed todos cannot be edited. Calling it while already editing keeps
// the current draft.
func (c *Controller) BeginEdit() error {
	if c.disposed {
		return ErrDisposed
	}
	if c.completed {
		return fmt.Errorf("editing completed todo %s: %w", c.id, model.ErrPrecondition)
	}
	if c.state == Editing {
		return nil
	}
	c.state = Editing
	c.draft = c.title
	return nil
}

// SetDraft replaces the draft text. It is ignored outside Editing.
func (c *Controller) SetDraft(s string) {
	if c.state != Editing {
		return
	}
	c.draft = s
}

// Commit leaves Editing. When the trimmed draft is non-empty and differs
// from the title, exactly one update is sent and Commit reports true. If
// the update fails the controller still returns to Viewing and the error
// is handed back for display.
func (c *Controller) Commit(ctx context.Context) (bool, error) {
	if c.disposed {
		return false, ErrDisposed
	}
	if c.state != Editing {
		return false, nil
	}

	title := strings.TrimSpace(c.draft)
	c.state = Viewing
	c.draft = ""

	if title == "" || title == c.title {
		return false, nil
	}
	if err := c.updater.UpdateTodo(ctx, c.id, model.TitlePatch(title)); err != nil {
		return false, fmt.Errorf("renaming todo %s: %w", c.id, err)
	}
	return true, nil
}

// Cancel discards the draft without touching the store.
func (c *Controller) Cancel() {
	c.state = Viewing
	c.draft = ""
}

// Toggle is the single-button form: begin editing from Viewing, commit
// from Editing.
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	if c.state == Editing {
		return c.Commit(ctx)
	}
	return false, c.BeginEdit()
}

// Sync refreshes the row from a pushed todo. An in-progress draft is kept.
func (c *Controller) Sync(t model.Todo) {
	if t.ID != c.id {
		return
	}
	c.title = t.Title
	c.completed = t.Completed
}

// Dispose marks the row as gone. Later commits never reach the store.
func (c *Controller) Dispose() {
	c.disposed = true
	c.state = Viewing
	c.draft = ""
}
