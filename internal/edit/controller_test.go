package edit

import (
	"context"
	"errors"
	"testing"

	"github.com/nhle/todolist/internal/model"
)

type recordingUpdater struct {
	calls []model.TodoPatch
	ids   []string
	err   error
}

func (u *recordingUpdater) UpdateTodo(_ context.Context, id string, patch model.TodoPatch) error {
	u.ids = append(u.ids, id)
	u.calls = append(u.calls, patch)
	return u.err
}

func TestBlankDraftCommitDoesNotUpdate(t *testing.T) {
	u := &recordingUpdater{}
	c := New(u, model.Todo{ID: "1", Title: "Old"})

	if err := c.BeginEdit(); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	c.SetDraft("   ")
	changed, err := c.Commit(context.Background())
	if err != nil || changed {
		t.Fatalf("expected no change, got %v, %v", changed, err)
	}
	if len(u.calls) != 0 {
		t.Fatalf("expected no update, got %d", len(u.calls))
	}
	if c.State() != Viewing || c.Title() != "Old" {
		t.Fatalf("unexpected state %v title %q", c.State(), c.Title())
	}
}

func TestCommitChangedTitleUpdatesOnce(t *testing.T) {
	u := &recordingUpdater{}
	c := New(u, model.Todo{ID: "1", Title: "Old"})

	if err := c.BeginEdit(); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if c.Draft() != "Old" {
		t.Fatalf("expected draft seeded with title, got %q", c.Draft())
	}
	c.SetDraft("  New ")
	changed, err := c.Commit(context.Background())
	if err != nil || !changed {
		t.Fatalf("expected change, got %v, %v", changed, err)
	}

	if len(u.calls) != 1 {
		t.Fatalf("expected exactly one update, got %d", len(u.calls))
	}
	if u.ids[0] != "1" || u.calls[0].Title == nil || *u.calls[0].Title != "New" {
		t.Fatalf("unexpected update %q %#v", u.ids[0], u.calls[0])
	}
	if u.calls[0].Completed != nil || u.calls[0].Description != nil {
		t.Fatal("expected a title-only patch")
	}
	if c.State() != Viewing {
		t.Fatalf("expected Viewing, got %v", c.State())
	}
}

func TestCommitUnchangedTitleDoesNotUpdate(t *testing.T) {
	u := &recordingUpdater{}
	c := New(u, model.Todo{ID: "1", Title: "Same"})

	_ = c.BeginEdit()
	c.SetDraft(" Same ")
	if changed, err := c.Commit(context.Background()); changed || err != nil {
		t.Fatalf("expected no change, got %v, %v", changed, err)
	}
	if len(u.calls) != 0 {
		t.Fatalf("expected no update, got %d", len(u.calls))
	}
}

func TestBeginEditOnCompletedIsRejected(t *testing.T) {
	c := New(&recordingUpdater{}, model.Todo{ID: "1", Title: "Done", Completed: true})

	err := c.BeginEdit()
	if !errors.Is(err, model.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if c.State() != Viewing {
		t.Fatalf("expected to stay Viewing, got %v", c.State())
	}
}

func TestCancelDiscardsDraft(t *testing.T) {
	u := &recordingUpdater{}
	c := New(u, model.Todo{ID: "1", Title: "Old"})

	_ = c.BeginEdit()
	c.SetDraft("Something else")
	c.Cancel()

	if c.State() != Viewing || c.Draft() != "" {
		t.Fatalf("unexpected state after cancel: %v %q", c.State(), c.Draft())
	}
	if len(u.calls) != 0 {
		t.Fatal("cancel must not call the store")
	}

	_ = c.BeginEdit()
	if c.Draft() != "Old" {
		t.Fatalf("expected fresh draft on re-edit, got %q", c.Draft())
	}
}

func TestUpdaterFailureReturnsToViewing(t *testing.T) {
	u := &recordingUpdater{err: model.ErrNotFound}
	c := New(u, model.Todo{ID: "1", Title: "Old"})

	_ = c.BeginEdit()
	c.SetDraft("New")
	changed, err := c.Commit(context.Background())
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if changed {
		t.Fatal("failed commit should not report a change")
	}
	if c.State() != Viewing || c.Draft() != "" {
		t.Fatalf("expected Viewing with no draft, got %v %q", c.State(), c.Draft())
	}
}

func TestToggleBeginsThenCommits(t *testing.T) {
	u := &recordingUpdater{}
	c := New(u, model.Todo{ID: "1", Title: "Old"})
	ctx := context.Background()

	if _, err := c.Toggle(ctx); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !c.IsEditing() {
		t.Fatal("expected Editing after first toggle")
	}
	c.SetDraft("New")
	changed, err := c.Toggle(ctx)
	if err != nil || !changed {
		t.Fatalf("expected commit via toggle, got %v, %v", changed, err)
	}
	if len(u.calls) != 1 {
		t.Fatalf("expected one update, got %d", len(u.calls))
	}
}

func TestSetDraftIgnoredWhileViewing(t *testing.T) {
	c := New(&recordingUpdater{}, model.Todo{ID: "1", Title: "Old"})
	c.SetDraft("ignored")
	if c.Draft() != "" {
		t.Fatalf("expected empty draft, got %q", c.Draft())
	}
}

func TestSyncRefreshesTitleAndCompletion(t *testing.T) {
	u := &recordingUpdater{}
	c := New(u, model.Todo{ID: "1", Title: "Old"})

	c.Sync(model.Todo{ID: "1", Title: "Renamed elsewhere"})
	_ = c.BeginEdit()
	if c.Draft() != "Renamed elsewhere" {
		t.Fatalf("expected draft from synced title, got %q", c.Draft())
	}
	c.Cancel()

	c.Sync(model.Todo{ID: "other", Title: "ignored"})
	if c.Title() != "Renamed elsewhere" {
		t.Fatalf("sync with another id changed title to %q", c.Title())
	}

	c.Sync(model.Todo{ID: "1", Title: "Renamed elsewhere", Completed: true})
	if err := c.BeginEdit(); !errors.Is(err, model.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition after completion sync, got %v", err)
	}
}

func TestDisposedCommitNeverCallsStore(t *testing.T) {
	u := &recordingUpdater{}
	c := New(u, model.Todo{ID: "1", Title: "Old"})

	_ = c.BeginEdit()
	c.SetDraft("New")
	c.Dispose()

	if _, err := c.Commit(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
	if len(u.calls) != 0 {
		t.Fatal("disposed controller called the store")
	}
}
