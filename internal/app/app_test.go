package app

import (
	"context"
	"io"
	"log"
	"strings"
	gosync "sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todolist/internal/model"
	appsync "github.com/nhle/todolist/internal/sync"
	"github.com/nhle/todolist/internal/testutil"
	"github.com/nhle/todolist/internal/theme"
	"github.com/nhle/todolist/internal/ui/command"
	"github.com/nhle/todolist/internal/ui/confirm"
	"github.com/nhle/todolist/internal/ui/todoform"
	"github.com/nhle/todolist/internal/ui/todolist"
	"github.com/nhle/todolist/internal/viewmodel"
)

type memKV struct {
	mu     gosync.Mutex
	values map[string]string
}

func (m *memKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type harness struct {
	t   *testing.T
	hub *appsync.Hub
	kv  *memKV
	m   Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s := testutil.NewTestStore(t)
	hub := appsync.NewHub(s, nil)
	t.Cleanup(hub.Close)

	kv := &memKV{values: make(map[string]string)}
	pref := theme.NewPreference(kv, log.New(io.Discard, "", 0))
	pref.Load()

	h := &harness{t: t, hub: hub, kv: kv, m: New(hub, pref)}
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	h.send(h.m.Init()())
	h.awaitSnapshot()
	return h
}

// send feeds msg to the model and returns the resulting command.
func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

// awaitSnapshot blocks for the next push and feeds it to the model.
func (h *harness) awaitSnapshot() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := h.m.sub.Next(ctx)
	if err != nil {
		h.t.Fatalf("waiting for snapshot: %v", err)
	}
	h.m.todoList.SetTodos(snap.Todos)
}

func (h *harness) seed(titles ...string) {
	h.t.Helper()
	for _, title := range titles {
		if _, err := h.hub.CreateTodo(context.Background(), model.NewTodo{Title: title}); err != nil {
			h.t.Fatalf("seed %q: %v", title, err)
		}
		h.awaitSnapshot()
	}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSubmitCreatesTodo(t *testing.T) {
	h := newHarness(t)

	cmd := h.send(todoform.SubmitMsg{Todo: model.NewTodo{Title: "Buy milk", DueDate: "2026-04-01"}})
	res, ok := cmd().(todoCreatedResultMsg)
	if !ok || res.err != nil {
		t.Fatalf("unexpected create result %#v", res)
	}
	h.awaitSnapshot()

	v := h.m.todoList.ViewState()
	if v.Total != 1 || v.Visible[0].Title != "Buy milk" || v.Visible[0].DueDate != "2026-04-01" {
		t.Fatalf("unexpected view %+v", v)
	}
	if !strings.Contains(h.m.View(), "1 item left") {
		t.Fatal("expected footer count in header")
	}
}

func TestBlankSubmitNeverReachesStore(t *testing.T) {
	h := newHarness(t)
	if cmd := h.send(todoform.SubmitMsg{Todo: model.NewTodo{Title: "   "}}); cmd != nil {
		t.Fatal("expected no store call for a blank title")
	}
}

func TestNewKeyOpensForm(t *testing.T) {
	h := newHarness(t)
	h.send(keyPress("n"))
	if h.m.currentView != ViewTodoCreate {
		t.Fatalf("expected create view, got %v", h.m.currentView)
	}
	h.send(tea.KeyMsg{Type: tea.KeyEscape})
	if h.m.currentView != ViewList {
		t.Fatalf("expected esc to return to the list, got %v", h.m.currentView)
	}
}

func TestThemeKeyPersistsPreference(t *testing.T) {
	h := newHarness(t)

	h.send(keyPress("T"))
	h.m.pref.Wait()

	if !h.m.pref.IsDark() {
		t.Fatal("expected dark theme after toggle")
	}
	if h.m.styles.Palette != theme.Dark {
		t.Fatal("expected dark styles after toggle")
	}
	if got, _, _ := h.kv.Get(theme.Key); got != "dark" {
		t.Fatalf("expected persisted dark, got %q", got)
	}
}

func TestClearCompletedFlow(t *testing.T) {
	h := newHarness(t)
	h.seed("a", "b", "c")

	for _, td := range h.m.todoList.Todos()[:2] {
		if err := h.hub.ToggleTodo(context.Background(), td.ID); err != nil {
			t.Fatalf("toggle: %v", err)
		}
		h.awaitSnapshot()
	}

	h.send(keyPress("C"))
	if h.m.currentView != ViewConfirm {
		t.Fatalf("expected confirmation view, got %v", h.m.currentView)
	}

	cmd := h.send(confirm.ResultMsg{Tag: clearCompletedTag, Confirmed: true})
	res, ok := cmd().(clearCompletedResultMsg)
	if !ok || res.err != nil || res.deleted != 2 {
		t.Fatalf("unexpected clear result %#v", res)
	}
	h.awaitSnapshot()
	h.awaitSnapshot()

	v := h.m.todoList.ViewState()
	if v.Total != 1 || v.CompletedCount != 0 {
		t.Fatalf("unexpected view after clear %+v", v)
	}
}

func TestClearCompletedUsesLatestPush(t *testing.T) {
	h := newHarness(t)
	h.seed("a", "b")

	// The toggle is pushed but not yet rendered by the list.
	target := h.m.todoList.Todos()[0]
	if err := h.hub.ToggleTodo(context.Background(), target.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if h.m.todoList.ViewState().CompletedCount != 0 {
		t.Fatal("list should not have seen the toggle yet")
	}

	cmd := h.send(confirm.ResultMsg{Tag: clearCompletedTag, Confirmed: true})
	res, ok := cmd().(clearCompletedResultMsg)
	if !ok || res.err != nil || res.deleted != 1 {
		t.Fatalf("unexpected clear result %#v", res)
	}
}

func TestClearCompletedWithNothingToClear(t *testing.T) {
	h := newHarness(t)
	h.seed("a")

	h.send(keyPress("C"))
	if h.m.currentView != ViewList || h.m.alert == "" {
		t.Fatalf("expected an alert and no prompt, view %v alert %q", h.m.currentView, h.m.alert)
	}
}

func TestCommandPalette(t *testing.T) {
	h := newHarness(t)

	h.send(command.CommandMsg("filter completed"))
	if h.m.todoList.Filter().Status != viewmodel.StatusCompleted {
		t.Fatal("expected completed filter")
	}

	h.send(command.CommandMsg("filter done"))
	if h.m.alert == "" {
		t.Fatal("expected an alert for a bad filter")
	}

	h.send(command.CommandMsg("bogus"))
	if !strings.Contains(h.m.alert, "unknown command") {
		t.Fatalf("unexpected alert %q", h.m.alert)
	}
}

func TestAlertShownInStatusBar(t *testing.T) {
	h := newHarness(t)

	h.send(todolist.AlertMsg{Err: model.ErrNotFound})
	if !strings.Contains(h.m.View(), "todo not found") {
		t.Fatal("expected the alert in the rendered view")
	}

	h.send(keyPress("j"))
	if h.m.alert != "" {
		t.Fatal("expected the next key press to clear the alert")
	}
}

func TestQuitClosesSubscription(t *testing.T) {
	h := newHarness(t)
	sub := h.m.sub

	cmd := h.send(keyPress("q"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.Quit")
	}
	if _, err := sub.Next(context.Background()); err != appsync.ErrClosed {
		t.Fatalf("expected closed subscription, got %v", err)
	}
}
