package sync_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	appsync "github.com/nhle/todolist/internal/sync"
	"github.com/nhle/todolist/internal/testutil"
)

func nextWithin(t *testing.T, sub *appsync.Subscription) appsync.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("waiting for snapshot: %v", err)
	}
	return snap
}

func titles(todos []model.Todo) []string {
	out := make([]string, len(todos))
	for i, td := range todos {
		out[i] = td.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSubscribeDeliversCurrentCollectionFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateTodo(ctx, model.NewTodo{Title: "existing"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	hub := appsync.NewHub(s, nil)
	defer hub.Close()

	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	snap := nextWithin(t, sub)
	if got := titles(snap.Todos); !equalStrings(got, []string{"existing"}) {
		t.Fatalf("unexpected first snapshot: %v", got)
	}
}

func TestEachMutationPushesOnceInOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	hub := appsync.NewHub(s, nil)
	defer hub.Close()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	first := nextWithin(t, sub)

	milk, err := hub.CreateTodo(ctx, model.NewTodo{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := hub.CreateTodo(ctx, model.NewTodo{Title: "Walk dog"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := hub.ToggleTodo(ctx, milk.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := hub.DeleteTodo(ctx, milk.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := [][]string{
		{"Buy milk"},
		{"Walk dog", "Buy milk"},
		{"Walk dog", "Buy milk"},
		{"Walk dog"},
	}
	prev := first.Version
	for i, w := range want {
		snap := nextWithin(t, sub)
		if got := titles(snap.Todos); !equalStrings(got, w) {
			t.Fatalf("push %d: expected %v, got %v", i, w, got)
		}
		if snap.Version != prev+1 {
			t.Fatalf("push %d: expected version %d, got %d", i, prev+1, snap.Version)
		}
		prev = snap.Version
		if i == 2 && !snap.Todos[1].Completed {
			t.Fatal("expected toggled todo to be completed in third push")
		}
	}

	latest := sub.Latest()
	if latest.Version != prev {
		t.Fatalf("expected Latest at version %d, got %d", prev, latest.Version)
	}
}

func TestFailedMutationPushesNothing(t *testing.T) {
	s := testutil.NewTestStore(t)
	hub := appsync.NewHub(s, nil)
	defer hub.Close()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	nextWithin(t, sub)

	if _, err := hub.CreateTodo(ctx, model.NewTodo{Title: "  "}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := hub.ToggleTodo(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if snap, err := sub.Next(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected no push, got %#v (err %v)", snap, err)
	}
}

// flakyReads lets writes through but fails reads while failReads is set.
type flakyReads struct {
	store.Store
	failReads atomic.Bool
}

func (f *flakyReads) GetTodos(ctx context.Context) ([]model.Todo, error) {
	if f.failReads.Load() {
		return nil, fmt.Errorf("listing todos: %w", model.ErrTransport)
	}
	return f.Store.GetTodos(ctx)
}

func (f *flakyReads) Changes() <-chan struct{} { return nil }

func TestAppliedWriteIsNotReportedAsFailedWhenReloadFails(t *testing.T) {
	s := &flakyReads{Store: testutil.NewTestStore(t)}
	var logs bytes.Buffer
	hub := appsync.NewHub(s, log.New(&logs, "", 0))
	defer hub.Close()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	nextWithin(t, sub)

	s.failReads.Store(true)
	if _, err := hub.CreateTodo(ctx, model.NewTodo{Title: "landed"}); err != nil {
		t.Fatalf("create reported %v although the write was applied", err)
	}
	if !strings.Contains(logs.String(), "write applied") {
		t.Fatalf("expected the reload failure to be logged, got %q", logs.String())
	}

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if snap, err := sub.Next(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected no push while reads fail, got %#v (err %v)", snap, err)
	}

	s.failReads.Store(false)
	if _, err := hub.CreateTodo(ctx, model.NewTodo{Title: "next"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	snap := nextWithin(t, sub)
	if snap.Version != 2 {
		t.Fatalf("expected version 2, got %d", snap.Version)
	}
	if got := titles(snap.Todos); !equalStrings(got, []string{"next", "landed"}) {
		t.Fatalf("expected both todos, got %v", got)
	}
}

func TestSlowSubscriberLosesNothing(t *testing.T) {
	s := testutil.NewTestStore(t)
	hub := appsync.NewHub(s, nil)
	defer hub.Close()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	const n = 50
	for i := 0; i < n; i++ {
		if _, err := hub.CreateTodo(ctx, model.NewTodo{Title: "item"}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	for i := 0; i <= n; i++ {
		snap := nextWithin(t, sub)
		if len(snap.Todos) != i {
			t.Fatalf("snapshot %d: expected %d todos, got %d", i, i, len(snap.Todos))
		}
	}
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	s := testutil.NewTestStore(t)
	hub := appsync.NewHub(s, nil)
	defer hub.Close()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	other, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer other.Close()

	sub.Close()
	if _, err := hub.CreateTodo(ctx, model.NewTodo{Title: "after close"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := sub.Next(ctx); !errors.Is(err, appsync.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	nextWithin(t, other)
	snap := nextWithin(t, other)
	if got := titles(snap.Todos); !equalStrings(got, []string{"after close"}) {
		t.Fatalf("unexpected snapshot for open subscriber: %v", got)
	}
}

func TestWaitCmdYieldsSnapshotMsg(t *testing.T) {
	s := testutil.NewTestStore(t)
	hub := appsync.NewHub(s, nil)
	defer hub.Close()

	sub, err := hub.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	msg := sub.Wait()()
	if _, ok := msg.(appsync.SnapshotMsg); !ok {
		t.Fatalf("expected SnapshotMsg, got %T", msg)
	}

	sub.Close()
	if msg := sub.Wait()(); msg != nil {
		t.Fatalf("expected nil msg after close, got %#v", msg)
	}
}

func TestExternalChangesArePushed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	watched := testutil.OpenTestStore(t, path, store.WithPollInterval(10*time.Millisecond))
	other := testutil.OpenTestStore(t, path)

	hub := appsync.NewHub(watched, nil)
	defer hub.Close()
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	nextWithin(t, sub)

	if _, err := other.CreateTodo(ctx, model.NewTodo{Title: "from another process"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	snap := nextWithin(t, sub)
	if got := titles(snap.Todos); !equalStrings(got, []string{"from another process"}) {
		t.Fatalf("unexpected snapshot: %v", got)
	}
}

func TestHubCloseClosesSubscriptions(t *testing.T) {
	s := testutil.NewTestStore(t)
	hub := appsync.NewHub(s, nil)

	sub, err := hub.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	nextWithin(t, sub)

	hub.Close()
	if _, err := sub.Next(context.Background()); !errors.Is(err, appsync.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := hub.CreateTodo(context.Background(), model.NewTodo{Title: "x"}); !errors.Is(err, appsync.ErrClosed) {
		t.Fatalf("expected ErrClosed from closed hub, got %v", err)
	}
}

func TestConcurrentMutationsReachEverySubscriberInOrder(t *testing.T) {
	s := testutil.NewTestStore(t, store.WithPollInterval(5*time.Millisecond))
	hub := appsync.NewHub(s, nil)
	defer hub.Close()
	ctx := context.Background()

	subs := make([]*appsync.Subscription, 2)
	for i := range subs {
		sub, err := hub.Subscribe(ctx)
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Close()
		nextWithin(t, sub)
		subs[i] = sub
	}

	const writers = 20
	var wg gosync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			todo, err := hub.CreateTodo(ctx, model.NewTodo{Title: fmt.Sprintf("todo %d", i)})
			if err != nil {
				errs <- err
				return
			}
			if err := hub.ToggleTodo(ctx, todo.ID); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("mutation: %v", err)
	}

	for i, sub := range subs {
		var last appsync.Snapshot
		for n := 0; n < 2*writers; n++ {
			snap := nextWithin(t, sub)
			if n > 0 && snap.Version != last.Version+1 {
				t.Fatalf("subscriber %d: version %d after %d", i, snap.Version, last.Version)
			}
			last = snap
		}
		if len(last.Todos) != writers {
			t.Fatalf("subscriber %d: final snapshot has %d todos", i, len(last.Todos))
		}
		for _, td := range last.Todos {
			if !td.Completed {
				t.Fatalf("subscriber %d: %q not completed in final snapshot", i, td.Title)
			}
		}

		// Local writes also trip the watcher; it must not publish them twice.
		short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		snap, err := sub.Next(short)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("subscriber %d: unexpected extra push %#v (err %v)", i, snap, err)
		}
	}
}
