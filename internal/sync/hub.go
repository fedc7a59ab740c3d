// Package sync keeps subscribers supplied with the full todo collection.
// Every accepted mutation and every change made by another process is
// published as a Snapshot to all open subscriptions.
package sync

import (
	"context"
	"log"
	gosync "sync"
	"time"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
)

// reloadTimeout bounds a reload triggered by an external change signal.
const reloadTimeout = 10 * time.Second

// Snapshot is one published state of the collection. Version increases by
// one with every publication.
type Snapshot struct {
	Version uint64
	Todos   []model.Todo
}

// clone returns a snapshot that shares no memory with s.
func (s Snapshot) clone() Snapshot {
	todos := make([]model.Todo, len(s.Todos))
	copy(todos, s.Todos)
	return Snapshot{Version: s.Version, Todos: todos}
}

// Hub wraps a store.Store with push semantics. Mutations are serialised so
// that publications reach subscribers in the order they were applied.
type Hub struct {
	store  store.Store
	logger *log.Logger

	mu      gosync.Mutex
	subs    map[*Subscription]struct{}
	last    Snapshot
	loaded  bool
	closed  bool
	stopCh  chan struct{}
	wg      gosync.WaitGroup
	closeMu gosync.Once
}

// NewHub creates a Hub over s. When s reports external changes the hub
// watches them until Close. The hub does not close s.
func NewHub(s store.Store, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	h := &Hub{
		store:  s,
		logger: logger,
		subs:   make(map[*Subscription]struct{}),
		stopCh: make(chan struct{}),
	}
	if ch := s.Changes(); ch != nil {
		h.wg.Add(1)
		go h.watch(ch)
	}
	return h
}

// Subscribe registers a subscription whose first snapshot is the current
// collection, read from the store.
func (h *Hub) Subscribe(ctx context.Context) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if err := h.refreshLocked(ctx, false); err != nil {
		return nil, err
	}

	sub := newSubscription(h)
	h.subs[sub] = struct{}{}
	sub.push(h.last.clone())
	return sub, nil
}

// CreateTodo creates a todo and publishes the new collection.
func (h *Hub) CreateTodo(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	var created model.Todo
	err := h.mutate(ctx, func() error {
		var err error
		created, err = h.store.CreateTodo(ctx, in)
		return err
	})
	return created, err
}

// UpdateTodo patches a todo and publishes the new collection.
func (h *Hub) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) error {
	return h.mutate(ctx, func() error {
		return h.store.UpdateTodo(ctx, id, patch)
	})
}

// ToggleTodo flips a todo's completed flag and publishes the new collection.
func (h *Hub) ToggleTodo(ctx context.Context, id string) error {
	return h.mutate(ctx, func() error {
		return h.store.ToggleTodo(ctx, id)
	})
}

// DeleteTodo removes a todo and publishes the new collection.
func (h *Hub) DeleteTodo(ctx context.Context, id string) error {
	return h.mutate(ctx, func() error {
		return h.store.DeleteTodo(ctx, id)
	})
}

// Close stops the change watcher and closes every open subscription.
func (h *Hub) Close() {
	h.closeMu.Do(func() {
		close(h.stopCh)
		h.wg.Wait()

		h.mu.Lock()
		h.closed = true
		subs := h.subs
		h.subs = make(map[*Subscription]struct{})
		h.mu.Unlock()

		for sub := range subs {
			sub.shutdown()
		}
	})
}

// mutate runs fn under the hub lock and, when it succeeds, publishes
// exactly one snapshot. A failed mutation publishes nothing.
//
// The write has landed once fn returns nil, so a failed reload is logged
// rather than reported. The unpublished state differs from the last
// snapshot and goes out with the next watch signal, subscribe or mutation.
func (h *Hub) mutate(ctx context.Context, fn func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if err := fn(); err != nil {
		return err
	}
	if err := h.refreshLocked(ctx, true); err != nil {
		h.logger.Printf("write applied but reloading todos failed: %v", err)
	}
	return nil
}

// refreshLocked reloads the collection and publishes it. Unless force is
// set, an unchanged collection is not published. h.mu must be held.
func (h *Hub) refreshLocked(ctx context.Context, force bool) error {
	todos, err := h.store.GetTodos(ctx)
	if err != nil {
		return err
	}
	if !force && h.loaded && sameTodos(h.last.Todos, todos) {
		return nil
	}

	if h.loaded {
		h.last = Snapshot{Version: h.last.Version + 1, Todos: todos}
	} else {
		h.last = Snapshot{Version: 1, Todos: todos}
		h.loaded = true
	}

	for sub := range h.subs {
		sub.push(h.last.clone())
	}
	return nil
}

// watch reloads on every external change signal until the hub closes.
func (h *Hub) watch(changes <-chan struct{}) {
	defer h.wg.Done()

	for {
		select {
		case <-h.stopCh:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			h.reload()
		}
	}
}

func (h *Hub) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if err := h.refreshLocked(ctx, false); err != nil {
		h.logger.Printf("reloading todos after external change: %v", err)
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// sameTodos reports whether two collections hold the same todos in the
// same order.
func sameTodos(a, b []model.Todo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Title != y.Title || x.Completed != y.Completed ||
			x.Description != y.Description || x.DueDate != y.DueDate ||
			x.Order != y.Order || !x.CreatedAt.Equal(y.CreatedAt) {
			return false
		}
	}
	return true
}
