package sync

import (
	"context"
	"errors"
	gosync "sync"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrClosed is returned by a closed Subscription or Hub.
var ErrClosed = errors.New("subscription closed")

// SnapshotMsg is a tea.Msg carrying a snapshot pushed to a subscription.
type SnapshotMsg struct {
	Snapshot Snapshot
}

// Subscription receives every snapshot published by its Hub, in order.
// Its queue is unbounded so a slow reader never loses a publication.
type Subscription struct {
	hub *Hub

	mu     gosync.Mutex
	queue  []Snapshot
	latest Snapshot
	closed bool

	ready chan struct{}
	done  chan struct{}
}

func newSubscription(h *Hub) *Subscription {
	return &Subscription{
		hub:   h,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Next blocks until the next snapshot is available. Snapshots still queued
// when the subscription closes are discarded.
func (s *Subscription) Next(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return Snapshot{}, ErrClosed
		}
		if len(s.queue) > 0 {
			snap := s.queue[0]
			s.queue[0] = Snapshot{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return snap, nil
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-s.done:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}

// Latest returns the newest snapshot pushed to this subscription, whether
// or not Next has consumed it yet.
func (s *Subscription) Latest() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.clone()
}

// Close unsubscribes. Later publications are dropped and blocked Next
// calls return ErrClosed.
func (s *Subscription) Close() {
	if s.shutdown() {
		s.hub.unsubscribe(s)
	}
}

// Wait returns a tea.Cmd that delivers the next snapshot as a SnapshotMsg.
// Call it again after handling each message to keep listening. The command
// yields nil once the subscription is closed.
func (s *Subscription) Wait() tea.Cmd {
	return func() tea.Msg {
		snap, err := s.Next(context.Background())
		if err != nil {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

func (s *Subscription) push(snap Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, snap)
	s.latest = snap.clone()
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// shutdown marks the subscription closed and reports whether this call
// did so.
func (s *Subscription) shutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true
	s.queue = nil
	close(s.done)
	return true
}
