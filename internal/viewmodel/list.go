// Package viewmodel derives what the list screen shows from the pushed
// collection and the local search and filter state.
package viewmodel

import (
	"fmt"
	"strings"

	"github.com/nhle/todolist/internal/model"
)

// FilterStatus restricts the visible todos by completion.
type FilterStatus int

const (
	StatusAll FilterStatus = iota
	StatusActive
	StatusCompleted
)

var statusNames = [...]string{"all", "active", "completed"}

func (s FilterStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("FilterStatus(%d)", int(s))
}

// Next cycles all -> active -> completed -> all.
func (s FilterStatus) Next() FilterStatus {
	return (s + 1) % FilterStatus(len(statusNames))
}

// ParseFilterStatus parses "all", "active" or "completed".
func ParseFilterStatus(s string) (FilterStatus, error) {
	for i, name := range statusNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return FilterStatus(i), nil
		}
	}
	return StatusAll, fmt.Errorf("unknown filter %q (want all, active or completed): %w", s, model.ErrValidation)
}

// Filter is client-local state and is never persisted.
type Filter struct {
	Query  string
	Status FilterStatus
}

// Narrowing reports whether a search or a status other than all is set.
func (f Filter) Narrowing() bool {
	return f.Query != "" || f.Status != StatusAll
}

func (f Filter) matchesSearch(t model.Todo) bool {
	if f.Query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Query))
}

func (f Filter) matchesStatus(t model.Todo) bool {
	switch f.Status {
	case StatusActive:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	default:
		return true
	}
}

// View is the derived state of the list screen. The counts always cover
// the whole collection, never just the visible part.
type View struct {
	Visible        []model.Todo
	ActiveCount    int
	CompletedCount int
	Total          int
}

// ItemsLeft renders the footer count, e.g. "1 item left" or "3 items left".
func (v View) ItemsLeft() string {
	if v.ActiveCount == 1 {
		return "1 item left"
	}
	return fmt.Sprintf("%d items left", v.ActiveCount)
}

// Derive computes the View for todos under f. Visible keeps the input order.
func Derive(todos []model.Todo, f Filter) View {
	v := View{
		Visible: make([]model.Todo, 0, len(todos)),
		Total:   len(todos),
	}
	for _, t := range todos {
		if t.Completed {
			v.CompletedCount++
		} else {
			v.ActiveCount++
		}
		if f.matchesSearch(t) && f.matchesStatus(t) {
			v.Visible = append(v.Visible, t)
		}
	}
	return v
}

// List holds a collection and a filter and recomputes its View whenever
// either changes.
type List struct {
	todos  []model.Todo
	filter Filter
	view   View
}

// NewList returns an empty List showing everything.
func NewList() *List {
	l := &List{}
	l.recompute()
	return l
}

// SetCollection replaces the collection, typically with a pushed snapshot.
func (l *List) SetCollection(todos []model.Todo) {
	l.todos = todos
	l.recompute()
}

// SetQuery changes the search text.
func (l *List) SetQuery(q string) {
	l.filter.Query = q
	l.recompute()
}

// SetStatus changes the completion filter.
func (l *List) SetStatus(s FilterStatus) {
	l.filter.Status = s
	l.recompute()
}

func (l *List) Filter() Filter      { return l.filter }
func (l *List) View() View          { return l.view }
func (l *List) Todos() []model.Todo { return l.todos }

func (l *List) recompute() {
	l.view = Derive(l.todos, l.filter)
}
