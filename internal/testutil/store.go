package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nhle/todolist/internal/store"
)

// NewTestStore creates a SQLiteStore in a fresh temporary directory with
// all migrations applied and change polling disabled. It automatically
// closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.Option) *store.SQLiteStore {
	t.Helper()
	return OpenTestStore(t, filepath.Join(t.TempDir(), "todos.db"), opts...)
}

// OpenTestStore opens a SQLiteStore at path, closing it on cleanup. Two
// calls with the same path behave like two processes sharing a database.
func OpenTestStore(t *testing.T, path string, opts ...store.Option) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(path, opts...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
