package store

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	*todoTable

	changes chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations. ":memory:"
// opens a private in-memory database that cannot observe other processes.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)
	inMemory := dbPath == ":memory:"

	if !inMemory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
	}

	dsn, err := sqliteDSN(dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := runMigrations(db, sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s := &SQLiteStore{
		todoTable: &todoTable{db: db, now: o.now},
		stopCh:    make(chan struct{}),
	}

	if !inMemory && o.pollInterval > 0 {
		s.changes = make(chan struct{}, 1)
		if err := s.startWatch(o.pollInterval); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

// busyTimeoutPragma is per connection, so it goes in the DSN where every
// pooled connection picks it up.
const busyTimeoutPragma = "_pragma=busy_timeout(5000)"

// sqliteDSN turns dbPath into a file: URI so characters such as '?' and
// '#' stay part of the file name instead of starting the query.
func sqliteDSN(dbPath string) (string, error) {
	if dbPath == ":memory:" {
		return dbPath + "?" + busyTimeoutPragma, nil
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("resolving database path %s: %w", dbPath, err)
	}
	path := filepath.ToSlash(abs)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{Scheme: "file", Path: path, RawQuery: busyTimeoutPragma}
	return u.String(), nil
}

// Changes signals commits made through other connections to the same file.
func (s *SQLiteStore) Changes() <-chan struct{} {
	if s.changes == nil {
		return nil
	}
	return s.changes
}

// Close stops the change watcher and closes the database.
func (s *SQLiteStore) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	return s.db.Close()
}

// startWatch pins one connection and polls PRAGMA data_version on it. The
// value changes whenever another connection commits, which covers both
// other processes and this process's own pooled writers; the receiver
// is expected to diff what it reads.
func (s *SQLiteStore) startWatch(interval time.Duration) error {
	conn, err := s.db.Connx(context.Background())
	if err != nil {
		return fmt.Errorf("pinning watch connection: %w", err)
	}

	var last int64
	if err := conn.GetContext(context.Background(), &last, "PRAGMA data_version"); err != nil {
		conn.Close()
		return fmt.Errorf("reading data_version: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer conn.Close()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				var version int64
				if err := conn.GetContext(context.Background(), &version, "PRAGMA data_version"); err != nil {
					log.Printf("sqlite watch: reading data_version: %v", err)
					continue
				}
				if version == last {
					continue
				}
				last = version
				notify(s.changes)
			}
		}
	}()
	return nil
}

// notify performs a coalescing, non-blocking send.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func runMigrations(db *sqlx.DB, migrations []migration) error {
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	if err := db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}
