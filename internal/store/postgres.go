package store

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// notifyChannel is the LISTEN/NOTIFY channel raised by the todos trigger.
const notifyChannel = "todos_changed"

// PostgresStore implements Store on PostgreSQL. A trigger on the todos
// table raises NOTIFY on every write and a pq.Listener turns those into
// Changes signals, so writes from other devices reach subscribers without
// polling.
type PostgresStore struct {
	*todoTable

	listener *pq.Listener
	changes  chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewPostgresStore connects to dsn, runs pending migrations and starts
// listening for change notifications.
func NewPostgresStore(dsn string, opts ...Option) (*PostgresStore, error) {
	o := buildOptions(opts)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, classify("connecting to postgres", err)
	}

	if err := runMigrations(db, postgresMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	listener := pq.NewListener(dsn, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("postgres listener event %d: %v", ev, err)
			}
		})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		db.Close()
		return nil, classify("listening for todo changes", err)
	}

	s := &PostgresStore{
		todoTable: &todoTable{db: db, now: o.now},
		listener:  listener,
		changes:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.forward()

	return s, nil
}

// forward relays listener notifications onto the coalescing changes
// channel. A nil notification follows a reconnect, when anything may have
// changed, so it is relayed too.
func (s *PostgresStore) forward() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case _, ok := <-s.listener.Notify:
			if !ok {
				return
			}
			notify(s.changes)
		}
	}
}

// Changes signals every committed write to the todos table, including
// this process's own.
func (s *PostgresStore) Changes() <-chan struct{} {
	return s.changes
}

// Close stops the listener and closes the connection pool.
func (s *PostgresStore) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	if err := s.listener.Close(); err != nil {
		log.Printf("closing postgres listener: %v", err)
	}
	return s.db.Close()
}
