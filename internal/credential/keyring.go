package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/todolist/internal/model"
)

const serviceName = "todolist"

// PostgresDSN is the keyring entry holding the postgres connection string
// when database.dsn_keyring is set.
const PostgresDSN = "postgres-dsn"

// Store reads and writes secrets held in a keyring.
type Store struct {
	ring keyring.Keyring
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a Store backed by the system keyring. fileDir is used by
// the encrypted file backend when no native keyring is available.
func Open(fileDir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("todolist-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// Get retrieves a secret by key. A missing entry wraps model.ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("credential %q: %w", key, model.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a secret by key.
func (s *Store) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "todolist " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a secret. Deleting a missing entry wraps model.ErrNotFound.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("credential %q: %w", key, model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// ResolveDSN fills cfg.Database.DSN from the keyring when the config asks
// for it and no DSN was given directly.
func (s *Store) ResolveDSN(cfg *model.AppConfig) error {
	if cfg.Database.Driver != model.DriverPostgres || cfg.Database.DSN != "" || !cfg.Database.DSNKeyring {
		return nil
	}
	dsn, err := s.Get(PostgresDSN)
	if err != nil {
		return fmt.Errorf("resolving database.dsn: %w", err)
	}
	cfg.Database.DSN = dsn
	return nil
}
