package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"

	"github.com/spf13/viper"
)

// FileKV is a KV kept in a YAML file.
type FileKV struct {
	path string
	mu   gosync.Mutex
}

// NewFileKV returns a FileKV for path. The file is created on first Set.
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (f *FileKV) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(f.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("reading preferences %s: %w", f.path, err)
	}
	return v, nil
}

// Get returns the value stored under key.
func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.read()
	if err != nil {
		return "", false, err
	}
	if !v.IsSet(key) {
		return "", false, nil
	}
	return v.GetString(key), true, nil
}

// Set stores value under key, keeping any other keys in the file.
func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.read()
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating preferences directory %s: %w", dir, err)
	}

	v.Set(key, value)
	if err := v.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("writing preferences %s: %w", f.path, err)
	}
	return nil
}
