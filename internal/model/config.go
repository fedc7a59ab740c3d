package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Database driver names accepted in database.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and locates the todo store.
type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	// DSNKeyring reads the DSN from the system keyring when DSN is empty.
	DSNKeyring bool `mapstructure:"dsn_keyring" yaml:"dsn_keyring"`
}

// SyncConfig controls how changes made by other processes are noticed.
type SyncConfig struct {
	// PollIntervalMS is how often the SQLite store checks for foreign
	// writes. Zero disables polling.
	PollIntervalMS int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	PreferencesFile string `mapstructure:"preferences_file" yaml:"preferences_file"`
}

// LogConfig holds the destination of the TUI log.
type LogConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// CredentialsDir is where the encrypted file keyring lives when no native
// keyring is available.
func CredentialsDir() string {
	return filepath.Join(homeDir(), ".config", "todolist", "credentials")
}

// homeDir returns the user's home directory, falling back to ".".
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/todolist/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "todolist", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home := homeDir()
	return &AppConfig{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(home, ".local", "share", "todolist", "todos.db"),
		},
		Sync: SyncConfig{
			PollIntervalMS: 1000,
		},
		Display: DisplayConfig{
			PreferencesFile: filepath.Join(home, ".config", "todolist", "preferences.yaml"),
		},
		Log: LogConfig{
			File: filepath.Join(home, ".local", "state", "todolist", "todolist.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TODOLIST_ override file values
// (TODOLIST_DATABASE_PATH, TODOLIST_DATABASE_DRIVER, ...). A missing file
// yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("todolist")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.driver", def.Database.Driver)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn_keyring", false)
	v.SetDefault("sync.poll_interval_ms", def.Sync.PollIntervalMS)
	v.SetDefault("display.preferences_file", def.Display.PreferencesFile)
	v.SetDefault("log.file", def.Log.File)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		_, isPathErr := err.(*os.PathError)
		if !isPathErr && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("config %s: unknown database driver %q", path, cfg.Database.Driver)
	}
	if cfg.Database.Driver == DriverPostgres && cfg.Database.DSN == "" && !cfg.Database.DSNKeyring {
		return nil, fmt.Errorf("config %s: database.dsn or database.dsn_keyring is required for postgres", path)
	}
	if cfg.Sync.PollIntervalMS < 0 {
		cfg.Sync.PollIntervalMS = 0
	}

	cfg.Database.Path = expandHome(cfg.Database.Path)
	cfg.Display.PreferencesFile = expandHome(cfg.Display.PreferencesFile)
	cfg.Log.File = expandHome(cfg.Log.File)

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("sync", cfg.Sync)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
