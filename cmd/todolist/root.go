package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/todolist/internal/app"
	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	appsync "github.com/nhle/todolist/internal/sync"
	"github.com/nhle/todolist/internal/theme"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "todolist",
		Short:         "A todo list for the terminal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", model.DefaultConfigPath(), "config file")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database file (overrides database.path)")

	root.AddCommand(
		newAddCmd(flags),
		newListCmd(flags),
		newToggleCmd(flags),
		newEditCmd(flags),
		newRmCmd(flags),
		newClearCompletedCmd(flags),
		newThemeCmd(flags),
		newDSNCmd(),
		newConfigCmd(flags),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(flags *globalFlags) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.dbPath != "" {
		cfg.Database.Driver = model.DriverSQLite
		cfg.Database.Path = flags.dbPath
		return cfg, nil
	}
	if cfg.Database.Driver == model.DriverPostgres && cfg.Database.DSN == "" {
		creds, err := credential.Open(model.CredentialsDir())
		if err != nil {
			return nil, err
		}
		if err := creds.ResolveDSN(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openStore opens the configured backend. A zero poll interval disables
// the SQLite change watcher, which one-shot commands do not need.
func openStore(cfg *model.AppConfig, poll time.Duration) (store.Store, error) {
	switch cfg.Database.Driver {
	case model.DriverPostgres:
		return store.NewPostgresStore(cfg.Database.DSN)
	default:
		return store.NewSQLiteStore(cfg.Database.Path, store.WithPollInterval(poll))
	}
}

// openPreference loads the theme preference from the configured file.
func openPreference(cfg *model.AppConfig, logger *log.Logger) *theme.Preference {
	pref := theme.NewPreference(theme.NewFileKV(cfg.Display.PreferencesFile), logger)
	pref.Load()
	return pref
}

// runTUI starts the interactive list. The standard logger goes to the
// log file because the terminal belongs to the renderer.
func runTUI(flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := tea.LogToFile(cfg.Log.File, "todolist")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	s, err := openStore(cfg, time.Duration(cfg.Sync.PollIntervalMS)*time.Millisecond)
	if err != nil {
		return err
	}
	defer s.Close()

	hub := appsync.NewHub(s, log.Default())
	defer hub.Close()

	pref := openPreference(cfg, log.Default())
	defer pref.Wait()

	p := tea.NewProgram(app.New(hub, pref), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
