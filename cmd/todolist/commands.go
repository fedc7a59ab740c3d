package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	"github.com/nhle/todolist/internal/viewmodel"
)

// withStore loads config, opens the store without a change watcher, runs
// fn and closes the store.
func withStore(flags *globalFlags, fn func(ctx context.Context, s store.Store) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	s, err := openStore(cfg, 0)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(context.Background(), s)
}

func newAddCmd(flags *globalFlags) *cobra.Command {
	var description, due string

	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Create a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := model.ValidateDueDate(due); err != nil {
				return err
			}
			in := model.NewTodo{
				Title:       strings.Join(args, " "),
				Description: strings.TrimSpace(description),
				DueDate:     strings.TrimSpace(due),
			}
			return withStore(flags, func(ctx context.Context, s store.Store) error {
				todo, err := s.CreateTodo(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s)\n", todo.Title, todo.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "optional details")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	return cmd
}

func newListCmd(flags *globalFlags) *cobra.Command {
	var filter, search string
	var showIDs bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := viewmodel.ParseFilterStatus(filter)
			if err != nil {
				return err
			}
			return withStore(flags, func(ctx context.Context, s store.Store) error {
				todos, err := s.GetTodos(ctx)
				if err != nil {
					return err
				}
				printList(cmd.OutOrStdout(), todos, viewmodel.Filter{Query: search, Status: status}, showIDs)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, active or completed")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive title search")
	cmd.Flags().BoolVar(&showIDs, "ids", false, "show todo IDs")
	return cmd
}

// printList writes the filtered list. Rows are numbered by their position
// in the full collection so the numbers can be passed to other commands.
func printList(w io.Writer, todos []model.Todo, f viewmodel.Filter, showIDs bool) {
	v := viewmodel.Derive(todos, f)
	if v.Total == 0 && !f.Narrowing() {
		fmt.Fprintln(w, "No todos yet. Create one!")
		return
	}
	if len(v.Visible) == 0 {
		fmt.Fprintln(w, "No todos found")
	}

	pos := make(map[string]int, len(todos))
	for i, t := range todos {
		pos[t.ID] = i + 1
	}

	for _, t := range v.Visible {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		line := fmt.Sprintf("%d. %s %s", pos[t.ID], box, t.Title)
		if t.DueDate != "" {
			line += "  due " + t.DueDate
		}
		if showIDs {
			line += "  " + t.ID
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, v.ItemsLeft())
}

// resolve finds the todo a command argument refers to: a 1-based position
// as printed by list, a full ID, or an unambiguous ID prefix.
func resolve(ctx context.Context, s store.Store, ref string) (model.Todo, error) {
	todos, err := s.GetTodos(ctx)
	if err != nil {
		return model.Todo{}, err
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(todos) {
			return model.Todo{}, fmt.Errorf("no todo at position %d: %w", n, model.ErrNotFound)
		}
		return todos[n-1], nil
	}

	var match []model.Todo
	for _, t := range todos {
		if t.ID == ref {
			return t, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			match = append(match, t)
		}
	}
	switch len(match) {
	case 0:
		return model.Todo{}, fmt.Errorf("no todo with id %q: %w", ref, model.ErrNotFound)
	case 1:
		return match[0], nil
	default:
		return model.Todo{}, fmt.Errorf("id prefix %q matches %d todos", ref, len(match))
	}
}

func newToggleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle REF",
		Short: "Flip a todo between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, func(ctx context.Context, s store.Store) error {
				todo, err := resolve(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := s.ToggleTodo(ctx, todo.ID); err != nil {
					return err
				}
				verb := "Completed"
				if todo.Completed {
					verb = "Reopened"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", verb, todo.Title)
				return nil
			})
		},
	}
}

func newEditCmd(flags *globalFlags) *cobra.Command {
	var title, description, due string
	var done bool

	cmd := &cobra.Command{
		Use:   "edit REF",
		Short: "Change fields of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.TodoPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("due") {
				if err := model.ValidateDueDate(due); err != nil {
					return err
				}
				trimmed := strings.TrimSpace(due)
				patch.DueDate = &trimmed
			}
			if cmd.Flags().Changed("done") {
				patch.Completed = &done
			}
			if patch.IsEmpty() {
				return errors.New("nothing to change: pass --title, --description, --due or --done")
			}

			return withStore(flags, func(ctx context.Context, s store.Store) error {
				todo, err := resolve(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := s.UpdateTodo(ctx, todo.ID, patch); err != nil {
					return err
				}
				updated, err := s.GetTodo(ctx, todo.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %q\n", updated.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&due, "due", "", "new due date, YYYY-MM-DD (empty clears)")
	cmd.Flags().BoolVar(&done, "done", false, "set completed")
	return cmd
}

func newRmCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm REF",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, func(ctx context.Context, s store.Store) error {
				todo, err := resolve(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := s.DeleteTodo(ctx, todo.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", todo.Title)
				return nil
			})
		},
	}
}

func newClearCompletedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed todo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(flags, func(ctx context.Context, s store.Store) error {
				todos, err := s.GetTodos(ctx)
				if err != nil {
					return err
				}
				n, err := store.ClearCompleted(ctx, s, todos)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d completed todos\n", n)
				return err
			})
		},
	}
}

func newThemeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the saved theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dark", "light", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := log.New(cmd.ErrOrStderr(), "todolist: ", 0)
			pref := openPreference(cfg, logger)

			if len(args) == 1 {
				switch args[0] {
				case "toggle":
					pref.Toggle()
				case "dark", "light":
					if pref.IsDark() != (args[0] == "dark") {
						pref.Toggle()
					}
				default:
					return fmt.Errorf("unknown theme %q (want dark, light or toggle)", args[0])
				}
				pref.Wait()
			}

			name := "light"
			if pref.IsDark() {
				name = "dark"
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

// newDSNCmd manages the postgres DSN kept in the system keyring. It is read
// at startup when database.dsn_keyring is true and database.dsn is empty.
func newDSNCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dsn",
		Short: "Store the postgres connection string in the system keyring",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set DSN",
			Short: "Save the DSN",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				dsn := strings.TrimSpace(args[0])
				if dsn == "" {
					return fmt.Errorf("%w: DSN must not be blank", model.ErrValidation)
				}
				creds, err := credential.Open(model.CredentialsDir())
				if err != nil {
					return err
				}
				if err := creds.Set(credential.PostgresDSN, dsn); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Saved postgres DSN to the keyring")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the saved DSN",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				creds, err := credential.Open(model.CredentialsDir())
				if err != nil {
					return err
				}
				err = creds.Delete(credential.PostgresDSN)
				if errors.Is(err, model.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "No DSN saved")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Removed postgres DSN from the keyring")
				return nil
			},
		},
	)
	return cmd
}

// newConfigCmd writes the effective configuration to the config file so it
// can be edited by hand.
func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(flags.configPath); err == nil && !force {
				return fmt.Errorf("config %s already exists (use --force to overwrite)", flags.configPath)
			}
			// The keyring is not consulted so a stored DSN never lands in the file.
			cfg, err := model.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if flags.dbPath != "" {
				cfg.Database.Driver = model.DriverSQLite
				cfg.Database.Path = flags.dbPath
			}
			if err := model.SaveConfig(flags.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", flags.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
