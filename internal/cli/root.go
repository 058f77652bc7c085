package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"todo-cli/internal/format"
	"todo-cli/internal/logging"
	"todo-cli/internal/provider"
	"todo-cli/internal/store"
	"todo-cli/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Backend    string
	Key        string
	LogLevel   string
	PrettyJSON bool
	Format     string

	cfg *store.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "Local-first todo list (CLI + TUI + web)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  todo

  # Scriptable commands
  todo add "Buy milk" --details "2 litres"
  todo list --sorted

  # Follow changes made by other sessions
  todo watch
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.resolve()
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("TODO_DIR", ""), "Data directory (default: ~/.todo/data)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", envOr("TODO_BACKEND", ""), "Storage backend (sqlite|file|memory)")
	cmd.PersistentFlags().StringVar(&app.Key, "key", envOr("TODO_KEY", ""), "Storage key holding the list (default: "+store.DefaultKey+")")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("TODO_LOG_LEVEL", ""), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TODO_FORMAT", "json"), "Output format (json|edn|yaml)")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newDoneCmd(app))
	cmd.AddCommand(newRmCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newReorderCmd(app))
	cmd.AddCommand(newDispatchCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// resolve fills unset settings from ~/.todo/config.json, then defaults.
// Flags and TODO_* env vars were already applied when the flags were bound.
func (app *App) resolve() error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return err
	}
	app.cfg = cfg
	if app.Dir == "" {
		app.Dir = cfg.Dir
	}
	if app.Dir == "" {
		d, err := store.DefaultDataDir()
		if err != nil {
			return err
		}
		app.Dir = d
	}
	if app.Backend == "" {
		app.Backend = cfg.Backend
	}
	if app.Key == "" {
		app.Key = cfg.Key
	}
	if app.Key == "" {
		app.Key = store.DefaultKey
	}
	if app.LogLevel == "" {
		app.LogLevel = cfg.LogLevel
	}
	return nil
}

func (app *App) config() store.Config {
	if app.cfg == nil {
		return store.Config{}
	}
	return *app.cfg
}

func (app *App) logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(app.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level), nil
}

// session is one running provider plus the resources it owns.
type session struct {
	p       *provider.Provider
	persist *store.Persistence
	backend store.Backend
	logger  *slog.Logger
}

func (s *session) Close() {
	s.p.Close()
	if err := s.backend.Close(); err != nil {
		s.logger.Warn("close backend", "error", err)
	}
}

func openSession(ctx context.Context, app *App, logger *slog.Logger) (*session, error) {
	backend, err := store.Open(ctx, store.OpenOptions{
		Kind:         app.Backend,
		Dir:          app.Dir,
		PollInterval: app.config().Poll(),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	persist := store.NewPersistence(backend, store.WithKey(app.Key), store.WithLogger(logger))
	p := provider.New(persist, provider.WithLogger(logger))
	if err := p.Start(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}
	return &session{p: p, persist: persist, backend: backend, logger: logger}, nil
}

// openProvider opens a session logging to the command's stderr.
func openProvider(cmd *cobra.Command, app *App) (*session, error) {
	logger, err := app.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return openSession(cmd.Context(), app, logger)
}

func runTUI(cmd *cobra.Command, app *App) error {
	level, err := logging.ParseLevel(app.LogLevel)
	if err != nil {
		return writeErr(cmd, err)
	}
	logger, closer, err := logging.OpenFile(filepath.Join(app.Dir, "todo.log"), level)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closer.Close()

	s, err := openSession(cmd.Context(), app, logger)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.Close()
	return tui.Run(s.p, tui.Options{Logger: logger, StateDir: app.Dir})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
