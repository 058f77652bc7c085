package cli

import (
	"fmt"
	"strings"
	"time"

	"todo-cli/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective settings (and edit ~/.todo/config.json)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"configPath":   path,
				"dir":          app.Dir,
				"backend":      orDefault(app.Backend, store.BackendSQLite),
				"key":          app.Key,
				"pollInterval": app.config().Poll().String(),
				"webAddr":      orDefault(app.config().WebAddr, defaultWebAddr),
				"logLevel":     orDefault(app.LogLevel, "warn"),
			}})
		},
	}
	cmd.AddCommand(newConfigSetCmd(app))
	return cmd
}

func newConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <setting> <value>",
		Short: "Persist a setting (dir|backend|key|pollInterval|webAddr|logLevel)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.config()
			v := strings.TrimSpace(args[1])
			switch args[0] {
			case "dir":
				cfg.Dir = v
			case "backend":
				switch v {
				case store.BackendSQLite, store.BackendFile, store.BackendMemory:
				default:
					return writeErr(cmd, fmt.Errorf("%w: %s", store.ErrUnknownBackend, v))
				}
				cfg.Backend = v
			case "key":
				cfg.Key = v
			case "pollInterval":
				if _, err := time.ParseDuration(v); err != nil {
					return writeErr(cmd, err)
				}
				cfg.PollInterval = v
			case "webAddr":
				cfg.WebAddr = v
			case "logLevel":
				cfg.LogLevel = v
			default:
				return writeErr(cmd, fmt.Errorf("unknown setting: %s", args[0]))
			}
			if err := store.SaveConfig(&cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	}
}

func orDefault(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
