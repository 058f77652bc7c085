package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"todo-cli/internal/model"
	"todo-cli/internal/todo"

	"github.com/spf13/cobra"
)

func newDispatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <action-json>",
		Short: "Apply a raw action ({\"type\":...,\"data\":...}) and print the resulting state",
		Example: strings.TrimSpace(`
todo dispatch '{"type":"add","data":{"title":"Buy milk"}}'
todo dispatch '{"type":"onDragEnd","data":{"sourceIndex":0,"destinationIndex":2}}'
echo '{"type":"toggleDone","data":{"id":"..."}}' | todo dispatch -
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readArgOrStdin(cmd, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			a, err := todo.DecodeAction(raw)
			if err != nil {
				return writeErr(cmd, err)
			}
			switch t := a.(type) {
			case todo.Add:
				err = todo.ValidateTitle(t.Title)
			case todo.Edit:
				err = todo.ValidateTitle(t.Title)
			}
			if err != nil {
				return writeErr(cmd, err)
			}

			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			if err := s.p.Dispatch(cmd.Context(), a); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s.p.State()})
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored list as JSON (stdout or --out)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			st := s.p.State()
			if strings.TrimSpace(out) == "" {
				return writeOut(cmd, app, map[string]any{"data": st})
			}
			b, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return writeErr(cmd, err)
			}
			if err := os.WriteFile(out, append(b, '\n'), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": out, "items": st.Len()}})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file path")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored list with a JSON export (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b []byte
			var err error
			if args[0] == "-" {
				b, err = io.ReadAll(cmd.InOrStdin())
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			var st model.State
			if err := json.Unmarshal(b, &st); err != nil {
				return writeErr(cmd, fmt.Errorf("import: %w", err))
			}
			if err := validateImport(st); err != nil {
				return writeErr(cmd, err)
			}

			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			if err := s.p.Dispatch(cmd.Context(), todo.LoadState{State: st}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": s.p.State()})
		},
	}
}

// validateImport rejects lists with missing or duplicate ids.
func validateImport(st model.State) error {
	seen := make(map[string]bool, st.Len())
	for i, it := range st.TodoItems {
		if strings.TrimSpace(it.ID) == "" {
			return fmt.Errorf("import: item %d has no id", i)
		}
		if seen[it.ID] {
			return fmt.Errorf("import: duplicate id %s", it.ID)
		}
		seen[it.ID] = true
	}
	return nil
}

func readArgOrStdin(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, errors.New("dispatch: empty input on stdin")
	}
	return b, nil
}
