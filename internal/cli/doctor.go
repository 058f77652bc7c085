package cli

import (
	"todo-cli/internal/store"

	"github.com/spf13/cobra"
)

func newDoctorCmd(app *App) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the stored list for problems sessions would silently ignore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := app.logger(cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := store.Open(cmd.Context(), store.OpenOptions{Kind: app.Backend, Dir: app.Dir, Logger: logger})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer b.Close()

			report := store.Doctor(cmd.Context(), b, app.Key)
			if err := writeOut(cmd, app, map[string]any{
				"data": report,
				"meta": map[string]any{"issues": len(report.Issues), "hasErrors": report.HasErrors()},
			}); err != nil {
				return err
			}
			if fail && report.HasErrors() {
				return store.ErrDoctorIssuesFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fail, "fail", false, "Exit non-zero if errors are found")
	return cmd
}
