package cli

import (
	"os"
	"os/signal"
	"syscall"

	"todo-cli/internal/model"

	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the list whenever another session changes it (until interrupted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			changes := make(chan model.State, 16)
			cancel := s.p.Subscribe(func(st model.State) {
				select {
				case changes <- st:
				default:
					s.logger.Warn("watch: output behind; dropping change")
				}
			})
			defer cancel()

			s.logger.Info("watching", "dir", app.Dir, "key", app.Key)
			for {
				select {
				case <-ctx.Done():
					return nil
				case st := <-changes:
					if err := writeOut(cmd, app, map[string]any{"data": st}); err != nil {
						return writeErr(cmd, err)
					}
				}
			}
		},
	}
}
