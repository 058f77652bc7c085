package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"todo-cli/internal/web"

	"github.com/spf13/cobra"
)

const defaultWebAddr = "127.0.0.1:3335"

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the list over HTTP (live HTML view, JSON actions, websocket)",
		Example: strings.TrimSpace(`
# Serve on localhost
todo serve --addr 127.0.0.1:3335

# Any interface, random port
todo serve --addr :0
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = strings.TrimSpace(app.config().WebAddr)
			}
			if listenAddr == "" {
				listenAddr = defaultWebAddr
			}

			s, err := openProvider(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			srv, err := web.NewServer(web.ServerConfig{Provider: s.p, Logger: s.logger})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer srv.Close()

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + ln.Addr().String() + "/"
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{"addr": ln.Addr().String(), "url": url},
			})

			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
			errc := make(chan error, 1)
			go func() { errc <- hs.Serve(ln) }()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				srv.Close()
				_ = hs.Shutdown(shutdownCtx)
				return nil
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("TODO_WEB_ADDR", ""), "Listen address (default "+defaultWebAddr+")")
	return cmd
}
