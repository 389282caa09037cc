package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"freelanceflow/internal/devserver"

	"github.com/spf13/cobra"
)

func newDevServerCmd(app *App) *cobra.Command {
	var addr string
	var secret string

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory FreelanceFlow API for local development",
		Long: strings.TrimSpace(`
Run an in-memory implementation of the FreelanceFlow REST API.

Data lives only as long as the process. Tokens are signed with --secret
(or a random key), so restarting with a random key signs everyone out.
`),
		Example: strings.TrimSpace(`
# Serve on the default API URL
flow dev-server

# Point the client at it
flow --api-url http://127.0.0.1:5555/api register --email me@example.com
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("dev-server: missing --addr"))
			}

			srv := devserver.New(devserver.Options{Secret: []byte(secret)})

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/api"

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"apiUrl":    url,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "FreelanceFlow dev API running at %s\n", url)

			hs := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			done := make(chan struct{})
			go func() {
				defer close(done)
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = hs.Shutdown(shutdownCtx)
			}()

			err = hs.Serve(ln)
			if errors.Is(err, http.ErrServerClosed) {
				<-done
				return nil
			}
			return writeErr(cmd, err)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5555", "Bind address (host:port or :port)")
	cmd.Flags().StringVar(&secret, "secret", envOr("FLOW_DEV_SECRET", ""), "Token signing secret (default: random per run)")
	return cmd
}
