package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"freelanceflow/internal/format"
	"freelanceflow/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "flow",
		Short:        "FreelanceFlow: clients, projects and tasks from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  flow

  # Sign in once; the session is kept in ~/.freelanceflow
  flow login --email you@example.com

  # Scriptable commands
  flow clients list --stage active
  flow projects create --client 3 --name "Website"
  flow tasks set-status 12 done

  # Run a local API for development
  flow dev-server --addr 127.0.0.1:5555
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		closeLog, err := setupDebugLog()
		if err != nil {
			return writeErr(cmd, err)
		}
		app.closers = append(app.closers, closeLog)
		return app.resolve(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		app.Close()
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", envOr("FLOW_CONFIG_DIR", ""), "Local state directory (default ~/.freelanceflow)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("FLOW_API_URL", ""), "API base URL (default from config, http://localhost:5555/api)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("FLOW_FORMAT", ""), "Output format (json|table; default from config)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newClientsCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDevServerCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	if err := app.open(cmd.Context()); err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(tui.Options{
		API:     app.client,
		Session: app.session,
		DB:      app.db,
		Config:  app.cfg,
	})
}

// setupDebugLog routes the standard logger to $FLOW_DEBUG_LOG, or discards it.
func setupDebugLog() (func(), error) {
	path := strings.TrimSpace(os.Getenv("FLOW_DEBUG_LOG"))
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := tea.LogToFile(path, "flow")
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return func() { _ = f.Close() }, nil
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
