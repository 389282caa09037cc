package cli

import (
	"freelanceflow/internal/dashboard"

	"github.com/spf13/cobra"
)

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Pipeline summary and upcoming next actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			s, err := dashboard.Load(cmd.Context(), app.client)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, dashboardResult(s))
		},
	}
}
