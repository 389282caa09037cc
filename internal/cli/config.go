package cli

import (
	"freelanceflow/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change ~/.freelanceflow/config.yaml",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (file, then environment)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": app.cfg})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": app.store.ConfigPath()}})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set one config key",
		Args:      cobra.ExactArgs(2),
		ValidArgs: store.ConfigKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.SetConfigValue(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			cfg, err := app.store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	})
	return cmd
}
