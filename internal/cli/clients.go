package cli

import (
	"fmt"

	"freelanceflow/internal/api"
	"freelanceflow/internal/entity"
	"freelanceflow/internal/model"

	"github.com/spf13/cobra"
)

func newClientsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clients",
		Aliases: []string{"client"},
		Short:   "Client commands",
	}
	cmd.AddCommand(newClientsListCmd(app))
	cmd.AddCommand(newClientsShowCmd(app))
	cmd.AddCommand(newClientsCreateCmd(app))
	cmd.AddCommand(newClientsUpdateCmd(app))
	cmd.AddCommand(newClientsSetStageCmd(app))
	cmd.AddCommand(newClientsDeleteCmd(app))
	return cmd
}

func newClientsListCmd(app *App) *cobra.Command {
	var q string
	var stage string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients (next action date first, then name)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			f := api.ClientFilter{Q: q}
			if stage != "" {
				st, err := model.ParseStage(stage)
				if err != nil {
					return writeErr(cmd, err)
				}
				f.Stage = st
			}
			cs, err := app.client.ListClients(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, clientsResult(cs...))
		},
	}
	cmd.Flags().StringVar(&q, "q", "", "Search name, email and company")
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by stage (lead|prospect|active|archived)")
	return cmd
}

func newClientsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a client and its projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cid, err := parseID("client", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			d := entity.NewClientDetail(app.client, cid)
			defer d.Close()
			if err := d.Load(cmd.Context()); err != nil {
				if api.IsNotFound(err) {
					return writeErr(cmd, errNotFound("client", cid))
				}
				return writeErr(cmd, err)
			}
			c, _ := d.Parent()
			projects := d.Children.Items()
			if app.Format == "table" {
				if err := writeOut(cmd, app, single(clientsResult(c))); err != nil {
					return err
				}
				return writeOut(cmd, app, projectsResult(projects...))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"client": c, "projects": projects}})
		},
	}
}

func newClientsCreateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			l := entity.NewList[model.Client](app.client, entity.ClientsConfig)
			defer l.Close()
			cid, err := l.Create(cmd.Context(), fields(cmd, map[string]string{
				"name":        "name",
				"email":       "email",
				"company":     "company",
				"stage":       "stage",
				"next-action": "next_action_date",
			}))
			if err != nil {
				return writeErr(cmd, err)
			}
			// The list reload after create may fail; the record exists either way.
			c, ok := l.Get(cid)
			if !ok {
				if c, err = app.client.GetClient(cmd.Context(), cid); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, single(clientsResult(c)))
		},
	}
	cmd.Flags().String("name", "", "Client name")
	cmd.Flags().String("email", "", "Contact email")
	cmd.Flags().String("company", "", "Company")
	cmd.Flags().String("stage", string(model.StageLead), "Pipeline stage (lead|prospect|active|archived)")
	cmd.Flags().String("next-action", "", "Next action date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newClientsUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <client-id>",
		Short: "Change client fields (only the flags you pass)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cid, err := parseID("client", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			patch := api.Patch(fields(cmd, map[string]string{
				"name":        "name",
				"email":       "email",
				"company":     "company",
				"stage":       "stage",
				"next-action": "next_action_date",
			}))
			if len(patch) == 0 {
				return writeErr(cmd, fmt.Errorf("nothing to update (pass at least one flag)"))
			}
			return patchClient(cmd, app, cid, patch)
		},
	}
	cmd.Flags().String("name", "", "Client name")
	cmd.Flags().String("email", "", "Contact email (empty clears)")
	cmd.Flags().String("company", "", "Company (empty clears)")
	cmd.Flags().String("stage", "", "Pipeline stage")
	cmd.Flags().String("next-action", "", "Next action date (YYYY-MM-DD; empty clears)")
	return cmd
}

func newClientsSetStageCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-stage <client-id> <stage>",
		Short: "Move a client to another pipeline stage (any stage to any stage)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cid, err := parseID("client", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := model.ParseStage(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return patchClient(cmd, app, cid, api.Patch{"stage": st})
		},
	}
}

func patchClient(cmd *cobra.Command, app *App, cid int64, patch api.Patch) error {
	patch, err := entity.ClientsConfig.NormalizePatch(patch)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := app.requireSession(cmd); err != nil {
		return writeErr(cmd, err)
	}
	if err := app.client.UpdateClient(cmd.Context(), cid, patch); err != nil {
		if api.IsNotFound(err) {
			return writeErr(cmd, errNotFound("client", cid))
		}
		return writeErr(cmd, err)
	}
	c, err := app.client.GetClient(cmd.Context(), cid)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, single(clientsResult(c)))
}

func newClientsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <client-id>",
		Short: "Delete a client with its projects and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cid, err := parseID("client", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.client.GetClient(cmd.Context(), cid)
			if err != nil {
				if api.IsNotFound(err) {
					return writeErr(cmd, errNotFound("client", cid))
				}
				return writeErr(cmd, err)
			}
			if !confirmer(cmd, yes)(fmt.Sprintf("Delete client %q?", c.Name)) {
				return writeErr(cmd, entity.ErrCancelled)
			}
			if err := app.client.DeleteClient(cmd.Context(), cid); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": cid}})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
