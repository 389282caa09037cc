package cli

import (
	"fmt"
	"strconv"

	"freelanceflow/internal/api"
	"freelanceflow/internal/entity"
	"freelanceflow/internal/model"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsUpdateCmd(app))
	cmd.AddCommand(newProjectsSetStatusCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var clientID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ps, err := app.client.ListProjects(cmd.Context(), clientID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, projectsResult(ps...))
		},
	}
	cmd.Flags().Int64Var(&clientID, "client", 0, "Only projects of this client")
	return cmd
}

func newProjectsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			d := entity.NewProjectDetail(app.client, pid)
			defer d.Close()
			if err := d.Load(cmd.Context()); err != nil {
				if api.IsNotFound(err) {
					return writeErr(cmd, errNotFound("project", pid))
				}
				return writeErr(cmd, err)
			}
			p, _ := d.Parent()
			tasks := d.Children.Items()
			if app.Format == "table" {
				if err := writeOut(cmd, app, single(projectsResult(p))); err != nil {
					return err
				}
				return writeOut(cmd, app, tasksResult(tasks...))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"project": p, "tasks": tasks}})
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var clientID int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project under a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			l := entity.NewList[model.Project](app.client, entity.ProjectsConfig,
				entity.WithFilters(map[string]string{"client_id": strconv.FormatInt(clientID, 10)}))
			defer l.Close()
			in := fields(cmd, map[string]string{
				"name":   "name",
				"status": "status",
				"due":    "due_date",
			})
			in["client_id"] = clientID
			pid, err := l.Create(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, ok := l.Get(pid)
			if !ok {
				if p, err = app.client.GetProject(cmd.Context(), pid); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, single(projectsResult(p)))
		},
	}
	cmd.Flags().Int64Var(&clientID, "client", 0, "Owning client id")
	cmd.Flags().String("name", "", "Project name")
	cmd.Flags().String("status", string(model.ProjectActive), "Status (active|completed|archived)")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectsUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Change project fields (only the flags you pass)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			patch := api.Patch(fields(cmd, map[string]string{
				"name":   "name",
				"status": "status",
				"due":    "due_date",
			}))
			if len(patch) == 0 {
				return writeErr(cmd, fmt.Errorf("nothing to update (pass at least one flag)"))
			}
			return patchProject(cmd, app, pid, patch)
		},
	}
	cmd.Flags().String("name", "", "Project name")
	cmd.Flags().String("status", "", "Status")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD; empty clears)")
	return cmd
}

func newProjectsSetStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <project-id> <status>",
		Short: "Change a project's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := model.ParseProjectStatus(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return patchProject(cmd, app, pid, api.Patch{"status": st})
		},
	}
}

func patchProject(cmd *cobra.Command, app *App, pid int64, patch api.Patch) error {
	patch, err := entity.ProjectsConfig.NormalizePatch(patch)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := app.requireSession(cmd); err != nil {
		return writeErr(cmd, err)
	}
	if err := app.client.UpdateProject(cmd.Context(), pid, patch); err != nil {
		if api.IsNotFound(err) {
			return writeErr(cmd, errNotFound("project", pid))
		}
		return writeErr(cmd, err)
	}
	p, err := app.client.GetProject(cmd.Context(), pid)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, single(projectsResult(p)))
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.client.GetProject(cmd.Context(), pid)
			if err != nil {
				if api.IsNotFound(err) {
					return writeErr(cmd, errNotFound("project", pid))
				}
				return writeErr(cmd, err)
			}
			if !confirmer(cmd, yes)(fmt.Sprintf("Delete project %q?", p.Name)) {
				return writeErr(cmd, entity.ErrCancelled)
			}
			if err := app.client.DeleteProject(cmd.Context(), pid); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": pid}})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
