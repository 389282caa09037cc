package cli

import (
	"fmt"
	"strconv"

	"freelanceflow/internal/api"
	"freelanceflow/internal/entity"
	"freelanceflow/internal/model"

	"github.com/spf13/cobra"
)

var taskFlags = map[string]string{
	"title":  "title",
	"status": "status",
	"due":    "due_date",
	"notes":  "notes",
}

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Task commands",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksSetStatusCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ts, err := app.client.ListTasks(cmd.Context(), projectID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, tasksResult(ts...))
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "Only tasks of this project")
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var projectID int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task under a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			l := entity.NewList[model.Task](app.client, entity.TasksConfig,
				entity.WithFilters(map[string]string{"project_id": strconv.FormatInt(projectID, 10)}))
			defer l.Close()
			in := fields(cmd, taskFlags)
			in["project_id"] = projectID
			tid, err := l.Create(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, ok := l.Get(tid)
			if !ok {
				if t, err = findTask(cmd, app, tid); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, single(tasksResult(t)))
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "Owning project id")
	cmd.Flags().String("title", "", "Task title")
	cmd.Flags().String("status", string(model.TaskTodo), "Status (todo|doing|done)")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().String("notes", "", "Notes (markdown)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change task fields (only the flags you pass)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			patch := api.Patch(fields(cmd, taskFlags))
			if len(patch) == 0 {
				return writeErr(cmd, fmt.Errorf("nothing to update (pass at least one flag)"))
			}
			return patchTask(cmd, app, tid, patch)
		},
	}
	cmd.Flags().String("title", "", "Task title")
	cmd.Flags().String("status", "", "Status")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD; empty clears)")
	cmd.Flags().String("notes", "", "Notes (empty clears)")
	return cmd
}

func newTasksSetStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <task-id> <status>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := model.ParseTaskStatus(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return patchTask(cmd, app, tid, api.Patch{"status": st})
		},
	}
}

// findTask reads one task; the API has no single-task route.
func findTask(cmd *cobra.Command, app *App, tid int64) (model.Task, error) {
	ts, err := app.client.ListTasks(cmd.Context(), 0)
	if err != nil {
		return model.Task{}, err
	}
	for _, t := range ts {
		if t.ID == tid {
			return t, nil
		}
	}
	return model.Task{}, errNotFound("task", tid)
}

func patchTask(cmd *cobra.Command, app *App, tid int64, patch api.Patch) error {
	patch, err := entity.TasksConfig.NormalizePatch(patch)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := app.requireSession(cmd); err != nil {
		return writeErr(cmd, err)
	}
	if err := app.client.UpdateTask(cmd.Context(), tid, patch); err != nil {
		if api.IsNotFound(err) {
			return writeErr(cmd, errNotFound("task", tid))
		}
		return writeErr(cmd, err)
	}
	t, err := findTask(cmd, app, tid)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, single(tasksResult(t)))
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			t, err := findTask(cmd, app, tid)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !confirmer(cmd, yes)(fmt.Sprintf("Delete task %q?", t.Title)) {
				return writeErr(cmd, entity.ErrCancelled)
			}
			if err := app.client.DeleteTask(cmd.Context(), tid); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"deleted": tid}})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
