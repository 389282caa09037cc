package cli

import (
	"strconv"

	"freelanceflow/internal/dashboard"
	"freelanceflow/internal/format"
	"freelanceflow/internal/model"
)

func idStr(n int64) string { return strconv.FormatInt(n, 10) }

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func userResult(u model.User) format.Result {
	return format.Result{
		Data: u,
		Table: &format.Table{
			Headers: []string{"ID", "EMAIL"},
			Rows:    [][]string{{idStr(u.ID), u.Email}},
		},
	}
}

func clientsResult(cs ...model.Client) format.Result {
	t := &format.Table{
		Headers: []string{"ID", "NAME", "COMPANY", "EMAIL", "STAGE", "NEXT ACTION"},
		Empty:   "No clients.",
	}
	for _, c := range cs {
		t.Rows = append(t.Rows, []string{
			idStr(c.ID), c.Name, dash(model.Str(c.Company)), dash(model.Str(c.Email)),
			string(c.Stage), dash(model.DateString(c.NextActionDate)),
		})
	}
	return format.Result{Data: cs, Table: t}
}

func projectsResult(ps ...model.Project) format.Result {
	t := &format.Table{
		Headers: []string{"ID", "CLIENT", "NAME", "STATUS", "DUE"},
		Empty:   "No projects.",
	}
	for _, p := range ps {
		t.Rows = append(t.Rows, []string{
			idStr(p.ID), idStr(p.ClientID), p.Name, string(p.Status), dash(model.DateString(p.DueDate)),
		})
	}
	return format.Result{Data: ps, Table: t}
}

func tasksResult(ts ...model.Task) format.Result {
	t := &format.Table{
		Headers: []string{"ID", "PROJECT", "TITLE", "STATUS", "DUE"},
		Empty:   "No tasks.",
	}
	for _, task := range ts {
		t.Rows = append(t.Rows, []string{
			idStr(task.ID), idStr(task.ProjectID), task.Title, string(task.Status), dash(model.DateString(task.DueDate)),
		})
	}
	return format.Result{Data: ts, Table: t}
}

// single unwraps a one-element result so JSON shows an object, not an array.
func single(r format.Result) format.Result {
	switch d := r.Data.(type) {
	case []model.Client:
		if len(d) == 1 {
			r.Data = d[0]
		}
	case []model.Project:
		if len(d) == 1 {
			r.Data = d[0]
		}
	case []model.Task:
		if len(d) == 1 {
			r.Data = d[0]
		}
	}
	return r
}

func dashboardResult(s dashboard.Summary) format.Result {
	t := &format.Table{Headers: []string{"", ""}}
	t.Rows = append(t.Rows, []string{"Signed in as", s.Email}, []string{"Clients", strconv.Itoa(s.Total)})
	for _, st := range model.Stages {
		t.Rows = append(t.Rows, []string{"  " + string(st), strconv.Itoa(s.StageCounts[st])})
	}
	for i, c := range s.Upcoming {
		label := ""
		if i == 0 {
			label = "Next actions"
		}
		t.Rows = append(t.Rows, []string{label, model.DateString(c.NextActionDate) + "  " + c.Name})
	}
	return format.Result{Data: s, Table: t}
}
