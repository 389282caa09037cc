package tui

import (
	"context"
	"errors"
	"fmt"
	"log"

	"freelanceflow/internal/api"
	"freelanceflow/internal/entity"
	"freelanceflow/internal/model"
	"freelanceflow/internal/session"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bootDoneMsg, sessionMsg:
		return m, m.applySession()

	case authDoneMsg:
		m.auth.busy = false
		if msg.err != nil {
			m.auth.err = authError(msg.err, m.auth.failureText())
			return m, nil
		}
		return m, m.applySession()

	case changedMsg:
		m.sync()
		return m, nil

	case opDoneMsg:
		m.sync()
		return m, m.reportErr(msg.err)

	case formDoneMsg:
		if m.form == nil {
			return m, nil
		}
		m.form.busy = false
		if msg.err != nil {
			m.form.err = formError(msg.err, m.form.noun)
			return m, nil
		}
		noun := m.form.noun
		m.form = nil
		m.sync()
		m.selectID(msg.id)
		return m, m.setFlash("Created "+noun, false)

	case dashboardMsg:
		m.dashLoading = false
		if msg.err != nil {
			m.dashErr = api.Message(msg.err, "Failed to load dashboard")
			return m, nil
		}
		s := msg.summary
		m.summary = &s
		m.dashErr = ""
		return m, nil

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

// reportErr surfaces errors the controllers do not keep themselves.
func (m *appModel) reportErr(err error) tea.Cmd {
	switch {
	case err == nil, errors.Is(err, entity.ErrClosed), errors.Is(err, entity.ErrCancelled):
		return nil
	case entity.IsValidation(err), errors.Is(err, entity.ErrNotFound):
		return m.setFlash(err.Error(), true)
	}
	log.Printf("tui: %v", err)
	return nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if !m.snap.Authenticated() {
		if m.snap.State == session.Booting {
			return m, nil
		}
		return m.updateAuth(msg)
	}
	if m.confirm != nil {
		return m.updateConfirm(msg)
	}
	if m.form != nil {
		return m.updateForm(msg)
	}
	if m.searching {
		return m.updateSearch(msg)
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, k.Logout):
		m.resetState()
		m.opts.Session.Logout()
		return m, m.applySession()
	case key.Matches(msg, k.Dashboard):
		return m, m.openDashboard()
	case key.Matches(msg, k.Clients):
		return m, m.openClients()
	case key.Matches(msg, k.Reload):
		return m, m.reload()
	case key.Matches(msg, k.Back):
		return m, m.back()
	}

	switch m.view {
	case viewClients:
		return m.updateClientsKey(msg)
	case viewClient:
		return m.updateClientKey(msg)
	case viewProject:
		return m.updateProjectKey(msg)
	}
	return m, nil
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searching = false
		m.search.Blur()
		m.saveState()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before && m.clients != nil {
		m.clients.SetFilter("q", v)
	}
	return m, cmd
}

func nextStageFilter(cur string) string {
	if cur == "" {
		return string(model.Stages[0])
	}
	for i, s := range model.Stages {
		if string(s) == cur && i+1 < len(model.Stages) {
			return string(model.Stages[i+1])
		}
	}
	return ""
}

func (m appModel) updateClientsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	l := m.clients
	if l == nil {
		return m, nil
	}
	sel, hasSel := m.clientRows.SelectedItem().(clientItem)

	switch {
	case key.Matches(msg, k.Search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, k.Stage):
		l.SetFilter("stage", nextStageFilter(l.Filters()["stage"]))
		m.saveState()
		return m, nil
	case key.Matches(msg, k.New):
		m.form = newCreateForm(entity.ClientsConfig, l.Create)
		return m, nil
	case key.Matches(msg, k.Open):
		if hasSel {
			return m, m.openClient(sel.c.ID)
		}
		return m, nil
	case key.Matches(msg, k.Next), key.Matches(msg, k.Prev):
		if !hasSel {
			return m, nil
		}
		next := sel.c.Stage.Next()
		if key.Matches(msg, k.Prev) {
			next = sel.c.Stage.Prev()
		}
		id := sel.c.ID
		return m, m.run(func(ctx context.Context) error {
			return l.UpdateField(ctx, id, api.Patch{"stage": next})
		})
	case key.Matches(msg, k.Delete):
		if hasSel {
			return m.askDelete(l, sel.c.ID)
		}
		return m, nil
	case key.Matches(msg, k.Copy):
		if hasSel {
			return m, m.copyEmail(sel.c)
		}
		return m, nil
	}
	return m.updateList(&m.clientRows, msg)
}

func (m appModel) updateClientKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	d := m.client
	if d == nil {
		return m, nil
	}
	sel, hasSel := m.projectRows.SelectedItem().(projectItem)

	switch {
	case key.Matches(msg, k.New):
		m.form = newCreateForm(entity.ProjectsConfig, d.Children.Create)
		return m, nil
	case key.Matches(msg, k.Open):
		if hasSel {
			return m, m.openProject(sel.p.ID)
		}
		return m, nil
	case key.Matches(msg, k.Next), key.Matches(msg, k.Prev):
		if !hasSel {
			return m, nil
		}
		next := sel.p.Status.Next()
		if key.Matches(msg, k.Prev) {
			next = sel.p.Status.Prev()
		}
		id := sel.p.ID
		return m, m.run(func(ctx context.Context) error {
			return d.Children.UpdateField(ctx, id, api.Patch{"status": next})
		})
	case key.Matches(msg, k.Delete):
		if hasSel {
			return m.askDelete(d.Children, sel.p.ID)
		}
		return m, nil
	case key.Matches(msg, k.ParentFwd):
		c, ok := d.Parent()
		if !ok {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			return d.UpdateParent(ctx, api.Patch{"stage": c.Stage.Next()})
		})
	case key.Matches(msg, k.Copy):
		if c, ok := d.Parent(); ok {
			return m, m.copyEmail(c)
		}
		return m, nil
	}
	return m.updateList(&m.projectRows, msg)
}

func (m appModel) updateProjectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	d := m.project
	if d == nil {
		return m, nil
	}
	sel, hasSel := m.taskRows.SelectedItem().(taskItem)

	switch {
	case key.Matches(msg, k.New):
		m.form = newCreateForm(entity.TasksConfig, d.Children.Create)
		return m, nil
	case key.Matches(msg, k.Next), key.Matches(msg, k.Prev):
		if !hasSel {
			return m, nil
		}
		next := sel.t.Status.Next()
		if key.Matches(msg, k.Prev) {
			next = sel.t.Status.Prev()
		}
		id := sel.t.ID
		return m, m.run(func(ctx context.Context) error {
			return d.Children.UpdateField(ctx, id, api.Patch{"status": next})
		})
	case key.Matches(msg, k.Delete):
		if hasSel {
			return m.askDelete(d.Children, sel.t.ID)
		}
		return m, nil
	case key.Matches(msg, k.ParentFwd):
		p, ok := d.Parent()
		if !ok {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			return d.UpdateParent(ctx, api.Patch{"status": p.Status.Next()})
		})
	}
	return m.updateList(&m.taskRows, msg)
}

func (m appModel) updateList(l *list.Model, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

// remover is the part of a list controller the delete flow needs.
type remover interface {
	DeletePrompt(id int64) (string, error)
	Remove(ctx context.Context, id int64, confirm entity.Confirm) error
}

func (m appModel) askDelete(r remover, id int64) (tea.Model, tea.Cmd) {
	prompt, err := r.DeletePrompt(id)
	if err != nil {
		return m, m.setFlash(err.Error(), true)
	}
	// The modal is the confirmation; Remove runs only after "y".
	m.confirm = &confirmModal{
		prompt: prompt,
		onYes: m.run(func(ctx context.Context) error {
			return r.Remove(ctx, id, entity.Yes)
		}),
	}
	return m, nil
}

func (m *appModel) copyEmail(c model.Client) tea.Cmd {
	email := model.Str(c.Email)
	if email == "" {
		return m.setFlash(fmt.Sprintf("%s has no email", c.Name), true)
	}
	if err := clipboard.WriteAll(email); err != nil {
		return m.setFlash("Copy failed: "+err.Error(), true)
	}
	return m.setFlash("Copied "+email, false)
}

func (m *appModel) selectID(id int64) {
	var l *list.Model
	switch m.view {
	case viewClients:
		l = &m.clientRows
	case viewClient:
		l = &m.projectRows
	case viewProject:
		l = &m.taskRows
	default:
		return
	}
	for i, it := range l.Items() {
		if itemID(it) == id {
			l.Select(i)
			return
		}
	}
}
