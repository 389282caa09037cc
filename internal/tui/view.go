package tui

import (
	"fmt"
	"strings"

	"freelanceflow/internal/guard"
	"freelanceflow/internal/model"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) View() string {
	switch guard.Decide(m.snap) {
	case guard.RenderLoading:
		return m.center(m.spinner.View() + " Restoring session" + m.glyphs.ellip)
	case guard.RedirectToLogin:
		return m.center(m.viewAuth())
	}

	var body string
	switch {
	case m.confirm != nil:
		body = m.center(m.viewConfirm())
	case m.form != nil:
		body = m.center(m.viewForm())
	default:
		switch m.view {
		case viewClients:
			body = m.viewClients()
		case viewClient:
			body = m.viewClient()
		case viewProject:
			body = m.viewProject()
		default:
			body = m.viewDashboard()
		}
	}

	parts := []string{m.viewHeader(), body}
	if s := m.viewStatus(); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, m.help.View(m.helpFor()))
	return strings.Join(parts, "\n")
}

func (m appModel) center(s string) string {
	return lipgloss.Place(m.width, max(m.height-4, lipgloss.Height(s)), lipgloss.Center, lipgloss.Center, s)
}

func (m appModel) viewHeader() string {
	crumbs := []string{"FreelanceFlow"}
	switch m.view {
	case viewClients:
		crumbs = append(crumbs, "Clients")
	case viewClient:
		crumbs = append(crumbs, "Clients", m.clientName())
	case viewProject:
		if m.client != nil {
			crumbs = append(crumbs, "Clients", m.clientName())
		}
		crumbs = append(crumbs, m.projectName())
	default:
		crumbs = append(crumbs, "Dashboard")
	}
	left := styleTitle().Render(strings.Join(crumbs, " "+m.glyphs.arrow+" "))
	right := styleMuted().Render(m.snap.User.Email)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right + "\n"
}

func (m appModel) clientName() string {
	if m.client != nil {
		if c, ok := m.client.Parent(); ok {
			return c.Name
		}
	}
	return "Client"
}

func (m appModel) projectName() string {
	if m.project != nil {
		if p, ok := m.project.Parent(); ok {
			return p.Name
		}
	}
	return "Project"
}

// viewStatus is the flash message, or the active controller's error.
func (m appModel) viewStatus() string {
	if m.flash != "" {
		if m.flashErr {
			return styleError().Render(m.flash)
		}
		return styleOK().Render(m.flash)
	}
	var errMsg string
	var loading bool
	switch m.view {
	case viewClients:
		if m.clients != nil {
			errMsg, loading = m.clients.Err(), m.clients.Loading()
		}
	case viewClient:
		if m.client != nil {
			errMsg, loading = m.client.Err(), m.client.Loading()
			if errMsg == "" {
				errMsg = m.client.Children.Err()
			}
		}
	case viewProject:
		if m.project != nil {
			errMsg, loading = m.project.Err(), m.project.Loading()
			if errMsg == "" {
				errMsg = m.project.Children.Err()
			}
		}
	default:
		errMsg, loading = m.dashErr, m.dashLoading
	}
	switch {
	case errMsg != "":
		return styleError().Render(errMsg)
	case loading:
		return m.spinner.View() + styleMuted().Render(" Loading"+m.glyphs.ellip)
	}
	return ""
}

func (m appModel) viewDashboard() string {
	s := m.summary
	if s == nil {
		return styleMuted().Render("Loading dashboard" + m.glyphs.ellip)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome back, %s\n\n", s.Email)
	fmt.Fprintf(&b, "%s\n", styleTitle().Render(fmt.Sprintf("Clients (%d)", s.Total)))
	for _, st := range model.Stages {
		badge := lipgloss.NewStyle().Foreground(stageColor(string(st))).Render(fmt.Sprintf("%-9s", st))
		fmt.Fprintf(&b, "  %s %d\n", badge, s.StageCounts[st])
	}
	b.WriteString("\n" + styleTitle().Render("Next actions") + "\n")
	if len(s.Upcoming) == 0 {
		b.WriteString(styleMuted().Render("  Nothing scheduled.") + "\n")
	}
	for _, c := range s.Upcoming {
		fmt.Fprintf(&b, "  %s %s  %s\n", m.glyphs.bullet, model.DateString(c.NextActionDate), c.Name)
	}
	return b.String()
}

func (m appModel) viewClients() string {
	var filters []string
	if m.clients != nil {
		f := m.clients.Filters()
		if st := f["stage"]; st != "" {
			filters = append(filters, "stage: "+st)
		}
	}
	line := m.search.View()
	if !m.searching && m.search.Value() == "" {
		line = styleMuted().Render("/ to search")
	}
	if len(filters) > 0 {
		line += "   " + styleMuted().Render(strings.Join(filters, "  "))
	}
	if m.clients != nil && m.clients.Loaded() && len(m.clientRows.Items()) == 0 {
		return line + "\n\n" + styleMuted().Render("No clients match. Press n to add one.")
	}
	return line + "\n" + m.clientRows.View()
}

func (m appModel) viewClient() string {
	var head string
	if c, ok := m.client.Parent(); ok {
		meta := []string{string(c.Stage)}
		if e := model.Str(c.Email); e != "" {
			meta = append(meta, e)
		}
		if co := model.Str(c.Company); co != "" {
			meta = append(meta, co)
		}
		if c.NextActionDate != nil {
			meta = append(meta, "next action "+c.NextActionDate.String())
		}
		head = styleTitle().Render(c.Name) + "\n" + styleMuted().Render(strings.Join(meta, " "+m.glyphs.sep+" "))
	}
	if len(m.projectRows.Items()) == 0 {
		return head + "\n\n" + styleMuted().Render("No projects yet. Press n to add one.")
	}
	return head + "\n\n" + m.projectRows.View()
}

func (m appModel) viewProject() string {
	var head string
	if p, ok := m.project.Parent(); ok {
		meta := []string{string(p.Status)}
		if p.DueDate != nil {
			meta = append(meta, "due "+p.DueDate.String())
		}
		head = styleTitle().Render(p.Name) + "\n" + styleMuted().Render(strings.Join(meta, " "+m.glyphs.sep+" "))
	}
	if len(m.taskRows.Items()) == 0 {
		return head + "\n\n" + styleMuted().Render("No tasks yet. Press n to add one.")
	}

	leftW := m.taskRows.Width()
	rightW := max(m.width-leftW-3, 20)
	var detail string
	if it, ok := m.taskRows.SelectedItem().(taskItem); ok {
		detail = m.viewTask(it.t, rightW)
	}
	panel := lipgloss.NewStyle().
		Width(rightW).
		PaddingLeft(2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(colorChromeFg).
		Render(detail)
	return head + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, m.taskRows.View(), panel)
}

func (m appModel) viewTask(t model.Task, width int) string {
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(t.Title),
		styleMuted().Render(string(t.Status) + dueSuffix(t.DueDate, m.glyphs)),
		"",
	}
	if notes := model.Str(t.Notes); notes != "" {
		lines = append(lines, renderMarkdown(notes, width-4))
	} else {
		lines = append(lines, styleMuted().Render("No notes."))
	}
	return strings.Join(lines, "\n")
}

func dueSuffix(d *model.Date, g glyphSet) string {
	if d == nil {
		return ""
	}
	return " " + g.sep + " due " + d.String()
}
