package tui

import (
	"fmt"
	"io"
	"strings"

	"freelanceflow/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type clientItem struct{ c model.Client }

func (i clientItem) FilterValue() string { return i.c.Name }

type projectItem struct{ p model.Project }

func (i projectItem) FilterValue() string { return i.p.Name }

type taskItem struct{ t model.Task }

func (i taskItem) FilterValue() string { return i.t.Title }

func itemID(it list.Item) int64 {
	switch x := it.(type) {
	case clientItem:
		return x.c.ID
	case projectItem:
		return x.p.ID
	case taskItem:
		return x.t.ID
	}
	return 0
}

// rowDelegate draws one line per entity: name on the left, badge and dates on the right.
type rowDelegate struct {
	glyphs glyphSet

	normal   lipgloss.Style
	selected lipgloss.Style
	muted    lipgloss.Style
}

func newRowDelegate(g glyphSet) rowDelegate {
	return rowDelegate{
		glyphs: g,
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
		muted: styleMuted(),
	}
}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) columns(item list.Item) (left string, badge string, right string) {
	sep := " " + d.glyphs.sep + " "
	switch it := item.(type) {
	case clientItem:
		left = it.c.Name
		if co := model.Str(it.c.Company); co != "" {
			left += sep + co
		}
		badge = string(it.c.Stage)
		if it.c.NextActionDate != nil {
			right = "next " + it.c.NextActionDate.String()
		}
	case projectItem:
		left = it.p.Name
		badge = string(it.p.Status)
		if it.p.DueDate != nil {
			right = "due " + it.p.DueDate.String()
		}
	case taskItem:
		left = it.t.Title
		badge = string(it.t.Status)
		if it.t.DueDate != nil {
			right = "due " + it.t.DueDate.String()
		}
	default:
		left = fmt.Sprint(item)
	}
	return strings.TrimSpace(left), badge, right
}

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 8 {
		return
	}
	isSel := index == m.Index()
	style := d.normal
	if isSel {
		style = d.selected
	}

	left, badge, right := d.columns(item)
	prefix := "  "
	if isSel {
		prefix = d.glyphs.arrow + " "
	}
	left = prefix + left

	tail := fmt.Sprintf("%-9s", badge)
	if right != "" {
		tail += "  " + right
	}
	tailW := xansi.StringWidth(tail)

	// Layout: left content + right-aligned badge/date, left side truncated first.
	gap := 2
	availLeft := contentW - gap - tailW
	if availLeft < 4 {
		availLeft = 4
	}
	if xansi.StringWidth(left) > availLeft {
		left = xansi.Truncate(left, availLeft, d.glyphs.ellip)
	}
	line := left + strings.Repeat(" ", max(availLeft-xansi.StringWidth(left), 0)+gap)

	if !isSel {
		tail = lipgloss.NewStyle().Foreground(stageColor(badge)).Render(fmt.Sprintf("%-9s", badge))
		if right != "" {
			tail += "  " + d.muted.Render(right)
		}
	}
	line += tail

	if lw := xansi.StringWidth(line); lw < contentW {
		line += strings.Repeat(" ", contentW-lw)
	} else if lw > contentW {
		line = xansi.Truncate(line, contentW, "")
	}
	fmt.Fprint(w, style.Render(line))
}

func newEntityList(title string, g glyphSet) list.Model {
	l := list.New([]list.Item{}, newRowDelegate(g), 80, 20)
	l.Title = title
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = styleTitle().Padding(0, 1)
	return l
}

// setItems replaces the list content and keeps the cursor on the same entity when it
// is still present.
func setItems(l *list.Model, items []list.Item) {
	var cur int64
	if it := l.SelectedItem(); it != nil {
		cur = itemID(it)
	}
	l.SetItems(items)
	if cur == 0 {
		return
	}
	for i, it := range items {
		if itemID(it) == cur {
			l.Select(i)
			return
		}
	}
}

func clientItems(cs []model.Client) []list.Item {
	out := make([]list.Item, 0, len(cs))
	for _, c := range cs {
		out = append(out, clientItem{c: c})
	}
	return out
}

func projectItems(ps []model.Project) []list.Item {
	out := make([]list.Item, 0, len(ps))
	for _, p := range ps {
		out = append(out, projectItem{p: p})
	}
	return out
}

func taskItems(ts []model.Task) []list.Item {
	out := make([]list.Item, 0, len(ts))
	for _, t := range ts {
		out = append(out, taskItem{t: t})
	}
	return out
}
