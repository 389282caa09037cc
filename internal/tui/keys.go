package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	Back      key.Binding
	Open      key.Binding
	Dashboard key.Binding
	Clients   key.Binding
	Search    key.Binding
	Stage     key.Binding
	New       key.Binding
	Delete    key.Binding
	Next      key.Binding
	Prev      key.Binding
	ParentFwd key.Binding
	Copy      key.Binding
	Reload    key.Binding
	Logout    key.Binding
	Help      key.Binding

	// Auth form only.
	SwitchMode key.Binding
	Focus      key.Binding
	Submit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Back:      key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Dashboard: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
		Clients:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "clients")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Stage:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stage filter")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Next:      key.NewBinding(key.WithKeys("]"), key.WithHelp("]/[", "cycle stage/status")),
		Prev:      key.NewBinding(key.WithKeys("[")),
		ParentFwd: key.NewBinding(key.WithKeys("}"), key.WithHelp("}", "cycle parent")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy email")),
		Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Logout:    key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "sign out")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),

		SwitchMode: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "login/register")),
		Focus:      key.NewBinding(key.WithKeys("tab", "shift+tab", "up", "down"), key.WithHelp("tab", "next field")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	}
}

// helpKeys adapts the bindings of one screen to help.KeyMap.
type helpKeys struct {
	short []key.Binding
	full  [][]key.Binding
}

func (h helpKeys) ShortHelp() []key.Binding  { return h.short }
func (h helpKeys) FullHelp() [][]key.Binding { return h.full }

func (m appModel) helpFor() helpKeys {
	k := m.keys
	nav := []key.Binding{k.Dashboard, k.Clients, k.Reload, k.Logout, k.Quit, k.Help}
	switch {
	case m.form != nil:
		return helpKeys{short: []key.Binding{k.Focus, k.Submit, k.Back}}
	case m.confirm != nil:
		return helpKeys{short: []key.Binding{
			key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
			key.NewBinding(key.WithKeys("n"), key.WithHelp("n/esc", "cancel")),
		}}
	case !m.snap.Authenticated():
		return helpKeys{short: []key.Binding{k.Focus, k.Submit, k.SwitchMode, k.Quit}}
	}
	switch m.view {
	case viewClients:
		own := []key.Binding{k.Open, k.Search, k.Stage, k.New, k.Next, k.Delete, k.Copy}
		return helpKeys{short: append(own[:4:4], k.Help), full: [][]key.Binding{own, nav}}
	case viewClient:
		own := []key.Binding{k.Open, k.New, k.Next, k.Delete, k.ParentFwd, k.Copy, k.Back}
		return helpKeys{short: []key.Binding{k.Open, k.New, k.Back, k.Help}, full: [][]key.Binding{own, nav}}
	case viewProject:
		own := []key.Binding{k.New, k.Next, k.Delete, k.ParentFwd, k.Back}
		return helpKeys{short: []key.Binding{k.New, k.Next, k.Back, k.Help}, full: [][]key.Binding{own, nav}}
	default:
		return helpKeys{short: []key.Binding{k.Clients, k.Reload, k.Help}, full: [][]key.Binding{nav}}
	}
}
