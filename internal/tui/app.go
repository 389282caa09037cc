package tui

import (
	"context"
	"log"
	"sync"
	"time"

	"freelanceflow/internal/api"
	"freelanceflow/internal/dashboard"
	"freelanceflow/internal/entity"
	"freelanceflow/internal/model"
	"freelanceflow/internal/session"
	"freelanceflow/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	API     *api.Client
	Session *session.Manager
	DB      *store.DB
	Config  *store.Config
}

func Run(opts Options) error {
	applyThemePreference()
	applyColorProfilePreference()

	m := newAppModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.relay.attach(p.Send)
	unsubscribe := opts.Session.Subscribe(func(session.Snapshot) { m.relay.send(sessionMsg{}) })
	defer unsubscribe()

	final, err := p.Run()
	if fm, ok := final.(appModel); ok {
		fm.saveState()
		fm.teardown()
	}
	m.relay.attach(nil)
	return err
}

type view int

const (
	viewDashboard view = iota
	viewClients
	viewClient
	viewProject
)

func (v view) String() string {
	switch v {
	case viewClients:
		return "clients"
	case viewClient:
		return "client"
	case viewProject:
		return "project"
	default:
		return "dashboard"
	}
}

type (
	// sessionMsg says the session changed; the model re-reads Session.Current.
	sessionMsg struct{}
	// changedMsg says a controller changed; the model re-reads controller state.
	changedMsg struct{}

	bootDoneMsg struct{}
	authDoneMsg struct{ err error }
	opDoneMsg   struct{ err error }
	formDoneMsg struct {
		id  int64
		err error
	}
	dashboardMsg struct {
		summary dashboard.Summary
		err     error
	}
	flashDoneMsg struct{ seq int }
)

// relay forwards notifications from controller and session goroutines to the program.
// Sends are asynchronous: notifications can fire inside Update, where a synchronous
// Program.Send would block the event loop.
type relay struct {
	mu sync.Mutex
	fn func(tea.Msg)
}

func (r *relay) attach(fn func(tea.Msg)) {
	r.mu.Lock()
	r.fn = fn
	r.mu.Unlock()
}

func (r *relay) send(msg tea.Msg) {
	r.mu.Lock()
	fn := r.fn
	r.mu.Unlock()
	if fn != nil {
		go fn(msg)
	}
}

func (r *relay) changed() { r.send(changedMsg{}) }

type appModel struct {
	opts   Options
	ctx    context.Context
	relay  *relay
	glyphs glyphSet
	keys   keyMap

	width  int
	height int

	snap    session.Snapshot
	view    view
	state   store.TUIState
	spinner spinner.Model
	help    help.Model

	auth authForm

	summary     *dashboard.Summary
	dashLoading bool
	dashErr     string

	clients    *entity.List[model.Client]
	clientRows list.Model
	search     textinput.Model
	searching  bool

	client      *entity.Detail[model.Client, model.Project]
	projectRows list.Model

	project  *entity.Detail[model.Project, model.Task]
	taskRows list.Model

	form    *createForm
	confirm *confirmModal

	flash    string
	flashErr bool
	flashSeq int
}

func newAppModel(opts Options) appModel {
	cfg := opts.Config
	if cfg == nil {
		cfg = store.DefaultConfig()
	}
	g := glyphsFor(cfg.TUI.Glyphs)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if g == asciiGlyphs {
		sp.Spinner = spinner.Line
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search name, email, company"
	search.CharLimit = 120

	m := appModel{
		opts:        opts,
		ctx:         context.Background(),
		relay:       &relay{},
		glyphs:      g,
		keys:        newKeyMap(),
		width:       80,
		height:      24,
		spinner:     sp,
		help:        help.New(),
		auth:        newAuthForm(),
		clientRows:  newEntityList("Clients", g),
		projectRows: newEntityList("Projects", g),
		taskRows:    newEntityList("Tasks", g),
		search:      search,
		state:       store.TUIState{Version: 1},
	}
	m.opts.Config = cfg
	if opts.DB != nil {
		if st, err := opts.DB.LoadTUIState(m.ctx); err != nil {
			log.Printf("tui: load state: %v", err)
		} else {
			m.state = *st
		}
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	sess := m.opts.Session
	ctx := m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		sess.Bootstrap(ctx)
		return bootDoneMsg{}
	})
}

// applySession reacts to a session transition: entering the app restores the last
// screen, leaving it tears every controller down and shows the sign-in form.
func (m *appModel) applySession() tea.Cmd {
	next := m.opts.Session.Current()
	prev := m.snap
	m.snap = next
	if next.State == prev.State && next.User == prev.User {
		return nil
	}
	switch next.State {
	case session.Authenticated:
		m.auth.signedIn()
		return m.restore()
	case session.Anonymous:
		m.teardown()
		return m.auth.focus()
	}
	return nil
}

func (m *appModel) restore() tea.Cmd {
	st := m.state
	switch st.View {
	case viewClients.String():
		return m.openClients()
	case viewClient.String():
		if st.ClientID > 0 {
			return m.openClient(st.ClientID)
		}
	case viewProject.String():
		if st.ProjectID > 0 {
			return m.openProject(st.ProjectID)
		}
	}
	return m.openDashboard()
}

func (m *appModel) teardown() {
	m.closeProject()
	m.closeClient()
	if m.clients != nil {
		m.clients.Close()
		m.clients = nil
	}
	m.clientRows.SetItems(nil)
	m.summary = nil
	m.dashErr = ""
	m.form = nil
	m.confirm = nil
	m.searching = false
	m.search.Blur()
	m.view = viewDashboard
}

func (m *appModel) closeClient() {
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.projectRows.SetItems(nil)
	m.projectRows.ResetSelected()
}

func (m *appModel) closeProject() {
	if m.project != nil {
		m.project.Close()
		m.project = nil
	}
	m.taskRows.SetItems(nil)
	m.taskRows.ResetSelected()
}

// run performs fn off the event loop and reports its error back.
func (m appModel) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return opDoneMsg{err: fn(ctx)} }
}

func (m *appModel) openDashboard() tea.Cmd {
	m.view = viewDashboard
	m.saveState()
	return m.loadDashboard()
}

func (m *appModel) loadDashboard() tea.Cmd {
	m.dashLoading = true
	src := m.opts.API
	ctx := m.ctx
	return func() tea.Msg {
		s, err := dashboard.Load(ctx, src)
		return dashboardMsg{summary: s, err: err}
	}
}

func (m *appModel) openClients() tea.Cmd {
	m.view = viewClients
	if m.clients == nil {
		m.clients = entity.NewList[model.Client](m.opts.API, entity.ClientsConfig,
			entity.WithDebounce(m.opts.Config.Debounce()),
			entity.WithFilters(map[string]string{"q": m.state.ClientQuery, "stage": m.state.ClientStage}))
		m.clients.OnChange(m.relay.changed)
		m.search.SetValue(m.state.ClientQuery)
	}
	m.saveState()
	return m.run(m.clients.Load)
}

func (m *appModel) openClient(id int64) tea.Cmd {
	m.closeClient()
	m.client = entity.NewClientDetail(m.opts.API, id)
	m.client.OnChange(m.relay.changed)
	m.view = viewClient
	m.saveState()
	return m.run(m.client.Load)
}

func (m *appModel) openProject(id int64) tea.Cmd {
	m.closeProject()
	m.project = entity.NewProjectDetail(m.opts.API, id)
	m.project.OnChange(m.relay.changed)
	m.view = viewProject
	m.saveState()
	return m.run(m.project.Load)
}

// back walks up one level: project, client, clients, dashboard.
func (m *appModel) back() tea.Cmd {
	switch m.view {
	case viewProject:
		m.closeProject()
		if m.client != nil {
			m.view = viewClient
			m.saveState()
			return m.run(m.client.Load)
		}
		return m.openClients()
	case viewClient:
		m.closeClient()
		return m.openClients()
	case viewClients:
		return m.openDashboard()
	}
	return nil
}

func (m *appModel) reload() tea.Cmd {
	switch m.view {
	case viewClients:
		if m.clients != nil {
			return m.run(m.clients.Load)
		}
	case viewClient:
		if m.client != nil {
			return m.run(m.client.Load)
		}
	case viewProject:
		if m.project != nil {
			return m.run(m.project.Load)
		}
	default:
		return m.loadDashboard()
	}
	return nil
}

// sync copies controller state into the bubbles lists.
func (m *appModel) sync() {
	if m.clients != nil {
		setItems(&m.clientRows, clientItems(m.clients.Items()))
	}
	if m.client != nil {
		setItems(&m.projectRows, projectItems(m.client.Children.Items()))
	}
	if m.project != nil {
		setItems(&m.taskRows, taskItems(m.project.Children.Items()))
	}
}

func (m *appModel) setFlash(msg string, isErr bool) tea.Cmd {
	m.flashSeq++
	m.flash = msg
	m.flashErr = isErr
	seq := m.flashSeq
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

func (m *appModel) resize() {
	h := m.height - 6
	if h < 6 {
		h = 6
	}
	w := m.width
	if w < 40 {
		w = 40
	}
	m.clientRows.SetSize(w, h-1)
	m.projectRows.SetSize(w, h-4)
	m.taskRows.SetSize(w/2, h-4)
	m.help.Width = w
	m.search.Width = w - 4
}
