package tui

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	"freelanceflow/internal/api"
	"freelanceflow/internal/entity"
	"freelanceflow/internal/session"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type authForm struct {
	register bool
	email    textinput.Model
	password textinput.Model
	focusIdx int
	err      string
	busy     bool
}

func newAuthForm() authForm {
	email := textinput.New()
	email.Prompt = "Email     "
	email.Placeholder = "you@example.com"
	email.CharLimit = 254

	pw := textinput.New()
	pw.Prompt = "Password  "
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	pw.CharLimit = 128

	return authForm{email: email, password: pw}
}

func (f *authForm) focus() tea.Cmd {
	f.password.Blur()
	f.email.Blur()
	if f.focusIdx == 1 {
		return f.password.Focus()
	}
	return f.email.Focus()
}

func (f *authForm) signedIn() {
	f.password.SetValue("")
	f.err = ""
	f.busy = false
	f.focusIdx = 0
}

func (f authForm) failureText() string {
	if f.register {
		return "Registration failed"
	}
	return "Login failed"
}

func (m appModel) updateAuth(msg tea.KeyMsg) (appModel, tea.Cmd) {
	f := &m.auth
	if f.busy {
		return m, nil
	}
	switch {
	case msg.String() == "ctrl+r":
		f.register = !f.register
		f.err = ""
		return m, nil
	case msg.String() == "tab" || msg.String() == "down" || msg.String() == "shift+tab" || msg.String() == "up":
		f.focusIdx = 1 - f.focusIdx
		return m, f.focus()
	case msg.String() == "enter":
		if f.focusIdx == 0 {
			f.focusIdx = 1
			return m, f.focus()
		}
		return m, m.submitAuth()
	}

	var cmd tea.Cmd
	if f.focusIdx == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return m, cmd
}

func (m *appModel) submitAuth() tea.Cmd {
	f := &m.auth
	f.busy = true
	f.err = ""
	email, pw := f.email.Value(), f.password.Value()
	register := f.register
	sess := m.opts.Session
	ctx := m.ctx
	return func() tea.Msg {
		var err error
		if register {
			_, err = sess.Register(ctx, email, pw)
		} else {
			_, err = sess.Login(ctx, email, pw)
		}
		return authDoneMsg{err: err}
	}
}

func authError(err error, fallback string) string {
	if errors.Is(err, session.ErrEmailRequired) || errors.Is(err, session.ErrPasswordRequired) {
		return err.Error()
	}
	return api.Message(err, fallback)
}

func (m appModel) viewAuth() string {
	f := m.auth
	title := "Sign in"
	if f.register {
		title = "Create account"
	}
	lines := []string{
		styleTitle().Render(title),
		"",
		f.email.View(),
		f.password.View(),
		"",
	}
	switch {
	case f.busy:
		lines = append(lines, m.spinner.View()+" Working"+m.glyphs.ellip)
	case f.err != "":
		lines = append(lines, styleError().Render(f.err))
	default:
		other := "register"
		if f.register {
			other = "sign in"
		}
		lines = append(lines, styleMuted().Render("ctrl+r to "+other))
	}
	return styleModal().Width(min(60, m.width-4)).Render(strings.Join(lines, "\n"))
}

type formField struct {
	key   string
	input textinput.Model
}

// createForm collects the fields of one new entity. On failure it stays open with the
// entered values so the user can correct them.
type createForm struct {
	title    string
	noun     string
	fields   []formField
	focusIdx int
	err      string
	busy     bool
	submit   func(context.Context, entity.Fields) (int64, error)
}

func fieldLabel(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func newCreateForm(cfg entity.Config, submit func(context.Context, entity.Fields) (int64, error)) *createForm {
	keys := []string{cfg.Required}
	keys = append(keys, cfg.Optional...)
	keys = append(keys, cfg.Dates...)
	enums := make([]string, 0, len(cfg.Enums))
	for k := range cfg.Enums {
		enums = append(enums, k)
	}
	sort.Strings(enums)
	keys = append(keys, enums...)

	width := 0
	for _, k := range keys {
		width = max(width, len(fieldLabel(k)))
	}

	f := &createForm{title: "New " + cfg.Noun, noun: cfg.Noun, submit: submit}
	for _, k := range keys {
		in := textinput.New()
		in.Prompt = fieldLabel(k) + strings.Repeat(" ", width-len(fieldLabel(k))+2)
		in.CharLimit = 200
		switch {
		case cfg.Enums[k] != nil:
			in.Placeholder = strings.Join(cfg.Enums[k], "|")
			if def, ok := cfg.Defaults[k].(string); ok {
				in.SetValue(def)
			}
		case slices.Contains(cfg.Dates, k):
			in.Placeholder = "YYYY-MM-DD"
			in.CharLimit = 10
		case slices.Contains(cfg.Optional, k):
			in.Placeholder = "optional"
		}
		f.fields = append(f.fields, formField{key: k, input: in})
	}
	f.fields[0].input.Focus()
	return f
}

func (f *createForm) values() entity.Fields {
	out := entity.Fields{}
	for _, fl := range f.fields {
		out[fl.key] = fl.input.Value()
	}
	return out
}

func (f *createForm) move(step int) tea.Cmd {
	f.fields[f.focusIdx].input.Blur()
	f.focusIdx = (f.focusIdx + step + len(f.fields)) % len(f.fields)
	return f.fields[f.focusIdx].input.Focus()
}

func (m appModel) updateForm(msg tea.KeyMsg) (appModel, tea.Cmd) {
	f := m.form
	if f.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.form = nil
		return m, nil
	case "tab", "down":
		return m, f.move(1)
	case "shift+tab", "up":
		return m, f.move(-1)
	case "enter":
		if f.focusIdx < len(f.fields)-1 {
			return m, f.move(1)
		}
		return m, m.submitForm()
	case "ctrl+s":
		return m, m.submitForm()
	}
	var cmd tea.Cmd
	f.fields[f.focusIdx].input, cmd = f.fields[f.focusIdx].input.Update(msg)
	return m, cmd
}

func (m *appModel) submitForm() tea.Cmd {
	f := m.form
	f.busy = true
	f.err = ""
	fields := f.values()
	submit := f.submit
	ctx := m.ctx
	return func() tea.Msg {
		id, err := submit(ctx, fields)
		return formDoneMsg{id: id, err: err}
	}
}

func formError(err error, noun string) string {
	if entity.IsValidation(err) {
		return err.Error()
	}
	return api.Message(err, "Failed to create "+noun)
}

func (m appModel) viewForm() string {
	f := m.form
	lines := []string{styleTitle().Render(f.title), ""}
	for _, fl := range f.fields {
		lines = append(lines, fl.input.View())
	}
	lines = append(lines, "")
	switch {
	case f.busy:
		lines = append(lines, m.spinner.View()+" Saving"+m.glyphs.ellip)
	case f.err != "":
		lines = append(lines, styleError().Render(f.err))
	default:
		lines = append(lines, styleMuted().Render("enter on the last field or ctrl+s to save, esc to cancel"))
	}
	return styleModal().Width(min(70, m.width-4)).Render(strings.Join(lines, "\n"))
}

type confirmModal struct {
	prompt string
	onYes  tea.Cmd
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (appModel, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		cmd := m.confirm.onYes
		m.confirm = nil
		return m, cmd
	case "n", "esc", "q":
		m.confirm = nil
		return m, m.setFlash("Cancelled", false)
	}
	return m, nil
}

func (m appModel) viewConfirm() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.confirm.prompt,
		"",
		styleMuted().Render("y to delete, n to cancel"),
	)
	return styleModal().BorderForeground(colorError).Render(body)
}
