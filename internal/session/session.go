// Package session owns the authenticated-user lifecycle: bootstrap from a stored
// credential, login/register, logout, and forced expiry after a rejected request.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"freelanceflow/internal/api"
	"freelanceflow/internal/model"
)

type State int

const (
	Booting State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Booting:
		return "booting"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session. User is only meaningful when
// State is Authenticated.
type Snapshot struct {
	State State
	User  model.User
}

func (s Snapshot) Authenticated() bool { return s.State == Authenticated }

// Authenticator is the subset of the API client the session needs.
type Authenticator interface {
	Me(ctx context.Context) (model.User, error)
	Login(ctx context.Context, email, password string) (api.AuthResponse, error)
	Register(ctx context.Context, email, password string) (api.AuthResponse, error)
}

// CredentialStore persists the bearer credential between runs.
type CredentialStore interface {
	LoadCredential(ctx context.Context) (string, error)
	SaveCredential(ctx context.Context, token string) error
	ClearCredential(ctx context.Context) error
}

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
)

type Manager struct {
	auth  Authenticator
	creds CredentialStore

	bootOnce sync.Once

	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]func(Snapshot)
	nextID int
}

// NewManager returns a manager in the Booting state. Call Bootstrap before use.
func NewManager(auth Authenticator, creds CredentialStore) *Manager {
	return &Manager{
		auth:  auth,
		creds: creds,
		snap:  Snapshot{State: Booting},
		subs:  map[int]func(Snapshot){},
	}
}

func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe registers fn to receive every transition. fn runs on the goroutine that
// caused the transition, after the manager's lock is released.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) transition(next Snapshot) {
	m.mu.Lock()
	m.snap = next
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Bootstrap resolves the stored credential into a session. It runs once per manager;
// later calls return the current snapshot.
//
// No stored credential means Anonymous without any network call. Otherwise exactly one
// identity request is made; on any failure the stored credential is discarded.
func (m *Manager) Bootstrap(ctx context.Context) Snapshot {
	m.bootOnce.Do(func() {
		m.transition(m.bootstrap(ctx))
	})
	return m.Current()
}

func (m *Manager) bootstrap(ctx context.Context) Snapshot {
	tok, err := m.creds.LoadCredential(ctx)
	if err != nil {
		log.Printf("session: load credential: %v", err)
		return Snapshot{State: Anonymous}
	}
	if strings.TrimSpace(tok) == "" {
		return Snapshot{State: Anonymous}
	}
	u, err := m.auth.Me(ctx)
	if err != nil {
		log.Printf("session: resolve stored credential: %v", err)
		m.clear(ctx)
		return Snapshot{State: Anonymous}
	}
	return Snapshot{State: Authenticated, User: u}
}

func (m *Manager) Login(ctx context.Context, email, password string) (model.User, error) {
	return m.authenticate(ctx, email, password, m.auth.Login)
}

func (m *Manager) Register(ctx context.Context, email, password string) (model.User, error) {
	return m.authenticate(ctx, email, password, m.auth.Register)
}

func (m *Manager) authenticate(ctx context.Context, email, password string, call func(context.Context, string, string) (api.AuthResponse, error)) (model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.User{}, ErrEmailRequired
	}
	if password == "" {
		return model.User{}, ErrPasswordRequired
	}
	res, err := call(ctx, email, password)
	if err != nil {
		return model.User{}, err
	}
	if strings.TrimSpace(res.AccessToken) == "" {
		return model.User{}, errors.New("server returned an empty access token")
	}
	if err := m.creds.SaveCredential(ctx, res.AccessToken); err != nil {
		return model.User{}, err
	}
	// A successful login also settles a manager that never bootstrapped.
	m.bootOnce.Do(func() {})
	m.transition(Snapshot{State: Authenticated, User: res.User})
	return res.User, nil
}

// Logout discards the credential locally. The server is not contacted.
func (m *Manager) Logout() {
	m.clear(context.Background())
	m.transition(Snapshot{State: Anonymous})
}

// Expire is Logout triggered by a rejected credential. It only acts on an
// authenticated session: bootstrap handles its own failures.
func (m *Manager) Expire() {
	if m.Current().State != Authenticated {
		return
	}
	log.Printf("session: credential rejected; signing out")
	m.Logout()
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.creds.ClearCredential(ctx); err != nil {
		log.Printf("session: clear credential: %v", err)
	}
}
