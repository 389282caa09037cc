// Package devserver is an in-memory implementation of the FreelanceFlow REST API.
//
// It backs `flow dev-server` for local development and is the HTTP double used by
// package tests. Data is owner-scoped per user, passwords are bcrypt hashed and access
// tokens are HS256 JWTs, mirroring the production service's observable behavior.
package devserver

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"freelanceflow/internal/model"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type Options struct {
	// Prefix is the mount point of the API (default "/api").
	Prefix string
	// Secret signs access tokens. A random secret is generated when empty.
	Secret []byte
	// TokenTTL is the access token lifetime (default 25 minutes).
	TokenTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost; tests use bcrypt.MinCost.
	BcryptCost int
	// NoProjectRead disables GET /projects/{id} so clients exercise the list fallback.
	NoProjectRead bool
}

type userRow struct {
	user model.User
	hash []byte
}

type clientRow struct {
	owner int64
	model.Client
}

type projectRow struct {
	owner int64
	model.Project
}

type taskRow struct {
	owner int64
	model.Task
}

type Server struct {
	opts   Options
	router *mux.Router

	mu       sync.Mutex
	nextID   map[string]int64
	users    map[int64]*userRow
	clients  map[int64]*clientRow
	projects map[int64]*projectRow
	tasks    map[int64]*taskRow

	calls    map[string]int
	failures map[string][]injectedFailure
	hook     func(r *http.Request)
}

type injectedFailure struct {
	status  int
	message string
}

func New(opts Options) *Server {
	if strings.TrimSpace(opts.Prefix) == "" {
		opts.Prefix = "/api"
	}
	opts.Prefix = "/" + strings.Trim(opts.Prefix, "/")
	if len(opts.Secret) == 0 {
		opts.Secret = make([]byte, 32)
		_, _ = rand.Read(opts.Secret)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 25 * time.Minute
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	s := &Server{
		opts:     opts,
		nextID:   map[string]int64{},
		users:    map[int64]*userRow{},
		clients:  map[int64]*clientRow{},
		projects: map[int64]*projectRow{},
		tasks:    map[int64]*taskRow{},
		calls:    map[string]int{},
		failures: map[string][]injectedFailure{},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix(s.opts.Prefix).Subrouter()
	api.Use(s.countCalls)

	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.Handle("/auth/me", s.requireAuth(s.handleMe)).Methods(http.MethodGet)

	for _, p := range []string{"/clients/", "/clients"} {
		api.Handle(p, s.requireAuth(s.handleListClients)).Methods(http.MethodGet)
		api.Handle(p, s.requireAuth(s.handleCreateClient)).Methods(http.MethodPost)
	}
	api.Handle("/clients/{id:[0-9]+}", s.requireAuth(s.handleGetClient)).Methods(http.MethodGet)
	api.Handle("/clients/{id:[0-9]+}", s.requireAuth(s.handleUpdateClient)).Methods(http.MethodPatch)
	api.Handle("/clients/{id:[0-9]+}", s.requireAuth(s.handleDeleteClient)).Methods(http.MethodDelete)

	for _, p := range []string{"/projects/", "/projects"} {
		api.Handle(p, s.requireAuth(s.handleListProjects)).Methods(http.MethodGet)
		api.Handle(p, s.requireAuth(s.handleCreateProject)).Methods(http.MethodPost)
	}
	if !s.opts.NoProjectRead {
		api.Handle("/projects/{id:[0-9]+}", s.requireAuth(s.handleGetProject)).Methods(http.MethodGet)
	}
	api.Handle("/projects/{id:[0-9]+}", s.requireAuth(s.handleUpdateProject)).Methods(http.MethodPatch)
	api.Handle("/projects/{id:[0-9]+}", s.requireAuth(s.handleDeleteProject)).Methods(http.MethodDelete)

	for _, p := range []string{"/tasks/", "/tasks"} {
		api.Handle(p, s.requireAuth(s.handleListTasks)).Methods(http.MethodGet)
		api.Handle(p, s.requireAuth(s.handleCreateTask)).Methods(http.MethodPost)
	}
	api.Handle("/tasks/{id:[0-9]+}", s.requireAuth(s.handleUpdateTask)).Methods(http.MethodPatch)
	api.Handle("/tasks/{id:[0-9]+}", s.requireAuth(s.handleDeleteTask)).Methods(http.MethodDelete)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		hook(r)
	}
	s.router.ServeHTTP(w, r)
}

// SetHook installs fn to run before every request is handled (outside the data lock).
// Tests use it to delay or observe specific requests; nil removes it.
func (s *Server) SetHook(fn func(r *http.Request)) {
	s.mu.Lock()
	s.hook = fn
	s.mu.Unlock()
}

// Calls reports how many requests matched method + path (path without the prefix,
// e.g. "/auth/me" or "/clients/3").
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// FailNext makes the next request to method + path answer with status and message
// instead of being handled.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], injectedFailure{status: status, message: message})
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, s.opts.Prefix)
		s.mu.Lock()
		s.calls[key]++
		var fail *injectedFailure
		if q := s.failures[key]; len(q) > 0 {
			f := q[0]
			fail = &f
			s.failures[key] = q[1:]
		}
		s.mu.Unlock()
		if fail != nil {
			writeError(w, fail.status, fail.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allocID(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"message": message}})
}

func decodeBody(r *http.Request) (map[string]any, error) {
	data := map[string]any{}
	if r.Body == nil {
		return data, nil
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
