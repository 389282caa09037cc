package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"freelanceflow/internal/devserver"
	"freelanceflow/internal/model"

	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, opts devserver.Options) (*devserver.Server, string) {
	t.Helper()
	opts.BcryptCost = bcrypt.MinCost
	srv := devserver.New(opts)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts.URL + "/api"
}

type mutableToken struct{ v atomic.Value }

func (m *mutableToken) Token() string {
	s, _ := m.v.Load().(string)
	return s
}

func (m *mutableToken) Set(s string) { m.v.Store(s) }

func TestClient_OmitsAuthorizationWithoutCredential(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotReqID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"missing authorization header"}}`))
	}))
	defer ts.Close()

	called := false
	c := New(ts.URL, nil, WithUnauthorizedHandler(func() { called = true }))
	_, err := c.Me(context.Background())
	if gotAuth != "" {
		t.Fatalf("expected no Authorization header, got %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	if !IsUnauthorized(err) {
		t.Fatalf("expected 401 error, got %v", err)
	}
	if Message(err, "fallback") != "missing authorization header" {
		t.Fatalf("message = %q", Message(err, "fallback"))
	}
	if called {
		t.Fatalf("unauthorized handler must not fire for requests without a credential")
	}
}

func TestClient_AuthFlowAndCRUD(t *testing.T) {
	t.Parallel()
	_, base := newTestServer(t, devserver.Options{})

	tok := &mutableToken{}
	c := New(base, tok)
	ctx := context.Background()

	auth, err := c.Register(ctx, "a@b.com", "x")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if auth.AccessToken == "" || auth.User.Email != "a@b.com" {
		t.Fatalf("unexpected auth response: %#v", auth)
	}
	tok.Set(auth.AccessToken)

	me, err := c.Me(ctx)
	if err != nil || me.ID != auth.User.ID {
		t.Fatalf("Me: %#v %v", me, err)
	}

	id, err := c.CreateClient(ctx, NewClient{Name: "Acme", Stage: model.StageLead})
	if err != nil || id <= 0 {
		t.Fatalf("CreateClient: id=%d err=%v", id, err)
	}
	if err := c.UpdateClient(ctx, id, Patch{"stage": "active"}); err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}
	got, err := c.GetClient(ctx, id)
	if err != nil || got.Stage != model.StageActive {
		t.Fatalf("GetClient: %#v %v", got, err)
	}

	pid, err := c.CreateProject(ctx, NewProject{ClientID: id, Name: "Site", Status: model.ProjectActive})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := c.CreateTask(ctx, NewTask{ProjectID: pid, Title: "Wireframes", Status: model.TaskTodo, Notes: model.StrPtr("- home\n- about")}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	tasks, err := c.ListTasks(ctx, pid)
	if err != nil || len(tasks) != 1 || model.Str(tasks[0].Notes) == "" {
		t.Fatalf("ListTasks: %#v %v", tasks, err)
	}

	if err := c.DeleteClient(ctx, id); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	_, err = c.GetClient(ctx, id)
	if !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if Message(err, "x") != "client not found" {
		t.Fatalf("message = %q", Message(err, "x"))
	}
}

func TestClient_UnauthorizedHandlerFiresForStaleCredential(t *testing.T) {
	t.Parallel()
	_, base := newTestServer(t, devserver.Options{})

	var fired atomic.Int32
	c := New(base, StaticToken("stale"), WithUnauthorizedHandler(func() { fired.Add(1) }))
	if _, err := c.ListClients(context.Background(), ClientFilter{}); !IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if fired.Load() != 1 {
		t.Fatalf("handler fired %d times, want 1", fired.Load())
	}

	// Login is public: a 401 there is a credential error, not an expired session.
	if _, err := c.Login(context.Background(), "nobody@example.com", "x"); !IsUnauthorized(err) {
		t.Fatalf("expected 401 from login, got %v", err)
	}
	if fired.Load() != 1 {
		t.Fatalf("handler fired for public endpoint")
	}
}

func TestClient_UnauthorizedHandlerSkipsReplacedCredential(t *testing.T) {
	t.Parallel()
	tok := &mutableToken{}
	tok.Set("old")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The user signs in again while this request is in flight.
		tok.Set("new")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"token expired"}}`))
	}))
	t.Cleanup(ts.Close)

	var fired atomic.Int32
	c := New(ts.URL+"/api", tok, WithUnauthorizedHandler(func() { fired.Add(1) }))
	if _, err := c.ListClients(context.Background(), ClientFilter{}); !IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if fired.Load() != 0 {
		t.Fatalf("handler fired for a credential that was already replaced")
	}
}

func TestClient_GetProjectFallsBackToList(t *testing.T) {
	t.Parallel()
	srv, base := newTestServer(t, devserver.Options{NoProjectRead: true})
	_ = srv

	tok := &mutableToken{}
	c := New(base, tok)
	ctx := context.Background()
	auth, err := c.Register(ctx, "a@b.com", "x")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	tok.Set(auth.AccessToken)

	cid, _ := c.CreateClient(ctx, NewClient{Name: "Acme"})
	pid, err := c.CreateProject(ctx, NewProject{ClientID: cid, Name: "Site"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	p, err := c.GetProject(ctx, pid)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p.Name != "Site" || p.ClientID != cid {
		t.Fatalf("unexpected project %#v", p)
	}

	_, err = c.GetProject(ctx, pid+100)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClient_TransportErrorHasNoStatus(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	c := New(base, StaticToken("t"))
	_, err := c.ListClients(context.Background(), ClientFilter{})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != 0 {
		t.Fatalf("expected *Error with status 0, got %#v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Fatalf("expected wrapped transport cause")
	}
	if Message(err, "Failed to load clients") != "Failed to load clients" {
		t.Fatalf("expected fallback message")
	}
}
