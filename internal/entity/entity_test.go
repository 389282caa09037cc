package entity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"freelanceflow/internal/api"
	"freelanceflow/internal/devserver"
	"freelanceflow/internal/model"

	"golang.org/x/crypto/bcrypt"
)

type env struct {
	srv    *devserver.Server
	client *api.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := devserver.New(devserver.Options{BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	base := ts.URL + "/api"
	auth, err := api.New(base, nil).Register(context.Background(), "owner@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return &env{srv: srv, client: api.New(base, api.StaticToken(auth.AccessToken))}
}

func (e *env) seedClient(t *testing.T, name string, stage model.Stage) int64 {
	t.Helper()
	id, err := e.client.CreateClient(context.Background(), api.NewClient{Name: name, Stage: stage})
	if err != nil {
		t.Fatalf("seed client %s: %v", name, err)
	}
	return id
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func names(items []model.Client) string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.Name)
	}
	return strings.Join(out, ",")
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	t.Parallel()
	var n atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { n.Add(1) })
	for i := 0; i < 5; i++ {
		d.Notify()
		time.Sleep(5 * time.Millisecond)
	}
	waitFor(t, "debounced call", func() bool { return n.Load() == 1 })
	time.Sleep(60 * time.Millisecond)
	if n.Load() != 1 {
		t.Fatalf("calls = %d, want 1", n.Load())
	}
}

func TestDebouncer_CloseCancelsPending(t *testing.T) {
	t.Parallel()
	var n atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { n.Add(1) })
	d.Notify()
	if !d.Pending() {
		t.Fatalf("expected a pending call")
	}
	d.Close()
	d.Notify()
	time.Sleep(60 * time.Millisecond)
	if n.Load() != 0 {
		t.Fatalf("call ran after Close")
	}
}

func TestDebouncer_TimerFiredDuringNotifyWaitsFullDelay(t *testing.T) {
	t.Parallel()
	const delay = 40 * time.Millisecond
	fired := make(chan time.Time, 4)
	d := NewDebouncer(delay, func() { fired <- time.Now() })
	defer d.Close()

	d.Notify()
	// The first timer fires while the lock is held and queues behind it; the
	// notify that restarts the quiet period wins the lock first.
	d.mu.Lock()
	time.Sleep(2 * delay)
	d.notifyLocked()
	notified := time.Now()
	d.mu.Unlock()

	select {
	case at := <-fired:
		if gap := at.Sub(notified); gap < delay/2 {
			t.Fatalf("call ran %v after the last Notify, want about %v", gap, delay)
		}
	case <-time.After(time.Second):
		t.Fatalf("no call after the last Notify")
	}
	time.Sleep(2 * delay)
	if n := len(fired); n != 0 {
		t.Fatalf("%d extra calls", n)
	}
}

func TestDebouncer_StaleTimerIsIgnored(t *testing.T) {
	t.Parallel()
	var n atomic.Int32
	d := NewDebouncer(time.Hour, func() { n.Add(1) })
	defer d.Close()
	d.Notify()
	d.Notify()

	d.onTimer(1)
	if n.Load() != 0 {
		t.Fatalf("timer of a superseded Notify ran fn")
	}
	d.onTimer(2)
	if n.Load() != 1 {
		t.Fatalf("calls = %d, want 1", n.Load())
	}
	if d.Pending() {
		t.Fatalf("still pending after the call")
	}
}

func TestList_LoadAppliesFilters(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.seedClient(t, "Acme", model.StageActive)
	e.seedClient(t, "Beta", model.StageLead)

	l := NewList[model.Client](e.client, ClientsConfig, WithFilters(map[string]string{"stage": "active", "ignored": "x"}))
	defer l.Close()
	if l.Loaded() {
		t.Fatalf("Loaded before first load")
	}
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := names(l.Items()); got != "Acme" {
		t.Fatalf("items = %q, want Acme", got)
	}
	if !l.Loaded() || l.Loading() || l.Err() != "" {
		t.Fatalf("unexpected flags loaded=%v loading=%v err=%q", l.Loaded(), l.Loading(), l.Err())
	}
}

func TestList_SetFilterDebouncesToOneLoad(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.seedClient(t, "Acme", model.StageLead)
	e.seedClient(t, "Beta", model.StageLead)

	l := NewList[model.Client](e.client, ClientsConfig, WithDebounce(40*time.Millisecond))
	defer l.Close()

	for _, q := range []string{"a", "ac", "acm", "acme"} {
		l.SetFilter("q", q)
		time.Sleep(5 * time.Millisecond)
	}
	if n := e.srv.Calls(http.MethodGet, api.PathClients); n != 0 {
		t.Fatalf("load issued before the input settled (%d calls)", n)
	}
	waitFor(t, "debounced load", func() bool { return l.Loaded() })
	time.Sleep(80 * time.Millisecond)

	if n := e.srv.Calls(http.MethodGet, api.PathClients); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
	if got := names(l.Items()); got != "Acme" {
		t.Fatalf("items = %q, want Acme", got)
	}
	if l.Filters()["q"] != "acme" {
		t.Fatalf("filters = %v", l.Filters())
	}
}

func TestList_CloseCancelsPendingLoad(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	l := NewList[model.Client](e.client, ClientsConfig, WithDebounce(30*time.Millisecond))
	l.SetFilter("q", "acme")
	l.Close()
	time.Sleep(80 * time.Millisecond)

	if n := e.srv.Calls(http.MethodGet, api.PathClients); n != 0 {
		t.Fatalf("load ran after Close (%d calls)", n)
	}
	if err := l.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Load after Close: %v", err)
	}
}

func TestList_StaleResponseIsDiscarded(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.seedClient(t, "Acme", model.StageLead)
	e.seedClient(t, "Zeta", model.StageLead)

	arrived := make(chan struct{})
	release := make(chan struct{})
	e.srv.SetHook(func(r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Query().Get("q") == "zeta" {
			close(arrived)
			<-release
		}
	})

	l := NewList[model.Client](e.client, ClientsConfig, WithDebounce(time.Hour))
	defer l.Close()

	l.SetFilter("q", "zeta")
	slow := make(chan error, 1)
	go func() { slow <- l.Load(context.Background()) }()
	<-arrived

	l.SetFilter("q", "")
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("fast Load: %v", err)
	}
	close(release)
	if err := <-slow; err != nil {
		t.Fatalf("slow Load: %v", err)
	}

	if got := names(l.Items()); got != "Acme,Zeta" {
		t.Fatalf("items = %q; the older response overwrote the newer one", got)
	}
	if l.Loading() {
		t.Fatalf("still loading after both responses")
	}
}

func TestList_LoadFailureKeepsPreviousItems(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.seedClient(t, "Acme", model.StageLead)

	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.srv.FailNext(http.MethodGet, api.PathClients, http.StatusInternalServerError, "database unavailable")
	if err := l.Load(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if got := names(l.Items()); got != "Acme" {
		t.Fatalf("items = %q, want previous list", got)
	}
	if l.Err() != "database unavailable" {
		t.Fatalf("Err() = %q", l.Err())
	}
}

func TestList_CreateReloadsWithServerID(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()
	ctx := context.Background()

	id, err := l.Create(ctx, Fields{"name": "  Acme ", "email": "  ", "company": "Initech", "next_action_date": ""})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected server id, got %d", id)
	}
	got, ok := l.Get(id)
	if !ok {
		t.Fatalf("created client %d missing after reload; items=%v", id, l.Items())
	}
	if got.Name != "Acme" || got.Email != nil || model.Str(got.Company) != "Initech" || got.Stage != model.StageLead {
		t.Fatalf("unexpected client %#v", got)
	}
	if n := e.srv.Calls(http.MethodGet, api.PathClients); n != 1 {
		t.Fatalf("reloads after create = %d, want 1", n)
	}
}

func TestList_CreateValidatesLocally(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()
	ctx := context.Background()

	cases := []struct {
		name   string
		fields Fields
		field  string
	}{
		{"blank name", Fields{"name": "   "}, "name"},
		{"missing name", Fields{"company": "X"}, "name"},
		{"bad stage", Fields{"name": "Acme", "stage": "won"}, "stage"},
		{"bad date", Fields{"name": "Acme", "next_action_date": "next week"}, "next_action_date"},
	}
	for _, tc := range cases {
		_, err := l.Create(ctx, tc.fields)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Fatalf("%s: expected validation error on %s, got %v", tc.name, tc.field, err)
		}
	}
	if n := e.srv.Calls(http.MethodPost, api.PathClients); n != 0 {
		t.Fatalf("invalid input reached the server (%d requests)", n)
	}
}

func TestList_CreateFailureSurfacesMessage(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()

	e.srv.FailNext(http.MethodPost, api.PathClients, http.StatusBadRequest, "name too long")
	if _, err := l.Create(context.Background(), Fields{"name": "Acme"}); err == nil {
		t.Fatalf("expected error")
	}
	if l.Err() != "name too long" {
		t.Fatalf("Err() = %q", l.Err())
	}
	if n := e.srv.Calls(http.MethodGet, api.PathClients); n != 0 {
		t.Fatalf("failed create should not reload (%d loads)", n)
	}
}

func TestList_UpdateFieldIsOptimisticAndIdempotent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()
	ctx := context.Background()

	id, err := l.Create(ctx, Fields{"name": "Acme", "stage": "lead"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	patchSeen := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	e.srv.SetHook(func(r *http.Request) {
		if r.Method == http.MethodPatch {
			once.Do(func() {
				close(patchSeen)
				<-release
			})
		}
	})

	done := make(chan error, 1)
	go func() { done <- l.UpdateField(ctx, id, api.Patch{"stage": model.StageActive}) }()
	<-patchSeen
	if c, _ := l.Get(id); c.Stage != model.StageActive {
		t.Fatalf("local stage = %q before server confirmed, want active", c.Stage)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	if err := l.UpdateField(ctx, id, api.Patch{"stage": "active"}); err != nil {
		t.Fatalf("UpdateField (again): %v", err)
	}
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c, _ := l.Get(id); c.Stage != model.StageActive || c.Name != "Acme" {
		t.Fatalf("server state = %#v", c)
	}
	if len(l.Items()) != 1 {
		t.Fatalf("items = %v", l.Items())
	}
}

func TestList_UpdateFieldFailureReloads(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	id := e.seedClient(t, "Acme", model.StageLead)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	e.srv.FailNext(http.MethodPatch, api.ItemPath(api.PathClients, id), http.StatusInternalServerError, "write failed")
	err := l.UpdateField(ctx, id, api.Patch{"stage": "archived"})
	if api.StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if c, _ := l.Get(id); c.Stage != model.StageLead {
		t.Fatalf("stage = %q after failed update, want reloaded lead", c.Stage)
	}
	if n := e.srv.Calls(http.MethodGet, api.PathClients); n != 2 {
		t.Fatalf("loads = %d, want 2 (initial + recovery)", n)
	}
	if l.Err() != "write failed" {
		t.Fatalf("Err() = %q", l.Err())
	}
}

func TestList_UpdateFieldRejectsBadInput(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	id := e.seedClient(t, "Acme", model.StageLead)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := l.UpdateField(ctx, id, api.Patch{"stage": "won"}); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := l.UpdateField(ctx, id, api.Patch{"name": " "}); !IsValidation(err) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
	if err := l.UpdateField(ctx, id+99, api.Patch{"stage": "active"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := e.srv.Calls(http.MethodPatch, api.ItemPath(api.PathClients, id)); n != 0 {
		t.Fatalf("rejected patch reached the server")
	}
}

func TestList_RemoveRequiresConfirmation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	id := e.seedClient(t, "Acme", model.StageLead)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var prompt string
	err := l.Remove(ctx, id, func(p string) bool { prompt = p; return false })
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if prompt != `Delete client "Acme"?` {
		t.Fatalf("prompt = %q", prompt)
	}
	if _, ok := l.Get(id); !ok {
		t.Fatalf("declined delete removed the entry")
	}
	if n := e.srv.Calls(http.MethodDelete, api.ItemPath(api.PathClients, id)); n != 0 {
		t.Fatalf("declined delete reached the server")
	}

	if err := l.Remove(ctx, id, Yes); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(l.Items()) != 0 {
		t.Fatalf("items after delete = %v", l.Items())
	}
	if _, err := e.client.GetClient(ctx, id); !api.IsNotFound(err) {
		t.Fatalf("server still has client: %v", err)
	}
}

func TestList_RemoveFailureRestores(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	id := e.seedClient(t, "Acme", model.StageLead)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	e.srv.FailNext(http.MethodDelete, api.ItemPath(api.PathClients, id), http.StatusInternalServerError, "locked")
	if err := l.Remove(ctx, id, Yes); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := l.Get(id); !ok {
		t.Fatalf("entry not restored by reload after failed delete")
	}
}

func TestList_OnChangeFires(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	l := NewList[model.Client](e.client, ClientsConfig)
	defer l.Close()

	var n atomic.Int32
	l.OnChange(func() { n.Add(1) })
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// begin + finish
	if n.Load() < 2 {
		t.Fatalf("OnChange fired %d times", n.Load())
	}
}

func TestDetail_LoadsParentAndChildrenConcurrently(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cid := e.seedClient(t, "Acme", model.StageActive)
	other := e.seedClient(t, "Other", model.StageLead)
	for _, p := range []api.NewProject{{ClientID: cid, Name: "Site"}, {ClientID: other, Name: "Elsewhere"}} {
		if _, err := e.client.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
	}

	// Both requests must be in flight at the same time for this barrier to open.
	var mu sync.Mutex
	waiting := 0
	both := make(chan struct{})
	e.srv.SetHook(func(r *http.Request) {
		if r.Method != http.MethodGet {
			return
		}
		mu.Lock()
		waiting++
		if waiting == 2 {
			close(both)
		}
		mu.Unlock()
		select {
		case <-both:
		case <-time.After(2 * time.Second):
		}
	})

	d := NewClientDetail(e.client, cid)
	defer d.Close()
	start := time.Now()
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("parent and children were fetched sequentially")
	}
	e.srv.SetHook(nil)

	parent, ok := d.Parent()
	if !ok || parent.Name != "Acme" {
		t.Fatalf("parent = %#v ok=%v", parent, ok)
	}
	kids := d.Children.Items()
	if len(kids) != 1 || kids[0].Name != "Site" || kids[0].ClientID != cid {
		t.Fatalf("children = %#v", kids)
	}
}

func TestDetail_FailureCommitsNeither(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cid := e.seedClient(t, "Acme", model.StageActive)

	d := NewClientDetail(e.client, cid)
	defer d.Close()
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := e.client.CreateProject(ctx, api.NewProject{ClientID: cid, Name: "Site"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	e.srv.FailNext(http.MethodGet, api.ItemPath(api.PathClients, cid), http.StatusBadGateway, "upstream down")
	if err := d.Load(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if len(d.Children.Items()) != 0 {
		t.Fatalf("children committed although the parent fetch failed: %v", d.Children.Items())
	}
	if d.Err() != "upstream down" || d.Loading() || d.Children.Loading() {
		t.Fatalf("err=%q loading=%v/%v", d.Err(), d.Loading(), d.Children.Loading())
	}
}

func TestDetail_ChildCreateInjectsParent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cid := e.seedClient(t, "Acme", model.StageActive)

	d := NewClientDetail(e.client, cid)
	defer d.Close()
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	pid, err := d.Children.Create(ctx, Fields{"name": "Site", "due_date": "2025-03-01"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p, ok := d.Children.Get(pid)
	if !ok || p.ClientID != cid || p.Status != model.ProjectActive || model.DateString(p.DueDate) != "2025-03-01" {
		t.Fatalf("created project = %#v ok=%v", p, ok)
	}
	// The child reload is the detail reload: parent re-fetched too.
	if n := e.srv.Calls(http.MethodGet, api.ItemPath(api.PathClients, cid)); n != 2 {
		t.Fatalf("parent fetches = %d, want 2", n)
	}
}

func TestDetail_DeleteProjectEmptiesClientChildren(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cid := e.seedClient(t, "Acme", model.StageActive)
	pid, err := e.client.CreateProject(ctx, api.NewProject{ClientID: cid, Name: "Site"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	for _, title := range []string{"Wireframes", "Copy"} {
		if _, err := e.client.CreateTask(ctx, api.NewTask{ProjectID: pid, Title: title}); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	d := NewClientDetail(e.client, cid)
	defer d.Close()
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.Children.Items()) != 1 {
		t.Fatalf("expected one project")
	}
	if err := d.Children.Remove(ctx, pid, Yes); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.Children.Items()) != 0 {
		t.Fatalf("children after delete = %v", d.Children.Items())
	}
	tasks, err := e.client.ListTasks(ctx, pid)
	if err != nil || len(tasks) != 0 {
		t.Fatalf("tasks survived project delete: %v %v", tasks, err)
	}
}

func TestDetail_ProjectTasksAndParentUpdate(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cid := e.seedClient(t, "Acme", model.StageActive)
	pid, err := e.client.CreateProject(ctx, api.NewProject{ClientID: cid, Name: "Site"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	d := NewProjectDetail(e.client, pid)
	defer d.Close()
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tid, err := d.Children.Create(ctx, Fields{"title": "Wireframes", "notes": "- home"})
	if err != nil {
		t.Fatalf("Create task: %v", err)
	}
	if err := d.Children.UpdateField(ctx, tid, api.Patch{"status": model.TaskDoing}); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if task, _ := d.Children.Get(tid); task.Status != model.TaskDoing || task.ProjectID != pid {
		t.Fatalf("task = %#v", task)
	}

	if err := d.UpdateParent(ctx, api.Patch{"status": "completed"}); err != nil {
		t.Fatalf("UpdateParent: %v", err)
	}
	if p, _ := d.Parent(); p.Status != model.ProjectCompleted {
		t.Fatalf("parent status = %q", p.Status)
	}
	got, err := e.client.GetProject(ctx, pid)
	if err != nil || got.Status != model.ProjectCompleted {
		t.Fatalf("server project = %#v %v", got, err)
	}
}

func TestDetail_ChildUpdateFailureReloadsDetail(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cid := e.seedClient(t, "Acme", model.StageActive)
	pid, err := e.client.CreateProject(ctx, api.NewProject{ClientID: cid, Name: "Site"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	d := NewClientDetail(e.client, cid)
	defer d.Close()
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	parentPath := api.ItemPath(api.PathClients, cid)
	before := e.srv.Calls(http.MethodGet, parentPath)

	e.srv.FailNext(http.MethodPatch, api.ItemPath(api.PathProjects, pid), http.StatusInternalServerError, "boom")
	err = d.Children.UpdateField(ctx, pid, api.Patch{"status": "completed"})
	if api.StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if p, _ := d.Children.Get(pid); p.Status != model.ProjectActive {
		t.Fatalf("status = %q after failed update, want reloaded active", p.Status)
	}
	if n := e.srv.Calls(http.MethodGet, parentPath); n != before+1 {
		t.Fatalf("parent fetches = %d, want %d (recovery reloads the whole detail)", n, before+1)
	}
	if got := d.Children.Err(); got != "boom" {
		t.Fatalf("Children.Err() = %q", got)
	}
}

func TestDetail_ChildRemoveFailureRestores(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cid := e.seedClient(t, "Acme", model.StageActive)
	pid, err := e.client.CreateProject(ctx, api.NewProject{ClientID: cid, Name: "Site"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	d := NewClientDetail(e.client, cid)
	defer d.Close()
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.srv.FailNext(http.MethodDelete, api.ItemPath(api.PathProjects, pid), http.StatusInternalServerError, "locked")
	if err := d.Children.Remove(ctx, pid, Yes); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := d.Children.Get(pid); !ok {
		t.Fatalf("project not restored after failed delete")
	}
	if got := d.Children.Err(); got != "locked" {
		t.Fatalf("Children.Err() = %q", got)
	}
}

func TestDetail_UpdateParentFailureReloads(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	cid := e.seedClient(t, "Acme", model.StageActive)

	d := NewClientDetail(e.client, cid)
	defer d.Close()
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	parentPath := api.ItemPath(api.PathClients, cid)
	before := e.srv.Calls(http.MethodGet, parentPath)

	e.srv.FailNext(http.MethodPatch, parentPath, http.StatusInternalServerError, "nope")
	if err := d.UpdateParent(ctx, api.Patch{"stage": "archived"}); api.StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if c, _ := d.Parent(); c.Stage != model.StageActive {
		t.Fatalf("stage = %q after failed update, want reloaded active", c.Stage)
	}
	if n := e.srv.Calls(http.MethodGet, parentPath); n != before+1 {
		t.Fatalf("parent fetches = %d, want %d", n, before+1)
	}
	if got := d.Err(); got != "nope" {
		t.Fatalf("Err() = %q", got)
	}
}
