package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) (int, map[string]any, []any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var obj map[string]any
	var arr []any
	raw := rec.Body.Bytes()
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '[' {
		_ = json.Unmarshal(raw, &arr)
	} else {
		_ = json.Unmarshal(raw, &obj)
	}
	return rec.Code, obj, arr
}

func register(t *testing.T, s *Server, email string) string {
	t.Helper()
	code, obj, _ := doJSON(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "pw"})
	if code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", email, code, obj)
	}
	tok, _ := obj["access_token"].(string)
	if tok == "" {
		t.Fatalf("register: missing access_token in %v", obj)
	}
	return tok
}

func TestRegisterLoginMe(t *testing.T) {
	t.Parallel()
	s := New(Options{BcryptCost: bcrypt.MinCost})

	tok := register(t, s, " A@B.com ")

	code, obj, _ := doJSON(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@b.com", "password": "x"})
	if code != http.StatusConflict {
		t.Fatalf("duplicate register: got %d %v", code, obj)
	}

	code, obj, _ = doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.com", "password": "wrong"})
	if code != http.StatusUnauthorized {
		t.Fatalf("bad login: got %d", code)
	}
	if msg := obj["error"].(map[string]any)["message"]; msg != "invalid credentials" {
		t.Fatalf("bad login message: %v", msg)
	}

	code, obj, _ = doJSON(t, s, http.MethodGet, "/api/auth/me", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("me: got %d %v", code, obj)
	}
	if email := obj["user"].(map[string]any)["email"]; email != "a@b.com" {
		t.Fatalf("me email = %v", email)
	}

	if code, _, _ := doJSON(t, s, http.MethodGet, "/api/auth/me", "garbage", nil); code != http.StatusUnauthorized {
		t.Fatalf("me with bad token: got %d", code)
	}
}

func TestClientsAreOwnerScopedAndFiltered(t *testing.T) {
	t.Parallel()
	s := New(Options{BcryptCost: bcrypt.MinCost})
	alice := register(t, s, "alice@example.com")
	bob := register(t, s, "bob@example.com")

	for _, c := range []map[string]any{
		{"name": "Zeta", "company": "Initech"},
		{"name": "Acme", "stage": "active", "next_action_date": "2025-02-01"},
		{"name": "Beta", "email": "beta@initech.io", "next_action_date": "2025-01-01"},
	} {
		if code, obj, _ := doJSON(t, s, http.MethodPost, "/api/clients/", alice, c); code != http.StatusCreated {
			t.Fatalf("create %v: %d %v", c, code, obj)
		}
	}
	if code, _, _ := doJSON(t, s, http.MethodPost, "/api/clients/", bob, map[string]any{"name": "Bob's"}); code != http.StatusCreated {
		t.Fatalf("bob create failed")
	}

	_, _, all := doJSON(t, s, http.MethodGet, "/api/clients/", alice, nil)
	var names []string
	for _, it := range all {
		names = append(names, it.(map[string]any)["name"].(string))
	}
	want := []string{"Beta", "Acme", "Zeta"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}

	_, _, hits := doJSON(t, s, http.MethodGet, "/api/clients/?q=INITECH", alice, nil)
	if len(hits) != 2 {
		t.Fatalf("q=initech: got %d hits", len(hits))
	}
	_, _, active := doJSON(t, s, http.MethodGet, "/api/clients/?stage=active", alice, nil)
	if len(active) != 1 {
		t.Fatalf("stage=active: got %d", len(active))
	}

	if code, _, _ := doJSON(t, s, http.MethodGet, "/api/clients/4", alice, nil); code != http.StatusNotFound {
		t.Fatalf("alice reading bob's client: got %d", code)
	}
}

func TestDeleteClientCascades(t *testing.T) {
	t.Parallel()
	s := New(Options{BcryptCost: bcrypt.MinCost})
	tok := register(t, s, "a@b.com")

	_, c, _ := doJSON(t, s, http.MethodPost, "/api/clients/", tok, map[string]any{"name": "Acme"})
	cid := c["id"]
	_, p, _ := doJSON(t, s, http.MethodPost, "/api/projects/", tok, map[string]any{"name": "Site", "client_id": cid})
	if code, obj, _ := doJSON(t, s, http.MethodPost, "/api/tasks/", tok, map[string]any{"title": "Design", "project_id": p["id"]}); code != http.StatusCreated {
		t.Fatalf("create task: %d %v", code, obj)
	}

	if code, _, _ := doJSON(t, s, http.MethodDelete, "/api/clients/1", tok, nil); code != http.StatusOK {
		t.Fatalf("delete client: %d", code)
	}
	if _, _, tasks := doJSON(t, s, http.MethodGet, "/api/tasks/", tok, nil); len(tasks) != 0 {
		t.Fatalf("expected tasks to cascade, got %v", tasks)
	}
	if _, _, projects := doJSON(t, s, http.MethodGet, "/api/projects/", tok, nil); len(projects) != 0 {
		t.Fatalf("expected projects to cascade, got %v", projects)
	}
}

func TestFailNextAndCalls(t *testing.T) {
	t.Parallel()
	s := New(Options{BcryptCost: bcrypt.MinCost})
	tok := register(t, s, "a@b.com")

	s.FailNext(http.MethodGet, "/clients/", http.StatusInternalServerError, "boom")
	code, obj, _ := doJSON(t, s, http.MethodGet, "/api/clients/", tok, nil)
	if code != http.StatusInternalServerError || obj["error"].(map[string]any)["message"] != "boom" {
		t.Fatalf("injected failure: %d %v", code, obj)
	}
	if code, _, _ := doJSON(t, s, http.MethodGet, "/api/clients/", tok, nil); code != http.StatusOK {
		t.Fatalf("second call should succeed; got %d", code)
	}
	if n := s.Calls(http.MethodGet, "/clients/"); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestNoProjectReadAnswers405(t *testing.T) {
	t.Parallel()
	s := New(Options{BcryptCost: bcrypt.MinCost, NoProjectRead: true})
	tok := register(t, s, "a@b.com")
	if code, _, _ := doJSON(t, s, http.MethodGet, "/api/projects/1", tok, nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /projects/1: got %d, want 405", code)
	}
}
