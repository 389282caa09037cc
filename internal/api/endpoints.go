package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"freelanceflow/internal/model"
)

const (
	PathRegister = "/auth/register"
	PathLogin    = "/auth/login"
	PathMe       = "/auth/me"
	PathClients  = "/clients/"
	PathProjects = "/projects/"
	PathTasks    = "/tasks/"
)

// ItemPath joins a collection path ("/clients/") and an id ("/clients/7").
func ItemPath(collection string, id int64) string {
	return collection + strconv.FormatInt(id, 10)
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	User         model.User `json:"user"`
}

// Created is the body returned by create endpoints.
type Created struct {
	ID int64 `json:"id"`
}

// Patch is a partial update body; only the present keys change.
type Patch map[string]any

type ClientFilter struct {
	Q     string
	Stage model.Stage
}

func (f ClientFilter) values() url.Values {
	v := url.Values{}
	if f.Q != "" {
		v.Set("q", f.Q)
	}
	if f.Stage != "" {
		v.Set("stage", string(f.Stage))
	}
	return v
}

type NewClient struct {
	Name           string      `json:"name"`
	Email          *string     `json:"email"`
	Company        *string     `json:"company"`
	Stage          model.Stage `json:"stage"`
	NextActionDate *model.Date `json:"next_action_date"`
}

type NewProject struct {
	ClientID int64               `json:"client_id"`
	Name     string              `json:"name"`
	Status   model.ProjectStatus `json:"status"`
	DueDate  *model.Date         `json:"due_date"`
}

type NewTask struct {
	ProjectID int64            `json:"project_id"`
	Title     string           `json:"title"`
	Status    model.TaskStatus `json:"status"`
	DueDate   *model.Date      `json:"due_date"`
	Notes     *string          `json:"notes"`
}

func (c *Client) Register(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.Do(ctx, http.MethodPost, PathRegister, Request{Body: Credentials{Email: email, Password: password}, Public: true}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.Do(ctx, http.MethodPost, PathLogin, Request{Body: Credentials{Email: email, Password: password}, Public: true}, &out)
	return out, err
}

// Me resolves the user behind the current credential.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	err := c.Do(ctx, http.MethodGet, PathMe, Request{}, &out)
	return out.User, err
}

func (c *Client) ListClients(ctx context.Context, f ClientFilter) ([]model.Client, error) {
	out := []model.Client{}
	err := c.Do(ctx, http.MethodGet, PathClients, Request{Query: f.values()}, &out)
	return out, err
}

func (c *Client) GetClient(ctx context.Context, id int64) (model.Client, error) {
	var out model.Client
	err := c.Do(ctx, http.MethodGet, ItemPath(PathClients, id), Request{}, &out)
	return out, err
}

func (c *Client) CreateClient(ctx context.Context, in NewClient) (int64, error) {
	var out Created
	err := c.Do(ctx, http.MethodPost, PathClients, Request{Body: in}, &out)
	return out.ID, err
}

func (c *Client) UpdateClient(ctx context.Context, id int64, p Patch) error {
	return c.Do(ctx, http.MethodPatch, ItemPath(PathClients, id), Request{Body: p}, nil)
}

func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, ItemPath(PathClients, id), Request{}, nil)
}

// ListProjects lists projects, optionally scoped to one client (clientID > 0).
func (c *Client) ListProjects(ctx context.Context, clientID int64) ([]model.Project, error) {
	q := url.Values{}
	if clientID > 0 {
		q.Set("client_id", strconv.FormatInt(clientID, 10))
	}
	out := []model.Project{}
	err := c.Do(ctx, http.MethodGet, PathProjects, Request{Query: q}, &out)
	return out, err
}

// GetProject reads one project. Servers without a single-project route answer
// 404/405; in that case the project is picked out of the full list.
func (c *Client) GetProject(ctx context.Context, id int64) (model.Project, error) {
	var out model.Project
	err := c.Do(ctx, http.MethodGet, ItemPath(PathProjects, id), Request{}, &out)
	if err == nil {
		return out, nil
	}
	if st := StatusOf(err); st != http.StatusNotFound && st != http.StatusMethodNotAllowed {
		return out, err
	}
	all, listErr := c.ListProjects(ctx, 0)
	if listErr != nil {
		return out, errors.Join(err, listErr)
	}
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return out, &Error{
		Method:  http.MethodGet,
		Path:    ItemPath(PathProjects, id),
		Status:  http.StatusNotFound,
		Message: "project not found",
	}
}

func (c *Client) CreateProject(ctx context.Context, in NewProject) (int64, error) {
	if in.ClientID <= 0 {
		return 0, fmt.Errorf("create project: client id is required")
	}
	var out Created
	err := c.Do(ctx, http.MethodPost, PathProjects, Request{Body: in}, &out)
	return out.ID, err
}

func (c *Client) UpdateProject(ctx context.Context, id int64, p Patch) error {
	return c.Do(ctx, http.MethodPatch, ItemPath(PathProjects, id), Request{Body: p}, nil)
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, ItemPath(PathProjects, id), Request{}, nil)
}

// ListTasks lists tasks, optionally scoped to one project (projectID > 0).
func (c *Client) ListTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	q := url.Values{}
	if projectID > 0 {
		q.Set("project_id", strconv.FormatInt(projectID, 10))
	}
	out := []model.Task{}
	err := c.Do(ctx, http.MethodGet, PathTasks, Request{Query: q}, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, in NewTask) (int64, error) {
	if in.ProjectID <= 0 {
		return 0, fmt.Errorf("create task: project id is required")
	}
	var out Created
	err := c.Do(ctx, http.MethodPost, PathTasks, Request{Body: in}, &out)
	return out.ID, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, p Patch) error {
	return c.Do(ctx, http.MethodPatch, ItemPath(PathTasks, id), Request{Body: p}, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, ItemPath(PathTasks, id), Request{}, nil)
}
