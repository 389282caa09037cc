package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"freelanceflow/internal/model"

	"github.com/gorilla/mux"
)

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// optionalString reads a nullable string field: blank and null both mean "unset".
func optionalString(data map[string]any, key string) *string {
	return model.StrPtr(strings.TrimSpace(stringField(data, key)))
}

func intField(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	default:
		return 0
	}
}

func dateField(data map[string]any, key string) (*model.Date, error) {
	raw := strings.TrimSpace(stringField(data, key))
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be ISO date", key)
	}
	return &d, nil
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func queryID(r *http.Request, key string) int64 {
	id, _ := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(key)), 10, 64)
	return id
}

// dateLess orders dates ascending with nil last.
func dateLess(a, b *model.Date) (less bool, decided bool) {
	switch {
	case a == nil && b == nil:
		return false, false
	case a == nil:
		return false, true
	case b == nil:
		return true, true
	case !a.Equal(b.Time):
		return a.Before(b.Time), true
	default:
		return false, false
	}
}

func containsFold(s *string, q string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), q)
}

// --- clients ---

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	stage := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("stage")))

	s.mu.Lock()
	out := []model.Client{}
	for _, c := range s.clients {
		if c.owner != uid {
			continue
		}
		if q != "" && !containsFold(&c.Name, q) && !containsFold(c.Email, q) && !containsFold(c.Company, q) {
			continue
		}
		if stage != "" && string(c.Stage) != stage {
			continue
		}
		out = append(out, c.Client)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if less, ok := dateLess(out[i].NextActionDate, out[j].NextActionDate); ok {
			return less
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ownedClient(r *http.Request, id int64) (*clientRow, bool) {
	c, ok := s.clients[id]
	if !ok || c.owner != userID(r) {
		return nil, false
	}
	return c, true
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c, ok := s.ownedClient(r, pathID(r))
	var out model.Client
	if ok {
		out = c.Client
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := strings.TrimSpace(stringField(data, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	nad, err := dateField(data, "next_action_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stage := model.StageLead
	if raw := strings.TrimSpace(stringField(data, "stage")); raw != "" {
		if stage, err = model.ParseStage(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.mu.Lock()
	c := &clientRow{owner: userID(r), Client: model.Client{
		ID:             s.allocID("clients"),
		Name:           name,
		Email:          optionalString(data, "email"),
		Company:        optionalString(data, "company"),
		Stage:          stage,
		NextActionDate: nad,
	}}
	s.clients[c.ID] = c
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]int64{"id": c.ID})
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.ownedClient(r, pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	next := c.Client
	if _, ok := data["name"]; ok {
		name := strings.TrimSpace(stringField(data, "name"))
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		next.Name = name
	}
	if _, ok := data["email"]; ok {
		next.Email = optionalString(data, "email")
	}
	if _, ok := data["company"]; ok {
		next.Company = optionalString(data, "company")
	}
	if _, ok := data["stage"]; ok {
		stage, err := model.ParseStage(stringField(data, "stage"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.Stage = stage
	}
	if _, ok := data["next_action_date"]; ok {
		nad, err := dateField(data, "next_action_date")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.NextActionDate = nad
	}
	c.Client = next
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.ownedClient(r, pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	for pid, p := range s.projects {
		if p.ClientID == c.ID {
			s.deleteProjectLocked(pid)
		}
	}
	delete(s.clients, c.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- projects ---

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	clientID := queryID(r, "client_id")

	s.mu.Lock()
	out := []model.Project{}
	for _, p := range s.projects {
		if p.owner != uid || (clientID > 0 && p.ClientID != clientID) {
			continue
		}
		out = append(out, p.Project)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if less, ok := dateLess(out[i].DueDate, out[j].DueDate); ok {
			return less
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ownedProject(r *http.Request, id int64) (*projectRow, bool) {
	p, ok := s.projects[id]
	if !ok || p.owner != userID(r) {
		return nil, false
	}
	return p, true
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.ownedProject(r, pathID(r))
	var out model.Project
	if ok {
		out = p.Project
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := strings.TrimSpace(stringField(data, "name"))
	clientID := intField(data, "client_id")
	if name == "" || clientID <= 0 {
		writeError(w, http.StatusBadRequest, "name and client_id are required")
		return
	}
	due, err := dateField(data, "due_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := model.ProjectActive
	if raw := strings.TrimSpace(stringField(data, "status")); raw != "" {
		if status, err = model.ParseProjectStatus(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedClient(r, clientID); !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	p := &projectRow{owner: userID(r), Project: model.Project{
		ID:       s.allocID("projects"),
		ClientID: clientID,
		Name:     name,
		Status:   status,
		DueDate:  due,
	}}
	s.projects[p.ID] = p
	writeJSON(w, http.StatusCreated, map[string]int64{"id": p.ID})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ownedProject(r, pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	next := p.Project
	if _, ok := data["name"]; ok {
		name := strings.TrimSpace(stringField(data, "name"))
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		next.Name = name
	}
	if _, ok := data["status"]; ok {
		st, err := model.ParseProjectStatus(stringField(data, "status"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.Status = st
	}
	if _, ok := data["due_date"]; ok {
		due, err := dateField(data, "due_date")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.DueDate = due
	}
	p.Project = next
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ownedProject(r, pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	s.deleteProjectLocked(p.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// deleteProjectLocked removes a project and its tasks. Caller holds s.mu.
func (s *Server) deleteProjectLocked(id int64) {
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	delete(s.projects, id)
}

// --- tasks ---

var taskStatusOrder = map[model.TaskStatus]int{model.TaskTodo: 0, model.TaskDoing: 1}

func taskRank(s model.TaskStatus) int {
	if r, ok := taskStatusOrder[s]; ok {
		return r
	}
	return 2
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	projectID := queryID(r, "project_id")

	s.mu.Lock()
	out := []model.Task{}
	for _, t := range s.tasks {
		if t.owner != uid || (projectID > 0 && t.ProjectID != projectID) {
			continue
		}
		out = append(out, t.Task)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if ri, rj := taskRank(out[i].Status), taskRank(out[j].Status); ri != rj {
			return ri < rj
		}
		if less, ok := dateLess(out[i].DueDate, out[j].DueDate); ok {
			return less
		}
		return out[i].ID > out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ownedTask(r *http.Request, id int64) (*taskRow, bool) {
	t, ok := s.tasks[id]
	if !ok || t.owner != userID(r) {
		return nil, false
	}
	return t, true
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	title := strings.TrimSpace(stringField(data, "title"))
	projectID := intField(data, "project_id")
	if title == "" || projectID <= 0 {
		writeError(w, http.StatusBadRequest, "title and project_id are required")
		return
	}
	due, err := dateField(data, "due_date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := model.TaskTodo
	if raw := strings.TrimSpace(stringField(data, "status")); raw != "" {
		if status, err = model.ParseTaskStatus(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedProject(r, projectID); !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	t := &taskRow{owner: userID(r), Task: model.Task{
		ID:        s.allocID("tasks"),
		ProjectID: projectID,
		Title:     title,
		Status:    status,
		DueDate:   due,
		Notes:     optionalString(data, "notes"),
	}}
	s.tasks[t.ID] = t
	writeJSON(w, http.StatusCreated, map[string]int64{"id": t.ID})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	data, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ownedTask(r, pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	next := t.Task
	if _, ok := data["title"]; ok {
		title := strings.TrimSpace(stringField(data, "title"))
		if title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		next.Title = title
	}
	if _, ok := data["status"]; ok {
		st, err := model.ParseTaskStatus(stringField(data, "status"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.Status = st
	}
	if _, ok := data["notes"]; ok {
		next.Notes = optionalString(data, "notes")
	}
	if _, ok := data["due_date"]; ok {
		due, err := dateField(data, "due_date")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.DueDate = due
	}
	t.Task = next
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ownedTask(r, pathID(r))
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	delete(s.tasks, t.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
