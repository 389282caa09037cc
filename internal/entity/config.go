package entity

import (
	"slices"

	"freelanceflow/internal/api"
	"freelanceflow/internal/model"
)

// Config describes one remote collection for the generic controllers.
type Config struct {
	// Noun and Plural are used in prompts and error messages ("client", "clients").
	Noun   string
	Plural string

	// Path is the collection path; items live at Path+id.
	Path string

	// FilterKeys are the query parameters the list endpoint understands.
	FilterKeys []string

	// Required is the field that must be non-blank (also used as the display label).
	Required string

	// ParentKey pins child lists to a parent ("client_id"); empty for top-level lists.
	ParentKey string

	// Optional string fields turn into null when blank.
	Optional []string

	// Dates are YYYY-MM-DD fields; blank means null.
	Dates []string

	// Enums restricts fields to a closed set of values.
	Enums map[string][]string

	// Defaults fill fields missing from a create request.
	Defaults map[string]any
}

var ClientsConfig = Config{
	Noun:       "client",
	Plural:     "clients",
	Path:       api.PathClients,
	FilterKeys: []string{"q", "stage"},
	Required:   "name",
	Optional:   []string{"email", "company"},
	Dates:      []string{"next_action_date"},
	Enums:      map[string][]string{"stage": model.EnumValues(model.Stages)},
	Defaults:   map[string]any{"stage": string(model.StageLead)},
}

var ProjectsConfig = Config{
	Noun:       "project",
	Plural:     "projects",
	Path:       api.PathProjects,
	FilterKeys: []string{"client_id"},
	Required:   "name",
	ParentKey:  "client_id",
	Dates:      []string{"due_date"},
	Enums:      map[string][]string{"status": model.EnumValues(model.ProjectStatuses)},
	Defaults:   map[string]any{"status": string(model.ProjectActive)},
}

var TasksConfig = Config{
	Noun:       "task",
	Plural:     "tasks",
	Path:       api.PathTasks,
	FilterKeys: []string{"project_id"},
	Required:   "title",
	ParentKey:  "project_id",
	Optional:   []string{"notes"},
	Dates:      []string{"due_date"},
	Enums:      map[string][]string{"status": model.EnumValues(model.TaskStatuses)},
	Defaults:   map[string]any{"status": string(model.TaskTodo)},
}

func (c Config) isFilterKey(k string) bool { return slices.Contains(c.FilterKeys, k) }
func (c Config) isOptional(k string) bool  { return slices.Contains(c.Optional, k) }
func (c Config) isDate(k string) bool      { return slices.Contains(c.Dates, k) }
