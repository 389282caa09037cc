package model

import (
	"fmt"
	"strings"
)

// Stage is a client's position in the sales pipeline.
// Transitions are unconstrained: any stage may follow any other.
type Stage string

const (
	StageLead     Stage = "lead"
	StageProspect Stage = "prospect"
	StageActive   Stage = "active"
	StageArchived Stage = "archived"
)

// Stages lists pipeline stages in display order.
var Stages = []Stage{StageLead, StageProspect, StageActive, StageArchived}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

var ProjectStatuses = []ProjectStatus{ProjectActive, ProjectCompleted, ProjectArchived}

type TaskStatus string

const (
	TaskTodo  TaskStatus = "todo"
	TaskDoing TaskStatus = "doing"
	TaskDone  TaskStatus = "done"
)

var TaskStatuses = []TaskStatus{TaskTodo, TaskDoing, TaskDone}

func (s Stage) Valid() bool         { return indexOf(Stages, s) >= 0 }
func (s ProjectStatus) Valid() bool { return indexOf(ProjectStatuses, s) >= 0 }
func (s TaskStatus) Valid() bool    { return indexOf(TaskStatuses, s) >= 0 }

func (s Stage) Next() Stage                 { return cycle(Stages, s, 1) }
func (s Stage) Prev() Stage                 { return cycle(Stages, s, -1) }
func (s ProjectStatus) Next() ProjectStatus { return cycle(ProjectStatuses, s, 1) }
func (s ProjectStatus) Prev() ProjectStatus { return cycle(ProjectStatuses, s, -1) }
func (s TaskStatus) Next() TaskStatus       { return cycle(TaskStatuses, s, 1) }
func (s TaskStatus) Prev() TaskStatus       { return cycle(TaskStatuses, s, -1) }

func ParseStage(s string) (Stage, error) {
	return parseEnum(Stages, "stage", s)
}

func ParseProjectStatus(s string) (ProjectStatus, error) {
	return parseEnum(ProjectStatuses, "project status", s)
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	return parseEnum(TaskStatuses, "task status", s)
}

// EnumValues returns the string form of an enumeration, for validation tables and UI pickers.
func EnumValues[E ~string](vals []E) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

func parseEnum[E ~string](vals []E, kind, s string) (E, error) {
	v := E(strings.ToLower(strings.TrimSpace(s)))
	if indexOf(vals, v) < 0 {
		return "", fmt.Errorf("invalid %s %q (want one of: %s)", kind, s, strings.Join(EnumValues(vals), ", "))
	}
	return v, nil
}

func indexOf[E comparable](vals []E, v E) int {
	for i, x := range vals {
		if x == v {
			return i
		}
	}
	return -1
}

// cycle steps through vals; an unknown value starts from the first entry.
func cycle[E comparable](vals []E, v E, step int) E {
	i := indexOf(vals, v)
	if i < 0 {
		return vals[0]
	}
	n := len(vals)
	return vals[((i+step)%n+n)%n]
}
