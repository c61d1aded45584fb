package export

import (
	"context"

	"github.com/sadopc/focus/internal/store"
)

// Catalog lists the tasks and projects session logs refer to.
type Catalog interface {
	ListTasks(ctx context.Context, projectID *int64, includeArchived bool) ([]store.Task, error)
	ListProjects(ctx context.Context, includeArchived bool) ([]store.Project, error)
}

// Refs resolves the task and project names of a session log.
type Refs struct {
	Tasks    map[int64]*store.Task
	Projects map[int64]*store.Project
}

// LoadRefs reads every task and project, archived ones included.
func LoadRefs(ctx context.Context, c Catalog) (Refs, error) {
	refs := Refs{
		Tasks:    make(map[int64]*store.Task),
		Projects: make(map[int64]*store.Project),
	}
	tasks, err := c.ListTasks(ctx, nil, true)
	if err != nil {
		return refs, err
	}
	for i := range tasks {
		refs.Tasks[tasks[i].ID] = &tasks[i]
	}
	projects, err := c.ListProjects(ctx, true)
	if err != nil {
		return refs, err
	}
	for i := range projects {
		refs.Projects[projects[i].ID] = &projects[i]
	}
	return refs, nil
}

func (r Refs) names(l store.SessionLog) (task, project string) {
	if l.TaskID == nil {
		return "", ""
	}
	t, ok := r.Tasks[*l.TaskID]
	if !ok {
		return "Unknown", ""
	}
	if t.ProjectID != nil {
		if p, ok := r.Projects[*t.ProjectID]; ok {
			project = p.Name
		}
	}
	return t.Title, project
}
