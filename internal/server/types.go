package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/josephgoksu/tasksense/models"
)

// taskView is a task plus the denormalized and derived read-only fields the
// frontend expects on every task payload.
type taskView struct {
	models.Task
	CategoryName  string `json:"category_name,omitempty"`
	CategoryColor string `json:"category_color,omitempty"`
	IsOverdue     bool   `json:"is_overdue"`
	DaysUntilDue  *int   `json:"days_until_due,omitempty"`
}

type categoryView struct {
	models.Category
	TaskCount int `json:"task_count"`
}

type contextView struct {
	models.ContextEntry
	RelatedTasksCount int `json:"related_tasks_count"`
}

func newTaskView(t models.Task, cats map[string]models.Category, now time.Time) taskView {
	v := taskView{
		Task:         t,
		IsOverdue:    t.IsOverdue(now),
		DaysUntilDue: t.DaysUntilDue(now),
	}
	if t.CategoryID != nil {
		if c, ok := cats[*t.CategoryID]; ok {
			v.CategoryName = c.Name
			v.CategoryColor = c.Color
		}
	}
	return v
}

// categoryIndex loads all categories keyed by id for denormalizing task
// payloads. Failures degrade to missing category fields rather than a
// request error.
func (s *Server) categoryIndex() map[string]models.Category {
	index := map[string]models.Category{}
	cats, err := s.store.ListCategories()
	if err != nil {
		fmt.Printf("[API] category index failed: %v\n", err)
		return index
	}
	for _, c := range cats {
		index[c.ID] = c
	}
	return index
}

func (s *Server) taskViews(tasks []models.Task) []taskView {
	cats := s.categoryIndex()
	now := time.Now().UTC()
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t, cats, now))
	}
	return views
}

func (s *Server) taskViewOf(t models.Task) taskView {
	return newTaskView(t, s.categoryIndex(), time.Now().UTC())
}

func (s *Server) categoryViewOf(c models.Category) categoryView {
	count, err := s.store.CategoryTaskCount(c.ID)
	if err != nil {
		fmt.Printf("[API] category task count failed: %v\n", err)
	}
	return categoryView{Category: c, TaskCount: count}
}

func (s *Server) contextViewOf(e models.ContextEntry) contextView {
	count, err := s.store.RelatedTaskCount(e.ID)
	if err != nil {
		fmt.Printf("[API] related task count failed: %v\n", err)
	}
	return contextView{ContextEntry: e, RelatedTasksCount: count}
}

// queryBoolPtr parses an optional true/false query parameter.
func queryBoolPtr(r *http.Request, name string) *bool {
	switch r.URL.Query().Get(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}
