package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/josephgoksu/tasksense/models"
	"github.com/josephgoksu/tasksense/store"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.TaskFilter{
		Status:     models.TaskStatus(q.Get("status")),
		Priority:   models.TaskPriority(q.Get("priority")),
		CategoryID: q.Get("category"),
		AIEnhanced: queryBoolPtr(r, "ai_enhanced"),
		Search:     q.Get("search"),
		OrderBy:    q.Get("ordering"),
	}

	tasks, err := s.store.ListTasks(filter)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, s.taskViews(tasks))
}

// taskCreateRequest is the write shape for POST /api/tasks. A category is
// referenced by name and created on the fly when missing.
type taskCreateRequest struct {
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Priority              string     `json:"priority"`
	Status                string     `json:"status"`
	CategoryName          string     `json:"category_name"`
	DueDate               *time.Time `json:"due_date"`
	Tags                  []string   `json:"tags"`
	EstimatedDuration     *int       `json:"estimated_duration"`
	AIEnhancedDescription string     `json:"ai_enhanced_description"`
	AIEstimatedDuration   string     `json:"ai_estimated_duration"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task := models.NewTask(req.Title)
	task.Description = req.Description
	if req.Priority != "" {
		task.Priority = models.TaskPriority(req.Priority)
	}
	if req.Status != "" {
		task.Status = models.TaskStatus(req.Status)
	}
	task.DueDate = req.DueDate
	task.Tags = req.Tags
	task.EstimatedDuration = req.EstimatedDuration
	task.AIEnhancedDescription = req.AIEnhancedDescription
	task.AIEstimatedDuration = req.AIEstimatedDuration

	if req.CategoryName != "" {
		category, err := s.store.GetOrCreateCategory(req.CategoryName)
		if err != nil {
			writeAPIError(w, http.StatusInternalServerError, err.Error())
			return
		}
		task.CategoryID = &category.ID
	}

	created, err := s.store.CreateTask(*task)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}

	fmt.Printf("[API] Created task: %s\n", created.Title)
	writeAPIStatus(w, http.StatusCreated, s.taskViewOf(created))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "task not found")
		return
	}
	writeAPIJSON(w, s.taskViewOf(task))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Category is referenced by name in write payloads. An empty name clears
	// the link; a new name creates the category.
	if raw, ok := updates["category_name"]; ok {
		delete(updates, "category_name")
		name, _ := raw.(string)
		if name != "" {
			category, err := s.store.GetOrCreateCategory(name)
			if err != nil {
				writeAPIError(w, http.StatusInternalServerError, err.Error())
				return
			}
			updates["category"] = category.ID
		} else {
			updates["category"] = nil
		}
	}

	task, err := s.store.UpdateTask(r.PathValue("id"), updates)
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		writeAPIError(w, http.StatusNotFound, "task not found")
		return
	case errors.Is(err, store.ErrInvalidField):
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	fmt.Printf("[API] Updated task: %s\n", task.Title)
	writeAPIJSON(w, s.taskViewOf(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.PathValue("id")); err != nil {
		writeAPIError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleTaskStatus flips a task between completed and pending. Any
// non-completed status toggles to completed.
func (s *Server) handleToggleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.PathValue("id"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "task not found")
		return
	}

	if task.Status == models.StatusCompleted {
		task.Status = models.StatusPending
	} else {
		task.Status = models.StatusCompleted
	}

	saved, err := s.store.SaveTask(task)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, s.taskViewOf(saved))
}

type bulkUpdateRequest struct {
	TaskIDs    []string       `json:"task_ids"`
	UpdateData map[string]any `json:"update_data"`
}

func (s *Server) handleBulkUpdateTasks(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.TaskIDs) == 0 {
		writeAPIError(w, http.StatusBadRequest, "task_ids is required")
		return
	}

	if raw, ok := req.UpdateData["category"]; ok {
		name, _ := raw.(string)
		if name != "" {
			category, err := s.store.GetOrCreateCategory(name)
			if err != nil {
				writeAPIError(w, http.StatusInternalServerError, err.Error())
				return
			}
			req.UpdateData["category"] = category.ID
		} else {
			req.UpdateData["category"] = nil
		}
	}

	count, err := s.store.BulkUpdateTasks(req.TaskIDs, req.UpdateData)
	if errors.Is(err, store.ErrInvalidField) {
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeAPIJSON(w, map[string]any{
		"message":       fmt.Sprintf("Updated %d tasks", count),
		"updated_count": count,
	})
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.TaskStats(time.Now().UTC())
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, stats)
}

func (s *Server) handleTasksToday(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	tasks, err := s.store.ListTasks(store.TaskFilter{
		Today:   &now,
		OrderBy: "-priority_score",
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, s.taskViews(tasks))
}

func (s *Server) handleTasksUpcoming(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	weekLater := now.Add(7 * 24 * time.Hour)
	tasks, err := s.store.ListTasks(store.TaskFilter{
		DueAfter:  &now,
		DueBefore: &weekLater,
		Statuses:  []models.TaskStatus{models.StatusPending, models.StatusInProgress},
		OrderBy:   "due_date",
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, s.taskViews(tasks))
}

func (s *Server) handleTasksOverdue(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	tasks, err := s.store.ListTasks(store.TaskFilter{
		DueBefore: &now,
		Statuses:  []models.TaskStatus{models.StatusPending, models.StatusInProgress},
		OrderBy:   "due_date",
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAPIJSON(w, s.taskViews(tasks))
}
