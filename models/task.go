package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TaskStatus represents the possible statuses of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority represents the priority levels of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ValidPriority reports whether p is one of the four defined priority levels.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the four defined statuses.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Task represents a unit of work with its AI enrichment fields.
type Task struct {
	ID          string       `json:"id" validate:"omitempty,uuid4"`
	Title       string       `json:"title" validate:"required,max=200"`
	Description string       `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	Status      TaskStatus   `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
	CategoryID  *string      `json:"category,omitempty" validate:"omitempty,uuid4"`

	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// AI enhancement fields
	AIEnhanced            bool           `json:"ai_enhanced"`
	AIEnhancedDescription string         `json:"ai_enhanced_description,omitempty"`
	AIEstimatedDuration   string         `json:"ai_estimated_duration,omitempty"` // e.g. "2-3 hours"
	AISuggestedDeadline   *time.Time     `json:"ai_suggested_deadline,omitempty"`
	PriorityScore         float64        `json:"priority_score"` // 0-1 scale
	AIInsights            map[string]any `json:"ai_insights,omitempty"`

	Tags              []string `json:"tags,omitempty"`
	EstimatedDuration *int     `json:"estimated_duration,omitempty"` // minutes
	ActualDuration    *int     `json:"actual_duration,omitempty"`    // minutes
}

// NormalizeCompletion enforces the completion invariant: completed_at is set
// exactly when status is completed. The store calls this on every write.
func (t *Task) NormalizeCompletion(now time.Time) {
	if t.Status == StatusCompleted {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	} else {
		t.CompletedAt = nil
	}
}

// SetPriorityScore updates the AI-calculated priority score, clamped to [0,1].
// This is the only write path that clamps; raw field updates through the
// store's update map write the value as given.
func (t *Task) SetPriorityScore(score float64) {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	t.PriorityScore = score
}

// AddAIInsight records an AI insight on the task keyed by insight type.
func (t *Task) AddAIInsight(insightType string, data any, now time.Time) {
	if t.AIInsights == nil {
		t.AIInsights = map[string]any{}
	}
	t.AIInsights[insightType] = map[string]any{
		"data":      data,
		"timestamp": now.Format(time.RFC3339),
	}
}

// IsOverdue reports whether the task's due date has passed without completion.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate != nil && t.Status != StatusCompleted {
		return now.After(*t.DueDate)
	}
	return false
}

// DaysUntilDue returns the number of whole days until the due date, or nil
// when no due date is set. Negative when overdue.
func (t *Task) DaysUntilDue(now time.Time) *int {
	if t.DueDate == nil {
		return nil
	}
	days := int(t.DueDate.Sub(now).Hours() / 24)
	return &days
}

// NewTask creates a task with default status, priority and timestamps.
func NewTask(title string) *Task {
	now := time.Now().UTC()
	return &Task{
		Title:         title,
		Status:        StatusPending,
		Priority:      PriorityMedium,
		PriorityScore: 0.5,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// global validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct performs validation on any struct that has validation tags.
func ValidateStruct(s interface{}) error {
	if validate == nil {
		validate = validator.New()
	}
	err := validate.Struct(s)
	if err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, fmt.Sprintf("Validation failed on field '%s': rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%s", strings.Join(errorMessages, "; "))
	}
	return nil
}
