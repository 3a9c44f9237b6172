package store

import (
	"errors"
	"time"

	"github.com/josephgoksu/tasksense/models"
)

// Sentinel errors mapped to HTTP status codes at the handler layer.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrContextNotFound  = errors.New("context entry not found")
	ErrInsightNotFound  = errors.New("insight not found")
	ErrAnalysisNotFound = errors.New("context analysis not found")
	ErrMetricsNotFound  = errors.New("productivity metrics not found")
	ErrRelationNotFound = errors.New("task-context relation not found")
	ErrLogNotFound      = errors.New("processing log not found")
	ErrInvalidField     = errors.New("invalid update field")
)

// TaskFilter narrows ListTasks. Zero values mean "no constraint".
type TaskFilter struct {
	Status       models.TaskStatus
	Statuses     []models.TaskStatus
	Priority     models.TaskPriority
	Priorities   []models.TaskPriority
	CategoryID   string
	AIEnhanced   *bool
	Search       string // substring match on title/description
	CreatedAfter *time.Time
	Today        *time.Time // due or created on this calendar day (UTC)
	DueAfter     *time.Time
	DueBefore    *time.Time
	OrderBy      string // validated against a fixed column list
	Limit        int
}

// ContextFilter narrows ListContextEntries.
type ContextFilter struct {
	SourceType  models.ContextSource
	IsProcessed *bool
	Since       *time.Time
	Search      string
	Limit       int
}

// InsightFilter narrows ListInsights. ActiveOnly is the default scope for
// the API surface.
type InsightFilter struct {
	Type       models.InsightType
	ActiveOnly bool
}

// RelationFilter narrows ListRelations.
type RelationFilter struct {
	TaskID         string
	ContextEntryID string
}

// LogFilter narrows ListProcessingLogs.
type LogFilter struct {
	OperationType models.OperationType
	Success       *bool
}

// DailyActivity is one day's task-creation count for the stats endpoint.
type DailyActivity struct {
	Date         string `json:"date"`
	TasksCreated int    `json:"tasks_created"`
}

// TaskStats is the aggregate payload for GET /api/tasks/stats.
type TaskStats struct {
	TotalTasks           int             `json:"total_tasks"`
	CompletedTasks       int             `json:"completed_tasks"`
	PendingTasks         int             `json:"pending_tasks"`
	OverdueTasks         int             `json:"overdue_tasks"`
	CompletionRate       float64         `json:"completion_rate"`
	PriorityDistribution map[string]int  `json:"priority_distribution"`
	CategoryDistribution map[string]int  `json:"category_distribution"`
	RecentActivity       []DailyActivity `json:"recent_activity"`
}

// Store is the persistence contract for tasks, categories, context entries
// and the AI artifact tables. The SQLite implementation is the only one
// shipped; the interface exists so the orchestrator and server can be
// tested against fakes.
type Store interface {
	// Tasks
	CreateTask(t models.Task) (models.Task, error)
	GetTask(id string) (models.Task, error)
	SaveTask(t models.Task) (models.Task, error)
	UpdateTask(id string, updates map[string]any) (models.Task, error)
	DeleteTask(id string) error
	ListTasks(f TaskFilter) ([]models.Task, error)
	BulkUpdateTasks(ids []string, updates map[string]any) (int, error)
	UpdatePriorityScore(id string, score float64) (models.Task, error)
	TaskStats(now time.Time) (TaskStats, error)

	// Categories
	CreateCategory(c models.Category) (models.Category, error)
	GetCategory(id string) (models.Category, error)
	GetOrCreateCategory(name string) (models.Category, error)
	UpdateCategory(id string, updates map[string]any) (models.Category, error)
	DeleteCategory(id string) error
	ListCategories() ([]models.Category, error)
	PopularCategories(limit int) ([]models.Category, error)
	CategoryTaskCount(id string) (int, error)

	// Context entries and relations
	CreateContextEntry(e models.ContextEntry) (models.ContextEntry, error)
	GetContextEntry(id string) (models.ContextEntry, error)
	SaveContextEntry(e models.ContextEntry) (models.ContextEntry, error)
	DeleteContextEntry(id string) error
	ListContextEntries(f ContextFilter) ([]models.ContextEntry, error)
	MarkContextProcessed(id string, now time.Time) (models.ContextEntry, error)
	RelatedTaskCount(contextEntryID string) (int, error)
	LinkTaskContext(rel models.TaskContextRelation) (models.TaskContextRelation, error)
	GetRelation(id string) (models.TaskContextRelation, error)
	ListRelations(f RelationFilter) ([]models.TaskContextRelation, error)

	// AI insights
	CreateInsight(i models.AIInsight) (models.AIInsight, error)
	GetInsight(id string) (models.AIInsight, error)
	UpdateInsight(id string, updates map[string]any) (models.AIInsight, error)
	DeleteInsight(id string) error
	ListInsights(f InsightFilter) ([]models.AIInsight, error)

	// Context analyses
	CreateAnalysis(a models.ContextAnalysis) (models.ContextAnalysis, error)
	GetAnalysis(id string) (models.ContextAnalysis, error)
	ListAnalyses() ([]models.ContextAnalysis, error)

	// Productivity metrics
	UpsertMetrics(m models.ProductivityMetrics) (models.ProductivityMetrics, error)
	GetMetrics(id string) (models.ProductivityMetrics, error)
	ListMetrics(since *time.Time) ([]models.ProductivityMetrics, error)

	// Processing logs
	CreateProcessingLog(l models.AIProcessingLog) (models.AIProcessingLog, error)
	FinishProcessingLog(id string, output map[string]any, seconds float64, success bool, errMsg string) error
	GetProcessingLog(id string) (models.AIProcessingLog, error)
	ListProcessingLogs(f LogFilter) ([]models.AIProcessingLog, error)

	Close() error
}
